package provision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteIDESettings writes the app's .vscode/settings.json binding the editor
// to the deployed resource. Existing settings in the file are preserved;
// only the deployment keys are replaced.
func WriteIDESettings(appDir, resourceID, resourceName string) error {
	dir := filepath.Join(appDir, ".vscode")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("provision: creating %s: %w", dir, err)
	}

	path := filepath.Join(dir, "settings.json")
	settings := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &settings)
	}

	settings["appService.defaultWebAppToDeploy"] = resourceID
	settings["appService.deploySubpath"] = "build"
	settings["appService.preDeployTask"] = "npm: build"
	settings["harborline.deployedResourceName"] = resourceName

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("provision: encoding settings: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("provision: writing %s: %w", path, err)
	}
	return nil
}
