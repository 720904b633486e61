package provision

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// envFileName is the local development settings file each app reads.
const envFileName = ".env.local"

// nodeVersionKey pins the hosting runtime for both web apps.
const nodeVersionKey = "WEBSITE_NODE_DEFAULT_VERSION"

// WriteEnvFile writes the app's local settings file. The Node runtime entry
// is always present; remaining settings are written sorted so reruns produce
// identical files.
func WriteEnvFile(appDir, nodeVersion string, settings map[string]string) error {
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return fmt.Errorf("provision: creating app dir %s: %w", appDir, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s\n", nodeVersionKey, nodeVersion)

	keys := make([]string, 0, len(settings))
	for key := range settings {
		if key == nodeVersionKey {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%s\n", key, settings[key])
	}

	path := filepath.Join(appDir, envFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("provision: writing %s: %w", path, err)
	}
	return nil
}
