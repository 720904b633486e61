// Package provision runs the one-shot environment provisioning flow: local
// config artifacts, two sequential cloud deployments scoped by a random run
// prefix, and IDE settings for the deployed apps.
package provision

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/harborline/shopfront/internal/config"
)

// Summary is the final provisioning result.
type Summary struct {
	FunctionsAppName string
	URL              string
}

// Orchestrator drives the provisioning sequence. Steps run strictly in
// order; the first failure stops the run.
type Orchestrator struct {
	cloud    Cloud
	prompter Prompter
	cfg      config.ProvisionConfig
	commerce config.CommerceConfig
	logger   *zap.Logger
	out      io.Writer

	newPrefix   func() string
	cleanupDone bool
}

// NewOrchestrator wires an orchestrator.
func NewOrchestrator(cloud Cloud, prompter Prompter, cfg config.ProvisionConfig, commerce config.CommerceConfig, logger *zap.Logger, out io.Writer) *Orchestrator {
	return &Orchestrator{
		cloud:     cloud,
		prompter:  prompter,
		cfg:       cfg,
		commerce:  commerce,
		logger:    logger,
		out:       out,
		newPrefix: randomPrefix,
	}
}

// Run executes the full provisioning sequence and returns the summary of the
// deployed functions app.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	nodeVersion := o.cfg.NodeVersion
	if nodeVersion == "" {
		nodeVersion = "~20"
	}

	// Local artifacts first; nothing remote has happened yet if these fail.
	// Each app gets its own platform client ID next to the pinned runtime.
	envTargets := []struct {
		dir      string
		clientID string
	}{
		{o.cfg.AdminDir, o.commerce.AdminClientID},
		{o.cfg.StorefrontDir, o.commerce.StorefrontClientID},
	}
	for _, target := range envTargets {
		settings := map[string]string{"CLIENT_ID": target.clientID}
		if err := WriteEnvFile(target.dir, nodeVersion, settings); err != nil {
			return nil, err
		}
	}

	prefix := o.newPrefix()
	o.logger.Info("provisioning run started", zap.String("prefix", prefix))

	// All choices are collected before the first cloud call, so an aborted
	// prompt never leaves partial infrastructure behind.
	planSKU, ok, err := o.prompter.Select("Choose an app hosting plan SKU", AppPlanSKUs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("provision: no app plan SKU selected")
	}

	storageSKU, ok, err := o.prompter.Select("Choose a storage SKU", StorageSKUs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("provision: no storage SKU selected")
	}

	storageKind, ok, err := o.prompter.Select("Choose a storage kind", StorageKindsFor(storageSKU))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("provision: no storage kind selected")
	}

	coreOutputs, err := o.cloud.Deploy(ctx, prefix+"-core",
		filepath.Join(o.cfg.TemplatesDir, "core.yaml"),
		map[string]string{
			"Prefix":      prefix,
			"AppPlanSku":  planSKU,
			"StorageSku":  storageSKU,
			"StorageKind": storageKind,
		})
	if err != nil {
		return nil, o.failWithCleanup(ctx, prefix, err)
	}

	resources, err := o.cloud.ResourcesByPrefix(ctx, prefix)
	if err != nil {
		return nil, o.failWithCleanup(ctx, prefix, err)
	}

	storage, ok := findResource(resources, coreOutputs["StorageName"])
	if !ok {
		return nil, o.failWithCleanup(ctx, prefix,
			fmt.Errorf("provision: no storage resource found under prefix %s", prefix))
	}

	accessKey, err := o.cloud.StorageAccessKey(ctx, storage.Name)
	if err != nil {
		return nil, o.failWithCleanup(ctx, prefix, err)
	}

	funcOutputs, err := o.cloud.Deploy(ctx, prefix+"-functions",
		filepath.Join(o.cfg.TemplatesDir, "functions.yaml"),
		map[string]string{
			"Prefix":                  prefix,
			"FunctionsAppName":        prefix + o.cfg.FuncAppName,
			"PlanID":                  coreOutputs["PlanID"],
			"StorageConnectionString": storageConnectionString(storage.Name, accessKey),
		})
	if err != nil {
		return nil, o.failWithCleanup(ctx, prefix, err)
	}

	resources, err = o.cloud.ResourcesByPrefix(ctx, prefix)
	if err != nil {
		return nil, o.failWithCleanup(ctx, prefix, err)
	}

	funcApp, ok := findResource(resources, funcOutputs["FunctionsAppName"])
	if !ok {
		return nil, o.failWithCleanup(ctx, prefix,
			fmt.Errorf("provision: functions app %q not found after deployment", funcOutputs["FunctionsAppName"]))
	}

	// Each web app is resolved by the exact name the deployment reported.
	apps := []struct {
		dir    string
		output string
	}{
		{o.cfg.AdminDir, coreOutputs["AdminAppName"]},
		{o.cfg.StorefrontDir, coreOutputs["StorefrontAppName"]},
	}
	for _, app := range apps {
		res, ok := findResource(resources, app.output)
		if !ok {
			return nil, o.failWithCleanup(ctx, prefix,
				fmt.Errorf("provision: deployed app %q not found among prefix resources", app.output))
		}
		if err := WriteIDESettings(app.dir, res.ID, res.Name); err != nil {
			return nil, o.failWithCleanup(ctx, prefix, err)
		}
	}

	summary := &Summary{
		FunctionsAppName: funcApp.Name,
		URL:              fmt.Sprintf("https://%s.lambda-url.%s.on.aws", funcApp.Name, o.cfg.Region),
	}
	o.logger.Info("provisioning run complete",
		zap.String("prefix", prefix),
		zap.String("functions_app", summary.FunctionsAppName),
		zap.String("url", summary.URL),
	)
	fmt.Fprintf(o.out, "Functions app: %s\nURL: %s\n", summary.FunctionsAppName, summary.URL)
	return summary, nil
}

// failWithCleanup offers interactive cleanup for the failed run, at most
// once, and always returns the original error.
func (o *Orchestrator) failWithCleanup(ctx context.Context, prefix string, cause error) error {
	if o.cleanupDone {
		return cause
	}
	o.cleanupDone = true

	o.logger.Error("provisioning failed, offering cleanup",
		zap.String("prefix", prefix), zap.Error(cause))

	if err := o.Cleanup(ctx, prefix, ""); err != nil {
		o.logger.Warn("cleanup did not finish", zap.Error(err))
	}
	return cause
}

// findResource matches a resource by its exact name.
func findResource(resources []Resource, name string) (Resource, bool) {
	if name == "" {
		return Resource{}, false
	}
	for _, res := range resources {
		if res.Name == name {
			return res, true
		}
	}
	return Resource{}, false
}

func storageConnectionString(name, key string) string {
	return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s", name, key)
}

const prefixAlphabet = "abcdefghijklmnopqrstuvwxyz"

// randomPrefix returns a 6-character lowercase identifier scoping one run's
// resources.
func randomPrefix() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = prefixAlphabet[int(b)%len(prefixAlphabet)]
	}
	return string(buf)
}
