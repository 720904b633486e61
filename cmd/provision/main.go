// Package main is the provisioning CLI. It runs the one-shot environment
// setup against the cloud and can list or clean up the resources of a run.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harborline/shopfront/internal/config"
	"github.com/harborline/shopfront/internal/observability"
	"github.com/harborline/shopfront/internal/provision"
)

var (
	configPath string
	prefix     string
	pattern    string
)

var rootCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision shopfront environments",
	Long: `Provision runs the one-shot environment setup for the shopfront
platform: local app config artifacts, the core deployment (hosting plan,
web apps, vault, storage), and the integrations functions app, all scoped
by a random run prefix.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full provisioning sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := newOrchestrator(cmd)
		if err != nil {
			return err
		}
		summary, err := o.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nProvisioning complete.\n  Functions app: %s\n  URL: %s\n",
			summary.FunctionsAppName, summary.URL)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List resources provisioned under a run prefix",
	RunE: func(cmd *cobra.Command, args []string) error {
		if prefix == "" {
			return fmt.Errorf("--prefix is required")
		}
		o, err := newOrchestrator(cmd)
		if err != nil {
			return err
		}
		return o.List(cmd.Context(), prefix)
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Interactively delete resources under a run prefix",
	RunE: func(cmd *cobra.Command, args []string) error {
		if prefix == "" {
			return fmt.Errorf("--prefix is required")
		}
		o, err := newOrchestrator(cmd)
		if err != nil {
			return err
		}
		return o.Cleanup(cmd.Context(), prefix, pattern)
	},
}

func newOrchestrator(cmd *cobra.Command) (*provision.Orchestrator, error) {
	cfg, err := config.LoadTool(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return nil, err
	}

	cloud, err := provision.NewAWSCloud(cmd.Context(), cfg.Provision.Region)
	if err != nil {
		return nil, err
	}

	prompter := provision.NewConsolePrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	return provision.NewOrchestrator(cloud, prompter, cfg.Provision, cfg.Commerce, logger, cmd.OutOrStdout()), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	listCmd.Flags().StringVar(&prefix, "prefix", "", "run prefix to list")
	cleanupCmd.Flags().StringVar(&prefix, "prefix", "", "run prefix to clean up")
	cleanupCmd.Flags().StringVar(&pattern, "pattern", "", "glob pattern narrowing resources by name")
	rootCmd.AddCommand(runCmd, listCmd, cleanupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
