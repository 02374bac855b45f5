package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"walletcheckin/pkg/auth"
	"walletcheckin/pkg/config"
	"walletcheckin/pkg/ui"
)

const exampleConfig = `# walletcheckin configuration
#
# Every value can be overridden with a WALLETCHECKIN_ environment variable,
# for example WALLETCHECKIN_BATCH_SIZE or WALLETCHECKIN_DEPLOY_KEY.

source:
  # One address per line
  path: "addresses.txt"
  # Lines not starting with this prefix are skipped
  prefix: "0x"

checkpoint:
  # Empty derives <data dir>/checkpoints/<list name>.checkpoint.json
  path: ""
  # Abort the run when a checkpoint cannot be written
  strict: false

batch:
  size: 10
  concurrency: 5
  inter_call_delay: 1s
  inter_batch_delay: 2s

retry:
  # Attempts per remote call, first one included
  max_attempts: 3
  delay: 2s
  # constant or exponential
  strategy: constant
  max_delay: 30s
  multiplier: 2.0
  jitter_factor: 0.1

backend:
  # Either a full URL or a hosted deployment name
  url: ""
  deployment: ""
  login_function: "wallet:login"
  checkin_function: "wallet:checkIn"
  # gjson path of the point total in the check-in result
  points_path: "points"
  timeout: 30s

rate_limit:
  # 0 disables throttling
  requests_per_minute: 0
  burst_size: 10

logging:
  # debug, info, warn, error
  level: info
  # text or json
  format: text
  file: ""

metrics:
  # For example ":9090"; empty disables the endpoint
  addr: ""
  namespace: walletcheckin
`

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage walletcheckin configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (WALLETCHECKIN_*)
  - .env files
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the merged configuration with secrets masked",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = "walletcheckin.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := os.WriteFile(path, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	ui.PrintInfo("Next", "set backend.url or backend.deployment, then run 'walletcheckin config validate'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	display := *cfg
	if display.Backend.DeployKey != "" {
		display.Backend.DeployKey = auth.MaskString(display.Backend.DeployKey)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current configuration")
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration has errors")
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", line)
		}
		return fmt.Errorf("invalid configuration")
	}

	if err := cfg.ValidateRemote(); err != nil {
		ui.PrintWarning("Backend", err.Error())
	}
	if _, err := os.Stat(cfg.Source.Path); err != nil {
		ui.PrintWarning("Address list not found", cfg.Source.Path)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Address list", cfg.Source.Path)
	ui.PrintInfo("Batching", fmt.Sprintf("%d per batch, %d at once", cfg.Batch.Size, cfg.Batch.Concurrency))
	ui.PrintInfo("Retry", fmt.Sprintf("%d attempts, %s %s", cfg.Retry.MaxAttempts, cfg.Retry.Strategy, cfg.Retry.Delay))
	ui.PrintInfo("Log level", cfg.Logging.Level)
	return nil
}
