package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"walletcheckin/pkg/auth"
	"walletcheckin/pkg/backend"
	"walletcheckin/pkg/checkin"
	"walletcheckin/pkg/checkpoint"
	"walletcheckin/pkg/config"
	errs "walletcheckin/pkg/errors"
	"walletcheckin/pkg/logger"
	"walletcheckin/pkg/metrics"
	"walletcheckin/pkg/ui"
)

var (
	// Run command flags
	checkpointPath    string
	addressPrefix     string
	batchSize         int
	concurrency       int
	interCallDelay    time.Duration
	interBatchDelay   time.Duration
	maxAttempts       int
	retryDelay        time.Duration
	backendURL        string
	deployment        string
	requestsPerMinute int
	metricsAddr       string
	forceRestart      bool
	strictCheckpoint  bool
	notify            bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Check in every address of a list",
	Long: `Log in and check in every address listed in file, one address per line.

Blank lines and lines that do not start with the address prefix are skipped.
The checkpoint is written after every batch and archived when the list is
done; the next run on the same list starts from the top again.`,
	Example: `  # Run with defaults against a deployment
  walletcheckin run wallets.txt --deployment happy-otter-123

  # Five batches of 20 with 10 concurrent addresses
  walletcheckin run wallets.txt --batch-size 20 --concurrency 10

  # Ignore an existing checkpoint
  walletcheckin run wallets.txt --force-restart

  # Expose Prometheus metrics while running
  walletcheckin run wallets.txt --metrics-addr :9090`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheckIn,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVar(&checkpointPath, "checkpoint", "", "checkpoint file (default: derived from the list name in the data directory)")
	f.StringVar(&addressPrefix, "prefix", "", "required address prefix (default 0x)")
	f.IntVar(&batchSize, "batch-size", 0, "addresses per batch (default 10)")
	f.IntVar(&concurrency, "concurrency", 0, "addresses processed at once (default 5)")
	f.DurationVar(&interCallDelay, "inter-call-delay", -1, "pause between login and check-in (default 1s)")
	f.DurationVar(&interBatchDelay, "inter-batch-delay", -1, "pause between batches (default 2s)")
	f.IntVar(&maxAttempts, "max-attempts", 0, "attempts per remote call (default 3)")
	f.DurationVar(&retryDelay, "retry-delay", -1, "wait between attempts (default 2s)")
	f.StringVar(&backendURL, "backend-url", "", "backend base URL")
	f.StringVar(&deployment, "deployment", "", "hosted deployment name, used when no URL is set")
	f.IntVar(&requestsPerMinute, "requests-per-minute", -1, "throttle for remote calls, 0 disables")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.BoolVar(&forceRestart, "force-restart", false, "delete an existing checkpoint before running")
	f.BoolVar(&strictCheckpoint, "strict-checkpoint", false, "abort when a checkpoint cannot be written")
	f.BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")
}

// runFlags collects the flags the user actually set
func runFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})
	if len(args) > 0 {
		flags["source"] = args[0]
	}
	if checkpointPath != "" {
		flags["checkpoint"] = checkpointPath
	}
	if addressPrefix != "" {
		flags["prefix"] = addressPrefix
	}
	if cmd.Flags().Changed("strict-checkpoint") {
		flags["strict-checkpoint"] = strictCheckpoint
	}
	if batchSize > 0 {
		flags["batch-size"] = batchSize
	}
	if concurrency > 0 {
		flags["concurrency"] = concurrency
	}
	if interCallDelay >= 0 {
		flags["inter-call-delay"] = interCallDelay
	}
	if interBatchDelay >= 0 {
		flags["inter-batch-delay"] = interBatchDelay
	}
	if maxAttempts > 0 {
		flags["max-attempts"] = maxAttempts
	}
	if retryDelay >= 0 {
		flags["retry-delay"] = retryDelay
	}
	if backendURL != "" {
		flags["backend-url"] = backendURL
	}
	if deployment != "" {
		flags["deployment"] = deployment
	}
	if requestsPerMinute >= 0 {
		flags["requests-per-minute"] = requestsPerMinute
	}
	if metricsAddr != "" {
		flags["metrics-addr"] = metricsAddr
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

// loadConfig loads configuration and initializes the global logger
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, errs.Configuration("invalid configuration", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, errs.Configuration("cannot set up logging", err)
	}
	return cfg, nil
}

func runCheckIn(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(runFlags(cmd, args))
	if err != nil {
		return err
	}
	log := logger.WithField("version", version)

	ui.PrintLogo()

	if cfg.Backend.DeployKey == "" {
		resolveDeployKey(cfg, log)
	}
	if err := cfg.ValidateRemote(); err != nil {
		return errs.Configuration("backend is not configured", err)
	}

	client, err := backend.NewClientFromConfig(cfg, log.WithField("component", "backend"))
	if err != nil {
		return err
	}

	store, err := checkpoint.NewManager(cfg.Checkpoint.Path, cfg.Source.Path)
	if err != nil {
		return err
	}
	store.SetLogger(log.WithField("component", "checkpoint"))

	if forceRestart && store.Exists() {
		if err := store.Delete(); err != nil {
			return err
		}
		ui.PrintWarning("Existing checkpoint removed", store.Path())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.New(cfg.Metrics.Namespace)
	if cfg.Metrics.Addr != "" {
		metricsCtx, cancelMetrics := context.WithCancel(context.Background())
		defer cancelMetrics()
		go func() {
			if err := recorder.Serve(metricsCtx, cfg.Metrics.Addr, log); err != nil {
				log.WithError(err).Warn("Metrics server stopped")
			}
		}()
	}

	runner := checkin.New(checkin.OptionsFromConfig(cfg), client, store)
	runner.SetLogger(log)
	runner.SetRecorder(recorder)
	runner.SetProgress(ui.NewProgressDisplay(cfg.Source.Path, verbose))

	ui.PrintInfo("Address list", cfg.Source.Path)
	ui.PrintInfo("Checkpoint", store.Path())
	ui.PrintInfo("Backend", client.BaseURL())
	ui.PrintInfo("Batching", fmt.Sprintf("%d per batch, %d at once, %d attempts per call",
		cfg.Batch.Size, cfg.Batch.Concurrency, cfg.Retry.MaxAttempts))

	summary, err := runner.Run(ctx)
	if notify {
		ui.NewNotifier().JobFinished(cfg.Source.Path, summary.Successful, summary.Failed)
	}
	if err != nil {
		if errors.Is(err, checkin.ErrInterrupted) {
			ui.PrintWarning("Interrupted. Run again to resume after the last completed batch")
		}
		return err
	}

	if summary.ArchivePath != "" {
		ui.PrintInfo("Checkpoint archived", summary.ArchivePath)
	}
	if summary.Failed > 0 {
		ui.PrintWarning("Some addresses failed", strconv.Itoa(summary.Failed))
	}
	return nil
}

// resolveDeployKey fills the deploy key from the credential store. Public
// functions work without one, so a missing key is only logged.
func resolveDeployKey(cfg *config.Config, log logger.Logger) {
	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Debug("Credential store unavailable")
		return
	}

	cred, err := manager.Resolve(cfg.Backend.Deployment)
	if err != nil {
		log.Debug("No stored deploy key, calling public functions")
		return
	}

	cfg.Backend.DeployKey = cred.DeployKey
	if cfg.Backend.URL == "" && cfg.Backend.Deployment == "" && cred.BackendURL != "" {
		cfg.Backend.URL = cred.BackendURL
	}
	log.WithField("credential", cred.Name).Info("Using stored deploy key")
}
