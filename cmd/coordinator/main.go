package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/muster/internal/config"
	"github.com/cuemby/muster/internal/coordinator"
	"github.com/cuemby/muster/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "coordinator",
	Short:   "Training fleet coordinator",
	Long:    `coordinator assigns dataset shards to training workers, rendezvouses them at barriers, and tracks checkpoint progress across a training run.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"coordinator version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	logging.Init(logging.Config{
		Level:      logging.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the coordinator process",
	Long: `Run starts the coordinator's RPC and control-plane listeners and
blocks until it receives SIGINT or SIGTERM, at which point it shuts down
gracefully: every still-gathering barrier is aborted, the liveness sweeper
and metrics collector stop, and the storage backend is closed.`,
	RunE: runCoordinator,
}

func init() {
	runCmd.Flags().String("config", "coordinator.toml", "Path to coordinator.toml")
	runCmd.Flags().Bool("demo", false, "Seed a synthetic worker/dataset/task fixture on startup")
}

func runCoordinator(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	demo, _ := cmd.Flags().GetBool("demo")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if demo {
		cfg.DemoMode = true
	}

	co, err := coordinator.New(cfg)
	if err != nil {
		return fmt.Errorf("construct coordinator: %w", err)
	}

	if cfg.DemoMode {
		if err := co.SeedDemo(); err != nil {
			return fmt.Errorf("seed demo fixture: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Logger.Info().
		Str("rpc_addr", cfg.Coordinator.RPCAddr).
		Str("control_plane_addr", cfg.Coordinator.ControlPlaneAddr).
		Str("storage_backend", cfg.Storage.Backend).
		Bool("demo_mode", cfg.DemoMode).
		Msg("starting coordinator")

	return co.Run(ctx)
}
