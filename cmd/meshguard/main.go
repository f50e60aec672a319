package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meshguard/meshguard/pkg/actuator"
	"github.com/meshguard/meshguard/pkg/api"
	"github.com/meshguard/meshguard/pkg/config"
	"github.com/meshguard/meshguard/pkg/events"
	"github.com/meshguard/meshguard/pkg/guardian"
	"github.com/meshguard/meshguard/pkg/log"
	"github.com/meshguard/meshguard/pkg/metrics"
	"github.com/meshguard/meshguard/pkg/probe"
	"github.com/meshguard/meshguard/pkg/scheduler"
	"github.com/meshguard/meshguard/pkg/storage"
	"github.com/meshguard/meshguard/pkg/types"
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
	Use:   "meshguard",
	Short: "Meshguard - fault detection and self-healing for a fixed node set",
	Long: `Meshguard supervises the liveness of a small, statically known set of
cooperating nodes, restarts the ones that fail repeatedly, and bounds
how aggressively it intervenes so a flapping node cannot be restarted
forever nor left permanently dead once its restart budget runs out.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Meshguard version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the guardian daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		nodesPath, _ := cmd.Flags().GetString("nodes")

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if nodesPath != "" {
			cfg.NodesFile = nodesPath
		}

		logLevel := log.InfoLevel
		if cfg.Logging.Verbose {
			logLevel = log.DebugLevel
		}
		log.Init(log.Config{Level: logLevel, JSONOutput: cfg.Logging.Format == "json"})
		metrics.SetVersion(Version)

		specs, err := config.LoadNodes(cfg.NodesFile)
		if err != nil {
			return fmt.Errorf("failed to load node manifest: %w", err)
		}
		log.Logger.Info().Int("nodes", len(specs)).Str("manifest", cfg.NodesFile).Msg("node set loaded")

		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open state store: %w", err)
		}
		defer store.Close()

		probers, restarters, err := buildAdapters(specs)
		if err != nil {
			return err
		}

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		guard, err := guardian.New(guardian.Config{
			MaxFailures:    cfg.Guardian.MaxFailures,
			MaxRestarts:    cfg.Guardian.MaxRestarts,
			RestartTimeout: cfg.RestartTimeout(),
			StartActive:    cfg.Guardian.StartActive,
		}, specs, restarters, store, broker)
		if err != nil {
			return fmt.Errorf("failed to create guardian: %w", err)
		}
		metrics.RegisterComponent("guardian", true, "running")

		sched := scheduler.New(guard, probers, cfg.ProbeInterval(), cfg.ProbeTimeout())
		sched.Start()
		defer sched.Stop()
		metrics.RegisterComponent("scheduler", true, "running")

		errCh := make(chan error, 2)

		var apiServer *api.Server
		if cfg.API.Enabled {
			apiServer = api.NewServer(guard, broker, cfg.API.Address)
			go func() {
				if err := apiServer.Start(); err != nil {
					errCh <- err
				}
			}()
			defer apiServer.Stop()
		}

		if cfg.Metrics.Enabled {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				mux.HandleFunc("/health", metrics.HealthHandler())
				mux.HandleFunc("/ready", metrics.ReadyHandler())
				mux.HandleFunc("/live", metrics.LivenessHandler())
				if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
					errCh <- fmt.Errorf("metrics server: %w", err)
				}
			}()
		}

		log.Logger.Info().Msg("guardian is running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Logger.Info().Msg("shutting down")
		case err := <-errCh:
			log.Logger.Error().Err(err).Msg("server failed")
			return err
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the guardian's current view of the node set",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("api")

		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/v1/state", addr))
		if err != nil {
			return fmt.Errorf("failed to reach guardian: %w", err)
		}
		defer resp.Body.Close()

		var body struct {
			Data types.ClusterSnapshot `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		snap := body.Data
		fmt.Printf("Guardian: active=%v lastProbe=%s\n", snap.Active, orNone(snap.LastHealthCheck))
		for _, node := range snap.Nodes {
			fmt.Printf("  %-16s %-11s failures=%d restarts=%d\n",
				node.ID, node.State, node.FailureCount, node.RestartCount)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("config", "meshguard.toml", "Path to TOML configuration file")
	runCmd.Flags().String("nodes", "", "Path to YAML node manifest (overrides config)")

	statusCmd.Flags().String("api", "127.0.0.1:7370", "Admin API address")
}

// buildAdapters constructs the probe and restart adapters for each node
func buildAdapters(specs []types.NodeSpec) (map[string]probe.Prober, map[string]actuator.Restarter, error) {
	probers := make(map[string]probe.Prober, len(specs))
	restarters := make(map[string]actuator.Restarter, len(specs))

	for _, spec := range specs {
		p, err := probe.New(spec.Probe)
		if err != nil {
			return nil, nil, fmt.Errorf("node %s: %w", spec.ID, err)
		}
		probers[spec.ID] = p

		r, err := actuator.New(spec.Restart)
		if err != nil {
			return nil, nil, fmt.Errorf("node %s: %w", spec.ID, err)
		}
		restarters[spec.ID] = r
	}

	return probers, restarters, nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
