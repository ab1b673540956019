package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/releva-ai/releva-go/pkg/client"
	"github.com/releva-ai/releva-go/pkg/config"
	"github.com/releva-ai/releva-go/pkg/events"
	"github.com/releva-ai/releva-go/pkg/log"
	"github.com/releva-ai/releva-go/pkg/metrics"
	"github.com/releva-ai/releva-go/pkg/tracking"
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
	Use:   "releva",
	Short: "Releva - tracking SDK command line",
	Long: `releva drives a Releva tracking client from the command line.

Identity, cart and wishlist state is kept in a local store between
invocations, exactly as an embedding application would keep it, so
successive commands report only what changed since the last
acknowledged push.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"releva version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory of the local store (overrides config)")
	rootCmd.PersistentFlags().String("features", "", "Feature preset: full, messaging-only, tracking-only or push-only")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print client events and debug logs")

	rootCmd.AddCommand(identityCmd)
	rootCmd.AddCommand(cartCmd)
	rootCmd.AddCommand(wishlistCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(engagementCmd)
	rootCmd.AddCommand(sessionCmd)
}

// runtime state shared by the subcommands of one invocation
var (
	relevaClient *client.Client
	eventSub     events.Subscriber
	printerDone  sync.WaitGroup
	metricsSrv   *http.Server
)

func setup(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	features, _ := cmd.Flags().GetString("features")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if dataDir != "" {
		os.Setenv("RELEVA_DATA_DIR", dataDir)
	}
	if features != "" {
		os.Setenv("RELEVA_FEATURES", features)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if verbose {
		level = log.DebugLevel
	}
	log.Init(log.Config{
		Level:      level,
		JSONOutput: cfg.Log.JSON,
		Output:     os.Stderr,
	})
	tracking.Version = "releva-cli-" + Version
	metrics.SetVersion(tracking.Version)

	c, err := client.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	relevaClient = c

	if verbose {
		eventSub = c.Events().Subscribe()
		printerDone.Add(1)
		go printEvents(eventSub)
	}

	if metricsAddr != "" {
		metricsSrv = &http.Server{Addr: metricsAddr, Handler: metricsMux()}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server error", err)
			}
		}()
		log.Info("serving metrics on " + metricsAddr + "/metrics")
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	if metricsSrv != nil {
		if err := metricsSrv.Close(); err != nil {
			log.Warn("metrics server did not close cleanly: " + err.Error())
		}
	}
	if relevaClient == nil {
		return
	}
	if err := relevaClient.Close(); err != nil {
		log.Errorf("failed to close client", err)
	}
	if eventSub != nil {
		relevaClient.Events().Unsubscribe(eventSub)
		printerDone.Wait()
	}
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	return mux
}

func printEvents(sub events.Subscriber) {
	defer printerDone.Done()
	for event := range sub {
		fmt.Fprintf(os.Stderr, "[%s] %s %s\n", event.Timestamp.Format("15:04:05"), event.Type, event.Message)
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
