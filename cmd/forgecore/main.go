package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/forgecore/pkg/config"
	"github.com/cuemby/forgecore/pkg/core"
	"github.com/cuemby/forgecore/pkg/log"
	"github.com/cuemby/forgecore/pkg/metrics"
)

var (
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
	Use:   "forgecore",
	Short: "forgecore - CI job tracking, artifact storage, quota admission, and region failover",
	Long: `forgecore tracks CI/CD job lifecycles, stores build artifacts,
enforces per-entity resource quotas, fails traffic over between regions,
and sleeps idle nodes to cut cost — all as one embeddable control plane.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"forgecore version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(artifactCmd)
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(regionCmd)
	rootCmd.AddCommand(nodeCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start forgecore as a long-running service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		c, err := core.New(cfg)
		if err != nil {
			return fmt.Errorf("start core: %w", err)
		}
		defer c.Close()

		metrics.SetVersion(Version)
		metrics.RegisterComponent("jobtracker", true, "ready")
		metrics.RegisterComponent("artifactstore", true, "ready")
		metrics.RegisterComponent("quotamanager", true, "ready")

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())

		fmt.Printf("forgecore listening on %s\n", cfg.Metrics.Addr)
		fmt.Printf("  metrics:   http://%s/metrics\n", cfg.Metrics.Addr)
		fmt.Printf("  health:    http://%s/health\n", cfg.Metrics.Addr)
		fmt.Printf("  ready:     http://%s/ready\n", cfg.Metrics.Addr)
		fmt.Printf("  live:      http://%s/live\n", cfg.Metrics.Addr)

		return http.ListenAndServe(cfg.Metrics.Addr, mux)
	},
}

