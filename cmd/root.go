package cmd

import (
	"fmt"
	"os"

	"github.com/node-pulse/apcupsd-exporter/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "apcupsd-exporter",
	Short: "Prometheus exporter for apcupsd",
	Long: `apcupsd-exporter polls an apcupsd Network Information Server and publishes the UPS status as Prometheus metrics.

When called without a subcommand, it runs in foreground mode (equivalent to 'apcupsd-exporter serve').`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Lets systemd and containers call the binary with just --config
		return runServe(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already printed the error and usage, just exit with code 1
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: search /etc/apcupsd-exporter, ~/.apcupsd-exporter, .)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}

// loadConfig loads the configuration and applies command line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	return cfg, nil
}
