package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/node-pulse/apcupsd-exporter/internal/apcaccess"
	"github.com/node-pulse/apcupsd-exporter/internal/exporter"
	"github.com/node-pulse/apcupsd-exporter/internal/logger"
	"github.com/node-pulse/apcupsd-exporter/internal/pidfile"
	"github.com/node-pulse/apcupsd-exporter/internal/poller"
	"github.com/node-pulse/apcupsd-exporter/internal/server"
	"github.com/node-pulse/apcupsd-exporter/internal/state"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var pidFilePath string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"start"},
	Short:   "Poll apcupsd and serve Prometheus metrics",
	Long: `Fetches the UPS status once at startup, then polls apcupsd at the configured
interval and serves the latest snapshot on the metrics endpoint.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&pidFilePath, "pid-file", "", "PID file path (default: /run or ~/.apcupsd-exporter, skipped under systemd)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logger.Initialize(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
		}
	}()

	// systemd sets INVOCATION_ID and tracks the process itself
	if os.Getenv("INVOCATION_ID") == "" {
		path := pidFilePath
		if path == "" {
			path = pidfile.DefaultPath()
		}

		isRunning, existingPid, err := pidfile.CheckRunning(path)
		if err != nil {
			return fmt.Errorf("failed to check if exporter is running: %w", err)
		}
		if isRunning {
			return fmt.Errorf("exporter is already running with PID %d", existingPid)
		}

		if err := pidfile.Write(path, os.Getpid()); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer pidfile.Remove(path)
	}

	client := apcaccess.NewClient(cfg.Apcupsd.Host, cfg.Apcupsd.Port, cfg.Apcupsd.Timeout, cfg.Apcupsd.StripUnits)
	store := state.NewStore()
	p := poller.New(client, store, cfg.Exporter.Interval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			logger.Info("Shutting down exporter...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := initialFetch(ctx, p, store, client.Addr(), cfg.Exporter.RequireInitialFetch); err != nil {
		return err
	}

	reg, err := exporter.NewRegistry(store)
	if err != nil {
		return fmt.Errorf("failed to register collectors: %w", err)
	}

	srv := server.New(server.Options{
		Addr:        cfg.Exporter.Addr(),
		MetricsPath: cfg.Exporter.MetricsPath,
		Target:      client.Addr(),
	}, store, reg)

	go p.Run(ctx)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	logger.Info("Exporter started",
		logger.String("apcupsd", client.Addr()),
		logger.String("listen", cfg.Exporter.Addr()),
		logger.Duration("interval", cfg.Exporter.Interval),
		logger.Duration("timeout", cfg.Apcupsd.Timeout),
		logger.Bool("strip_units", cfg.Apcupsd.StripUnits))

	select {
	case err := <-serveErr:
		// Listener failed before any shutdown was requested
		cancel()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	logger.Info("Exporter stopped")
	return nil
}

// initialFetch polls once before the server starts. A failure stops startup
// when required, otherwise the exporter serves self-metrics until a poll
// succeeds.
func initialFetch(ctx context.Context, p *poller.Poller, store *state.Store, addr string, required bool) error {
	logger.Debug("Fetching initial apcupsd status", logger.String("addr", addr))

	if err := p.PollOnce(ctx); err != nil {
		if required {
			return fmt.Errorf("failed to fetch initial apcupsd status from %s: %w", addr, err)
		}
		logger.Warn("Initial fetch failed, serving without UPS metrics until the next poll",
			logger.String("addr", addr))
		return nil
	}

	logger.Info("Fetched initial apcupsd status",
		logger.String("addr", addr),
		logger.Int("keys", store.Load().Snapshot.Len()))
	return nil
}
