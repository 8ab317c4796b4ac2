package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/node-pulse/apcupsd-exporter/cmd/themes"
	"github.com/node-pulse/apcupsd-exporter/internal/apcaccess"
	"github.com/node-pulse/apcupsd-exporter/internal/logger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	statusFormat string
	statusRaw    bool
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch and print the UPS status once",
	Long: `Connects to apcupsd, fetches a single status report and prints every key.

Output formats: table (default), yaml, json. Use --raw to keep the units
apcupsd appends to values.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusFormat, "output", "o", "table", "output format: table, yaml or json")
	statusCmd.Flags().BoolVar(&statusRaw, "raw", false, "do not strip units from values")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Keep stdout for the report itself
	logCfg := cfg.Logging
	if logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	if err := logger.Initialize(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	client := apcaccess.NewClient(cfg.Apcupsd.Host, cfg.Apcupsd.Port, cfg.Apcupsd.Timeout,
		cfg.Apcupsd.StripUnits && !statusRaw)

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Apcupsd.Timeout)
	defer cancel()

	snap, err := client.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch status from %s: %w", client.Addr(), err)
	}

	return writeSnapshot(os.Stdout, snap, statusFormat)
}

// writeSnapshot prints snap in the requested format
func writeSnapshot(w io.Writer, snap apcaccess.Snapshot, format string) error {
	switch format {
	case "table", "":
		_, err := fmt.Fprintln(w, renderSnapshotTable(snap))
		return err

	case "yaml", "yml":
		out, err := yaml.Marshal(map[string]string(snap))
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = w.Write(out)
		return err

	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]string(snap)); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown output format %q (want table, yaml or json)", format)
	}
}

func renderSnapshotTable(snap apcaccess.Snapshot) string {
	th := themes.Current
	keys := snap.Keys()

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, snap[k]})
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(th.Primary).Padding(0, 1)
	keyStyle := lipgloss.NewStyle().Foreground(th.TextSecondary).Padding(0, 1)
	valueStyle := lipgloss.NewStyle().Foreground(th.TextPrimary).Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(th.Border)).
		Headers("KEY", "VALUE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return keyStyle
			case row >= 0 && row < len(keys) && keys[row] == "STATUS":
				return valueStyle.Bold(true).Foreground(th.StatusColor(snap["STATUS"]))
			default:
				return valueStyle
			}
		}).
		String()
}
