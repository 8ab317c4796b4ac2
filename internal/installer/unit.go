package installer

import (
	"fmt"
	"os"
	"strings"
	"text/template"
)

const (
	ServiceName     = "apcupsd-exporter"
	DefaultUnitPath = "/etc/systemd/system/apcupsd-exporter.service"
)

// UnitOptions fills in the systemd service unit
type UnitOptions struct {
	BinaryPath string
	ConfigPath string
	// After lists extra units to order after, e.g. apcupsd.service when
	// the daemon runs on the same host
	After []string
}

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=Prometheus exporter for apcupsd
After=network-online.target{{range .After}} {{.}}{{end}}
Wants=network-online.target

[Service]
Type=simple
ExecStart={{.BinaryPath}} serve --config {{.ConfigPath}}
Restart=always
RestartSec=10s

# Logging
StandardOutput=journal
StandardError=journal
SyslogIdentifier=apcupsd-exporter

[Install]
WantedBy=multi-user.target
`))

// RenderUnit returns the service unit content
func RenderUnit(opts UnitOptions) (string, error) {
	if opts.BinaryPath == "" || opts.ConfigPath == "" {
		return "", fmt.Errorf("binary and config paths are required")
	}
	for _, u := range opts.After {
		if u == "" || strings.ContainsAny(u, " \t\n") {
			return "", fmt.Errorf("invalid unit name: %q", u)
		}
	}

	var b strings.Builder
	if err := unitTemplate.Execute(&b, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}

// InstallUnit writes the service unit to path
func InstallUnit(path string, opts UnitOptions) error {
	content, err := RenderUnit(opts)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write service unit: %w", err)
	}
	return nil
}

// UninstallUnit removes the service unit
func UninstallUnit(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove service unit: %w", err)
	}
	return nil
}
