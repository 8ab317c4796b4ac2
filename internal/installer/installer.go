package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/node-pulse/apcupsd-exporter/internal/config"
)

const (
	DefaultConfigDir  = "/etc/apcupsd-exporter"
	DefaultConfigPath = "/etc/apcupsd-exporter/apcupsd-exporter.yml"
	DefaultBinaryPath = "/usr/local/bin/apcupsd-exporter"
)

// CheckPermissions verifies the user can write the system locations
func CheckPermissions() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("this command requires root privileges. Please run with sudo")
	}

	if err := checkWritable("/etc"); err != nil {
		return fmt.Errorf("no write access to /etc: %w", err)
	}

	return nil
}

// checkWritable tests if a directory is writable
func checkWritable(dir string) error {
	testFile := filepath.Join(dir, ".apcupsd-exporter-write-test")
	f, err := os.Create(testFile)
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(testFile)
}

// WriteConfigFile writes cfg to path in config file form. An existing file
// is left alone unless overwrite is set; written reports what happened.
func WriteConfigFile(path string, cfg *config.Config, overwrite bool) (written bool, err error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	data, err := cfg.YAML()
	if err != nil {
		return false, fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}

	return true, nil
}

// CopyBinary installs the running executable at dst
func CopyBinary(src, dst string) error {
	if src == dst {
		return nil
	}

	input, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	return os.WriteFile(dst, input, 0755)
}
