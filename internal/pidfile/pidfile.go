package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const userPidFile = ".apcupsd-exporter/apcupsd-exporter.pid"

// DefaultPath returns the PID file path based on user privileges
func DefaultPath() string {
	if os.Geteuid() == 0 {
		return "/run/apcupsd-exporter.pid"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "apcupsd-exporter.pid"
	}
	return filepath.Join(home, userPidFile)
}

// IsProcessRunning checks if a process with the given PID is running
func IsProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 only checks for existence
	return process.Signal(syscall.Signal(0)) == nil
}

// Read returns the PID stored at path, or 0 when there is no file
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}

	return pid, nil
}

// Write stores pid at path, creating the directory if needed
func Write(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	return nil
}

// Remove deletes the PID file
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// CheckRunning reports whether the process recorded at path is alive.
// A stale file is cleaned up.
func CheckRunning(path string) (bool, int, error) {
	pid, err := Read(path)
	if err != nil {
		return false, 0, err
	}

	if pid == 0 {
		return false, 0, nil
	}

	if IsProcessRunning(pid) {
		return true, pid, nil
	}

	Remove(path)
	return false, 0, nil
}
