package cmd

import (
	"fmt"
	"os"

	"github.com/node-pulse/apcupsd-exporter/internal/installer"
	"github.com/spf13/cobra"
)

var (
	configInitPath  string
	configInitForce bool
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  `Prints the configuration after defaults, config file and environment are applied, as YAML.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the effective settings",
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringVar(&configInitPath, "path", installer.DefaultConfigPath, "where to write the config file")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out, err := cfg.YAML()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if cfg.ConfigFile != "" {
		fmt.Printf("# loaded from %s\n", cfg.ConfigFile)
	} else {
		fmt.Println("# using defaults (no config file found)")
	}
	_, err = os.Stdout.Write(out)
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	written, err := installer.WriteConfigFile(configInitPath, cfg, configInitForce)
	if err != nil {
		return err
	}
	if !written {
		fmt.Printf("Config file %s already exists, use --force to overwrite\n", configInitPath)
		return nil
	}

	fmt.Printf("Wrote config file: %s\n", configInitPath)
	return nil
}
