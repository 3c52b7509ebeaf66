package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jgoulah/gridmix/internal/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a config file populated with default settings",
	Long: `Writes every setting with its default value to the config file (./config.yaml or --config)
so it can be edited. An existing file is left alone unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInitConfig,
}

func init() {
	initConfigCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initConfigCmd)
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	if err := saveConfig(config.Default()); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	logger.Infof("✓ Wrote default config to %s", path)
	return nil
}
