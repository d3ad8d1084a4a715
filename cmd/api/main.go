package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/georgemunganga/crafty-backend/internal/config"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "crafty",
		Short:        "Crafty order, payment and notification backend",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
