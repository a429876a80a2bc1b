package main

import (
	"fmt"
	"os"

	"crm-agent-backend/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "crm-agent",
	Short:        "CRM conversational agent backend",
	Long:         `crm-agent serves the CRM assistant: contextual tools, action approval and scoped chat sessions.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = config.DefaultConfigPath
	}
	rootCmd.PersistentFlags().String("config", defaultPath, "Path to the YAML config file")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
