package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	apiKey  string
)

var rootCmd = &cobra.Command{
	Use:   "abx",
	Short: "agentbox CLI - run commands and edit files through the sandbox daemon",
	Long: `agentbox CLI (abx) talks to a running agentbox daemon.

It provides commands to execute shell commands with policy screening and
timeouts, manage background processes, read and edit files inside the
allowed roots, and open interactive terminal sessions.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", getEnvOrDefault("AGENTBOX_API_URL", "http://localhost:8080"), "agentbox API base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("AGENTBOX_API_KEY"), "agentbox API key")
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
