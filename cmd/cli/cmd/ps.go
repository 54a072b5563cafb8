package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentbox/agentbox/pkg/client"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List background processes",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		handles, err := c.ListProcesses(ctx)
		if err != nil {
			return fmt.Errorf("failed to list processes: %w", err)
		}
		for _, h := range handles {
			fmt.Println(h)
		}
		return nil
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll <handle>",
	Short: "Show the current state and output of a background process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		snap, err := c.PollCommand(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to poll process: %w", err)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, _ := json.MarshalIndent(snap, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("handle:  %s\n", snap.Handle)
		fmt.Printf("pid:     %d\n", snap.PID)
		fmt.Printf("state:   %s\n", snap.State)
		fmt.Printf("started: %s\n", snap.StartedAt.Format(time.RFC3339))
		if snap.ExitCode != nil {
			fmt.Printf("exit:    %d\n", *snap.ExitCode)
		}
		if snap.Stdout != "" {
			fmt.Printf("--- stdout ---\n%s", snap.Stdout)
		}
		if snap.Stderr != "" {
			fmt.Printf("--- stderr ---\n%s", snap.Stderr)
		}
		return nil
	},
}

var collectCmd = &cobra.Command{
	Use:   "collect <handle>",
	Short: "Collect the final result of a finished background process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := c.CollectCommand(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to collect process: %w", err)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		printExecResult(cmd, result)
		if result.ExitCode != 0 {
			return fmt.Errorf("command exited with code %d", result.ExitCode)
		}
		return nil
	},
}

var killCmd = &cobra.Command{
	Use:   "kill <handle>",
	Short: "Terminate a background process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := c.KillProcess(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to kill process: %w", err)
		}
		fmt.Printf("Process %s killed\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(killCmd)

	pollCmd.Flags().Bool("json", false, "Output as JSON")
	collectCmd.Flags().Bool("json", false, "Output as JSON")
}
