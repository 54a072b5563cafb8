package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentbox/agentbox/pkg/client"
	"github.com/agentbox/agentbox/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run <command>",
	Short: "Execute a shell command in the sandbox",
	Long: `Execute a shell command through the daemon's policy screen and
timeout enforcement.
Example: abx run "cd src && make test"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeoutSec, _ := cmd.Flags().GetInt("timeout")
		cwd, _ := cmd.Flags().GetString("cwd")
		background, _ := cmd.Flags().GetBool("background")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		result, err := c.RunCommand(ctx, types.ExecRequest{
			Command:        args[0],
			WorkingDir:     cwd,
			TimeoutSeconds: timeoutSec,
			Background:     background,
		})
		if err != nil {
			return fmt.Errorf("failed to execute command: %w", err)
		}

		if jsonOutput {
			data, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		if background {
			fmt.Println(result.Handle)
			return nil
		}

		printExecResult(cmd, result)
		if result.TimedOut {
			return fmt.Errorf("command timed out")
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("command exited with code %d", result.ExitCode)
		}
		return nil
	},
}

func printExecResult(cmd *cobra.Command, result *types.ExecResult) {
	if result.Warning != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", result.Warning)
	}
	if result.Stdout != "" {
		fmt.Print(result.Stdout)
	}
	if result.Stderr != "" {
		fmt.Fprint(cmd.ErrOrStderr(), result.Stderr)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("timeout", 0, "Timeout in seconds (0 uses the daemon default)")
	runCmd.Flags().String("cwd", "", "Working directory (defaults to the project root)")
	runCmd.Flags().Bool("background", false, "Launch in the background and print the handle")
	runCmd.Flags().Bool("json", false, "Output as JSON")
	runCmd.Flags().SetInterspersed(false)
}
