package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentbox/agentbox/pkg/client"
	"github.com/agentbox/agentbox/pkg/types"
)

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Read a text file with line numbers",
	Long: `Read a page of lines from a text file inside the allowed roots.
Example: abx read /workspace/main.go --offset 100 --limit 50`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, _ := cmd.Flags().GetInt("offset")
		limit, _ := cmd.Flags().GetInt("limit")

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := c.ReadFile(ctx, types.ReadRequest{
			Path:   args[0],
			Offset: offset,
			Limit:  limit,
		})
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		for _, line := range result.Lines {
			fmt.Printf("%6d\t%s\n", line.Number, line.Text)
		}
		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <path> [content]",
	Short: "Create or overwrite a file",
	Long: `Write content to a file inside the allowed roots. With no content
argument, stdin is written.
Example: cat notes.txt | abx write /workspace/notes.txt`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var content string
		if len(args) == 2 {
			content = args[1]
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			content = string(data)
		}

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := c.WriteFile(ctx, types.WriteRequest{
			Path:    args[0],
			Content: content,
		})
		if err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}

		if result.Created {
			fmt.Printf("Created %s\n", args[0])
		} else {
			fmt.Printf("Overwrote %s\n", args[0])
		}
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <path> <old> <new>",
	Short: "Replace an exact substring in a file",
	Long: `Replace an exact substring in a text file. Without --all the old
text must occur exactly once; ambiguous matches fail without modifying
the file.
Example: abx edit /workspace/main.go 'maxRetries = 3' 'maxRetries = 5'`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		replaceAll, _ := cmd.Flags().GetBool("all")

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := c.EditFile(ctx, types.EditRequest{
			Path:       args[0],
			OldContent: args[1],
			NewContent: args[2],
			ReplaceAll: replaceAll,
		})
		if err != nil {
			return fmt.Errorf("failed to edit file: %w", err)
		}

		fmt.Printf("Replaced %d occurrence(s) in %s\n", result.Replacements, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(editCmd)

	readCmd.Flags().Int("offset", 0, "Lines to skip before reading (offset n starts at line n+1)")
	readCmd.Flags().Int("limit", 0, "Maximum lines to return (0 uses the daemon default)")
	editCmd.Flags().Bool("all", false, "Replace every occurrence")
}
