package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agentbox/agentbox/pkg/client"
)

var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Open an interactive shell session in the sandbox",
	Long: `Start a shell under a pseudo-terminal on the daemon and attach the
local terminal to it over a websocket. Exit the shell to end the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cols, rows := 80, 24
		if term.IsTerminal(int(os.Stdin.Fd())) {
			if w, h, err := term.GetSize(int(os.Stdin.Fd())); err == nil {
				cols, rows = w, h
			}
		}

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		sessionID, err := c.CreatePTY(ctx, uint16(cols), uint16(rows))
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		defer c.KillPTY(context.Background(), sessionID)

		ws, err := dialPTY(sessionID)
		if err != nil {
			return fmt.Errorf("failed to attach: %w", err)
		}
		defer ws.Close()

		if term.IsTerminal(int(os.Stdin.Fd())) {
			oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
			if err != nil {
				return fmt.Errorf("raw mode: %w", err)
			}
			defer term.Restore(int(os.Stdin.Fd()), oldState)
		}

		errCh := make(chan error, 2)

		// Local keyboard -> daemon PTY
		go func() {
			buf := make([]byte, 1024)
			for {
				n, err := os.Stdin.Read(buf)
				if n > 0 {
					if werr := ws.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
						errCh <- werr
						return
					}
				}
				if err != nil {
					errCh <- err
					return
				}
			}
		}()

		// Daemon PTY -> local screen
		go func() {
			for {
				_, msg, err := ws.ReadMessage()
				if err != nil {
					errCh <- err
					return
				}
				os.Stdout.Write(msg)
			}
		}()

		err = <-errCh
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return nil
		}
		return nil
	},
}

// dialPTY converts the HTTP base URL to a websocket URL and connects.
// The API key travels as a query parameter; websocket clients cannot
// always set headers.
func dialPTY(sessionID string) (*websocket.Conn, error) {
	wsURL := baseURL
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = fmt.Sprintf("%s/pty/%s", wsURL, sessionID)
	if apiKey != "" {
		wsURL += "?api_key=" + url.QueryEscape(apiKey)
	}

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	return ws, err
}

func init() {
	rootCmd.AddCommand(termCmd)
}
