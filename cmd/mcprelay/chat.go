package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/harunnryd/mcprelay/cmd/mcprelay/runtime"

	"github.com/harunnryd/mcprelay/internal/config"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask a single question, or start an interactive session",
	Long:  `Connects to the MCP server and answers one message. Without arguments it reads one message per line from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		sig := NewSignalHandler(context.Background())
		sig.Start()
		defer sig.Stop()

		rc, err := runtime.NewRuntimeBuilder().
			WithContext(sig.Context()).
			WithConfig(cfg).
			Build()
		if err != nil {
			return fmt.Errorf("failed to initialize runtime: %w", err)
		}
		defer rc.Stop()

		rc.Connect()
		repl := runtime.NewREPL(rc.Relay, cfg.Relay, os.Stdin, cmd.OutOrStdout())

		if message := strings.TrimSpace(strings.Join(args, " ")); message != "" {
			fmt.Fprintln(cmd.OutOrStdout(), repl.Ask(rc.Ctx, message))
			return nil
		}
		return repl.Start(rc.Ctx)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("mcp.transport", config.DefaultMCPTransport, "MCP transport spec")
	chatCmd.Flags().String("models.default", config.DefaultModelDefault, "model used for completions")
}
