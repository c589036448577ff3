package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/mcprelay/cmd/mcprelay/runtime"

	"github.com/harunnryd/mcprelay/internal/config"
	"github.com/harunnryd/mcprelay/internal/daemon"
	"github.com/harunnryd/mcprelay/internal/daemon/components"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat relay HTTP server",
	Long:  `Connects to the configured MCP server once, then serves POST /chat, GET /tools and GET /health until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		rc, err := runtime.NewRuntimeBuilder().
			WithContext(context.Background()).
			WithConfig(cfg).
			Build()
		if err != nil {
			return fmt.Errorf("failed to initialize runtime: %w", err)
		}
		defer rc.Cancel()

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}

		sessionComp := components.NewMCPSessionComponent(rc.Session, cfg.MCP)
		httpComp := components.NewHTTPServerComponent(daemonMgr, &cfg.Server, rc.Handler, version)

		daemonMgr.AddComponent(sessionComp)
		daemonMgr.AddComponent(httpComp)

		slog.Info("mcprelay starting up...", "port", cfg.Server.Port, "transport", rc.Transport.String(), "model", cfg.Models.Default)
		err = daemonMgr.Start(rc.Ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("mcprelay stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("mcprelay stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("server.port", config.DefaultServerPort, "HTTP listen port")
	serveCmd.Flags().String("mcp.transport", config.DefaultMCPTransport, "MCP transport spec (stdio://cmd, sse://host/sse, http://host/mcp)")
	serveCmd.Flags().String("models.default", config.DefaultModelDefault, "model used for completions")
	serveCmd.Flags().Bool("relay.parallel_tool_calls", config.DefaultRelayParallelToolCalls, "invoke tool calls of one response concurrently")
}
