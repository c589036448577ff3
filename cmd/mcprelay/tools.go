package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/harunnryd/mcprelay/cmd/mcprelay/runtime"

	"github.com/harunnryd/mcprelay/internal/config"
	"github.com/harunnryd/mcprelay/internal/mcp"
	"github.com/harunnryd/mcprelay/internal/model"
	"github.com/harunnryd/mcprelay/internal/tool"
	"github.com/harunnryd/mcprelay/internal/tool/formatter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect the tools advertised by the MCP server",
}

var toolsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List advertised tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		return withToolSession(cmd, func(rc *runtime.RuntimeComponents) error {
			return writeTools(cmd.OutOrStdout(), rc.Registry.List(), output)
		})
	},
}

var toolsShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show one tool's parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withToolSession(cmd, func(rc *runtime.RuntimeComponents) error {
			entry, ok := rc.Registry.Snapshot().Lookup(args[0])
			if !ok {
				return fmt.Errorf("tool %q is not advertised", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.NewTableFormatter().FormatTool(entry.Descriptor))
			return nil
		})
	},
}

// withToolSession connects to the MCP server without requiring model credentials.
func withToolSession(cmd *cobra.Command, fn func(*runtime.RuntimeComponents) error) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	rc, err := runtime.NewRuntimeBuilder().
		WithContext(context.Background()).
		WithConfig(cfg).
		WithRouter(model.NewModelRouterWithProviders(cfg.Models)).
		Build()
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}
	defer rc.Stop()

	if state := rc.Connect(); state != mcp.StateReady {
		return fmt.Errorf("tool provider unavailable (%s): %w", rc.Transport.String(), rc.Session.Err())
	}
	return fn(rc)
}

func writeTools(w io.Writer, tools []tool.ToolDescriptor, output string) error {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "table":
		fmt.Fprintln(w, formatter.NewTableFormatter().FormatTools(tools))
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tools)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(tools)
	default:
		return fmt.Errorf("unknown output format %q (table, json, yaml)", output)
	}
}

func init() {
	toolsListCmd.Flags().StringP("output", "o", "table", "output format: table, json or yaml")
	toolsCmd.PersistentFlags().String("mcp.transport", config.DefaultMCPTransport, "MCP transport spec")
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsShowCmd)
	rootCmd.AddCommand(toolsCmd)
}
