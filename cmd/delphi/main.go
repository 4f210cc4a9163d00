// delphi - a conversational, tool-augmented LLM agent.
//
// Commands:
//
//	delphi chat                      interactive chat session
//	delphi ask "question"            one-shot question
//	delphi tools                     list the available tools
//	delphi serve                     expose the built-in tools over MCP stdio
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/delphi/cli"
	"github.com/richinex/delphi/config"
)

func main() {
	// Load .env if present; a missing file is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := cli.DefaultOptions()

	root := &cobra.Command{
		Use:   "delphi",
		Short: "A conversational tool-augmented LLM agent",
		Long: "delphi answers natural-language questions with an LLM that can call tools\n" +
			"(clock, calculator, web search) discovered from an MCP tool provider.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.Provider, "provider", "p", config.DefaultProvider,
		fmt.Sprintf("LLM provider (%s)", strings.Join(config.SupportedProviders(), ", ")))
	root.PersistentFlags().StringVar(&opts.MCPServer, "mcp-server", "",
		"external MCP tool server command, e.g. 'delphi serve'")
	root.PersistentFlags().StringVar(&opts.MCPConfig, "mcp-config", "",
		"path to an mcpServers JSON config file")
	root.PersistentFlags().StringVar(&opts.AuditDB, "audit-db", "",
		"path to a SQLite query audit database")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"print tool calls and results as they happen")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(cmd.Context(), opts)
		},
	}

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ask(cmd.Context(), strings.Join(args, " "), opts)
		},
	}

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(cmd.Context(), opts)
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the built-in tools as an MCP server on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Serve(cmd.Context())
		},
	}

	root.AddCommand(chatCmd, askCmd, toolsCmd, serveCmd)
	return root
}
