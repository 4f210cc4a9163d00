// Command execution for CLI commands.
//
// Information Hiding:
// - Command dispatch logic hidden
// - Client assembly hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/richinex/delphi/agent"
	"github.com/richinex/delphi/config"
	"github.com/richinex/delphi/llm"
	"github.com/richinex/delphi/mcp"
	"github.com/richinex/delphi/model"
	"github.com/richinex/delphi/storage"
	"github.com/richinex/delphi/tools"
)

// Options holds CLI execution options.
type Options struct {
	Provider  string
	MCPServer string // "command arg1 arg2 ..." of an external tool server
	MCPConfig string // path to an mcpServers JSON config file
	AuditDB   string // path to the query audit database, empty disables auditing
	Verbose   bool
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{
		Provider: config.DefaultProvider,
	}
}

// Chat starts an interactive chat session.
func Chat(ctx context.Context, opts Options) error {
	client, settings, cleanup, err := buildClient(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	audit, closeAudit := openAudit(opts.AuditDB)
	defer closeAudit()

	fmt.Printf("Chat using %s (%s). Type 'exit' to quit.\n\n",
		settings.LLM.Provider, settings.LLM.Model)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" || input == "q" {
			break
		}

		result := client.Query(ctx, input)
		printResult(result, opts.Verbose)
		recordAudit(ctx, audit, input, result)
	}

	return scanner.Err()
}

// Ask runs a single question and exits.
func Ask(ctx context.Context, question string, opts Options) error {
	client, _, cleanup, err := buildClient(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	audit, closeAudit := openAudit(opts.AuditDB)
	defer closeAudit()

	result := client.Query(ctx, question)
	printResult(result, opts.Verbose)
	recordAudit(ctx, audit, question, result)

	if !result.IsSuccess() {
		return fmt.Errorf("query failed: %s", result.Message)
	}
	return nil
}

// ListTools prints the tool catalog the client would connect to.
func ListTools(ctx context.Context, opts Options) error {
	loader, closeLoader, err := buildLoader(opts)
	if err != nil {
		return err
	}
	defer closeLoader()

	loaded, err := loader.LoadTools(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tools: %w", err)
	}

	fmt.Println("Available tools:")
	fmt.Println()

	for _, tool := range loaded {
		meta := tool.Metadata()
		fmt.Printf("  %s\n", meta.Name)
		fmt.Printf("    %s\n", meta.Description)

		if opts.Verbose && len(meta.Parameters) > 0 {
			fmt.Println("    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Printf("      %s%s: %s - %s\n", param.Name, req, param.ParamType, param.Description)
			}
		}
		fmt.Println()
	}
	return nil
}

// Serve exposes the built-in tools as an MCP server on stdin/stdout.
func Serve(ctx context.Context) error {
	registry, err := tools.WithDefaults()
	if err != nil {
		return err
	}
	return mcp.NewServer(registry).ServeStdio(ctx)
}

// buildClient assembles a connected agent client from the options.
// The returned cleanup releases the tool loader.
func buildClient(ctx context.Context, opts Options) (*agent.Client, config.Settings, func(), error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, config.Settings{}, nil, err
	}

	provider, err := createProvider(settings)
	if err != nil {
		return nil, config.Settings{}, nil, err
	}

	loader, closeLoader, err := buildLoader(opts)
	if err != nil {
		return nil, config.Settings{}, nil, err
	}

	// Verbose prints steps to the console; otherwise they go to slog.
	observer := agent.Observer(agent.NewLogObserver(nil))
	if opts.Verbose {
		observer = consoleObserver{}
	}
	clientOpts := []agent.Option{agent.WithObserver(observer)}

	client := agent.NewClient(provider, loader, settings.Client, clientOpts...)
	if err := client.Connect(ctx); err != nil {
		closeLoader()
		return nil, config.Settings{}, nil, fmt.Errorf("failed to connect: %w", err)
	}

	cleanup := func() {
		_ = client.Close()
		closeLoader()
	}
	return client, settings, cleanup, nil
}

// buildLoader picks the tool source: an explicit server command, the
// first server of an MCP config file, or the in-process built-ins.
func buildLoader(opts Options) (agent.ToolLoader, func(), error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, nil, err
	}

	if opts.MCPServer != "" {
		parts := strings.Fields(opts.MCPServer)
		loader := mcp.NewLoader(parts[0], parts[1:], settings.Client.ConnectTimeout)
		return loader, func() { _ = loader.Close() }, nil
	}

	if opts.MCPConfig != "" {
		cfg, err := mcp.LoadConfig(opts.MCPConfig)
		if err != nil {
			return nil, nil, err
		}
		servers := cfg.Servers()
		if len(servers) == 0 {
			return nil, nil, fmt.Errorf("no servers defined in %s", opts.MCPConfig)
		}
		loader := mcp.NewLoader(servers[0].Command, servers[0].Args, settings.Client.ConnectTimeout)
		return loader, func() { _ = loader.Close() }, nil
	}

	registry, err := tools.WithDefaults()
	if err != nil {
		return nil, nil, err
	}
	var static agent.StaticTools
	for _, meta := range registry.List() {
		tool, _ := registry.Get(meta.Name)
		static = append(static, tool)
	}
	return static, func() {}, nil
}

// createProvider builds the LLM provider from settings.
func createProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	return providerType.
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
}

// openAudit opens the audit log, treating failures as non-fatal.
func openAudit(path string) (*storage.AuditLog, func()) {
	if path == "" {
		return nil, func() {}
	}
	audit, err := storage.NewAuditLog(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audit log disabled: %v\n", err)
		return nil, func() {}
	}
	return audit, func() { _ = audit.Close() }
}

// recordAudit writes the outcome best-effort; a failed write only warns.
func recordAudit(ctx context.Context, audit *storage.AuditLog, question string, result model.QueryResult) {
	if audit == nil {
		return
	}
	if _, err := audit.Record(ctx, question, result); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record audit entry: %v\n", err)
	}
}

const maxStepPreviewLen = 200

// printResult renders one query result to stdout/stderr.
func printResult(result model.QueryResult, verbose bool) {
	if verbose && len(result.Steps) > 0 {
		fmt.Println("\n--- Steps ---")
		for i, step := range result.Steps {
			fmt.Printf("[%d] %s: %s\n", i+1, step.Tool, truncateString(step.Result, maxStepPreviewLen))
		}
		fmt.Println("-------------")
	}

	if result.IsSuccess() {
		fmt.Printf("\n%s\n\n", result.Response)
		return
	}
	fmt.Fprintf(os.Stderr, "\nError: %s\n\n", result.Message)
}

// truncateString bounds s to max characters.
func truncateString(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// consoleObserver streams step output to stdout as the loop runs.
type consoleObserver struct{}

func (consoleObserver) OnTurn(event agent.TurnEvent) {
	for _, tc := range event.ToolCalls {
		fmt.Printf("  -> calling %s\n", tc.Name)
	}
}

func (consoleObserver) OnToolResult(event agent.ToolResultEvent) {
	if event.Err != nil {
		fmt.Printf("  <- %s failed: %v\n", event.Tool, event.Err)
		return
	}
	fmt.Printf("  <- %s: %s\n", event.Tool, truncateString(event.Preview, maxStepPreviewLen))
}

func (consoleObserver) OnError(err error) {
	fmt.Fprintf(os.Stderr, "  !! %v\n", err)
}
