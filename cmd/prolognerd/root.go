package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"prolognerd-mcp-server/internal/config"
	mcpserver "prolognerd-mcp-server/internal/mcp"
	"prolognerd-mcp-server/internal/prolog"
	"prolognerd-mcp-server/internal/session"

	"github.com/spf13/cobra"
)

var (
	configPath   string
	ssePort      int
	workspaceDir string
	noWorkspace  bool
)

// rootCmd serves by default; subcommands cover workspace setup and version info.
var rootCmd = &cobra.Command{
	Use:   "prolognerd",
	Short: "PrologNERD - persistent Prolog reasoning sessions over MCP",
	Long: `PrologNERD exposes a stateful Prolog engine as an MCP server.

Agents load facts and rules with loadProgram, ask questions with
runPrologQuery, and carry the accumulated knowledge base across
conversations with saveSession/loadSession. The engine lives for the
whole server process, so state persists between tool calls.

Run without arguments to serve over stdio (the Claude/Gemini CLI default);
set an SSE port to serve over HTTP instead.`,
	RunE: runServe,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to an explicit config file (overrides workspace config)")
	rootCmd.Flags().IntVar(&ssePort, "sse-port", 0, "Optional SSE port override (falls back to config)")
	rootCmd.PersistentFlags().StringVar(&workspaceDir, "workspace-dir", "", "Explicit workspace root instead of walking up from the current directory")
	rootCmd.PersistentFlags().BoolVar(&noWorkspace, "no-workspace", false, "Skip workspace discovery entirely")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, wsDir, err := config.LoadWithWorkspace(configPath, config.WorkspaceOptions{
		Disable:     noWorkspace,
		ExplicitDir: workspaceDir,
	})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if ssePort != 0 {
		cfg.MCP.SSEPort = ssePort
	}

	// Redirect logging to file for stdio mode (stderr interferes with MCP protocol)
	if cfg.MCP.SSEPort == 0 && cfg.Server.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		} else {
			// If we can't open the log file, disable logging to avoid stderr pollution
			log.SetOutput(io.Discard)
		}
	}
	if wsDir != "" {
		log.Printf("using workspace %s", wsDir)
	}

	engine, err := prolog.NewEngine(cfg.Prolog)
	if err != nil {
		return fmt.Errorf("initializing prolog engine: %w", err)
	}

	store := session.NewStore(cfg.Sessions.Dir)
	manager := session.NewManager(session.WrapEngine(engine), store, cfg.Prolog.SolutionLimit())

	server, err := mcpserver.NewServer(cfg, manager, store)
	if err != nil {
		return fmt.Errorf("initializing MCP server: %w", err)
	}
	defer server.Close()

	if cfg.Metrics.Port > 0 {
		go serveMetrics(server, cfg.Metrics.Port)
	}

	var startErr error
	if cfg.MCP.SSEPort > 0 {
		log.Printf("starting PrologNERD MCP SSE server on port %d", cfg.MCP.SSEPort)
		startErr = server.StartSSE(ctx, cfg.MCP.SSEPort)
	} else {
		log.Printf("starting PrologNERD MCP stdio server")
		startErr = server.Start(ctx)
	}

	if startErr != nil && !errors.Is(startErr, context.Canceled) {
		return fmt.Errorf("server exited with error: %w", startErr)
	}
	return nil
}

func serveMetrics(server *mcpserver.Server, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", server.Metrics().Handler())
	addr := ":" + strconv.Itoa(port)
	log.Printf("metrics listening on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics listener stopped: %v", err)
	}
}
