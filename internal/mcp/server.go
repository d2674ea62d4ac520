package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"prolognerd-mcp-server/internal/config"
	"prolognerd-mcp-server/internal/metrics"
	"prolognerd-mcp-server/internal/recorder"
	"prolognerd-mcp-server/internal/session"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Server wires the MCP runtime, the reasoning session manager, and the
// observability hooks around the tool surface.
type Server struct {
	cfg       config.Config
	manager   *session.Manager
	store     *session.Store
	metrics   *metrics.Metrics
	recorder  *recorder.Recorder
	tools     map[string]Tool
	mcpServer *mcpserver.MCPServer
}

// Tool describes the contract for MCP tool implementations. Execute returns
// a Go error only for transport-level misuse (a missing required argument);
// domain failures travel inside the ToolResult as error blocks.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (session.ToolResult, error)
}

// NewServer constructs the PrologNERD MCP server and registers all tools.
func NewServer(cfg config.Config, manager *session.Manager, store *session.Store) (*Server, error) {
	mcpSrv := mcpserver.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
	)

	server := &Server{
		cfg:       cfg,
		manager:   manager,
		store:     store,
		metrics:   metrics.New(),
		tools:     make(map[string]Tool),
		mcpServer: mcpSrv,
	}

	if cfg.Traces.Enabled {
		rec, err := recorder.NewRecorder(cfg.Traces.Dir)
		if err != nil {
			return nil, fmt.Errorf("init trace recorder: %w", err)
		}
		if err := rec.Start(cfg.Server.Name); err != nil {
			return nil, fmt.Errorf("start trace recorder: %w", err)
		}
		server.recorder = rec
		log.Printf("invocation traces enabled in %s", cfg.Traces.Dir)
	}

	server.registerAllTools()
	server.registerAllResources()
	return server, nil
}

// Start launches the stdio server (Claude/Gemini CLI default).
func (s *Server) Start(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// StartSSE hosts the server over HTTP using SSE endpoints with graceful shutdown.
func (s *Server) StartSSE(ctx context.Context, port int) error {
	sseServer := mcpserver.NewSSEServer(s.mcpServer, mcpserver.WithBaseURL("http://localhost:"+strconv.Itoa(port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: mux,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		log.Printf("SSE server shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Metrics exposes the invocation collectors so the command layer can mount
// the scrape endpoint.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Close flushes and closes the trace recorder, if one is running.
func (s *Server) Close() error {
	if s.recorder != nil {
		return s.recorder.Close()
	}
	return nil
}

// ExecuteTool executes a tool directly (used by demos/tests).
func (s *Server) ExecuteTool(name string, args map[string]interface{}) (session.ToolResult, error) {
	tool, exists := s.tools[name]
	if !exists {
		return session.ToolResult{}, fmt.Errorf("tool not found: %s", name)
	}
	return tool.Execute(context.Background(), args)
}

func (s *Server) registerAllTools() {
	s.registerTool(&LoadProgramTool{manager: s.manager})
	s.registerTool(&RunPrologQueryTool{manager: s.manager})
	s.registerTool(&SaveSessionTool{manager: s.manager})
	s.registerTool(&LoadSessionTool{manager: s.manager})
}

func (s *Server) registerTool(tool Tool) {
	s.tools[tool.Name()] = tool

	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}

	mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema)
	s.mcpServer.AddTool(mcpTool, s.wrapTool(tool))
}

func (s *Server) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		callID := uuid.NewString()
		start := time.Now()
		log.Printf("[call:%s] %s invoked", callID, tool.Name())

		result, err := tool.Execute(ctx, args)
		if err != nil {
			s.finish(tool.Name(), callID, "error", start, nil)
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))},
				IsError: true,
			}, nil
		}

		outcome := "ok"
		if result.IsError() {
			outcome = "error"
		}
		s.finish(tool.Name(), callID, outcome, start, result.ErrorKinds())

		return &mcp.CallToolResult{
			Content: renderBlocks(result),
			IsError: result.IsError(),
		}, nil
	}
}

// finish records one completed invocation in the log, the metrics, and the
// trace file.
func (s *Server) finish(tool, callID, outcome string, start time.Time, kinds []string) {
	elapsed := time.Since(start)
	log.Printf("[call:%s] %s finished in %s (%s)", callID, tool, elapsed.Round(time.Microsecond), outcome)
	s.metrics.Observe(tool, outcome, elapsed)
	if s.recorder != nil {
		s.recorder.Log(recorder.Invocation{
			Tool:       tool,
			CallID:     callID,
			Outcome:    outcome,
			DurationMS: elapsed.Milliseconds(),
			ErrorKinds: kinds,
		})
	}
}

// renderBlocks maps result blocks onto MCP content, one text content per
// block, order preserved. Error blocks carry their kind inline so the
// annotation survives transports that only pass text through.
func renderBlocks(result session.ToolResult) []mcp.Content {
	content := make([]mcp.Content, 0, len(result.Blocks))
	for _, b := range result.Blocks {
		text := b.Text
		if b.Error {
			text = fmt.Sprintf("Error (%s): %s", b.Kind, b.Text)
		}
		content = append(content, mcp.NewTextContent(text))
	}
	return content
}
