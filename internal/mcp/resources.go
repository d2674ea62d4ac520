package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	resourceMIMEJSON   = "application/json"
	resourceMIMEProlog = "text/x-prolog"
)

func (s *Server) registerAllResources() {
	if s == nil || s.mcpServer == nil {
		return
	}

	s.mcpServer.AddResource(
		mcp.NewResource(
			"prolognerd://about",
			"PrologNERD About",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("High-level server info and usage notes."),
		),
		s.handleAboutResource,
	)

	s.mcpServer.AddResource(
		mcp.NewResource(
			"prolognerd://knowledge-base",
			"Knowledge Base",
			mcp.WithMIMEType(resourceMIMEProlog),
			mcp.WithResourceDescription("The current user-asserted knowledge base as plain Prolog text."),
		),
		s.handleKnowledgeBaseResource,
	)

	s.mcpServer.AddResource(
		mcp.NewResource(
			"prolognerd://sessions",
			"Saved Sessions",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("Inventory of saved session files in the sessions directory."),
		),
		s.handleSessionsResource,
	)

	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"prolognerd://session/{name}",
			"Saved Session",
			mcp.WithTemplateMIMEType(resourceMIMEProlog),
			mcp.WithTemplateDescription("Read one saved session file without loading it into the engine."),
		),
		s.handleSessionResource,
	)
}

func (s *Server) handleAboutResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	toolNames := make([]string, 0, len(s.tools))
	for name := range s.tools {
		toolNames = append(toolNames, name)
	}

	payload := map[string]interface{}{
		"name":         s.cfg.Server.Name,
		"version":      s.cfg.Server.Version,
		"tools":        toolNames,
		"sessions_dir": s.store.Root(),
		"notes": []string{
			"Resources are read-only context endpoints; use tools for actions/mutations.",
			"The knowledge base persists across tool calls within one server process.",
			"Use saveSession/loadSession to carry reasoning state across processes.",
		},
		"timestamp_ms": time.Now().UnixMilli(),
	}

	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: resourceMIMEJSON,
			Text:     string(text),
		},
	}, nil
}

func (s *Server) handleKnowledgeBaseResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.manager == nil {
		return nil, fmt.Errorf("session manager unavailable")
	}

	listing, err := s.manager.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot knowledge base: %w", err)
	}
	if listing == "" {
		listing = "% knowledge base is empty\n"
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: resourceMIMEProlog,
			Text:     listing,
		},
	}, nil
}

func (s *Server) handleSessionsResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.store == nil {
		return nil, fmt.Errorf("session store unavailable")
	}

	infos, err := s.store.List()
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"dir":      s.store.Root(),
		"count":    len(infos),
		"sessions": infos,
	}
	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: resourceMIMEJSON,
			Text:     string(text),
		},
	}, nil
}

func (s *Server) handleSessionResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.store == nil {
		return nil, fmt.Errorf("session store unavailable")
	}

	name := argString(request.Params.Arguments["name"])
	if name == "" {
		return nil, fmt.Errorf("missing session name")
	}

	text, _, err := s.store.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: resourceMIMEProlog,
			Text:     text,
		},
	}, nil
}

func argString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []string:
		if len(value) == 0 {
			return ""
		}
		return value[0]
	default:
		return fmt.Sprintf("%v", value)
	}
}
