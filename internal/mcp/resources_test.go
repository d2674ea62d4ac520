package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func readResourceRequest(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func TestAboutResource(t *testing.T) {
	cfg := setupTestServerConfig(t)
	server := setupTestServer(t, cfg)

	contents, err := server.handleAboutResource(context.Background(), readResourceRequest("prolognerd://about"))
	if err != nil {
		t.Fatalf("handleAboutResource failed: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}

	text := contents[0].(mcp.TextResourceContents)
	if text.MIMEType != resourceMIMEJSON {
		t.Errorf("expected MIME %q, got %q", resourceMIMEJSON, text.MIMEType)
	}

	var payload struct {
		Name        string   `json:"name"`
		Version     string   `json:"version"`
		Tools       []string `json:"tools"`
		SessionsDir string   `json:"sessions_dir"`
	}
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("about payload is not valid JSON: %v", err)
	}
	if payload.Name != "test-server" {
		t.Errorf("expected name test-server, got %q", payload.Name)
	}
	if len(payload.Tools) != 4 {
		t.Errorf("expected 4 tools listed, got %v", payload.Tools)
	}
	if payload.SessionsDir == "" {
		t.Error("expected sessions_dir to be set")
	}
}

func TestKnowledgeBaseResource(t *testing.T) {
	cfg := setupTestServerConfig(t)
	server := setupTestServer(t, cfg)

	t.Run("empty knowledge base", func(t *testing.T) {
		contents, err := server.handleKnowledgeBaseResource(context.Background(), readResourceRequest("prolognerd://knowledge-base"))
		if err != nil {
			t.Fatalf("handleKnowledgeBaseResource failed: %v", err)
		}
		text := contents[0].(mcp.TextResourceContents)
		if !strings.Contains(text.Text, "knowledge base is empty") {
			t.Errorf("expected empty placeholder, got %q", text.Text)
		}
	})

	t.Run("after loading a program", func(t *testing.T) {
		if _, err := server.ExecuteTool("loadProgram", map[string]interface{}{
			"program": "parent(tom, bob).",
		}); err != nil {
			t.Fatalf("ExecuteTool failed: %v", err)
		}

		contents, err := server.handleKnowledgeBaseResource(context.Background(), readResourceRequest("prolognerd://knowledge-base"))
		if err != nil {
			t.Fatalf("handleKnowledgeBaseResource failed: %v", err)
		}
		text := contents[0].(mcp.TextResourceContents)
		if text.MIMEType != resourceMIMEProlog {
			t.Errorf("expected MIME %q, got %q", resourceMIMEProlog, text.MIMEType)
		}
		if !strings.Contains(text.Text, "parent(tom,bob).") {
			t.Errorf("expected asserted clause in listing, got %q", text.Text)
		}
	})
}

func TestSessionsResource(t *testing.T) {
	cfg := setupTestServerConfig(t)
	server := setupTestServer(t, cfg)

	if _, err := server.ExecuteTool("loadProgram", map[string]interface{}{
		"program": "fact(a).",
	}); err != nil {
		t.Fatalf("ExecuteTool failed: %v", err)
	}
	if result, err := server.ExecuteTool("saveSession", map[string]interface{}{"filename": "alpha"}); err != nil || result.IsError() {
		t.Fatalf("saveSession failed: err=%v result=%v", err, result.Blocks)
	}

	contents, err := server.handleSessionsResource(context.Background(), readResourceRequest("prolognerd://sessions"))
	if err != nil {
		t.Fatalf("handleSessionsResource failed: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents)

	var payload struct {
		Dir      string `json:"dir"`
		Count    int    `json:"count"`
		Sessions []struct {
			Name string `json:"name"`
		} `json:"sessions"`
	}
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("sessions payload is not valid JSON: %v", err)
	}
	if payload.Count != 1 {
		t.Fatalf("expected 1 session, got %d", payload.Count)
	}
	if payload.Sessions[0].Name != "alpha" {
		t.Errorf("expected session alpha, got %q", payload.Sessions[0].Name)
	}
}

func TestSessionResource(t *testing.T) {
	cfg := setupTestServerConfig(t)
	server := setupTestServer(t, cfg)

	if _, err := server.ExecuteTool("loadProgram", map[string]interface{}{
		"program": "fact(a).",
	}); err != nil {
		t.Fatalf("ExecuteTool failed: %v", err)
	}
	if result, err := server.ExecuteTool("saveSession", map[string]interface{}{"filename": "alpha"}); err != nil || result.IsError() {
		t.Fatalf("saveSession failed: err=%v result=%v", err, result.Blocks)
	}

	t.Run("reads saved session text", func(t *testing.T) {
		req := readResourceRequest("prolognerd://session/alpha")
		req.Params.Arguments = map[string]interface{}{"name": "alpha"}

		contents, err := server.handleSessionResource(context.Background(), req)
		if err != nil {
			t.Fatalf("handleSessionResource failed: %v", err)
		}
		text := contents[0].(mcp.TextResourceContents)
		if !strings.Contains(text.Text, "fact(a).") {
			t.Errorf("expected session text, got %q", text.Text)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		req := readResourceRequest("prolognerd://session/")
		_, err := server.handleSessionResource(context.Background(), req)
		if err == nil {
			t.Error("expected error for missing session name")
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		req := readResourceRequest("prolognerd://session/ghost")
		req.Params.Arguments = map[string]interface{}{"name": "ghost"}
		_, err := server.handleSessionResource(context.Background(), req)
		if err == nil {
			t.Error("expected error for unknown session")
		}
	})
}

func TestArgString(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, ""},
		{"string", "alpha", "alpha"},
		{"string slice", []string{"first", "second"}, "first"},
		{"empty slice", []string{}, ""},
		{"number", 7, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := argString(tt.value); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
