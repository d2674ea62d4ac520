package mcp

import (
	"context"
	"fmt"

	"prolognerd-mcp-server/internal/session"
)

// LoadProgramTool ingests Prolog program text into the knowledge base.
type LoadProgramTool struct {
	manager *session.Manager
}

func (t *LoadProgramTool) Name() string { return "loadProgram" }

func (t *LoadProgramTool) Description() string {
	return `Load Prolog facts and rules into the persistent knowledge base. Clauses merge with whatever is already loaded; nothing is replaced or reset.

WHEN TO USE:
- Before querying: assert the facts and rules the query needs
- To extend the knowledge base incrementally across multiple calls
- To define helper predicates for later runPrologQuery calls

BEHAVIOR:
- Standard Prolog syntax, each clause terminated by a period
- Directives (:- dynamic(foo/1), :- op(...)) run in order
- Re-loading identical clauses is a no-op; new alternatives are additive
- A syntax error aborts mid-program without rolling back earlier clauses

Example program: "parent(tom, bob). parent(bob, ann). grandparent(X, Z) :- parent(X, Y), parent(Y, Z)."`
}

func (t *LoadProgramTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"program": map[string]interface{}{
				"type":        "string",
				"description": "Prolog program text: facts, rules, and directives, each terminated by a period",
			},
		},
		"required": []string{"program"},
	}
}

func (t *LoadProgramTool) Execute(ctx context.Context, args map[string]interface{}) (session.ToolResult, error) {
	program := getStringArg(args, "program")
	if program == "" {
		return session.ToolResult{}, fmt.Errorf("program is required")
	}
	return t.manager.LoadRules(ctx, program), nil
}

// RunPrologQueryTool evaluates a query against the knowledge base.
type RunPrologQueryTool struct {
	manager *session.Manager
}

func (t *RunPrologQueryTool) Name() string { return "runPrologQuery" }

func (t *RunPrologQueryTool) Description() string {
	return `Run a Prolog query against the current knowledge base and return every solution.

WHEN TO USE:
- To ask questions over facts and rules loaded with loadProgram or loadSession
- To drive side-effecting goals (assertz, write) inside the session

RESULT BLOCKS, IN ORDER:
1. Text the query wrote to standard output, if any
2. Engine diagnostics, if any (e.g. the solution cap was hit)
3. The solutions, bindings rendered one per line as "X = value"
4. An error block if evaluation raised a fault; solutions found before the fault are kept

A query that simply fails returns "No solutions found" and is not an error. The trailing period may be omitted.`
}

func (t *RunPrologQueryTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Prolog query text, e.g. \"grandparent(tom, Z).\"",
			},
		},
		"required": []string{"query"},
	}
}

func (t *RunPrologQueryTool) Execute(ctx context.Context, args map[string]interface{}) (session.ToolResult, error) {
	query := getStringArg(args, "query")
	if query == "" {
		return session.ToolResult{}, fmt.Errorf("query is required")
	}
	return t.manager.RunQuery(ctx, query), nil
}

// SaveSessionTool persists the knowledge base to a named session file.
type SaveSessionTool struct {
	manager *session.Manager
}

func (t *SaveSessionTool) Name() string { return "saveSession" }

func (t *SaveSessionTool) Description() string {
	return `Save the current knowledge base to a named session file under the sessions directory.

WHEN TO USE:
- To checkpoint reasoning state before ending a conversation
- To hand a knowledge base to a later session or another agent

BEHAVIOR:
- Captures every user-asserted clause as plain Prolog text
- The ".pl" extension is appended automatically; an existing file of the same name is overwritten
- Names may not escape the sessions directory
- Saving an empty knowledge base is an error, so a later load cannot silently restore nothing`
}

func (t *SaveSessionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"filename": map[string]interface{}{
				"type":        "string",
				"description": "Session name, with or without the .pl extension",
			},
		},
		"required": []string{"filename"},
	}
}

func (t *SaveSessionTool) Execute(ctx context.Context, args map[string]interface{}) (session.ToolResult, error) {
	filename := getStringArg(args, "filename")
	if filename == "" {
		return session.ToolResult{}, fmt.Errorf("filename is required")
	}
	return t.manager.SaveSession(ctx, filename), nil
}

// LoadSessionTool merges a saved session file into the knowledge base.
type LoadSessionTool struct {
	manager *session.Manager
}

func (t *LoadSessionTool) Name() string { return "loadSession" }

func (t *LoadSessionTool) Description() string {
	return `Load a previously saved session file and merge its clauses into the current knowledge base.

WHEN TO USE:
- To resume reasoning state saved by an earlier saveSession call
- To combine several saved knowledge bases into one session

BEHAVIOR:
- Additive merge, same semantics as loadProgram; the current knowledge base is not reset
- Loading the same session twice changes nothing
- The ".pl" extension is appended automatically; names may not escape the sessions directory
- Missing files are an error`
}

func (t *LoadSessionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"filename": map[string]interface{}{
				"type":        "string",
				"description": "Session name, with or without the .pl extension",
			},
		},
		"required": []string{"filename"},
	}
}

func (t *LoadSessionTool) Execute(ctx context.Context, args map[string]interface{}) (session.ToolResult, error) {
	filename := getStringArg(args, "filename")
	if filename == "" {
		return session.ToolResult{}, fmt.Errorf("filename is required")
	}
	return t.manager.LoadSession(ctx, filename), nil
}
