package session

import (
	"context"
	"fmt"
	"log"
	"strings"

	"prolognerd-mcp-server/internal/prolog"
)

// Engine is the minimal interface the manager needs from the logic layer:
// merge-semantics ingestion, lazy query evaluation, and a listing of the
// user-asserted knowledge base.
type Engine interface {
	Consult(ctx context.Context, text string) error
	Query(ctx context.Context, queryText string) (Solutions, error)
	Listing(ctx context.Context) (string, error)
}

// WrapEngine adapts the concrete interpreter wrapper to the Engine
// interface, narrowing its Query return type.
func WrapEngine(e *prolog.Engine) Engine {
	return prologEngine{e}
}

type prologEngine struct {
	*prolog.Engine
}

func (e prologEngine) Query(ctx context.Context, queryText string) (Solutions, error) {
	return e.Engine.Query(ctx, queryText)
}

// Manager owns the process's single reasoning session: one engine, one
// sessions store. Every operation runs as a critical section; concurrent
// callers queue on the gate and are admitted in arrival order. Operations
// never return Go errors to the transport; failures become error blocks in
// the ToolResult.
type Manager struct {
	engine Engine
	store  *Store
	limit  int

	// gate is a one-slot admission channel. Blocked senders queue FIFO in
	// the runtime, which gives arrival-order admission; a plain mutex would
	// not.
	gate chan struct{}
}

// NewManager wires a manager around the engine and store. limit caps how
// many solutions a single query may enumerate; zero or negative means
// unlimited.
func NewManager(engine Engine, store *Store, limit int) *Manager {
	return &Manager{
		engine: engine,
		store:  store,
		limit:  limit,
		gate:   make(chan struct{}, 1),
	}
}

func (m *Manager) acquire() { m.gate <- struct{}{} }
func (m *Manager) release() { <-m.gate }

// LoadRules ingests program text into the knowledge base, merging with the
// clauses already present.
func (m *Manager) LoadRules(ctx context.Context, programText string) ToolResult {
	if strings.TrimSpace(programText) == "" {
		return ErrorResult(KindValidation, "program text is empty")
	}

	m.acquire()
	defer m.release()

	if err := m.engine.Consult(ctx, programText); err != nil {
		return ErrorResult(KindIngestion, fmt.Sprintf("failed to load program: %v", err))
	}
	return InfoResult("Program loaded successfully.")
}

// RunQuery evaluates a query against the knowledge base and aggregates its
// output, solutions, and any fault into one ToolResult.
func (m *Manager) RunQuery(ctx context.Context, queryText string) ToolResult {
	if strings.TrimSpace(queryText) == "" {
		return ErrorResult(KindValidation, "query text is empty")
	}

	m.acquire()
	defer m.release()

	sols, err := m.engine.Query(ctx, queryText)
	if err != nil {
		return ErrorResult(KindQueryFault, fmt.Sprintf("query raised an error: %v", err))
	}
	return aggregate(sols, m.limit)
}

// SaveSession captures the current knowledge base and writes it as a Prolog
// file under the sessions directory. Saving an empty knowledge base is an
// error: a load of the resulting file would silently restore nothing.
func (m *Manager) SaveSession(ctx context.Context, name string) ToolResult {
	if _, err := m.store.Resolve(name); err != nil {
		return ErrorResult(KindValidation, err.Error())
	}

	m.acquire()
	defer m.release()

	listing, err := m.engine.Listing(ctx)
	if err != nil {
		return ErrorResult(KindPersistence, fmt.Sprintf("failed to capture knowledge base: %v", err))
	}
	if strings.TrimSpace(listing) == "" {
		return ErrorResult(KindPersistence, fmt.Sprintf("%v: the knowledge base has no asserted clauses", ErrNothingToSave))
	}

	path, err := m.store.Write(ctx, name, listing)
	if err != nil {
		return ErrorResult(KindPersistence, err.Error())
	}
	log.Printf("[session:%s] saved to %s", name, path)
	return InfoResult(fmt.Sprintf("Session saved to %s", path))
}

// LoadSession reads a saved session file and merges its clauses into the
// current knowledge base. Clauses already present are skipped, so loading the
// same file twice leaves query results unchanged.
func (m *Manager) LoadSession(ctx context.Context, name string) ToolResult {
	if _, err := m.store.Resolve(name); err != nil {
		return ErrorResult(KindValidation, err.Error())
	}

	m.acquire()
	defer m.release()

	text, path, err := m.store.Read(ctx, name)
	if err != nil {
		return ErrorResult(KindPersistence, err.Error())
	}
	if err := m.engine.Consult(ctx, text); err != nil {
		return ErrorResult(KindIngestion, fmt.Sprintf("failed to load session %s: %v", name, err))
	}
	log.Printf("[session:%s] loaded from %s", name, path)
	return InfoResult(fmt.Sprintf("Session loaded from %s", path))
}

// Snapshot returns the current knowledge-base listing under the same
// exclusion discipline as the tool operations.
func (m *Manager) Snapshot(ctx context.Context) (string, error) {
	m.acquire()
	defer m.release()

	return m.engine.Listing(ctx)
}
