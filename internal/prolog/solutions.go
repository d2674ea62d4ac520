package prolog

import (
	ichiban "github.com/ichiban/prolog"
)

// Solutions is the lazy solution sequence of one query. It owns the engine
// for its whole lifetime: the interpreter does not advance between Next
// calls, so the output captured after a Next belongs to exactly that
// element. Close releases the engine and must always be called.
type Solutions struct {
	engine *Engine
	inner  *ichiban.Solutions
	vars   []string
	closed bool
}

// Vars returns the query's variable names in order of first appearance.
func (s *Solutions) Vars() []string {
	return s.vars
}

// Next advances to the next solution. It returns false when the sequence is
// exhausted, whether by normal failure or by a fault; Err tells them apart.
func (s *Solutions) Next() bool {
	return s.inner.Next()
}

// Scan returns the current solution's bindings keyed by variable name, each
// term rendered in writeq form. Unbound variables render as variable names.
func (s *Solutions) Scan() (map[string]string, error) {
	dest := make(map[string]ichiban.TermString, len(s.vars))
	if err := s.inner.Scan(dest); err != nil {
		return nil, err
	}
	bindings := make(map[string]string, len(dest))
	for name, term := range dest {
		bindings[name] = string(term)
	}
	return bindings, nil
}

// Output drains the text the query wrote to user_output since the previous
// drain. Called after a Next it yields the output attributable to that
// element; called after the final Next it yields the trailing output of the
// exhausted search.
func (s *Solutions) Output() string {
	return s.engine.takeOutput()
}

// Err returns the fault that stopped the sequence, or nil if it ended by
// running out of solutions.
func (s *Solutions) Err() error {
	return s.inner.Err()
}

// Close stops evaluation and releases the engine. Subsequent calls are
// no-ops.
func (s *Solutions) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.inner.Close()
	s.engine.mu.Unlock()
	return err
}
