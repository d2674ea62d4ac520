package prolog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"prolognerd-mcp-server/internal/config"

	ichiban "github.com/ichiban/prolog"
	"github.com/ichiban/prolog/engine"
)

// bootstrap defines the private helper predicates the adapter drives the
// interpreter with. They are consulted once at construction, before the
// baseline snapshot, so they never appear in knowledge-base listings.
//
// prolognerd_load reads clauses from the current input stream and asserts
// them one by one, skipping any clause the knowledge base already holds a
// variant of: re-loading identical text leaves query results unchanged,
// while a new alternative for an existing head is still additive. Going
// through assertz (instead of a plain consult) makes every user predicate
// dynamic, which clause/2 requires for listing.
//
// prolognerd_directive runs directives in order. dynamic/1, multifile/1 and
// discontiguous/1 are compile-time declarations the interpreter does not
// expose as callable procedures, so they are translated here: dynamic
// creates the declared procedure empty, so a query against it fails instead
// of raising an existence error; multifile and discontiguous are no-ops,
// since assertz ingestion already accepts clauses for a predicate from any
// load in any order. Every other directive is a goal and runs via call/1,
// so op/3 takes effect for the clauses that follow.
//
// prolognerd_variant decides term variance with core builtins only: both
// copies are ground-marked in first-appearance variable order and compared
// structurally. The lockstep marking fails when the variable counts differ.
// '$prolognerd'/1 is the reserved marker functor; terms that already contain
// it fall back to strict identity comparison.
//
// prolognerd_dump writes every clause of one predicate in writeq form, one
// clause per line, via a fail-driven loop. clause/2 is wrapped in catch so a
// non-listable procedure degrades to an empty dump instead of an error.
const bootstrap = `
prolognerd_load :-
	read_term(Term, []),
	prolognerd_consume(Term).

prolognerd_consume(end_of_file) :- !.
prolognerd_consume((:- Directive)) :- !,
	prolognerd_directive(Directive),
	prolognerd_load.
prolognerd_consume(Clause) :-
	prolognerd_assert(Clause),
	prolognerd_load.

prolognerd_directive(dynamic(PIs)) :- !,
	prolognerd_declare(PIs).
prolognerd_directive(multifile(_)) :- !.
prolognerd_directive(discontiguous(_)) :- !.
prolognerd_directive(Goal) :-
	call(Goal).

prolognerd_declare((A, B)) :- !,
	prolognerd_declare(A),
	prolognerd_declare(B).
prolognerd_declare(Name/Arity) :-
	functor(Head, Name, Arity),
	(   catch(clause(Head, _), _, fail)
	->  true
	;   assertz(Head),
	    retract(Head)
	).

prolognerd_assert(Clause) :-
	(   prolognerd_present(Clause)
	->  true
	;   assertz(Clause)
	).

prolognerd_present(Clause) :-
	prolognerd_split(Clause, Head, Body),
	functor(Head, Name, Arity),
	functor(Pattern, Name, Arity),
	catch(clause(Pattern, PatternBody), _, fail),
	prolognerd_variant((Pattern :- PatternBody), (Head :- Body)),
	!.

prolognerd_split((Head :- Body), Head, Body) :- !.
prolognerd_split(Fact, Fact, true).

prolognerd_variant(A, B) :-
	copy_term(A, CopyA),
	copy_term(B, CopyB),
	\+ prolognerd_marked(CopyA),
	\+ prolognerd_marked(CopyB),
	term_variables(CopyA, VarsA),
	term_variables(CopyB, VarsB),
	prolognerd_mark(VarsA, VarsB, 0),
	CopyA == CopyB.
prolognerd_variant(A, B) :-
	A == B.

prolognerd_marked(T) :-
	nonvar(T),
	(   T = '$prolognerd'(_)
	->  true
	;   T =.. [_|Args],
	    prolognerd_marked_any(Args)
	).

prolognerd_marked_any([A|As]) :-
	(   prolognerd_marked(A)
	->  true
	;   prolognerd_marked_any(As)
	).

prolognerd_mark([], [], _).
prolognerd_mark([A|As], [B|Bs], I) :-
	A = '$prolognerd'(I),
	B = '$prolognerd'(I),
	I1 is I + 1,
	prolognerd_mark(As, Bs, I1).

prolognerd_dump(Name, Arity) :-
	functor(Head, Name, Arity),
	catch(clause(Head, Body), _, fail),
	(   Body == true
	->  writeq(Head)
	;   writeq((Head :- Body))
	),
	write('.'),
	nl,
	fail.
prolognerd_dump(_, _).
`

// Engine wraps a single ichiban/prolog interpreter with the three
// capabilities the session layer needs: merge-semantics ingestion, lazy
// query evaluation with output capture, and a knowledge-base listing.
//
// The interpreter has no internal concurrency safety, so every method takes
// the engine mutex; Query hands the held mutex to the returned Solutions,
// which releases it on Close.
type Engine struct {
	cfg config.PrologConfig

	mu       sync.Mutex
	interp   *ichiban.Interpreter
	out      bytes.Buffer
	baseline map[string]struct{}
}

// NewEngine constructs the interpreter, installs the helper predicates,
// snapshots the baseline predicate set (interpreter library plus helpers,
// everything a listing must exclude), and consults any autoload programs.
// Autoload runs after the snapshot, so autoloaded clauses are savable.
func NewEngine(cfg config.PrologConfig) (*Engine, error) {
	e := &Engine{cfg: cfg}
	e.interp = ichiban.New(nil, &e.out)

	if err := e.interp.Exec(bootstrap); err != nil {
		return nil, fmt.Errorf("bootstrap interpreter: %w", err)
	}

	baseline, err := e.predicateSet(context.Background())
	if err != nil {
		return nil, fmt.Errorf("snapshot baseline predicates: %w", err)
	}
	e.baseline = baseline

	for _, path := range cfg.Autoload {
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("autoload %s: %w", path, err)
		}
		if err := e.consult(context.Background(), string(text)); err != nil {
			return nil, fmt.Errorf("autoload %s: %w", path, err)
		}
	}

	return e, nil
}

// Consult ingests rule/fact text into the knowledge base, merging with
// whatever is already asserted. Clauses the knowledge base already holds a
// variant of are skipped, so consulting the same text twice changes nothing.
// A syntax error mid-program leaves the clauses read so far in place; there
// is no rollback.
func (e *Engine) Consult(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.consult(ctx, text)
}

func (e *Engine) consult(ctx context.Context, text string) error {
	e.interp.SetUserInput(engine.NewInputTextStream(strings.NewReader(text)))
	defer e.interp.SetUserInput(engine.NewInputTextStream(strings.NewReader("")))

	return e.interp.QuerySolutionContext(ctx, "prolognerd_load.").Err()
}

// Query starts evaluating queryText and returns its lazy solution sequence.
// The sequence holds the engine exclusively until Close is called; callers
// must always Close it, typically via defer. A missing terminating dot is
// tolerated.
func (e *Engine) Query(ctx context.Context, queryText string) (*Solutions, error) {
	e.mu.Lock()

	e.out.Reset()
	inner, err := e.interp.QueryContext(ctx, terminate(queryText))
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	return &Solutions{engine: e, inner: inner, vars: queryVars(queryText)}, nil
}

// Listing dumps every user-asserted predicate as plain clause text, sorted by
// predicate indicator, clause order preserved within each predicate. Library
// and helper predicates recorded in the construction-time baseline are
// excluded. Operator definitions and flags are not captured; a knowledge base
// relying on custom operators may not re-parse identically after a restart.
func (e *Engine) Listing(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := e.predicateSet(ctx)
	if err != nil {
		return "", fmt.Errorf("enumerate predicates: %w", err)
	}

	user := make([]string, 0, len(current))
	for pi := range current {
		if _, ok := e.baseline[pi]; !ok {
			user = append(user, pi)
		}
	}
	sort.Strings(user)

	var sb strings.Builder
	for _, pi := range user {
		name, arity, ok := splitIndicator(pi)
		if !ok {
			continue
		}
		e.out.Reset()
		goal := fmt.Sprintf("prolognerd_dump(%s, %d).", name, arity)
		if err := e.interp.QuerySolutionContext(ctx, goal).Err(); err != nil {
			return "", fmt.Errorf("dump %s: %w", pi, err)
		}
		chunk := e.takeOutput()
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		sb.WriteString(chunk)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// predicateSet enumerates the current predicate indicators as "name/arity"
// keys. current_predicate/1 enumerates only for a bare variable, so the
// indicator is decomposed by unification afterwards. Names come back in
// writeq form, so they re-embed into goal text verbatim, quoting included.
func (e *Engine) predicateSet(ctx context.Context) (map[string]struct{}, error) {
	sols, err := e.interp.QueryContext(ctx, "current_predicate(PI), PI = Name/Arity.")
	if err != nil {
		return nil, err
	}
	defer sols.Close()

	set := make(map[string]struct{})
	for sols.Next() {
		var row struct {
			Name  ichiban.TermString
			Arity int
		}
		if err := sols.Scan(&row); err != nil {
			return nil, err
		}
		set[fmt.Sprintf("%s/%d", row.Name, row.Arity)] = struct{}{}
	}
	if err := sols.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// takeOutput drains the user_output capture buffer. Caller must hold e.mu.
func (e *Engine) takeOutput() string {
	s := e.out.String()
	e.out.Reset()
	return s
}

// terminate appends the end-of-clause dot when the caller omitted it. The dot
// goes on its own line so a trailing line comment cannot swallow it.
func terminate(q string) string {
	t := strings.TrimSpace(q)
	if strings.HasSuffix(t, ".") {
		return t
	}
	return t + "\n."
}

// queryVars extracts the named variables of a query in first-appearance
// order, so that solution bindings render the way the caller wrote them.
// The interpreter does not expose the parsed variable list, so the query
// text is tokenized just far enough to find them: quoted atoms, strings,
// comments, and character-code literals are skipped, and variables starting
// with an underscore are left out, following top-level convention.
func queryVars(q string) []string {
	var names []string
	seen := make(map[string]struct{})
	for i := 0; i < len(q); {
		c := q[i]
		switch {
		case c == '%':
			for i < len(q) && q[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(q) && q[i+1] == '*':
			end := strings.Index(q[i+2:], "*/")
			if end < 0 {
				return names
			}
			i += end + 4
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(q, i)
		case isVarStart(c):
			j := i + 1
			for j < len(q) && isIdentChar(q[j]) {
				j++
			}
			name := q[i:j]
			i = j
			if name[0] == '_' {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		case isDigit(c):
			j := i + 1
			for j < len(q) && isIdentChar(q[j]) {
				j++
			}
			// Character-code literal: 0'a, 0'\n, 0''' and friends.
			if j == i+1 && c == '0' && j < len(q) && q[j] == '\'' {
				j++
				if j < len(q) && (q[j] == '\\' || q[j] == '\'') {
					j++
				}
				if j < len(q) {
					j++
				}
			}
			i = j
		case isIdentChar(c):
			// A lower-case atom is consumed whole so an embedded capital is
			// not mistaken for a variable.
			j := i + 1
			for j < len(q) && isIdentChar(q[j]) {
				j++
			}
			i = j
		default:
			i++
		}
	}
	return names
}

// skipQuoted advances past a quoted token opened at q[i], honoring backslash
// escapes and doubled closing quotes. An unterminated token runs to the end.
func skipQuoted(q string, i int) int {
	quote := q[i]
	i++
	for i < len(q) {
		switch {
		case q[i] == '\\' && i+1 < len(q):
			i += 2
		case q[i] == quote:
			if i+1 < len(q) && q[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		default:
			i++
		}
	}
	return i
}

func isVarStart(c byte) bool { return c == '_' || (c >= 'A' && c <= 'Z') }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || isDigit(c)
}

// splitIndicator splits "name/arity", tolerating '/' inside quoted names by
// cutting at the last separator.
func splitIndicator(pi string) (string, int, bool) {
	i := strings.LastIndex(pi, "/")
	if i < 0 {
		return "", 0, false
	}
	arity, err := strconv.Atoi(pi[i+1:])
	if err != nil || arity < 0 {
		return "", 0, false
	}
	return pi[:i], arity, true
}
