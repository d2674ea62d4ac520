package session

import (
	"fmt"
	"strings"
)

// Solutions is the minimal lazy solution sequence the aggregator consumes.
// *prolog.Solutions satisfies it; tests substitute scripted fakes.
type Solutions interface {
	Vars() []string
	Next() bool
	Scan() (map[string]string, error)
	Output() string
	Err() error
	Close() error
}

// aggregate drains one query's solution sequence into a ToolResult. The
// block order is fixed: captured output, then diagnostics, then the rendered
// solutions, then at most one fault block. When all four are empty a single
// informational block says so, so the caller never sees an empty result.
//
// Draining stops early only at the solution cap; a fault raised mid-sequence
// ends iteration on its own and the solutions accumulated before it are
// kept.
func aggregate(sols Solutions, limit int) ToolResult {
	defer sols.Close()

	var (
		output  strings.Builder
		diag    strings.Builder
		rows    []map[string]string
		scanErr error
	)

	vars := sols.Vars()
	for sols.Next() {
		output.WriteString(sols.Output())
		row, err := sols.Scan()
		if err != nil {
			scanErr = fmt.Errorf("could not render solution %d: %w", len(rows)+1, err)
			break
		}
		rows = append(rows, row)
		if limit > 0 && len(rows) >= limit {
			fmt.Fprintf(&diag, "solution limit of %d reached; enumeration stopped", limit)
			break
		}
	}
	output.WriteString(sols.Output())

	fault := sols.Err()
	if fault == nil {
		fault = scanErr
	}

	var result ToolResult
	if text := output.String(); text != "" {
		result.Blocks = append(result.Blocks, InfoBlock(text))
	}
	if diag.Len() > 0 {
		result.Blocks = append(result.Blocks, InfoBlock(diag.String()))
	}
	if len(rows) > 0 {
		result.Blocks = append(result.Blocks, InfoBlock(renderSolutions(vars, rows)))
	}
	if fault != nil {
		result.Blocks = append(result.Blocks, ErrorBlock(KindQueryFault, fmt.Sprintf("query raised an error: %v", fault)))
	}
	if len(result.Blocks) == 0 {
		result.Blocks = append(result.Blocks, InfoBlock("No solutions found (query produced no output)."))
	}
	return result
}

// renderSolutions formats the accumulated solutions one per line, bindings
// in query variable order, "true" for a variable-free success.
func renderSolutions(vars []string, rows []map[string]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d solution(s):\n", len(rows))
	for i, row := range rows {
		fmt.Fprintf(&sb, "%d. %s", i+1, renderBindings(vars, row))
		if i < len(rows)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func renderBindings(vars []string, row map[string]string) string {
	if len(vars) == 0 {
		return "true"
	}
	parts := make([]string, 0, len(vars))
	for _, v := range vars {
		if value, ok := row[v]; ok {
			parts = append(parts, fmt.Sprintf("%s = %s", v, value))
		}
	}
	if len(parts) == 0 {
		return "true"
	}
	return strings.Join(parts, ", ")
}
