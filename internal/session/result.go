package session

// ErrorKind classifies why an operation failed. Every error block carries
// one, so callers can tell bad input apart from engine faults and disk
// problems without parsing message text.
type ErrorKind string

const (
	// KindValidation marks input rejected before it reached the engine.
	KindValidation ErrorKind = "validation"
	// KindIngestion marks program text the engine refused to load.
	KindIngestion ErrorKind = "ingestion"
	// KindQueryFault marks an error raised during query evaluation.
	KindQueryFault ErrorKind = "query_fault"
	// KindPersistence marks a save or load that failed at the disk layer.
	KindPersistence ErrorKind = "persistence"
)

// Block is one typed content block of a tool response: informational text,
// or error text annotated with its kind.
type Block struct {
	Text  string    `json:"text"`
	Error bool      `json:"error,omitempty"`
	Kind  ErrorKind `json:"kind,omitempty"`
}

// ToolResult is the uniform response envelope every operation returns,
// success or failure alike. Block order is meaningful and preserved.
type ToolResult struct {
	Blocks []Block `json:"blocks"`
}

// InfoBlock builds an informational block.
func InfoBlock(text string) Block {
	return Block{Text: text}
}

// ErrorBlock builds an error block of the given kind.
func ErrorBlock(kind ErrorKind, text string) Block {
	return Block{Text: text, Error: true, Kind: kind}
}

// InfoResult wraps a single informational block.
func InfoResult(text string) ToolResult {
	return ToolResult{Blocks: []Block{InfoBlock(text)}}
}

// ErrorResult wraps a single error block.
func ErrorResult(kind ErrorKind, text string) ToolResult {
	return ToolResult{Blocks: []Block{ErrorBlock(kind, text)}}
}

// IsError reports whether any block is error-flagged.
func (r ToolResult) IsError() bool {
	for _, b := range r.Blocks {
		if b.Error {
			return true
		}
	}
	return false
}

// ErrorKinds returns the distinct error kinds present, in block order.
func (r ToolResult) ErrorKinds() []string {
	var kinds []string
	seen := make(map[ErrorKind]struct{})
	for _, b := range r.Blocks {
		if !b.Error || b.Kind == "" {
			continue
		}
		if _, ok := seen[b.Kind]; ok {
			continue
		}
		seen[b.Kind] = struct{}{}
		kinds = append(kinds, string(b.Kind))
	}
	return kinds
}
