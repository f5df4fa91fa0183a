// Package chunk splits a source file into the ops.CollectChunk records
// that collect assembles into a write/append bundle: an AST-aware
// splitter for tree-sitter-supported languages, a header-aware splitter
// for Markdown, and a line-based fallback for everything else. Neither
// splitter assigns an id, picks an author, or touches the embedding
// schema — that happens once the bundle reaches write/append.
package chunk

import (
	"context"

	"github.com/agentsdb/agentsdb-go/internal/ops"
)

// Chunk size defaults (based on 2025 RAG research on retrieval recall).
const (
	DefaultMaxChunkTokens = 512 // Optimal for 85-90% recall
	DefaultOverlapTokens  = 64  // ~12.5% overlap
	TokensPerChar         = 4   // Rough approximation: 4 chars = 1 token
)

// FileInput is one file handed to a Chunker.
type FileInput struct {
	Path     string // Relative path, used as the chunk's source-string prefix
	Content  []byte
	Language string // go, typescript, python, etc. (code chunker only)
}

// Chunker splits a file into ops.CollectChunk records, each already
// carrying a source-string provenance ref of "path:startLine-endLine".
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]ops.CollectChunk, error)
	SupportedExtensions() []string
}

// symbolKind classifies the tree-sitter node a chunk boundary was found at.
// It is recorded on each extracted symbol and never reaches the collect
// bundle.
type symbolKind string

const (
	symbolFunction  symbolKind = "function"
	symbolClass     symbolKind = "class"
	symbolInterface symbolKind = "interface"
	symbolType      symbolKind = "type"
	symbolVariable  symbolKind = "variable"
	symbolConstant  symbolKind = "constant"
	symbolMethod    symbolKind = "method"
)

// symbol is the node-level metadata extracted while walking the AST.
type symbol struct {
	name       string
	kind       symbolKind
	startLine  int
	endLine    int
	docComment string
}

// Tree is a parsed AST.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node is one node in the AST.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point is a position in the source.
type Point struct {
	Row    uint32 // 0-indexed line number
	Column uint32
}

// LanguageConfig holds the tree-sitter node-type mapping for one language.
type LanguageConfig struct {
	Name       string
	Extensions []string

	// Node types that indicate function declarations
	FunctionTypes []string
	// Node types that indicate class/struct definitions
	ClassTypes []string
	// Node types that indicate interface definitions
	InterfaceTypes []string
	// Node types that indicate method definitions
	MethodTypes []string
	// Node types that indicate type definitions
	TypeDefTypes []string
	// Node types that indicate constant declarations
	ConstantTypes []string
	// Node types that indicate variable declarations
	VariableTypes []string

	// Node type for name identifier
	NameField string
}
