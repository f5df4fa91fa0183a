package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeChunker_ChunkGoFile_ReturnsFunctionChunks(t *testing.T) {
	source := `package main

import "fmt"

func Hello() {
	fmt.Println("Hello")
}

func Goodbye() {
	fmt.Println("Goodbye")
}
`
	chunker := NewCodeChunkerWithOptions(CodeChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "main.go", Content: []byte(source), Language: "go",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 2, "should return 2 chunks for 2 functions")

	assert.Equal(t, "code", chunks[0].Kind)
	assert.Contains(t, chunks[0].Content, "Hello")
	assert.Contains(t, chunks[0].Content, `import "fmt"`)
	assert.Contains(t, chunks[0].Content, "package main")
	require.Len(t, chunks[0].Sources, 1)
	assert.Equal(t, "source_string", chunks[0].Sources[0].Type)
	assert.True(t, strings.HasPrefix(chunks[0].Sources[0].Value, "main.go:"))

	assert.Contains(t, chunks[1].Content, "Goodbye")
}

func TestCodeChunker_ChunkGoFile_IncludesDocComments(t *testing.T) {
	source := `package main

// Greet returns a greeting message for the given name.
func Greet(name string) string {
	return "Hello, " + name
}
`
	chunker := NewCodeChunkerWithOptions(CodeChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "main.go", Content: []byte(source), Language: "go",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "Greet returns a greeting")
}

func TestCodeChunker_ChunkTypeScript_ArrowFunctionIsTreatedAsFunction(t *testing.T) {
	source := `import { Logger } from './logger';

export const handler = (req: string) => {
	return req.toUpperCase();
};
`
	chunker := NewCodeChunkerWithOptions(CodeChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "handler.ts", Content: []byte(source), Language: "typescript",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "handler")
	assert.Contains(t, chunks[0].Content, "import { Logger }")
}

func TestCodeChunker_ChunkPythonFile_ReturnsFunctionAndClass(t *testing.T) {
	source := `def greet(name):
    return "hi " + name


class Greeter:
    def hello(self):
        return greet("world")
`
	chunker := NewCodeChunkerWithOptions(CodeChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "greet.py", Content: []byte(source), Language: "python",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Content, "def greet")
	assert.Contains(t, chunks[1].Content, "class Greeter")
}

func TestCodeChunker_UnsupportedLanguage_FallsBackToLineChunks(t *testing.T) {
	var lines []string
	for i := 0; i < 300; i++ {
		lines = append(lines, "line of rust source code that is not tree-sitter registered")
	}
	source := strings.Join(lines, "\n")

	chunker := NewCodeChunkerWithOptions(CodeChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "main.rs", Content: []byte(source), Language: "rust",
	})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, "code", c.Kind)
	}
}

func TestCodeChunker_NoSymbolsFound_ReturnsNoChunks(t *testing.T) {
	// Valid to parse (tree-sitter tolerates malformed input and marks the
	// offending nodes HasError) but contains no recognizable declarations.
	source := "this is not valid go syntax at all {{{ }}} ((("

	chunker := NewCodeChunkerWithOptions(CodeChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "broken.go", Content: []byte(source), Language: "go",
	})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestCodeChunker_EmptyFile_ReturnsNoChunks(t *testing.T) {
	chunker := NewCodeChunkerWithOptions(CodeChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "empty.go", Content: nil, Language: "go",
	})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestCodeChunker_LargeFunctionSplitsWithOverlap(t *testing.T) {
	var body strings.Builder
	for i := 0; i < 200; i++ {
		body.WriteString("\tfmt.Println(\"line that pads out the function body to force a split\")\n")
	}
	source := "package main\n\nimport \"fmt\"\n\nfunc Big() {\n" + body.String() + "}\n"

	chunker := NewCodeChunkerWithOptions(CodeChunkerOptions{MaxChunkTokens: 50, OverlapTokens: 10})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "big.go", Content: []byte(source), Language: "go",
	})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1, "large function should split into multiple chunks")
	for _, c := range chunks {
		assert.Equal(t, "code", c.Kind)
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, len("abcd")/TokensPerChar, estimateTokens("abcd"))
}

func TestCombineContextAndContent(t *testing.T) {
	assert.Equal(t, "body", combineContextAndContent("", "body"))
	assert.Equal(t, "ctx\n\nbody", combineContextAndContent("ctx", "body"))
}
