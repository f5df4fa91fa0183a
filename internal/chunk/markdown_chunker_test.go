package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownChunker_SplitsByHeaderSections(t *testing.T) {
	source := `# Title

Intro paragraph.

## Section A

Content of section A.

## Section B

Content of section B.
`
	chunker := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(source)})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for _, c := range chunks {
		assert.Equal(t, "note", c.Kind)
		require.Len(t, c.Sources, 1)
		assert.True(t, strings.HasPrefix(c.Sources[0].Value, "doc.md:"))
	}
	assert.Contains(t, chunks[1].Content, "Title > Section A")
	assert.Contains(t, chunks[1].Content, "Content of section A")
	assert.Contains(t, chunks[2].Content, "Title > Section B")
}

func TestMarkdownChunker_ExtractsFrontmatter(t *testing.T) {
	source := "---\ntitle: Example\n---\n\n# Body\n\nSome content.\n"

	chunker := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(source)})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Contains(t, chunks[0].Content, "title: Example")
}

func TestMarkdownChunker_NoHeaders_ChunksByParagraphs(t *testing.T) {
	source := "First paragraph of plain prose.\n\nSecond paragraph, still plain prose.\n"

	chunker := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{Path: "notes.md", Content: []byte(source)})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "First paragraph")
	assert.Contains(t, chunks[0].Content, "Second paragraph")
}

func TestMarkdownChunker_EmptyFile_ReturnsNoChunks(t *testing.T) {
	chunker := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{Path: "empty.md", Content: []byte("   \n\n  ")})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestMarkdownChunker_HeaderOnlySectionSkipped(t *testing.T) {
	source := "# Title\n\n## Empty Section\n\n## Populated Section\n\nActual content here.\n"

	chunker := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(source)})
	require.NoError(t, err)
	for _, c := range chunks {
		assert.NotContains(t, c.Content, "Empty Section\n\n##")
	}
}

func TestMarkdownChunker_CodeFenceNotSplitMidBlock(t *testing.T) {
	var filler strings.Builder
	for i := 0; i < 100; i++ {
		filler.WriteString("some prose padding this section well past the chunk token budget so it must split\n")
	}
	source := "# Section\n\n" + filler.String() + "\n```go\nfunc split() {}\n```\n"

	chunker := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{MaxChunkTokens: 30, OverlapTokens: 5})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(source)})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// The fenced block must appear whole in exactly one chunk, never cut
	// across a chunk boundary.
	found := 0
	for _, c := range chunks {
		if strings.Contains(c.Content, "```go\nfunc split() {}\n```") {
			found++
		}
	}
	assert.Equal(t, 1, found)
}

func TestMarkdownChunker_HeaderPathTracksNesting(t *testing.T) {
	source := "# A\n\n## B\n\n### C\n\nDeep content.\n"

	chunker := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(source)})
	require.NoError(t, err)
	last := chunks[len(chunks)-1]
	assert.Contains(t, last.Content, "A > B > C")
}
