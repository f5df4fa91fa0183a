// Package collect turns a directory of source files into a JSON "collect
// bundle" (internal/ops.CollectBundle): the write/append ingestion input.
// It wraps the code and Markdown chunkers, which build ops.CollectChunk
// records directly — kind "code" or "note", source-string provenance —
// rather than an intermediate chunk-package record. Collect never
// assigns ids, picks an embedder, or fills in a layer schema's element
// type and quant scale — those are write/append's job.
package collect

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/chunk"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/ops"
)

// Options configures a collection pass.
type Options struct {
	// MaxChunkTokens/OverlapTokens forward to the underlying chunkers;
	// zero means the chunkers' own defaults.
	MaxChunkTokens int
	OverlapTokens  int

	// SkipDirs names additional directory basenames to prune, beyond
	// the always-skipped ".git" and "node_modules".
	SkipDirs []string

	// Author is stamped on every produced chunk (default: Mcp, since
	// collect output is machine-derived).
	Author string
}

var alwaysSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".agentsdb":    true,
}

// Dir walks root, chunking every regular file it can handle, and returns
// the resulting chunks plus a count of files it skipped outright (binary
// or unreadable). The returned bundle's Schema is zero-valued; the
// caller fills in Dim/ElementType/QuantScale from the embedder it will
// use for write/append.
func Dir(ctx context.Context, root string, opts Options) (ops.CollectBundle, int, error) {
	registry := chunk.DefaultRegistry()
	codeChunker := chunk.NewCodeChunkerWithOptions(chunk.CodeChunkerOptions{
		MaxChunkTokens: opts.MaxChunkTokens,
		OverlapTokens:  opts.OverlapTokens,
	})
	defer codeChunker.Close()
	mdChunker := chunk.NewMarkdownChunkerWithOptions(chunk.MarkdownChunkerOptions{
		MaxChunkTokens: opts.MaxChunkTokens,
		OverlapTokens:  opts.OverlapTokens,
	})
	defer mdChunker.Close()

	author := opts.Author
	if author == "" {
		author = "mcp"
	}

	skip := map[string]bool{}
	for k, v := range alwaysSkipDirs {
		skip[k] = v
	}
	for _, d := range opts.SkipDirs {
		skip[d] = true
	}

	var bundle ops.CollectBundle
	skipped := 0

	validAuthor, ok := layerfile.ValidAuthor(author)
	if !ok {
		validAuthor = layerfile.AuthorMcp
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			skipped++
			return nil
		}
		if looksBinary(content) {
			skipped++
			return nil
		}

		chunks, chunkErr := chunkFile(ctx, rel, content, registry, codeChunker, mdChunker)
		if chunkErr != nil {
			skipped++
			return nil
		}

		for _, c := range chunks {
			c.Author = validAuthor
			bundle.Chunks = append(bundle.Chunks, c)
		}
		return nil
	})
	if walkErr != nil {
		return ops.CollectBundle{}, skipped, agerrors.IOError(root, walkErr)
	}

	sort.SliceStable(bundle.Chunks, func(i, j int) bool {
		return bundle.Chunks[i].Sources[0].Value < bundle.Chunks[j].Sources[0].Value
	})

	return bundle, skipped, nil
}

// chunkFile dispatches to the Markdown chunker for Markdown files and the
// code chunker for anything with a registered tree-sitter grammar,
// falling back to a single whole-file note chunk otherwise.
func chunkFile(ctx context.Context, rel string, content []byte, registry *chunk.LanguageRegistry, codeChunker *chunk.CodeChunker, mdChunker *chunk.MarkdownChunker) ([]ops.CollectChunk, error) {
	ext := strings.ToLower(filepath.Ext(rel))

	if ext == ".md" || ext == ".mdx" || ext == ".markdown" {
		return mdChunker.Chunk(ctx, &chunk.FileInput{Path: rel, Content: content})
	}

	if cfg, ok := registry.GetByExtension(ext); ok {
		return codeChunker.Chunk(ctx, &chunk.FileInput{Path: rel, Content: content, Language: cfg.Name})
	}

	return []ops.CollectChunk{wholeFileChunk(rel, content)}, nil
}

// wholeFileChunk handles the "no registered grammar" fallback: one note
// chunk holding the entire file.
func wholeFileChunk(rel string, content []byte) ops.CollectChunk {
	return ops.CollectChunk{
		Kind:       "note",
		Content:    string(content),
		Author:     layerfile.AuthorMcp,
		Confidence: 1,
		Sources: []ops.CollectSource{
			{Type: "source_string", Value: fmt.Sprintf("%s:1-%d", rel, strings.Count(string(content), "\n")+1)},
		},
	}
}

func looksBinary(content []byte) bool {
	limit := len(content)
	if limit > 8000 {
		limit = 8000
	}
	for _, b := range content[:limit] {
		if b == 0 {
			return true
		}
	}
	return false
}
