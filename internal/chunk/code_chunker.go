package chunk

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/ops"
)

// CodeChunkerOptions configures the code chunker behavior.
type CodeChunkerOptions struct {
	MaxChunkTokens int // Maximum tokens per chunk (default: DefaultMaxChunkTokens)
	OverlapTokens  int // Overlap between chunks when splitting (default: DefaultOverlapTokens)
}

// CodeChunker splits source files into chunks along tree-sitter symbol
// boundaries (functions, methods, types), falling back to fixed-size
// line windows for unsupported languages or parse failures.
type CodeChunker struct {
	parser   *Parser
	registry *LanguageRegistry
	options  CodeChunkerOptions
}

// NewCodeChunkerWithOptions creates a new code chunker with custom options.
func NewCodeChunkerWithOptions(opts CodeChunkerOptions) *CodeChunker {
	if opts.MaxChunkTokens == 0 {
		opts.MaxChunkTokens = DefaultMaxChunkTokens
	}
	if opts.OverlapTokens == 0 {
		opts.OverlapTokens = DefaultOverlapTokens
	}

	registry := DefaultRegistry()
	return &CodeChunker{
		parser:   NewParserWithRegistry(registry),
		registry: registry,
		options:  opts,
	}
}

// Close releases chunker resources.
func (c *CodeChunker) Close() {
	if c.parser != nil {
		c.parser.Close()
	}
}

// SupportedExtensions returns file extensions this chunker handles.
func (c *CodeChunker) SupportedExtensions() []string {
	return c.registry.SupportedExtensions()
}

// Chunk splits a file into code chunks, each carrying a
// "path:startLine-endLine" source-string provenance ref.
func (c *CodeChunker) Chunk(ctx context.Context, file *FileInput) ([]ops.CollectChunk, error) {
	if len(file.Content) == 0 {
		return nil, nil
	}

	if _, supported := c.registry.GetByName(file.Language); !supported {
		return c.chunkByLines(file), nil
	}

	tree, err := c.parser.Parse(ctx, file.Content, file.Language)
	if err != nil {
		return c.chunkByLines(file), nil
	}

	fileContext := c.enrichContextWithFilePath(file.Path, file.Language, c.extractFileContext(tree, file.Language))

	symbolNodes := c.findSymbolNodes(tree, file.Language)
	if len(symbolNodes) == 0 {
		return nil, nil
	}

	var chunks []ops.CollectChunk
	for _, node := range symbolNodes {
		chunks = append(chunks, c.createChunksFromNode(node, tree, file, fileContext)...)
	}
	return chunks, nil
}

// symbolNodeInfo holds a symbol node with its extracted symbol info.
type symbolNodeInfo struct {
	node *Node
	sym  *symbol
}

// findSymbolNodes finds all top-level symbol-defining nodes.
func (c *CodeChunker) findSymbolNodes(tree *Tree, language string) []*symbolNodeInfo {
	config, ok := c.registry.GetByName(language)
	if !ok {
		return nil
	}

	kindByType := make(map[string]symbolKind)
	for _, t := range config.FunctionTypes {
		kindByType[t] = symbolFunction
	}
	for _, t := range config.MethodTypes {
		kindByType[t] = symbolMethod
	}
	for _, t := range config.ClassTypes {
		kindByType[t] = symbolClass
	}
	for _, t := range config.InterfaceTypes {
		kindByType[t] = symbolInterface
	}
	for _, t := range config.TypeDefTypes {
		kindByType[t] = symbolType
	}
	for _, t := range config.ConstantTypes {
		kindByType[t] = symbolConstant
	}
	for _, t := range config.VariableTypes {
		kindByType[t] = symbolVariable
	}

	var nodes []*symbolNodeInfo

	tree.Root.Walk(func(n *Node) bool {
		// Arrow functions and function expressions are typed as
		// lexical_declaration/variable_declaration; check those first so
		// they're classified as functions rather than constants.
		if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
			if sym := extractSpecialSymbol(n, tree.Source, language); sym != nil {
				nodes = append(nodes, &symbolNodeInfo{node: n, sym: sym})
				return false
			}
		}

		if kind, isSymbol := kindByType[n.Type]; isSymbol {
			if sym := c.extractSymbol(n, tree, kind, language); sym != nil {
				nodes = append(nodes, &symbolNodeInfo{node: n, sym: sym})
				return false
			}
		}
		return true
	})

	return nodes
}

// extractSymbol extracts symbol info from a node.
func (c *CodeChunker) extractSymbol(n *Node, tree *Tree, kind symbolKind, language string) *symbol {
	name := extractName(n, tree.Source, language)
	if name == "" {
		return nil
	}

	return &symbol{
		name:       name,
		kind:       kind,
		startLine:  int(n.StartPoint.Row) + 1,
		endLine:    int(n.EndPoint.Row) + 1,
		docComment: c.extractDocComment(n, tree.Source, language),
	}
}

// extractDocComment walks backwards from n's line, collecting contiguous
// preceding single-line comments in the language's comment syntax.
func (c *CodeChunker) extractDocComment(n *Node, source []byte, language string) string {
	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}

	var commentLines []string
	pos := lineStart - 1

	for pos > 0 {
		prevLineEnd := pos
		pos--
		for pos > 0 && source[pos] != '\n' {
			pos--
		}
		prevLineStart := pos
		if pos > 0 {
			prevLineStart++
		}

		prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))

		switch language {
		case "go", "typescript", "tsx", "javascript", "jsx":
			if strings.HasPrefix(prevLine, "//") {
				commentLines = append([]string{strings.TrimPrefix(prevLine, "//")}, commentLines...)
				continue
			}
		case "python":
			if strings.HasPrefix(prevLine, "#") {
				commentLines = append([]string{strings.TrimPrefix(prevLine, "#")}, commentLines...)
				continue
			}
		}

		if prevLine != "" {
			break
		}
	}

	if len(commentLines) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(commentLines, "\n"))
}

// createChunksFromNode creates one or more chunks from a symbol node.
func (c *CodeChunker) createChunksFromNode(info *symbolNodeInfo, tree *Tree, file *FileInput, fileContext string) []ops.CollectChunk {
	node := info.node
	rawContent := string(tree.Source[node.StartByte:node.EndByte])

	if info.sym.docComment != "" {
		rawContent = c.withDocComment(node, tree.Source, info.sym.docComment)
	}

	if estimateTokens(rawContent) <= c.options.MaxChunkTokens {
		return []ops.CollectChunk{c.buildChunk(file, combineContextAndContent(fileContext, rawContent), info.sym.startLine, info.sym.endLine)}
	}

	// Large symbol: fall back to line-based splitting with overlap.
	content := string(tree.Source[node.StartByte:node.EndByte])
	return c.splitByLines(content, file, fileContext, int(node.StartPoint.Row)+1)
}

// withDocComment extends a node's content backwards to include its
// already-extracted doc comment.
func (c *CodeChunker) withDocComment(n *Node, source []byte, docComment string) string {
	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}

	docLines := strings.Count(docComment, "\n") + 1
	for i := 0; i < docLines && lineStart > 0; i++ {
		lineStart--
		for lineStart > 0 && source[lineStart-1] != '\n' {
			lineStart--
		}
	}

	return string(source[lineStart:n.EndByte])
}

// splitByLines splits content into line-based chunks with overlap.
func (c *CodeChunker) splitByLines(content string, file *FileInput, fileContext string, startLine int) []ops.CollectChunk {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return nil
	}

	maxLinesPerChunk := (c.options.MaxChunkTokens * TokensPerChar) / 80 // ~80 chars/line
	if maxLinesPerChunk < 20 {
		maxLinesPerChunk = 20
	}
	overlapLines := (c.options.OverlapTokens * TokensPerChar) / 80
	if overlapLines < 2 {
		overlapLines = 2
	}

	var chunks []ops.CollectChunk
	for i := 0; i < len(lines); {
		end := i + maxLinesPerChunk
		if end > len(lines) {
			end = len(lines)
		}

		chunkContent := strings.Join(lines[i:end], "\n")
		chunks = append(chunks, c.buildChunk(file, combineContextAndContent(fileContext, chunkContent), startLine+i, startLine+end-1))

		i = end - overlapLines
		if i <= 0 || end >= len(lines) {
			break
		}
	}
	return chunks
}

func (c *CodeChunker) buildChunk(file *FileInput, content string, startLine, endLine int) ops.CollectChunk {
	return ops.CollectChunk{
		Kind:       "code",
		Content:    content,
		Author:     layerfile.AuthorMcp,
		Confidence: 1,
		Sources: []ops.CollectSource{
			{Type: "source_string", Value: fmt.Sprintf("%s:%d-%d", file.Path, startLine, endLine)},
		},
	}
}

// extractFileContext extracts package declaration and imports from a file.
func (c *CodeChunker) extractFileContext(tree *Tree, language string) string {
	var parts []string

	switch language {
	case "go":
		parts = extractGoContext(tree)
	case "typescript", "tsx", "javascript", "jsx":
		parts = extractJSContext(tree)
	case "python":
		parts = extractPythonContext(tree)
	}

	return strings.Join(parts, "\n\n")
}

func extractGoContext(tree *Tree) []string {
	var parts []string
	for _, node := range tree.Root.Children {
		if node.Type == "package_clause" {
			parts = append(parts, node.GetContent(tree.Source))
			break
		}
	}
	for _, node := range tree.Root.Children {
		if node.Type == "import_declaration" {
			parts = append(parts, node.GetContent(tree.Source))
		}
	}
	return parts
}

func extractJSContext(tree *Tree) []string {
	var parts []string
	for _, node := range tree.Root.Children {
		if node.Type == "import_statement" {
			parts = append(parts, node.GetContent(tree.Source))
		}
	}
	return parts
}

func extractPythonContext(tree *Tree) []string {
	var parts []string
	for _, node := range tree.Root.Children {
		if node.Type == "import_statement" || node.Type == "import_from_statement" {
			parts = append(parts, node.GetContent(tree.Source))
		}
	}
	return parts
}

// chunkByLines is the fallback for unsupported languages.
func (c *CodeChunker) chunkByLines(file *FileInput) []ops.CollectChunk {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	linesPerChunk := 128 // ~2560 tokens at 4 chars/token, 80 chars/line
	overlapLines := 16   // ~320 tokens overlap

	var chunks []ops.CollectChunk
	for i := 0; i < len(lines); {
		end := i + linesPerChunk
		if end > len(lines) {
			end = len(lines)
		}

		chunks = append(chunks, c.buildChunk(file, strings.Join(lines[i:end], "\n"), i+1, end))

		i = end - overlapLines
		if i <= 0 || end >= len(lines) {
			break
		}
	}
	return chunks
}

// estimateTokens estimates the number of tokens in content.
func estimateTokens(content string) int {
	return len(content) / TokensPerChar
}

// combineContextAndContent combines context and raw content into full content.
func combineContextAndContent(context, rawContent string) string {
	if context == "" {
		return rawContent
	}
	return context + "\n\n" + rawContent
}

// enrichContextWithFilePath prepends a file path marker to the context so
// embedding models see file location alongside the symbol body. The
// marker's comment syntax matches the source language.
func (c *CodeChunker) enrichContextWithFilePath(filePath, language, existingContext string) string {
	if filePath == "" {
		return existingContext
	}

	var marker string
	if language == "python" {
		marker = fmt.Sprintf("# File: %s", filePath)
	} else {
		marker = fmt.Sprintf("// File: %s", filePath)
	}

	if existingContext == "" {
		return marker
	}
	return marker + "\n" + existingContext
}
