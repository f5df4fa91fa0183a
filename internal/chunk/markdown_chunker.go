package chunk

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/ops"
)

// MarkdownChunkerOptions configures the markdown chunker behavior.
type MarkdownChunkerOptions struct {
	MaxChunkTokens int // Maximum tokens per chunk (default: DefaultMaxChunkTokens)
	OverlapTokens  int // Overlap between chunks when splitting (default: DefaultOverlapTokens)
}

// MarkdownChunker implements header-based Markdown chunking.
type MarkdownChunker struct {
	options MarkdownChunkerOptions
}

var (
	// Matches headers: # Title, ## Title, etc.
	headerPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

	// Matches frontmatter: ---\n...\n---
	frontmatterPattern = regexp.MustCompile(`(?s)^---\n(.+?)\n---\n*`)

	// Matches fenced code blocks (including metadata).
	codeBlockPattern = regexp.MustCompile("(?s)```[^`]*```")

	// Matches MDX self-closing components: <Component ... />
	mdxSelfClosingPattern = regexp.MustCompile(`<[A-Z][a-zA-Z0-9]*[^>]*/\s*>`)

	// Matches tables (header row with |).
	tablePattern = regexp.MustCompile(`(?m)^\|.+\|$(\n^\|[-:|]+\|$)?(\n^\|.+\|$)*`)
)

// NewMarkdownChunkerWithOptions creates a new markdown chunker with custom options.
func NewMarkdownChunkerWithOptions(opts MarkdownChunkerOptions) *MarkdownChunker {
	if opts.MaxChunkTokens == 0 {
		opts.MaxChunkTokens = DefaultMaxChunkTokens
	}
	if opts.OverlapTokens == 0 {
		opts.OverlapTokens = DefaultOverlapTokens
	}
	return &MarkdownChunker{options: opts}
}

// Close releases chunker resources. MarkdownChunker is stateless.
func (c *MarkdownChunker) Close() {}

// SupportedExtensions returns file extensions this chunker handles.
func (c *MarkdownChunker) SupportedExtensions() []string {
	return []string{".md", ".markdown", ".mdx"}
}

// Chunk splits a markdown file into note chunks, one per section (or
// paragraph group, for documents without headers).
func (c *MarkdownChunker) Chunk(ctx context.Context, file *FileInput) ([]ops.CollectChunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	var chunks []ops.CollectChunk
	remainingContent := content
	lineOffset := 1

	if frontmatterMatch := frontmatterPattern.FindStringSubmatch(remainingContent); frontmatterMatch != nil {
		frontmatter := frontmatterMatch[0]
		chunks = append(chunks, c.buildChunk(file, frontmatter, 1, strings.Count(frontmatter, "\n")))
		remainingContent = remainingContent[len(frontmatter):]
		lineOffset += strings.Count(frontmatter, "\n")
	}

	sections := c.parseSections(remainingContent)
	if len(sections) == 0 {
		return append(chunks, c.chunkByParagraphs(file, remainingContent, "", lineOffset)...), nil
	}

	for _, sec := range sections {
		chunks = append(chunks, c.createSectionChunks(file, sec, lineOffset)...)
	}
	return chunks, nil
}

// section represents a markdown section with header info.
type section struct {
	headerLevel int
	headerTitle string
	headerPath  string
	content     string
	startLine   int // Line number within the content (0-indexed)
}

// parseSections parses markdown content into sections.
func (c *MarkdownChunker) parseSections(content string) []*section {
	lines := strings.Split(content, "\n")
	var sections []*section
	headerStack := make([]string, 6)

	var currentSection *section
	var contentBuilder strings.Builder

	for lineNum, line := range lines {
		if match := headerPattern.FindStringSubmatch(line); match != nil {
			if currentSection != nil {
				currentSection.content = contentBuilder.String()
				sections = append(sections, currentSection)
				contentBuilder.Reset()
			}

			level := len(match[1])
			title := strings.TrimSpace(match[2])

			headerStack[level-1] = title
			for i := level; i < 6; i++ {
				headerStack[i] = ""
			}

			var pathParts []string
			for i := 0; i < level; i++ {
				if headerStack[i] != "" {
					pathParts = append(pathParts, headerStack[i])
				}
			}

			currentSection = &section{
				headerLevel: level,
				headerTitle: title,
				headerPath:  strings.Join(pathParts, " > "),
				startLine:   lineNum,
			}
			contentBuilder.WriteString(line)
			contentBuilder.WriteString("\n")
		} else {
			contentBuilder.WriteString(line)
			contentBuilder.WriteString("\n")
		}
	}

	if currentSection != nil {
		currentSection.content = contentBuilder.String()
		sections = append(sections, currentSection)
	}

	return sections
}

// createSectionChunks creates one or more chunks from a section.
func (c *MarkdownChunker) createSectionChunks(file *FileInput, sec *section, baseLineOffset int) []ops.CollectChunk {
	content := strings.TrimRight(sec.content, "\n")

	trimmedContent := strings.TrimSpace(content)
	lines := strings.Split(trimmedContent, "\n")
	if len(lines) <= 1 && headerPattern.MatchString(trimmedContent) {
		return nil // Header with no body.
	}

	startLine := baseLineOffset + sec.startLine

	if estimateTokens(content) <= c.options.MaxChunkTokens {
		endLine := startLine + strings.Count(content, "\n")
		return []ops.CollectChunk{c.buildChunk(file, withHeaderPath(sec.headerPath, content), startLine, endLine)}
	}

	return c.splitLargeSection(file, sec, content, startLine)
}

// splitLargeSection splits a large section into multiple chunks at blank
// lines, keeping fenced code blocks intact across paragraph splits. The
// table and MDX-component spans from findAtomicBlocks are not used by the
// split, so an MDX component containing blank lines can be split.
func (c *MarkdownChunker) splitLargeSection(file *FileInput, sec *section, content string, startLine int) []ops.CollectChunk {
	atomicBlocks := c.findAtomicBlocks(content)
	paragraphs := c.splitByParagraphs(content, atomicBlocks)

	var chunks []ops.CollectChunk
	var currentContent strings.Builder
	currentStartLine := startLine
	lineCount := 0

	for _, para := range paragraphs {
		paraLines := strings.Count(para, "\n") + 1
		paraTokens := estimateTokens(para)
		currentTokens := estimateTokens(currentContent.String())

		if currentContent.Len() > 0 && currentTokens+paraTokens > c.options.MaxChunkTokens {
			chunks = append(chunks, c.buildChunk(file, withHeaderPath(sec.headerPath, strings.TrimRight(currentContent.String(), "\n ")), currentStartLine, currentStartLine+lineCount))
			currentContent.Reset()
			currentStartLine = startLine + lineCount
		}

		currentContent.WriteString(para)
		currentContent.WriteString("\n\n")
		lineCount += paraLines + 1
	}

	if currentContent.Len() > 0 {
		chunks = append(chunks, c.buildChunk(file, withHeaderPath(sec.headerPath, strings.TrimRight(currentContent.String(), "\n ")), currentStartLine, currentStartLine+lineCount))
	}

	return chunks
}

// findAtomicBlocks finds positions of blocks that shouldn't be split.
func (c *MarkdownChunker) findAtomicBlocks(content string) [][]int {
	var blocks [][]int
	blocks = append(blocks, codeBlockPattern.FindAllStringIndex(content, -1)...)
	blocks = append(blocks, tablePattern.FindAllStringIndex(content, -1)...)
	blocks = append(blocks, mdxSelfClosingPattern.FindAllStringIndex(content, -1)...)
	blocks = append(blocks, c.findMDXBlockComponents(content)...)
	return blocks
}

// findMDXBlockComponents finds <Component>...</Component> pairs without backreferences.
func (c *MarkdownChunker) findMDXBlockComponents(content string) [][]int {
	var locs [][]int

	openTagPattern := regexp.MustCompile(`<([A-Z][a-zA-Z0-9]*)[^/>]*>`)
	matches := openTagPattern.FindAllStringSubmatchIndex(content, -1)

	for _, match := range matches {
		if len(match) < 4 {
			continue
		}
		tagName := content[match[2]:match[3]]
		closeTag := "</" + tagName + ">"
		startPos := match[0]

		if closePos := strings.Index(content[match[1]:], closeTag); closePos != -1 {
			locs = append(locs, []int{startPos, match[1] + closePos + len(closeTag)})
		}
	}

	return locs
}

// splitByParagraphs splits content by blank lines, re-merging any atomic
// block (code fence) that straddles a split.
func (c *MarkdownChunker) splitByParagraphs(content string, atomicBlocks [][]int) []string {
	parts := strings.Split(content, "\n\n")

	var paragraphs []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}

	return c.mergeAtomicBlocks(paragraphs)
}

// mergeAtomicBlocks re-joins paragraphs that are part of an unclosed code fence.
func (c *MarkdownChunker) mergeAtomicBlocks(paragraphs []string) []string {
	var result []string
	var inCodeBlock bool
	var codeBlockBuilder strings.Builder

	for _, para := range paragraphs {
		if inCodeBlock {
			codeBlockBuilder.WriteString("\n\n")
			codeBlockBuilder.WriteString(para)
			if strings.Contains(para, "```") {
				result = append(result, codeBlockBuilder.String())
				codeBlockBuilder.Reset()
				inCodeBlock = false
			}
			continue
		}

		if openCount := strings.Count(para, "```"); openCount > 0 && openCount%2 == 1 {
			inCodeBlock = true
			codeBlockBuilder.WriteString(para)
			continue
		}

		result = append(result, para)
	}

	if inCodeBlock {
		result = append(result, codeBlockBuilder.String())
	}

	return result
}

// chunkByParagraphs chunks content without headers by blank-line-separated paragraphs.
func (c *MarkdownChunker) chunkByParagraphs(file *FileInput, content, headerPath string, startLine int) []ops.CollectChunk {
	paragraphs := strings.Split(content, "\n\n")

	var chunks []ops.CollectChunk
	var currentContent strings.Builder
	currentStartLine := startLine
	lineCount := 0

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		paraLines := strings.Count(para, "\n") + 1
		paraTokens := estimateTokens(para)
		currentTokens := estimateTokens(currentContent.String())

		if currentContent.Len() > 0 && currentTokens+paraTokens > c.options.MaxChunkTokens {
			chunks = append(chunks, c.buildChunk(file, withHeaderPath(headerPath, currentContent.String()), currentStartLine, currentStartLine+lineCount))
			currentContent.Reset()
			currentStartLine = startLine + lineCount
		}

		if currentContent.Len() > 0 {
			currentContent.WriteString("\n\n")
		}
		currentContent.WriteString(para)
		lineCount += paraLines + 1
	}

	if currentContent.Len() > 0 {
		chunks = append(chunks, c.buildChunk(file, withHeaderPath(headerPath, currentContent.String()), currentStartLine, currentStartLine+lineCount))
	}

	return chunks
}

// withHeaderPath prepends the section's breadcrumb as an HTML comment so
// embedding models see document structure alongside the section body.
func withHeaderPath(headerPath, content string) string {
	if headerPath == "" {
		return content
	}
	return fmt.Sprintf("<!-- %s -->\n\n%s", headerPath, content)
}

func (c *MarkdownChunker) buildChunk(file *FileInput, content string, startLine, endLine int) ops.CollectChunk {
	return ops.CollectChunk{
		Kind:       "note",
		Content:    content,
		Author:     layerfile.AuthorMcp,
		Confidence: 1,
		Sources: []ops.CollectSource{
			{Type: "source_string", Value: fmt.Sprintf("%s:%d-%d", file.Path, startLine, endLine)},
		},
	}
}
