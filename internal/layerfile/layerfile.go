package layerfile

import (
	"os"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
)

// chunkRecord is the fixed-size on-disk chunk table entry, before strings
// and the embedding row are resolved.
type chunkRecord struct {
	ID               uint32
	KindStringID     uint64
	ContentStringID  uint64
	AuthorStringID   uint64
	Confidence       float32
	CreatedAtUnixMs  uint64
	EmbeddingRow     uint32
	SourceStart      uint32
	SourceCount      uint32
	RelStart         uint32
	RelCount         uint32
}

// LayerFile is an opened, validated Layer File: O(1) random access to any
// chunk by slot index, plus accessors for relationships and the embedded
// layer-metadata blob.
type LayerFile struct {
	Path     string
	Schema   LayerSchema
	dict     []string
	records  []chunkRecord
	sources  []rawProvenance
	embedRaw []byte
	rowSize  int
	rels     []Relationship
	metadata []byte
}

// ChunkCount returns the number of chunks in the layer.
func (f *LayerFile) ChunkCount() int { return len(f.records) }

// MetadataBytes returns the embedded layer-metadata JSON bytes, or nil if
// the layer carries no metadata section.
func (f *LayerFile) MetadataBytes() []byte { return f.metadata }

// Relationships returns the parsed, validated relationships section. It
// is never consulted by the search engine's ranking path (open question,
// see DESIGN.md).
func (f *LayerFile) Relationships() []Relationship { return f.rels }

// ChunkAt materializes the chunk at the given slot index, decoding its
// embedding row to f32.
func (f *LayerFile) ChunkAt(i int) (Chunk, error) {
	if i < 0 || i >= len(f.records) {
		return Chunk{}, agerrors.FormatError(agerrors.CodeInvalidChunkID,
			"slot index out of range", f.Path)
	}
	return f.materialize(f.records[i])
}

// ReadAllChunks materializes every chunk in the layer, in table order.
func (f *LayerFile) ReadAllChunks() ([]Chunk, error) {
	out := make([]Chunk, 0, len(f.records))
	for _, rec := range f.records {
		c, err := f.materialize(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *LayerFile) materialize(rec chunkRecord) (Chunk, error) {
	kind, err := stringAt(f.dict, rec.KindStringID, f.Path)
	if err != nil {
		return Chunk{}, err
	}
	content, err := stringAt(f.dict, rec.ContentStringID, f.Path)
	if err != nil {
		return Chunk{}, err
	}
	authorStr, err := stringAt(f.dict, rec.AuthorStringID, f.Path)
	if err != nil {
		return Chunk{}, err
	}
	author, ok := ValidAuthor(authorStr)
	if !ok {
		return Chunk{}, agerrors.FormatError(agerrors.CodeInvalidAuthor,
			"author string does not round-trip to human or mcp", f.Path).
			WithDetail("id", rec.ID).WithDetail("value", authorStr)
	}

	sources, err := f.resolveSources(rec)
	if err != nil {
		return Chunk{}, err
	}

	vec, err := f.decodeRow(rec.EmbeddingRow)
	if err != nil {
		return Chunk{}, err
	}

	return Chunk{
		ID:              ChunkID(rec.ID),
		Kind:            kind,
		Content:         content,
		Author:          author,
		Confidence:      rec.Confidence,
		CreatedAtUnixMs: rec.CreatedAtUnixMs,
		Sources:         sources,
		Vector:          vec,
	}, nil
}

func (f *LayerFile) resolveSources(rec chunkRecord) ([]ProvenanceRef, error) {
	if rec.SourceCount == 0 {
		return nil, nil
	}
	start, count := int(rec.SourceStart), int(rec.SourceCount)
	if start < 0 || count < 0 || start+count > len(f.sources) {
		return nil, agerrors.FormatError(agerrors.CodeInvalidRange,
			"source slice out of range", f.Path).WithDetail("id", rec.ID)
	}
	out := make([]ProvenanceRef, 0, count)
	for _, raw := range f.sources[start : start+count] {
		if ProvenanceRefKind(raw.Tag) == ProvenanceChunkID {
			out = append(out, NewProvenanceChunkID(ChunkID(raw.ChunkID)))
			continue
		}
		s, err := stringAt(f.dict, raw.StringID, f.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, NewProvenanceSource(s))
	}
	return out, nil
}

func (f *LayerFile) decodeRow(row uint32) ([]float32, error) {
	rowCount := len(f.embedRaw) / max1(f.rowSize)
	if int(row) >= rowCount {
		return nil, agerrors.FormatError(agerrors.CodeInvalidEmbeddingRow,
			"embedding row out of range", f.Path).
			WithDetail("embedding_row", row).WithDetail("row_count", rowCount)
	}
	start := int(row) * f.rowSize
	buf := f.embedRaw[start : start+f.rowSize]
	return decodeEmbeddingRow(buf, int(f.Schema.Dim), f.Schema.ElementType, f.Schema.QuantScale), nil
}

func max1(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

// Open validates and opens a Layer File for random-access reading.
func Open(path string) (*LayerFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, agerrors.IOError(path, err)
	}
	return parseLayerFile(path, raw)
}
