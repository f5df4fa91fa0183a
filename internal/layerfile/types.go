// Package layerfile implements the Layer File binary format: the
// append-oriented, content-addressed on-disk representation of one
// layer's chunks and embeddings, plus its atomic write/append lifecycle.
package layerfile

import (
	"encoding/json"
	"fmt"
)

// ChunkID identifies a chunk within one layer file. The zero value means
// "assign on write" for appenders; it never appears in a stored chunk.
type ChunkID uint32

// LayerID is the closed set of logical layers, ordered by precedence
// (Local wins). The ordering of these constants IS the precedence order
// and is used directly for tie-breaking in search ranking.
type LayerID int

const (
	Local LayerID = iota
	User
	Delta
	Base
)

func (l LayerID) String() string {
	switch l {
	case Local:
		return "local"
	case User:
		return "user"
	case Delta:
		return "delta"
	case Base:
		return "base"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// MarshalJSON renders the lowercase name used throughout the export
// bundle and CLI JSON output.
func (l LayerID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// UnmarshalJSON parses the lowercase name back, the inverse of
// MarshalJSON, so an ExportLayer's Layer field round-trips through
// export/import.
func (l *LayerID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, ok := ParseLayerID(s)
	if !ok {
		return fmt.Errorf("layerfile: invalid layer name %q", s)
	}
	*l = id
	return nil
}

// ParseLayerID parses one of the four lowercase layer names.
func ParseLayerID(s string) (LayerID, bool) {
	switch s {
	case "local":
		return Local, true
	case "user":
		return User, true
	case "delta":
		return Delta, true
	case "base":
		return Base, true
	default:
		return 0, false
	}
}

// Author is the closed enumeration of chunk authorship. Only these two
// spellings are legal; anything else is a format error (I4).
type Author string

const (
	AuthorHuman Author = "human"
	AuthorMcp   Author = "mcp"
)

// ValidAuthor reports whether a decoded author string round-trips to one
// of the two legal spellings.
func ValidAuthor(s string) (Author, bool) {
	switch Author(s) {
	case AuthorHuman, AuthorMcp:
		return Author(s), true
	default:
		return "", false
	}
}

// ProvenanceRefKind tags the ProvenanceRef union.
type ProvenanceRefKind uint32

const (
	ProvenanceChunkID ProvenanceRefKind = iota
	ProvenanceSourceString
)

// ProvenanceRef is a tagged union: either a ChunkId pointing into some
// layer, or a free-form source string (path, URL, "path:line").
type ProvenanceRef struct {
	Kind    ProvenanceRefKind
	ChunkID ChunkID
	Source  string
}

// NewProvenanceChunkID builds a ProvenanceRef that points at another chunk.
func NewProvenanceChunkID(id ChunkID) ProvenanceRef {
	return ProvenanceRef{Kind: ProvenanceChunkID, ChunkID: id}
}

// NewProvenanceSource builds a ProvenanceRef carrying a free-form source string.
func NewProvenanceSource(s string) ProvenanceRef {
	return ProvenanceRef{Kind: ProvenanceSourceString, Source: s}
}

// MarshalJSON implements the §6 tagged-union wire shape:
// {"type":"chunk_id","id":N} or {"type":"source_string","value":"..."}.
func (p ProvenanceRef) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case ProvenanceChunkID:
		return []byte(fmt.Sprintf(`{"type":"chunk_id","id":%d}`, p.ChunkID)), nil
	default:
		return marshalTaggedString("source_string", "value", p.Source)
	}
}

func marshalTaggedString(typ, field, value string) ([]byte, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf(`{"type":%q,%q:%s}`, typ, field, b)), nil
}

// ElementType is the embedding matrix's stored element representation.
type ElementType uint32

const (
	ElementF32 ElementType = iota
	ElementI8
)

func (e ElementType) String() string {
	if e == ElementI8 {
		return "i8"
	}
	return "f32"
}

// LayerSchema describes the shared embedding shape for every chunk in one layer.
type LayerSchema struct {
	Dim         uint32
	ElementType ElementType
	// QuantScale is only meaningful (and must be > 0) when ElementType ==
	// ElementI8; conventionally 1.0 for F32.
	QuantScale float32
}

// Equal reports whether two schemas describe the same embedding space.
func (s LayerSchema) Equal(o LayerSchema) bool {
	return s.Dim == o.Dim && s.ElementType == o.ElementType && s.QuantScale == o.QuantScale
}

// RelationshipKind classifies an edge in the relationships section. The
// section is parsed and validated but never consulted by search ranking.
type RelationshipKind uint32

const (
	RelationshipReferences RelationshipKind = iota
	RelationshipDerivedFrom
	RelationshipSupersedes
)

// Relationship is one fixed-size record in the relationships section.
type Relationship struct {
	From   ChunkID
	To     ChunkID
	Kind   RelationshipKind
	Weight float32
}

// Chunk is the atomic stored record, with its embedding decoded to f32
// regardless of the layer's on-disk element type.
type Chunk struct {
	ID              ChunkID
	Kind            string
	Content         string
	Author          Author
	Confidence      float32
	CreatedAtUnixMs uint64
	Sources         []ProvenanceRef
	Vector          []float32
}

// TombstoneKind is the reserved chunk kind that causes its referenced
// target chunk-id to be suppressed from search results.
const TombstoneKind = "tombstone"
