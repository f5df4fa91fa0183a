package ops

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

// ReadJSON parses a single-document Export V1 bundle.
func ReadJSON(r io.Reader) (*ExportBundle, error) {
	var bundle ExportBundle
	if err := json.NewDecoder(r).Decode(&bundle); err != nil {
		return nil, agerrors.New(agerrors.CodeInvalidValue, "failed to parse export bundle JSON", "").WithDetail("cause", err.Error())
	}
	return &bundle, nil
}

// ReadNDJSON parses the NDJSON export variant back into an ExportBundle.
func ReadNDJSON(r io.Reader) (*ExportBundle, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	bundle := &ExportBundle{}
	var current *ExportLayer

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var tag struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(line, &tag); err != nil {
			return nil, agerrors.New(agerrors.CodeInvalidValue, "invalid NDJSON record", "").WithDetail("cause", err.Error())
		}
		switch tag.Type {
		case "header":
			var h ndjsonHeader
			if err := json.Unmarshal(line, &h); err != nil {
				return nil, agerrors.New(agerrors.CodeInvalidValue, "invalid NDJSON header", "")
			}
			bundle.Format = h.Format
			bundle.Tool = h.Tool
		case "layer":
			if current != nil {
				bundle.Layers = append(bundle.Layers, *current)
			}
			var l ndjsonLayerRecord
			if err := json.Unmarshal(line, &l); err != nil {
				return nil, agerrors.New(agerrors.CodeInvalidValue, "invalid NDJSON layer record", "")
			}
			current = &ExportLayer{
				Path: l.Path, Layer: l.Layer, Schema: l.Schema,
				LayerMetadataJSON: l.LayerMetadataJSON,
			}
		case "chunk":
			var c ndjsonChunkRecord
			if err := json.Unmarshal(line, &c); err != nil {
				return nil, agerrors.New(agerrors.CodeInvalidValue, "invalid NDJSON chunk record", "")
			}
			if current == nil {
				return nil, agerrors.New(agerrors.CodeInvalidValue, "chunk record before any layer record", "")
			}
			current.Chunks = append(current.Chunks, c.ExportChunk)
		}
	}
	if current != nil {
		bundle.Layers = append(bundle.Layers, *current)
	}
	if err := scanner.Err(); err != nil {
		return nil, agerrors.IOError("", err)
	}
	return bundle, nil
}

// ParseElementType parses the §6 "f32"|"i8" wire spelling.
func ParseElementType(s string) (layerfile.ElementType, bool) {
	switch s {
	case "f32":
		return layerfile.ElementF32, true
	case "i8":
		return layerfile.ElementI8, true
	default:
		return 0, false
	}
}

// ImportResult reports, per destination path, the ids assigned on
// import.
type ImportResult struct {
	AssignedIDs map[string][]layerfile.ChunkID `json:"assigned_ids"`
}

// Import writes or appends each bundle layer into its destination path
// (the caller maps bundle layer entries to destination paths; Import
// itself only knows how to turn one ExportLayer back into a LayerFile).
// A destination that doesn't yet exist is created fresh; an existing one
// is appended to, subject to the usual schema-equality check.
func Import(bundle *ExportBundle, destFor func(ExportLayer) string) (*ImportResult, error) {
	result := &ImportResult{AssignedIDs: make(map[string][]layerfile.ChunkID)}

	for _, layer := range bundle.Layers {
		path := destFor(layer)
		if err := layerfile.EnsureWritableLayerPathAllowUser(path); err != nil {
			return nil, err
		}

		elementType, ok := ParseElementType(layer.Schema.ElementType)
		if !ok {
			return nil, agerrors.New(agerrors.CodeInvalidValue, "unrecognized element_type in export bundle", path).
				WithDetail("element_type", layer.Schema.ElementType)
		}
		schema := layerfile.LayerSchema{
			Dim: layer.Schema.Dim, ElementType: elementType, QuantScale: layer.Schema.QuantScale,
		}

		chunks := make([]layerfile.Chunk, 0, len(layer.Chunks))
		for _, c := range layer.Chunks {
			content := ""
			if c.Content != nil {
				content = *c.Content
			}
			author, ok := layerfile.ValidAuthor(c.Author)
			if !ok {
				return nil, agerrors.FormatError(agerrors.CodeInvalidAuthor,
					"import chunk author does not round-trip to human or mcp", path).WithDetail("id", c.ID)
			}
			sources := make([]layerfile.ProvenanceRef, len(c.Sources))
			for i, s := range c.Sources {
				if s.Type == "chunk_id" {
					sources[i] = layerfile.NewProvenanceChunkID(s.ID)
				} else {
					sources[i] = layerfile.NewProvenanceSource(s.Value)
				}
			}
			chunks = append(chunks, layerfile.Chunk{
				ID:              c.ID,
				Kind:            c.Kind,
				Content:         content,
				Author:          author,
				Confidence:      c.Confidence,
				CreatedAtUnixMs: c.CreatedAtUnixMs,
				Sources:         sources,
				Vector:          c.Embedding,
			})
		}

		var metaBytes []byte
		if layer.LayerMetadataJSON != nil {
			metaBytes = []byte(*layer.LayerMetadataJSON)
		}

		var ids []layerfile.ChunkID
		var err error
		if existing, statErr := layerfile.Open(path); statErr == nil {
			if !existing.Schema.Equal(schema) {
				return nil, schemaMismatch(path, "import schema does not match existing layer schema")
			}
			ids, err = layerfile.AppendLayerAtomic(path, chunks, layerfile.AppendOptions{MetadataBytes: metaBytes})
		} else {
			ids, err = layerfile.WriteLayerAtomic(path, schema, chunks, layerfile.WriteOptions{MetadataBytes: metaBytes})
		}
		if err != nil {
			return nil, err
		}
		result.AssignedIDs[path] = ids
	}

	return result, nil
}
