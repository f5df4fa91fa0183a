// Package ops implements the mutation operations (C7): write, append,
// promote, remove, diff, export and import, all expressed as safe
// transformations over the Layer File codec (C1), guarded by the layer
// metadata compatibility check (C3).
package ops

import (
	"context"

	"github.com/agentsdb/agentsdb-go/internal/embed"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

// CollectChunk is one record of the JSON "collect bundle" that write and
// append take as ingestion input: a chunk's logical content plus
// provenance, before ids are assigned and before its vector is attached.
type CollectChunk struct {
	ID         layerfile.ChunkID       `json:"id,omitempty"`
	Kind       string                  `json:"kind"`
	Content    string                  `json:"content"`
	Author     layerfile.Author        `json:"author"`
	Confidence float32                 `json:"confidence"`
	CreatedAt  uint64                  `json:"created_at_unix_ms,omitempty"`
	Sources    []CollectSource         `json:"sources,omitempty"`
}

// CollectSource is the JSON form of a ProvenanceRef in a collect bundle.
type CollectSource struct {
	Type  string            `json:"type"`
	ID    layerfile.ChunkID `json:"id,omitempty"`
	Value string            `json:"value,omitempty"`
}

func (s CollectSource) toProvenanceRef() layerfile.ProvenanceRef {
	if s.Type == "chunk_id" {
		return layerfile.NewProvenanceChunkID(s.ID)
	}
	return layerfile.NewProvenanceSource(s.Value)
}

// CollectBundle is the full JSON input to write/append: a schema
// declaration plus the chunks to ingest. The embedder used to produce
// each chunk's vector is supplied by the caller, not the bundle itself.
type CollectBundle struct {
	Schema layerfile.LayerSchema `json:"schema"`
	Chunks []CollectChunk        `json:"chunks"`
}

// EmbedAndBuildChunks embeds every chunk's content with embedder and
// returns the layerfile.Chunk set ready for WriteLayerAtomic /
// AppendLayerAtomic.
func EmbedAndBuildChunks(ctx context.Context, embedder embed.Embedder, bundle CollectBundle) ([]layerfile.Chunk, error) {
	texts := make([]string, len(bundle.Chunks))
	for i, c := range bundle.Chunks {
		texts[i] = c.Content
	}
	vecs, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	out := make([]layerfile.Chunk, len(bundle.Chunks))
	for i, c := range bundle.Chunks {
		sources := make([]layerfile.ProvenanceRef, len(c.Sources))
		for j, s := range c.Sources {
			sources[j] = s.toProvenanceRef()
		}
		out[i] = layerfile.Chunk{
			ID:              c.ID,
			Kind:            c.Kind,
			Content:         c.Content,
			Author:          c.Author,
			Confidence:      c.Confidence,
			CreatedAtUnixMs: c.CreatedAt,
			Sources:         sources,
			Vector:          vecs[i],
		}
	}
	return out, nil
}
