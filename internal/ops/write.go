package ops

import (
	"context"

	"github.com/agentsdb/agentsdb-go/internal/embed"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/layermeta"
)

// WriteResult mirrors WriteLayerAtomic's return: the assigned ids, in
// input order.
type WriteResult struct {
	AssignedIDs []layerfile.ChunkID `json:"assigned_ids"`
}

// Write creates a fresh layer at path from a collect bundle, embedding
// every chunk's content with embedder and attaching a LayerMetadataV1
// blob recording embedder's profile.
func Write(ctx context.Context, path string, embedder embed.Embedder, bundle CollectBundle, toolName, toolVersion string) (*WriteResult, error) {
	if err := layerfile.EnsureWritableLayerPath(path); err != nil {
		return nil, err
	}

	chunks, err := EmbedAndBuildChunks(ctx, embedder, bundle)
	if err != nil {
		return nil, err
	}

	meta := layermeta.New(embedder.Profile()).
		WithEmbedderMetadata(embedder.Metadata()).
		WithTool(toolName, toolVersion)
	metaBytes, err := meta.ToJSONBytes()
	if err != nil {
		return nil, err
	}

	ids, err := layerfile.WriteLayerAtomic(path, bundle.Schema, chunks, layerfile.WriteOptions{
		MetadataBytes: metaBytes,
	})
	if err != nil {
		return nil, err
	}
	return &WriteResult{AssignedIDs: ids}, nil
}
