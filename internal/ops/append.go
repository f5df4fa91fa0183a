package ops

import (
	"context"

	"github.com/agentsdb/agentsdb-go/internal/embed"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/layermeta"
)

// AppendResult mirrors AppendLayerAtomic's return.
type AppendResult struct {
	AssignedIDs []layerfile.ChunkID `json:"assigned_ids"`
}

// Append adds chunks to an existing writable layer. The layer's schema
// must already match bundle.Schema, and its embedded metadata profile
// (if any) must match embedder's profile (C3) — both checked before any
// bytes are written, so a rejected append leaves the file untouched.
func Append(ctx context.Context, path string, embedder embed.Embedder, bundle CollectBundle, toolName, toolVersion string) (*AppendResult, error) {
	if err := layerfile.EnsureWritableLayerPath(path); err != nil {
		return nil, err
	}

	existing, err := layerfile.Open(path)
	if err != nil {
		return nil, err
	}
	if !existing.Schema.Equal(bundle.Schema) {
		return nil, schemaMismatch(path, "append schema does not match existing layer schema")
	}
	if err := layermeta.EnsureCompatibleWithEmbedder(existing.MetadataBytes(), embedder, path); err != nil {
		return nil, err
	}

	chunks, err := EmbedAndBuildChunks(ctx, embedder, bundle)
	if err != nil {
		return nil, err
	}

	var metaBytes []byte
	if existing.MetadataBytes() == nil {
		meta := layermeta.New(embedder.Profile()).
			WithEmbedderMetadata(embedder.Metadata()).
			WithTool(toolName, toolVersion)
		metaBytes, err = meta.ToJSONBytes()
		if err != nil {
			return nil, err
		}
	}

	ids, err := layerfile.AppendLayerAtomic(path, chunks, layerfile.AppendOptions{MetadataBytes: metaBytes})
	if err != nil {
		return nil, err
	}
	return &AppendResult{AssignedIDs: ids}, nil
}
