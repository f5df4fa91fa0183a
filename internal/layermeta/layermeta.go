// Package layermeta implements the layer-metadata guard (C3): parsing
// and serializing the LayerMetadataV1 JSON blob embedded in each layer
// file, and refusing operations whose embedder profile doesn't match.
package layermeta

import (
	"encoding/json"
	"fmt"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/embed"
)

// CurrentVersion is the only LayerMetadataV1 schema version this module
// understands.
const CurrentVersion = 1

// LayerMetadataV1 is the JSON blob embedded as an opaque section of the
// layer file, recording the embedding space and producing tool that
// created it.
type LayerMetadataV1 struct {
	V                int                    `json:"v"`
	EmbeddingProfile embed.EmbeddingProfile `json:"embedding_profile"`
	CacheKeyAlg      string                 `json:"cache_key_alg"`
	EmbedderMetadata *embed.EmbedderMetadata `json:"embedder_metadata,omitempty"`
	ToolName         string                 `json:"tool_name,omitempty"`
	ToolVersion      string                 `json:"tool_version,omitempty"`
}

// New builds a LayerMetadataV1 for a freshly produced layer.
func New(profile embed.EmbeddingProfile) LayerMetadataV1 {
	return LayerMetadataV1{
		V:                CurrentVersion,
		EmbeddingProfile: profile,
		CacheKeyAlg:      embed.CacheKeyAlg,
	}
}

// WithEmbedderMetadata attaches embedder-specific provenance.
func (m LayerMetadataV1) WithEmbedderMetadata(md embed.EmbedderMetadata) LayerMetadataV1 {
	m.EmbedderMetadata = &md
	return m
}

// WithTool attaches the name/version of the tool that produced the layer.
func (m LayerMetadataV1) WithTool(name, version string) LayerMetadataV1 {
	m.ToolName = name
	m.ToolVersion = version
	return m
}

// ToJSONBytes serializes m to the bytes stored in the layer's optional
// metadata section.
func (m LayerMetadataV1) ToJSONBytes() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, agerrors.New(agerrors.CodeInvalidValue, "failed to marshal layer metadata", "").WithDetail("cause", err.Error())
	}
	return b, nil
}

// FromJSONBytes parses a layer's embedded metadata section.
func FromJSONBytes(b []byte, path string) (LayerMetadataV1, error) {
	var m LayerMetadataV1
	if err := json.Unmarshal(b, &m); err != nil {
		return LayerMetadataV1{}, agerrors.FormatError(agerrors.CodeInvalidValue,
			"layer metadata blob is not valid JSON", path).WithDetail("cause", err.Error())
	}
	if m.V != CurrentVersion {
		return LayerMetadataV1{}, agerrors.FormatError(agerrors.CodeUnsupportedVersion,
			"unsupported layer metadata version", path).WithDetail("v", m.V)
	}
	return m, nil
}

// EnsureCompatibleWithEmbedder requires existingBytes' embedding_profile
// to equal embedder's profile. If existingBytes is nil (no metadata
// blob on the layer yet), the operation is always allowed to proceed.
func EnsureCompatibleWithEmbedder(existingBytes []byte, embedder embed.Embedder, path string) error {
	if existingBytes == nil {
		return nil
	}
	existing, err := FromJSONBytes(existingBytes, path)
	if err != nil {
		return err
	}
	want := embedder.Profile()
	if !existing.EmbeddingProfile.Equal(want) {
		return agerrors.SchemaMismatch(
			fmt.Sprintf("layer embedding profile %+v does not match embedder profile %+v",
				existing.EmbeddingProfile, want),
			path)
	}
	return nil
}
