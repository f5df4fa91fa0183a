package ops

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

// ExportFormat selects the bundle's serialization.
type ExportFormat string

const (
	FormatJSON   ExportFormat = "json"
	FormatNDJSON ExportFormat = "ndjson"
)

// RedactMode controls which chunk fields survive export, per §6.
type RedactMode string

const (
	RedactNone       RedactMode = "none"
	RedactContent    RedactMode = "content"
	RedactEmbeddings RedactMode = "embeddings"
	RedactAll        RedactMode = "all"
)

func (r RedactMode) dropsContent() bool    { return r == RedactContent || r == RedactAll }
func (r RedactMode) dropsEmbeddings() bool { return r == RedactEmbeddings || r == RedactAll }

// ExportToolInfo identifies the producing tool in the bundle header.
type ExportToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ExportSource is the tagged-union wire form of a ProvenanceRef, per §6.
type ExportSource struct {
	Type  string            `json:"type"`
	ID    layerfile.ChunkID `json:"id,omitempty"`
	Value string            `json:"value,omitempty"`
}

// ExportChunk is one exported chunk record.
type ExportChunk struct {
	ID              layerfile.ChunkID `json:"id"`
	Kind            string            `json:"kind"`
	Content         *string           `json:"content,omitempty"`
	Author          string            `json:"author"`
	Confidence      float32           `json:"confidence"`
	CreatedAtUnixMs uint64            `json:"created_at_unix_ms"`
	Sources         []ExportSource    `json:"sources,omitempty"`
	Embedding       []float32         `json:"embedding,omitempty"`
	ContentSha256   string            `json:"content_sha256,omitempty"`
}

// ExportLayer is one layer's exported contents.
type ExportLayer struct {
	Path              string              `json:"path"`
	Layer             *layerfile.LayerID  `json:"layer"`
	Schema            ExportSchema        `json:"schema"`
	LayerMetadataJSON *string             `json:"layer_metadata_json"`
	Chunks            []ExportChunk       `json:"chunks"`
}

// ExportSchema is the wire form of LayerSchema.
type ExportSchema struct {
	Dim         uint32  `json:"dim"`
	ElementType string  `json:"element_type"`
	QuantScale  float32 `json:"quant_scale"`
}

// ExportBundle is the full Export V1 JSON bundle.
type ExportBundle struct {
	Format string          `json:"format"`
	Tool   ExportToolInfo  `json:"tool"`
	Layers []ExportLayer   `json:"layers"`
}

const exportFormatTag = "agentsdb.export.v1"

// Export builds an Export V1 bundle from the given layers, applying
// redact's field-dropping rules.
func Export(layers []*layerfile.LayerFile, layerIDs []*layerfile.LayerID, toolName, toolVersion string, redact RedactMode) (*ExportBundle, error) {
	bundle := &ExportBundle{
		Format: exportFormatTag,
		Tool:   ExportToolInfo{Name: toolName, Version: toolVersion},
		Layers: make([]ExportLayer, 0, len(layers)),
	}

	for i, lf := range layers {
		chunks, err := lf.ReadAllChunks()
		if err != nil {
			return nil, err
		}

		exportChunks := make([]ExportChunk, 0, len(chunks))
		for _, c := range chunks {
			ec := ExportChunk{
				ID:              c.ID,
				Kind:            c.Kind,
				Author:          string(c.Author),
				Confidence:      c.Confidence,
				CreatedAtUnixMs: c.CreatedAtUnixMs,
			}
			if !redact.dropsContent() {
				content := c.Content
				ec.Content = &content
			}
			ec.ContentSha256 = contentSha256(c.Content)
			if !redact.dropsEmbeddings() {
				ec.Embedding = c.Vector
			}
			for _, s := range c.Sources {
				if s.Kind == layerfile.ProvenanceChunkID {
					ec.Sources = append(ec.Sources, ExportSource{Type: "chunk_id", ID: s.ChunkID})
				} else {
					ec.Sources = append(ec.Sources, ExportSource{Type: "source_string", Value: s.Source})
				}
			}
			exportChunks = append(exportChunks, ec)
		}

		var metaJSON *string
		if b := lf.MetadataBytes(); b != nil {
			s := string(b)
			metaJSON = &s
		}

		bundle.Layers = append(bundle.Layers, ExportLayer{
			Path:              lf.Path,
			Layer:             layerIDs[i],
			Schema: ExportSchema{
				Dim:         lf.Schema.Dim,
				ElementType: lf.Schema.ElementType.String(),
				QuantScale:  lf.Schema.QuantScale,
			},
			LayerMetadataJSON: metaJSON,
			Chunks:            exportChunks,
		})
	}

	return bundle, nil
}

func contentSha256(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// WriteJSON serializes bundle as a single JSON document.
func WriteJSON(w io.Writer, bundle *ExportBundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(bundle)
}

// ndjsonHeader is the first record of the NDJSON variant.
type ndjsonHeader struct {
	Type   string         `json:"type"`
	Format string         `json:"format"`
	Tool   ExportToolInfo `json:"tool"`
}

// ndjsonLayerRecord is one "layer" record (without its chunks, which
// follow as separate "chunk" records).
type ndjsonLayerRecord struct {
	Type              string             `json:"type"`
	Path              string             `json:"path"`
	Layer             *layerfile.LayerID `json:"layer"`
	Schema            ExportSchema       `json:"schema"`
	LayerMetadataJSON *string            `json:"layer_metadata_json"`
}

type ndjsonChunkRecord struct {
	Type       string `json:"type"`
	LayerIndex int    `json:"layer_index"`
	ExportChunk
}

// WriteNDJSON serializes bundle as the NDJSON variant: one header, then
// one layer record per layer, then one chunk record per chunk.
func WriteNDJSON(w io.Writer, bundle *ExportBundle) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	if err := enc.Encode(ndjsonHeader{Type: "header", Format: bundle.Format, Tool: bundle.Tool}); err != nil {
		return err
	}
	for i, layer := range bundle.Layers {
		if err := enc.Encode(ndjsonLayerRecord{
			Type: "layer", Path: layer.Path, Layer: layer.Layer,
			Schema: layer.Schema, LayerMetadataJSON: layer.LayerMetadataJSON,
		}); err != nil {
			return err
		}
		for _, c := range layer.Chunks {
			if err := enc.Encode(ndjsonChunkRecord{Type: "chunk", LayerIndex: i, ExportChunk: c}); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
