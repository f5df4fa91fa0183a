package ops

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentsdb/agentsdb-go/internal/embed"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

func TestWriteThenSearchScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, layerfile.UserFileName)
	embedder := embed.NewHashEmbedder(8)

	bundle := CollectBundle{
		Schema: layerfile.LayerSchema{Dim: 8, ElementType: layerfile.ElementF32, QuantScale: 1},
		Chunks: []CollectChunk{
			{Kind: "note", Content: "hello world", Author: layerfile.AuthorHuman, Confidence: 1},
			{Kind: "note", Content: "goodbye", Author: layerfile.AuthorHuman, Confidence: 1},
		},
	}

	res, err := Write(context.Background(), path, embedder, bundle, "agentsdb", "test")
	require.NoError(t, err)
	require.Len(t, res.AssignedIDs, 2)

	lf, err := layerfile.Open(path)
	require.NoError(t, err)
	require.NotNil(t, lf.MetadataBytes())
}

func TestAppendRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, layerfile.UserFileName)
	embedder8 := embed.NewHashEmbedder(8)

	bundle := CollectBundle{
		Schema: layerfile.LayerSchema{Dim: 8, ElementType: layerfile.ElementF32, QuantScale: 1},
		Chunks: []CollectChunk{{Kind: "note", Content: "a", Author: layerfile.AuthorHuman, Confidence: 1}},
	}
	_, err := Write(context.Background(), path, embedder8, bundle, "agentsdb", "test")
	require.NoError(t, err)

	before, err := readBytes(path)
	require.NoError(t, err)

	embedder16 := embed.NewHashEmbedder(16)
	badBundle := CollectBundle{
		Schema: layerfile.LayerSchema{Dim: 16, ElementType: layerfile.ElementF32, QuantScale: 1},
		Chunks: []CollectChunk{{Kind: "note", Content: "b", Author: layerfile.AuthorHuman, Confidence: 1}},
	}
	_, err = Append(context.Background(), path, embedder16, badBundle, "agentsdb", "test")
	require.Error(t, err)

	after, err := readBytes(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestPromoteReassignsIDs(t *testing.T) {
	dir := t.TempDir()
	schema := layerfile.LayerSchema{Dim: 4, ElementType: layerfile.ElementF32, QuantScale: 1}
	deltaPath := filepath.Join(dir, layerfile.DeltaFileName)
	userPath := filepath.Join(dir, layerfile.UserFileName)

	_, err := layerfile.WriteLayerAtomic(deltaPath, schema, []layerfile.Chunk{
		{ID: 7, Kind: "note", Content: "x", Author: layerfile.AuthorMcp, Confidence: 1, Vector: []float32{1, 0, 0, 0}},
	}, layerfile.WriteOptions{})
	require.NoError(t, err)

	delta, err := layerfile.Open(deltaPath)
	require.NoError(t, err)

	res, err := Promote(delta, userPath, []layerfile.ChunkID{7}, PromoteOptions{})
	require.NoError(t, err)
	require.Len(t, res.Promoted, 1)
	require.NotEqual(t, layerfile.ChunkID(7), res.Promoted[0])
	require.Empty(t, res.Skipped)

	user, err := layerfile.Open(userPath)
	require.NoError(t, err)
	chunks, err := user.ReadAllChunks()
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, layerfile.AuthorHuman, chunks[0].Author)
}

func TestDiffSetDifference(t *testing.T) {
	dir := t.TempDir()
	schema := layerfile.LayerSchema{Dim: 4, ElementType: layerfile.ElementF32, QuantScale: 1}
	basePath := filepath.Join(dir, layerfile.BaseFileName)
	deltaPath := filepath.Join(dir, layerfile.DeltaFileName)

	_, err := layerfile.WriteLayerAtomic(basePath, schema, []layerfile.Chunk{
		{ID: 1, Kind: "note", Content: "1", Author: layerfile.AuthorHuman, Confidence: 1, Vector: []float32{0, 0, 0, 0}},
		{ID: 2, Kind: "note", Content: "2", Author: layerfile.AuthorHuman, Confidence: 1, Vector: []float32{0, 0, 0, 0}},
		{ID: 3, Kind: "note", Content: "3", Author: layerfile.AuthorHuman, Confidence: 1, Vector: []float32{0, 0, 0, 0}},
	}, layerfile.WriteOptions{})
	require.NoError(t, err)

	_, err = layerfile.WriteLayerAtomic(deltaPath, schema, []layerfile.Chunk{
		{ID: 2, Kind: "note", Content: "2'", Author: layerfile.AuthorHuman, Confidence: 1, Vector: []float32{0, 0, 0, 0}},
		{ID: 4, Kind: "note", Content: "4", Author: layerfile.AuthorHuman, Confidence: 1, Vector: []float32{0, 0, 0, 0}},
	}, layerfile.WriteOptions{})
	require.NoError(t, err)

	base, err := layerfile.Open(basePath)
	require.NoError(t, err)
	delta, err := layerfile.Open(deltaPath)
	require.NoError(t, err)

	res, err := Diff(base, delta)
	require.NoError(t, err)
	require.Equal(t, []layerfile.ChunkID{4}, res.NewIDs)
	require.Equal(t, []layerfile.ChunkID{2}, res.Overrides)
}

func TestRemoveAbsentIDReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	schema := layerfile.LayerSchema{Dim: 4, ElementType: layerfile.ElementF32, QuantScale: 1}
	path := filepath.Join(dir, layerfile.LocalFileName)
	_, err := layerfile.WriteLayerAtomic(path, schema, []layerfile.Chunk{
		{ID: 1, Kind: "note", Content: "1", Author: layerfile.AuthorHuman, Confidence: 1, Vector: []float32{0, 0, 0, 0}},
	}, layerfile.WriteOptions{})
	require.NoError(t, err)

	ok, err := Remove(path, 999)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = Remove(path, 1)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	schema := layerfile.LayerSchema{Dim: 4, ElementType: layerfile.ElementF32, QuantScale: 1}
	path := filepath.Join(dir, layerfile.LocalFileName)
	_, err := layerfile.WriteLayerAtomic(path, schema, []layerfile.Chunk{
		{ID: 1, Kind: "note", Content: "hello", Author: layerfile.AuthorHuman, Confidence: 0.9, Vector: []float32{1, 2, 3, 4}},
	}, layerfile.WriteOptions{})
	require.NoError(t, err)

	lf, err := layerfile.Open(path)
	require.NoError(t, err)
	localID := layerfile.Local

	bundle, err := Export([]*layerfile.LayerFile{lf}, []*layerfile.LayerID{&localID}, "agentsdb", "test", RedactNone)
	require.NoError(t, err)
	require.Len(t, bundle.Layers[0].Chunks, 1)
	require.Len(t, bundle.Layers[0].Chunks[0].ContentSha256, 64)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, bundle))

	parsed, err := ReadJSON(&buf)
	require.NoError(t, err)

	destDir := filepath.Join(dir, "imported")
	require.NoError(t, os.MkdirAll(destDir, 0o755))
	destPath := filepath.Join(destDir, layerfile.LocalFileName)
	_, err = Import(parsed, func(l ExportLayer) string { return destPath })
	require.NoError(t, err)

	imported, err := layerfile.Open(destPath)
	require.NoError(t, err)
	chunks, err := imported.ReadAllChunks()
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "hello", chunks[0].Content)
}

func readBytes(path string) ([]byte, error) {
	return os.ReadFile(path)
}
