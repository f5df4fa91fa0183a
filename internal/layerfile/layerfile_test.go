package layerfile

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChunks() []Chunk {
	return []Chunk{
		{
			Kind: "note", Content: "hello world", Author: AuthorHuman,
			Confidence: 1.0, CreatedAtUnixMs: 1000,
			Sources: []ProvenanceRef{NewProvenanceSource("a.txt:1")},
			Vector:  []float32{1, 0, 0, 0},
		},
		{
			Kind: "note", Content: "goodbye", Author: AuthorMcp,
			Confidence: 0.5, CreatedAtUnixMs: 2000,
			Vector: []float32{0, 1, 0, 0},
		},
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGENTS.local.db")
	schema := LayerSchema{Dim: 4, ElementType: ElementF32, QuantScale: 1.0}

	ids, err := WriteLayerAtomic(path, schema, sampleChunks(), WriteOptions{})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotZero(t, ids[0])
	assert.NotZero(t, ids[1])
	assert.NotEqual(t, ids[0], ids[1])

	lf, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, schema, lf.Schema)
	assert.Equal(t, 2, lf.ChunkCount())

	chunks, err := lf.ReadAllChunks()
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "hello world", chunks[0].Content)
	assert.Equal(t, AuthorHuman, chunks[0].Author)
	assert.Equal(t, []float32{1, 0, 0, 0}, chunks[0].Vector)
	require.Len(t, chunks[0].Sources, 1)
	assert.Equal(t, "a.txt:1", chunks[0].Sources[0].Source)
	assert.Equal(t, "goodbye", chunks[1].Content)
	assert.Equal(t, AuthorMcp, chunks[1].Author)
}

func TestWriteIsIdempotentByteForByte(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGENTS.local.db")
	schema := LayerSchema{Dim: 4, ElementType: ElementF32, QuantScale: 1.0}

	chunks := sampleChunks()
	chunks[0].ID = 1
	chunks[1].ID = 2

	raw1, err := buildLayerBytes(path, schema, chunks, nil, nil)
	require.NoError(t, err)
	raw2, err := buildLayerBytes(path, schema, chunks, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, raw1, raw2)
}

func TestExplicitIDsPreserved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGENTS.local.db")
	schema := LayerSchema{Dim: 2, ElementType: ElementF32, QuantScale: 1.0}

	chunks := []Chunk{{ID: 42, Kind: "fact", Content: "x", Author: AuthorHuman, Vector: []float32{1, 1}}}
	ids, err := WriteLayerAtomic(path, schema, chunks, WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, ChunkID(42), ids[0])
}

func TestDuplicateExplicitIDRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGENTS.local.db")
	schema := LayerSchema{Dim: 2, ElementType: ElementF32, QuantScale: 1.0}

	chunks := []Chunk{
		{ID: 7, Kind: "fact", Content: "x", Author: AuthorHuman, Vector: []float32{1, 1}},
		{ID: 7, Kind: "fact", Content: "y", Author: AuthorHuman, Vector: []float32{1, 1}},
	}
	_, err := WriteLayerAtomic(path, schema, chunks, WriteOptions{})
	require.Error(t, err)
}

func TestAppendAssignsFromExistingMax(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGENTS.local.db")
	schema := LayerSchema{Dim: 2, ElementType: ElementF32, QuantScale: 1.0}

	_, err := WriteLayerAtomic(path, schema, []Chunk{
		{ID: 5, Kind: "fact", Content: "x", Author: AuthorHuman, Vector: []float32{1, 1}},
	}, WriteOptions{})
	require.NoError(t, err)

	ids, err := AppendLayerAtomic(path, []Chunk{
		{Kind: "fact", Content: "y", Author: AuthorHuman, Vector: []float32{2, 2}},
	}, AppendOptions{})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, ChunkID(6), ids[0])

	lf, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, lf.ChunkCount())
}

func TestI8QuantizationRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGENTS.local.db")
	schema := LayerSchema{Dim: 3, ElementType: ElementI8, QuantScale: 0.01}

	_, err := WriteLayerAtomic(path, schema, []Chunk{
		{Kind: "fact", Content: "x", Author: AuthorHuman, Vector: []float32{1.0, -1.0, 0.5}},
	}, WriteOptions{})
	require.NoError(t, err)

	lf, err := Open(path)
	require.NoError(t, err)
	chunks, err := lf.ReadAllChunks()
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.InDelta(t, 1.0, chunks[0].Vector[0], 0.01)
	assert.InDelta(t, -1.0, chunks[0].Vector[1], 0.01)
	assert.InDelta(t, 0.5, chunks[0].Vector[2], 0.01)
}

func TestBadMagicRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGENTS.local.db")
	raw := make([]byte, fileHeaderSize)
	require.NoError(t, writeFileForTest(path, raw))

	_, err := Open(path)
	require.Error(t, err)
	assert.Equal(t, "FMT_BAD_MAGIC", codeOf(err))
}

func TestTruncatedFileRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGENTS.local.db")
	require.NoError(t, writeFileForTest(path, []byte{1, 2, 3}))

	_, err := Open(path)
	require.Error(t, err)
	assert.Equal(t, "FMT_TRUNCATED", codeOf(err))
}

func TestEnsureWritableLayerPath(t *testing.T) {
	assert.Error(t, EnsureWritableLayerPath(filepath.Join("x", BaseFileName)))
	assert.Error(t, EnsureWritableLayerPath(filepath.Join("x", UserFileName)))
	assert.NoError(t, EnsureWritableLayerPath(filepath.Join("x", DeltaFileName)))
	assert.NoError(t, EnsureWritableLayerPathAllowUser(filepath.Join("x", UserFileName)))
	assert.Error(t, EnsureWritableLayerPathAllowUser(filepath.Join("x", BaseFileName)))
}

func TestLogicalLayerForPath(t *testing.T) {
	l, ok := LogicalLayerForPath("/a/b/" + BaseFileName)
	require.True(t, ok)
	assert.Equal(t, Base, l)

	_, ok = LogicalLayerForPath("/a/b/other.db")
	assert.False(t, ok)
}

func TestLayerIDJSONRoundTrip(t *testing.T) {
	for _, id := range []LayerID{Local, User, Delta, Base} {
		data, err := json.Marshal(id)
		require.NoError(t, err)

		var decoded LayerID
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, id, decoded)
	}

	var bad LayerID
	assert.Error(t, json.Unmarshal([]byte(`"not-a-layer"`), &bad))
}
