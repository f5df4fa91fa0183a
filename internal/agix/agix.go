// Package agix implements the sidecar index builder and reader (C6): a
// regenerable companion file that mirrors a layer's vectors in a
// fast-load, always-quantized form to accelerate search.
package agix

import (
	"os"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

// Magic is "AGIX" read as a little-endian u32, distinguishing a sidecar
// from a layer file even though the two share no section layout.
const Magic uint32 = 0x58494741

const (
	VersionMajor uint16 = 1
	VersionMinor uint16 = 0
)

// BuildOptions controls what an index build stores alongside the
// required i8-quantized copy.
type BuildOptions struct {
	// StoreEmbeddingsEvenIfF32, when true and the source layer is
	// already F32, also stores a parallel f32 mirror so readers can
	// skip re-decoding i8 when full precision is wanted.
	StoreEmbeddingsEvenIfF32 bool
}

// Index is a parsed, validated sidecar: one i8 row (plus scale) per
// chunk id, in the source layer's chunk-table order, and an optional
// parallel f32 mirror.
type Index struct {
	Path       string
	Dim        uint32
	SourceType layerfile.ElementType
	Scale      float32
	IDs        []layerfile.ChunkID
	Quantized  [][]byte
	F32        [][]float32 // nil unless built with StoreEmbeddingsEvenIfF32
}

// Len returns the number of rows in the index.
func (idx *Index) Len() int { return len(idx.IDs) }

// Vector decodes row i to f32, preferring the stored f32 mirror when
// present.
func (idx *Index) Vector(i int) []float32 {
	if idx.F32 != nil {
		return idx.F32[i]
	}
	return decodeI8Row(idx.Quantized[i], idx.Scale)
}

// Build produces a sidecar index for layer and writes it atomically to
// path. Rows are emitted in the layer's chunk-table order, so the
// sidecar is byte-stable given identical inputs.
func Build(layer *layerfile.LayerFile, path string, opts BuildOptions) error {
	chunks, err := layer.ReadAllChunks()
	if err != nil {
		return err
	}

	scale := layer.Schema.QuantScale
	if layer.Schema.ElementType == layerfile.ElementF32 {
		scale = deriveScale(chunks)
	}
	if scale <= 0 {
		scale = 1
	}

	storeF32 := layer.Schema.ElementType == layerfile.ElementF32 && opts.StoreEmbeddingsEvenIfF32

	w := &writer{}
	w.u32(Magic)
	w.u16(VersionMajor)
	w.u16(VersionMinor)
	w.u32(layer.Schema.Dim)
	w.u32(uint32(layer.Schema.ElementType))
	w.f32(scale)
	w.u64(uint64(len(chunks)))
	w.u32(boolToU32(storeF32))
	w.u32(0)

	for _, c := range chunks {
		w.u32(uint32(c.ID))
		for _, v := range c.Vector {
			w.buf = append(w.buf, quantizeI8(v, scale))
		}
		if storeF32 {
			for _, v := range c.Vector {
				w.f32(v)
			}
		}
	}

	return atomicWrite(path, w.buf)
}

// DefaultPath returns the default sidecar path for a layer file,
// identical to layerfile.SidecarPath.
func DefaultPath(layerPath string) string {
	return layerfile.SidecarPath(layerPath)
}

// Open parses and validates a sidecar index file.
func Open(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, agerrors.IOError(path, err)
	}
	return parse(path, raw)
}

// Coherent reports whether idx mirrors layer: same chunk-id set (as a
// set, same cardinality and membership), same declared schema dimension,
// same element type, and — for i8 layers — same quantization scale. A
// layer re-quantized with a different scale or a changed element type
// keeps the same dim and id set, so all four must agree. Per I6, an
// incoherent index must be treated as stale and ignored by the caller,
// never repaired in place.
func Coherent(idx *Index, layer *layerfile.LayerFile) bool {
	if idx == nil || layer == nil {
		return false
	}
	if idx.Dim != layer.Schema.Dim {
		return false
	}
	if idx.SourceType != layer.Schema.ElementType {
		return false
	}
	if layer.Schema.ElementType == layerfile.ElementI8 && idx.Scale != layer.Schema.QuantScale {
		return false
	}
	chunks, err := layer.ReadAllChunks()
	if err != nil {
		return false
	}
	if len(chunks) != idx.Len() {
		return false
	}
	want := make(map[layerfile.ChunkID]struct{}, len(chunks))
	for _, c := range chunks {
		want[c.ID] = struct{}{}
	}
	for _, id := range idx.IDs {
		if _, ok := want[id]; !ok {
			return false
		}
		delete(want, id)
	}
	return len(want) == 0
}

func deriveScale(chunks []layerfile.Chunk) float32 {
	var maxAbs float32
	for _, c := range chunks {
		for _, v := range c.Vector {
			a := v
			if a < 0 {
				a = -a
			}
			if a > maxAbs {
				maxAbs = a
			}
		}
	}
	if maxAbs == 0 {
		return 1
	}
	return maxAbs / 127
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
