package agix

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

// writer mirrors internal/layerfile's byteWriter; kept as a separate
// small type since the sidecar format is its own section-less layout.
type writer struct {
	buf []byte
}

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) f32(v float32) {
	w.u32(math.Float32bits(v))
}

type reader struct {
	buf  []byte
	pos  int
	path string
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return agerrors.FormatError(agerrors.CodeTruncated,
			"unexpected end of sidecar index", r.path).
			WithDetail("at", r.pos).WithDetail("needed", n)
	}
	return nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) f32() (float32, error) {
	v, err := r.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *reader) take(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func quantizeI8(v, scale float32) byte {
	if scale == 0 {
		scale = 1
	}
	q := math.Round(float64(v / scale))
	if q > 127 {
		q = 127
	}
	if q < -128 {
		q = -128
	}
	return byte(int8(q))
}

func decodeI8Row(row []byte, scale float32) []float32 {
	out := make([]float32, len(row))
	for i, b := range row {
		out[i] = float32(int8(b)) * scale
	}
	return out
}

func parse(path string, raw []byte) (*Index, error) {
	r := &reader{buf: raw, path: path}
	magic, err := r.u32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, agerrors.FormatError(agerrors.CodeBadMagic, "bad sidecar magic", path)
	}
	verMajor, err := r.u16()
	if err != nil {
		return nil, err
	}
	if _, err := r.u16(); err != nil {
		return nil, err
	}
	if verMajor != VersionMajor {
		return nil, agerrors.FormatError(agerrors.CodeUnsupportedVersion,
			"unsupported sidecar index version", path).WithDetail("major", verMajor)
	}
	dim, err := r.u32()
	if err != nil {
		return nil, err
	}
	elementType, err := r.u32()
	if err != nil {
		return nil, err
	}
	scale, err := r.f32()
	if err != nil {
		return nil, err
	}
	rowCount, err := r.u64()
	if err != nil {
		return nil, err
	}
	storeF32, err := r.u32()
	if err != nil {
		return nil, err
	}
	if _, err := r.u32(); err != nil {
		return nil, err
	}

	ids := make([]layerfile.ChunkID, 0, rowCount)
	quant := make([][]byte, 0, rowCount)
	var f32rows [][]float32
	if storeF32 != 0 {
		f32rows = make([][]float32, 0, rowCount)
	}

	for i := uint64(0); i < rowCount; i++ {
		id, err := r.u32()
		if err != nil {
			return nil, err
		}
		q, err := r.take(int(dim))
		if err != nil {
			return nil, err
		}
		qCopy := append([]byte(nil), q...)
		ids = append(ids, layerfile.ChunkID(id))
		quant = append(quant, qCopy)

		if storeF32 != 0 {
			row := make([]float32, dim)
			for j := range row {
				v, err := r.f32()
				if err != nil {
					return nil, err
				}
				row[j] = v
			}
			f32rows = append(f32rows, row)
		}
	}

	return &Index{
		Path:       path,
		Dim:        dim,
		SourceType: layerfile.ElementType(elementType),
		Scale:      scale,
		IDs:        ids,
		Quantized:  quant,
		F32:        f32rows,
	}, nil
}

func atomicWrite(path string, raw []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return agerrors.IOError(tmp, err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(tmp)
		return agerrors.IOError(tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return agerrors.IOError(tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return agerrors.IOError(tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return agerrors.IOError(path, err)
	}
	return nil
}
