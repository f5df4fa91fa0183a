package layerfile

import (
	"encoding/binary"
	"math"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
)

// byteWriter accumulates a section's bytes; a thin helper over a slice so
// every section-builder below reads the same as the on-disk layout it
// produces.
type byteWriter struct {
	buf []byte
}

func (w *byteWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *byteWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *byteWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *byteWriter) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *byteWriter) bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *byteWriter) pad(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// byteReader walks a section's bytes sequentially, returning format
// errors (never panicking) on truncation.
type byteReader struct {
	buf  []byte
	pos  int
	path string
}

func newByteReader(buf []byte, path string) *byteReader {
	return &byteReader{buf: buf, path: path}
}

func (r *byteReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return agerrors.FormatError(agerrors.CodeTruncated,
			"unexpected end of section", r.path).
			WithDetail("at", r.pos).WithDetail("needed", n)
	}
	return nil
}

func (r *byteReader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) f32() (float32, error) {
	v, err := r.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *byteReader) take(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}
