package layerfile

import (
	"unicode/utf8"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
)

// stringDict is the in-memory builder/holder for the string dictionary
// section. Strings are interned in first-seen order so that rebuilding a
// layer from the same logical input is byte-stable (idempotence, §8).
type stringDict struct {
	strs []string
	ids  map[string]uint64
}

func newStringDict() *stringDict {
	return &stringDict{ids: make(map[string]uint64)}
}

func (d *stringDict) intern(s string) uint64 {
	if id, ok := d.ids[s]; ok {
		return id
	}
	id := uint64(len(d.strs))
	d.strs = append(d.strs, s)
	d.ids[s] = id
	return id
}

func (d *stringDict) encode() []byte {
	w := &byteWriter{}
	w.u64(uint64(len(d.strs)))
	for _, s := range d.strs {
		b := []byte(s)
		w.u32(uint32(len(b)))
		w.bytes(b)
	}
	return w.buf
}

func decodeStringDict(buf []byte, path string) ([]string, error) {
	r := newByteReader(buf, path)
	count, err := r.u64()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		b, err := r.take(int(n))
		if err != nil {
			return nil, err
		}
		if !validUTF8(b) {
			return nil, agerrors.FormatError(agerrors.CodeInvalidUTF8String,
				"string dictionary entry is not valid UTF-8", path).WithDetail("id", i)
		}
		out = append(out, string(b))
	}
	return out, nil
}

func stringAt(dict []string, id uint64, path string) (string, error) {
	if id >= uint64(len(dict)) {
		return "", agerrors.FormatError(agerrors.CodeInvalidStringID,
			"string id out of range", path).
			WithDetail("id", id).WithDetail("count", len(dict))
	}
	return dict[id], nil
}

// rawProvenance is the fixed-size on-disk form of one ProvenanceRef,
// resolved against the string dictionary when a chunk is materialized.
type rawProvenance struct {
	Tag      uint32
	ChunkID  uint32
	StringID uint64
}

func encodeSourceTable(records []rawProvenance) []byte {
	w := &byteWriter{}
	w.u64(uint64(len(records)))
	for _, rec := range records {
		w.u32(rec.Tag)
		w.u32(rec.ChunkID)
		w.u64(rec.StringID)
	}
	return w.buf
}

func decodeSourceTable(buf []byte, path string) ([]rawProvenance, error) {
	r := newByteReader(buf, path)
	count, err := r.u64()
	if err != nil {
		return nil, err
	}
	out := make([]rawProvenance, 0, count)
	for i := uint64(0); i < count; i++ {
		tag, err := r.u32()
		if err != nil {
			return nil, err
		}
		cid, err := r.u32()
		if err != nil {
			return nil, err
		}
		sid, err := r.u64()
		if err != nil {
			return nil, err
		}
		out = append(out, rawProvenance{Tag: tag, ChunkID: cid, StringID: sid})
	}
	return out, nil
}

func encodeRelationships(rels []Relationship) []byte {
	w := &byteWriter{}
	w.u64(uint64(len(rels)))
	for _, rel := range rels {
		w.u32(uint32(rel.From))
		w.u32(uint32(rel.To))
		w.u32(uint32(rel.Kind))
		w.f32(rel.Weight)
		w.u32(0)
	}
	return w.buf
}

func decodeRelationships(buf []byte, path string) ([]Relationship, error) {
	r := newByteReader(buf, path)
	count, err := r.u64()
	if err != nil {
		return nil, err
	}
	out := make([]Relationship, 0, count)
	for i := uint64(0); i < count; i++ {
		from, err := r.u32()
		if err != nil {
			return nil, err
		}
		to, err := r.u32()
		if err != nil {
			return nil, err
		}
		kind, err := r.u32()
		if err != nil {
			return nil, err
		}
		weight, err := r.f32()
		if err != nil {
			return nil, err
		}
		if err := r.skip(4); err != nil {
			return nil, err
		}
		out = append(out, Relationship{
			From: ChunkID(from), To: ChunkID(to),
			Kind: RelationshipKind(kind), Weight: weight,
		})
	}
	return out, nil
}

func validUTF8(b []byte) bool {
	return utf8.Valid(b)
}
