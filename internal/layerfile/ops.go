package layerfile

import (
	"os"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
)

// WriteOptions carries the optional pieces of a fresh-layer write.
type WriteOptions struct {
	Relationships []Relationship
	MetadataBytes []byte
}

// AppendOptions carries the optional pieces of an append to an existing
// layer. MetadataBytes, if non-nil, must equal the layer's existing
// metadata bytes exactly (checked by the caller via internal/layermeta
// before append is invoked for the profile-compatibility case; append
// itself only enforces byte equality when both are present).
type AppendOptions struct {
	NewRelationships []Relationship
	MetadataBytes    []byte
}

// WriteLayerAtomic creates a brand-new layer file at path: assigns ids
// (zero -> next free; non-zero -> must be unique within the input),
// lays out all sections, writes to path+".tmp", fsyncs, then renames over
// path. Returns the list of assigned ids in input order.
func WriteLayerAtomic(path string, schema LayerSchema, chunks []Chunk, opts WriteOptions) ([]ChunkID, error) {
	assigned, ids, err := assignIDs(path, nil, chunks)
	if err != nil {
		return nil, err
	}
	raw, err := buildLayerBytes(path, schema, assigned, opts.Relationships, opts.MetadataBytes)
	if err != nil {
		return nil, err
	}
	if err := atomicWrite(path, raw); err != nil {
		return nil, err
	}
	return ids, nil
}

// AppendLayerAtomic reads the existing layer at path, merges the new
// chunks (same id-assignment rule as WriteLayerAtomic, continuing from
// the existing layer's highest assigned id), and rewrites the file
// atomically. The existing schema and relationships are preserved; new
// relationships, if given, are appended to the existing set.
func AppendLayerAtomic(path string, chunks []Chunk, opts AppendOptions) ([]ChunkID, error) {
	existing, err := Open(path)
	if err != nil {
		return nil, err
	}
	if opts.MetadataBytes != nil && existing.MetadataBytes() != nil &&
		string(opts.MetadataBytes) != string(existing.MetadataBytes()) {
		return nil, agerrors.SchemaMismatch(
			"layer metadata does not match the layer's existing metadata", path)
	}
	metadataBytes := existing.MetadataBytes()
	if metadataBytes == nil {
		metadataBytes = opts.MetadataBytes
	}

	existingChunks, err := existing.ReadAllChunks()
	if err != nil {
		return nil, err
	}

	assigned, ids, err := assignIDs(path, existingChunks, chunks)
	if err != nil {
		return nil, err
	}
	all := append(existingChunks, assigned...)
	rels := append(append([]Relationship(nil), existing.Relationships()...), opts.NewRelationships...)

	raw, err := buildLayerBytes(path, existing.Schema, all, rels, metadataBytes)
	if err != nil {
		return nil, err
	}
	if err := atomicWrite(path, raw); err != nil {
		return nil, err
	}
	return ids, nil
}

// assignIDs resolves the zero/non-zero id-assignment rule: zero ids are
// assigned the next free id above the current max (across existing and
// sibling new chunks); non-zero ids must be unique across both sets.
// Returns the input chunks with ids filled in, in input order, plus the
// parallel list of assigned ids.
func assignIDs(path string, existing, incoming []Chunk) ([]Chunk, []ChunkID, error) {
	used := make(map[ChunkID]struct{}, len(existing)+len(incoming))
	var next ChunkID = 1
	for _, c := range existing {
		used[c.ID] = struct{}{}
		if c.ID >= next {
			next = c.ID + 1
		}
	}
	for _, c := range incoming {
		if c.ID != 0 {
			if _, dup := used[c.ID]; dup {
				return nil, nil, agerrors.FormatError(agerrors.CodeDuplicateChunkID,
					"explicit chunk id collides with an existing chunk", path).WithDetail("id", c.ID)
			}
			used[c.ID] = struct{}{}
			if c.ID >= next {
				next = c.ID + 1
			}
		}
	}

	out := make([]Chunk, len(incoming))
	ids := make([]ChunkID, len(incoming))
	for i, c := range incoming {
		if c.ID == 0 {
			for {
				if _, taken := used[next]; !taken {
					break
				}
				next++
			}
			c.ID = next
			used[next] = struct{}{}
			next++
		}
		out[i] = c
		ids[i] = c.ID
	}
	return out, ids, nil
}

func atomicWrite(path string, raw []byte) error {
	unlock, err := acquireWriteLock(path)
	if err != nil {
		// Best-effort: proceed without the lock. POSIX rename is atomic
		// regardless; the flock only prevents two temp files being in
		// flight on the same host at once (see DESIGN.md/SPEC_FULL.md §4.1).
		unlock = func() {}
	}
	defer unlock()

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
