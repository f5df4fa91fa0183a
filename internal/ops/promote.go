package ops

import (
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

// PromoteOptions configures a promote call.
//
// SkipExisting is kept for interface stability but is deprecated and
// ignored: promoted chunks always get id = 0 (destination auto-assigns),
// so there is never an existing-id collision to skip. See DESIGN.md.
type PromoteOptions struct {
	SkipExisting bool // Deprecated: ignored.
}

// PromoteResult reports what promote did.
type PromoteResult struct {
	Promoted []layerfile.ChunkID `json:"promoted"`
	Skipped  []layerfile.ChunkID `json:"skipped"`
}

// Promote copies the chunks in ids from src into dstPath, forcing
// id = 0 (destination auto-assigns) and normalizing author to Human.
// Source and destination schemas must match exactly.
func Promote(src *layerfile.LayerFile, dstPath string, ids []layerfile.ChunkID, _ PromoteOptions) (*PromoteResult, error) {
	if err := layerfile.EnsureWritableLayerPathAllowUser(dstPath); err != nil {
		return nil, err
	}

	all, err := src.ReadAllChunks()
	if err != nil {
		return nil, err
	}
	byID := make(map[layerfile.ChunkID]layerfile.Chunk, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	toCopy := make([]layerfile.Chunk, 0, len(ids))
	skipped := make([]layerfile.ChunkID, 0)
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			skipped = append(skipped, id)
			continue
		}
		c.ID = 0
		c.Author = layerfile.AuthorHuman
		toCopy = append(toCopy, c)
	}

	assigned := make([]layerfile.ChunkID, 0)
	if len(toCopy) > 0 {
		dst, err := layerfile.Open(dstPath)
		if err == nil {
			if !dst.Schema.Equal(src.Schema) {
				return nil, schemaMismatch(dstPath, "promote destination schema does not match source layer schema")
			}
			assigned, err = layerfile.AppendLayerAtomic(dstPath, toCopy, layerfile.AppendOptions{})
			if err != nil {
				return nil, err
			}
		} else {
			assigned, err = layerfile.WriteLayerAtomic(dstPath, src.Schema, toCopy, layerfile.WriteOptions{})
			if err != nil {
				return nil, err
			}
		}
	}

	return &PromoteResult{Promoted: assigned, Skipped: skipped}, nil
}
