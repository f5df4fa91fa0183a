package ops

import (
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

// Remove rewrites the writable layer at path without the chunk
// identified by id. Returns false (a soft outcome, not an error) if id
// was not present. Base is rejected as unwritable.
func Remove(path string, id layerfile.ChunkID) (bool, error) {
	if err := layerfile.EnsureWritableLayerPathAllowUser(path); err != nil {
		return false, err
	}

	existing, err := layerfile.Open(path)
	if err != nil {
		return false, err
	}
	chunks, err := existing.ReadAllChunks()
	if err != nil {
		return false, err
	}

	found := false
	kept := make([]layerfile.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return false, nil
	}

	if _, err := layerfile.WriteLayerAtomic(path, existing.Schema, kept, layerfile.WriteOptions{
		Relationships: existing.Relationships(),
		MetadataBytes: existing.MetadataBytes(),
	}); err != nil {
		return false, err
	}
	return true, nil
}
