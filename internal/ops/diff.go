package ops

import (
	"sort"

	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

// DiffResult is the set-difference-by-id between a base and a delta
// layer: ids present in delta but not base, and ids present in both
// (i.e. delta overrides base for that id).
type DiffResult struct {
	NewIDs    []layerfile.ChunkID `json:"new_ids"`
	Overrides []layerfile.ChunkID `json:"overrides"`
}

// Diff compares base and delta by chunk-id.
func Diff(base, delta *layerfile.LayerFile) (*DiffResult, error) {
	baseChunks, err := base.ReadAllChunks()
	if err != nil {
		return nil, err
	}
	deltaChunks, err := delta.ReadAllChunks()
	if err != nil {
		return nil, err
	}

	baseIDs := make(map[layerfile.ChunkID]struct{}, len(baseChunks))
	for _, c := range baseChunks {
		baseIDs[c.ID] = struct{}{}
	}

	var newIDs, overrides []layerfile.ChunkID
	for _, c := range deltaChunks {
		if _, ok := baseIDs[c.ID]; ok {
			overrides = append(overrides, c.ID)
		} else {
			newIDs = append(newIDs, c.ID)
		}
	}

	sort.Slice(newIDs, func(i, j int) bool { return newIDs[i] < newIDs[j] })
	sort.Slice(overrides, func(i, j int) bool { return overrides[i] < overrides[j] })

	return &DiffResult{NewIDs: newIDs, Overrides: overrides}, nil
}
