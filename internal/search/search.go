// Package search implements the layered query engine (C5): embedding a
// query, scoring chunks across every open layer, resolving overrides and
// tombstones, and ranking with a strict deterministic tie-break.
package search

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/agix"
	"github.com/agentsdb/agentsdb-go/internal/embed"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/layerset"
)

// Request is the search engine's input. Exactly one of QueryText or
// QueryVec must be set.
type Request struct {
	QueryText string
	QueryVec  []float32
	K         int
	Kinds     map[string]struct{} // empty/nil = no filter
	UseIndex  bool
}

// Result is one ranked hit. HiddenLayers lists every lower-precedence
// layer whose copy of this chunk-id was shadowed by Layer's copy.
type Result struct {
	Chunk        layerfile.Chunk
	Layer        layerfile.LayerID
	Score        float32
	HiddenLayers []layerfile.LayerID
}

// candidate is one layer's scored view of a chunk-id, before override
// resolution.
type candidate struct {
	chunk layerfile.Chunk
	layer layerfile.LayerID
	score float32
}

// Run executes the search procedure from §4.5 over set, using embedder
// to embed QueryText when QueryVec is not supplied.
func Run(ctx context.Context, set *layerset.LayerSet, embedder embed.Embedder, req Request) ([]Result, error) {
	queryVec, err := resolveQueryVector(ctx, embedder, req)
	if err != nil {
		return nil, err
	}

	layers := set.Open()
	perLayer := make([][]candidate, len(layers))
	tombstones := make([]map[layerfile.ChunkID]struct{}, len(layers))

	g, _ := errgroup.WithContext(ctx)
	for i, lf := range layers {
		i, lf := i, lf
		g.Go(func() error {
			cands, stones, err := scoreLayer(lf, set, queryVec, req)
			if err != nil {
				return err
			}
			perLayer[i] = cands
			tombstones[i] = stones
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	suppressed := make(map[layerfile.ChunkID]struct{})
	for _, stones := range tombstones {
		for id := range stones {
			suppressed[id] = struct{}{}
		}
	}

	// Merge per-layer candidates in precedence order, resolving
	// overrides: the first (highest-precedence) layer to claim an id
	// wins; later occurrences become hidden_layers entries.
	winners := make(map[layerfile.ChunkID]*Result)
	order := make([]layerfile.ChunkID, 0)
	for i, cands := range perLayer {
		layerID, ok := layerfile.LogicalLayerForPath(layers[i].Path)
		if !ok {
			continue
		}
		for _, c := range cands {
			if _, hidden := suppressed[c.chunk.ID]; hidden {
				continue
			}
			if existing, ok := winners[c.chunk.ID]; ok {
				existing.HiddenLayers = append(existing.HiddenLayers, layerID)
				continue
			}
			winners[c.chunk.ID] = &Result{Chunk: c.chunk, Layer: layerID, Score: c.score}
			order = append(order, c.chunk.ID)
		}
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		results = append(results, *winners[id])
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Layer != results[j].Layer {
			return results[i].Layer < results[j].Layer
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})

	if req.K > 0 && len(results) > req.K {
		results = results[:req.K]
	}
	return results, nil
}

func resolveQueryVector(ctx context.Context, embedder embed.Embedder, req Request) ([]float32, error) {
	if req.QueryVec != nil {
		return req.QueryVec, nil
	}
	if embedder == nil {
		return nil, agerrors.New(agerrors.CodeInvalidValue,
			"search requires either a query vector or a bound embedder for query text", "")
	}
	vecs, err := embedder.Embed(ctx, []string{req.QueryText})
	if err != nil {
		return nil, err
	}
	vec := vecs[0]
	if embedder.Profile().OutputNorm == embed.OutputNormL2 {
		vec = l2Normalize(vec)
	}
	return vec, nil
}

// scoreLayer scores every non-tombstone chunk in lf against queryVec,
// returning the scored candidates and the set of chunk-ids suppressed by
// any tombstone found in this layer.
func scoreLayer(lf *layerfile.LayerFile, set *layerset.LayerSet, queryVec []float32, req Request) ([]candidate, map[layerfile.ChunkID]struct{}, error) {
	chunks, err := lf.ReadAllChunks()
	if err != nil {
		return nil, nil, err
	}
	if len(queryVec) != int(lf.Schema.Dim) {
		return nil, nil, agerrors.New(agerrors.CodeSchemaMismatch,
			"query vector length does not match layer dim", lf.Path)
	}

	var idx *agix.Index
	if req.UseIndex {
		if cand, err := agix.Open(agix.DefaultPath(lf.Path)); err == nil && agix.Coherent(cand, lf) {
			idx = cand
		}
	}

	indexByID := make(map[layerfile.ChunkID]int)
	if idx != nil {
		for i, id := range idx.IDs {
			indexByID[id] = i
		}
	}

	tombstones := make(map[layerfile.ChunkID]struct{})
	cands := make([]candidate, 0, len(chunks))

	for _, c := range chunks {
		if c.Kind == layerfile.TombstoneKind {
			if target, ok := parseTombstoneTarget(c.Content); ok {
				tombstones[target] = struct{}{}
			}
			continue
		}
		if len(req.Kinds) > 0 {
			if _, ok := req.Kinds[c.Kind]; !ok {
				continue
			}
		}

		vec := c.Vector
		if row, ok := indexByID[c.ID]; ok {
			vec = idx.Vector(row)
		}

		cands = append(cands, candidate{
			chunk: c,
			score: dot(vec, queryVec),
		})
	}
	return cands, tombstones, nil
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func l2Normalize(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return v
	}
	mag := math.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / mag)
	}
	return out
}

// parseTombstoneTarget parses a tombstone chunk's content as the
// chunk-id it suppresses. Non-numeric content matches no target.
func parseTombstoneTarget(content string) (layerfile.ChunkID, bool) {
	s := strings.TrimSpace(content)
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return layerfile.ChunkID(n), true
}
