package cmd

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/search"
)

type searchResultJSON struct {
	Layer           string   `json:"layer"`
	ID              uint32   `json:"id"`
	Kind            string   `json:"kind"`
	Score           float32  `json:"score"`
	Author          string   `json:"author"`
	Confidence      float32  `json:"confidence"`
	CreatedAtUnixMs uint64   `json:"created_at_unix_ms"`
	Sources         []string `json:"sources,omitempty"`
	HiddenLayers    []string `json:"hidden_layers,omitempty"`
	Content         string   `json:"content"`
}

func newSearchCmd() *cobra.Command {
	var (
		query        string
		queryVecJSON string
		queryVecFile string
		k            int
		kindsCSV     string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the open layer set and rank results across layers",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)

			var vec []float32
			switch {
			case queryVecJSON != "" && queryVecFile != "":
				return w.Fail(agerrors.New(agerrors.CodeInvalidValue, "provide only one of --query-vec or --query-vec-file", ""))
			case queryVecJSON != "":
				if err := json.Unmarshal([]byte(queryVecJSON), &vec); err != nil {
					return w.Fail(agerrors.New(agerrors.CodeInvalidValue, "--query-vec is not a valid JSON float array", ""))
				}
			case queryVecFile != "":
				data, err := os.ReadFile(queryVecFile)
				if err != nil {
					return w.Fail(agerrors.IOError(queryVecFile, err))
				}
				if err := json.Unmarshal(data, &vec); err != nil {
					return w.Fail(agerrors.New(agerrors.CodeInvalidValue, "--query-vec-file is not a valid JSON float array", queryVecFile))
				}
			}

			embedder := newEmbedder()
			set, err := openSet(embedder)
			if err != nil {
				return w.Fail(err)
			}

			req := search.Request{
				QueryText: query,
				QueryVec:  vec,
				K:         k,
				Kinds:     parseKinds(kindsCSV),
				UseIndex:  useIndex,
			}
			results, err := search.Run(cmd.Context(), set, embedder, req)
			if err != nil {
				return w.Fail(err)
			}

			out := make([]searchResultJSON, 0, len(results))
			for _, r := range results {
				sources := make([]string, 0, len(r.Chunk.Sources))
				for _, s := range r.Chunk.Sources {
					sources = append(sources, sourceToString(s))
				}
				hidden := make([]string, 0, len(r.HiddenLayers))
				for _, l := range r.HiddenLayers {
					hidden = append(hidden, l.String())
				}
				out = append(out, searchResultJSON{
					Layer: r.Layer.String(), ID: uint32(r.Chunk.ID), Kind: r.Chunk.Kind, Score: r.Score,
					Author: string(r.Chunk.Author), Confidence: r.Chunk.Confidence,
					CreatedAtUnixMs: r.Chunk.CreatedAtUnixMs, Sources: sources, HiddenLayers: hidden,
					Content: r.Chunk.Content,
				})
			}

			return w.Result(struct {
				K       int                 `json:"k"`
				Results []searchResultJSON `json:"results"`
			}{K: k, Results: out}, func() {
				for _, r := range out {
					w.Statusf("[%s] id=%d score=%.6f kind=%s author=%s conf=%.3f", r.Layer, r.ID, r.Score, r.Kind, r.Author, r.Confidence)
					if len(r.HiddenLayers) > 0 {
						w.Statusf("  hidden_layers=%v", r.HiddenLayers)
					}
					w.Statusf("  %s", oneLine(r.Content))
				}
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Query text to embed and search for")
	cmd.Flags().StringVar(&queryVecJSON, "query-vec", "", "Query vector as a JSON float array")
	cmd.Flags().StringVar(&queryVecFile, "query-vec-file", "", "Path to a JSON float array file")
	cmd.Flags().IntVarP(&k, "k", "k", 10, "Number of results to return")
	cmd.Flags().StringVar(&kindsCSV, "kinds", "", "Comma-separated chunk kinds to filter to")

	return cmd
}

func sourceToString(s layerfile.ProvenanceRef) string {
	if s.Kind == layerfile.ProvenanceChunkID {
		return "chunk:" + strconv.FormatUint(uint64(s.ChunkID), 10)
	}
	return s.Source
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
