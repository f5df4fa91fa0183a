package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agix"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

type layerInspection struct {
	Path          string `json:"path"`
	Present       bool   `json:"present"`
	ChunkCount    int    `json:"chunk_count,omitempty"`
	Dim           uint32 `json:"dim,omitempty"`
	ElementType   string `json:"element_type,omitempty"`
	QuantScale    float32 `json:"quant_scale,omitempty"`
	HasMetadata   bool   `json:"has_metadata"`
	HasIndex      bool   `json:"has_index"`
	IndexCoherent bool   `json:"index_coherent"`
}

// newInspectCmd prints a read-only diagnostic dump of every standard
// layer file under --root: presence, schema, chunk count, and sidecar
// index coherence, without opening a full search/embedder pipeline.
func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a diagnostic summary of every layer under --root",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)

			var out []layerInspection
			for _, e := range layerfile.StandardFileNames {
				path := layerPath(e.Name)
				entry := layerInspection{Path: path}
				if _, err := os.Stat(path); err != nil {
					out = append(out, entry)
					continue
				}
				entry.Present = true

				lf, err := layerfile.Open(path)
				if err != nil {
					return w.Fail(err)
				}
				entry.ChunkCount = lf.ChunkCount()
				entry.Dim = lf.Schema.Dim
				entry.ElementType = lf.Schema.ElementType.String()
				entry.QuantScale = lf.Schema.QuantScale
				entry.HasMetadata = lf.MetadataBytes() != nil

				idxPath := agix.DefaultPath(path)
				if idx, err := agix.Open(idxPath); err == nil {
					entry.HasIndex = true
					entry.IndexCoherent = agix.Coherent(idx, lf)
				}
				out = append(out, entry)
			}

			return w.Result(struct {
				Layers []layerInspection `json:"layers"`
			}{Layers: out}, func() {
				for _, e := range out {
					if !e.Present {
						w.Statusf("%s: absent", e.Path)
						continue
					}
					w.Statusf("%s: %d chunks, dim=%d, element_type=%s, metadata=%t, index=%t (coherent=%t)",
						e.Path, e.ChunkCount, e.Dim, e.ElementType, e.HasMetadata, e.HasIndex, e.IndexCoherent)
				}
			})
		},
	}
	return cmd
}
