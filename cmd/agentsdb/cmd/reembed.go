package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/layermeta"
)

// newReembedCmd re-runs the current embedder over every chunk already
// stored in a layer and rewrites the layer in place with the new
// vectors and a refreshed metadata blob — for recovering from an
// embedder upgrade without re-collecting source content.
func newReembedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reembed <layer>",
		Short: "Re-embed every chunk in a layer with the current embedder and rewrite it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			path := layerPath(args[0])

			if err := confirmWrite(path, "Re-embed and rewrite "+path+"?"); err != nil {
				return w.Fail(err)
			}

			lf, err := layerfile.Open(path)
			if err != nil {
				return w.Fail(err)
			}
			chunks, err := lf.ReadAllChunks()
			if err != nil {
				return w.Fail(err)
			}

			embedder := newEmbedder()
			texts := make([]string, len(chunks))
			for i, c := range chunks {
				texts[i] = c.Content
			}
			vecs, err := embedder.Embed(cmd.Context(), texts)
			if err != nil {
				return w.Fail(err)
			}
			for i := range chunks {
				chunks[i].Vector = vecs[i]
			}

			meta := layermeta.New(embedder.Profile()).
				WithEmbedderMetadata(embedder.Metadata()).
				WithTool(toolName, toolVersion())
			metaBytes, err := meta.ToJSONBytes()
			if err != nil {
				return w.Fail(err)
			}

			schema := layerfile.LayerSchema{Dim: embedder.Profile().Dim, ElementType: lf.Schema.ElementType, QuantScale: lf.Schema.QuantScale}

			started := time.Now()
			ids, err := layerfile.WriteLayerAtomic(path, schema, chunks, layerfile.WriteOptions{
				Relationships: lf.Relationships(),
				MetadataBytes: metaBytes,
			})
			if err != nil {
				logFailure("reembed", err)
				return w.Fail(err)
			}
			logMutation("reembed", path, started, len(ids))

			return w.Result(struct {
				Reembedded int `json:"reembedded"`
			}{Reembedded: len(ids)}, func() {
				w.Successf("Re-embedded %d chunks in %s", len(ids), path)
			})
		},
	}
	return cmd
}
