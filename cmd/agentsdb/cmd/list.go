package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

type listedChunk struct {
	ID         uint32  `json:"id"`
	Kind       string  `json:"kind"`
	Author     string  `json:"author"`
	Confidence float32 `json:"confidence"`
	Content    string  `json:"content"`
}

// newListCmd lists every chunk in one layer, unranked and with no query
// involved — the read-only counterpart to write/append for inspecting
// what a layer actually holds.
func newListCmd() *cobra.Command {
	var (
		layer    string
		kindsCSV string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every chunk in one layer",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			path := layerPath(layer)

			lf, err := layerfile.Open(path)
			if err != nil {
				return w.Fail(err)
			}
			chunks, err := lf.ReadAllChunks()
			if err != nil {
				return w.Fail(err)
			}

			kinds := parseKinds(kindsCSV)
			out := make([]listedChunk, 0, len(chunks))
			for _, c := range chunks {
				if kinds != nil {
					if _, ok := kinds[c.Kind]; !ok {
						continue
					}
				}
				out = append(out, listedChunk{
					ID: uint32(c.ID), Kind: c.Kind, Author: string(c.Author),
					Confidence: c.Confidence, Content: c.Content,
				})
			}

			return w.Result(struct {
				Path   string        `json:"path"`
				Chunks []listedChunk `json:"chunks"`
			}{Path: path, Chunks: out}, func() {
				for _, c := range out {
					w.Statusf("id=%d kind=%s author=%s conf=%.3f", c.ID, c.Kind, c.Author, c.Confidence)
					w.Statusf("  %s", oneLine(c.Content))
				}
			})
		},
	}

	cmd.Flags().StringVar(&layer, "layer", "base", "Layer to list (base, user, delta, local, or a path)")
	cmd.Flags().StringVar(&kindsCSV, "kinds", "", "Comma-separated chunk kinds to filter to")
	return cmd
}
