package cmd

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

// newSmashCmd flattens every present layer under --root into a single
// destination layer, honoring the usual precedence order (Local beats
// User beats Delta beats Base) so the flattened result matches what
// search would have resolved for each chunk id.
func newSmashCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "smash",
		Short: "Flatten every present layer under --root into one layer, honoring override precedence",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			destPath := layerPath(out)

			if err := confirmWrite(destPath, "Smash all layers into "+destPath+"?"); err != nil {
				return w.Fail(err)
			}

			var schema layerfile.LayerSchema
			var schemaSet bool
			byID := make(map[layerfile.ChunkID]layerfile.Chunk)
			order := make([]layerfile.ChunkID, 0)
			suppressed := make(map[layerfile.ChunkID]struct{})

			// Iterate lowest-precedence first so a later (higher
			// precedence) layer's copy of a shared id overwrites the
			// earlier one in byID.
			precedence := []layerfile.LayerID{layerfile.Base, layerfile.Delta, layerfile.User, layerfile.Local}
			for _, id := range precedence {
				path := layerPath(id.String())
				lf, err := layerfile.Open(path)
				if err != nil {
					continue
				}
				if !schemaSet {
					schema = lf.Schema
					schemaSet = true
				} else if !schema.Equal(lf.Schema) {
					return w.Fail(agerrors.SchemaMismatch("smash source layers do not share one schema", lf.Path))
				}
				chunks, err := lf.ReadAllChunks()
				if err != nil {
					return w.Fail(err)
				}
				for _, c := range chunks {
					if c.Kind == layerfile.TombstoneKind {
						if n, err := strconv.ParseUint(strings.TrimSpace(c.Content), 10, 32); err == nil {
							suppressed[layerfile.ChunkID(n)] = struct{}{}
						}
						continue
					}
					if _, seen := byID[c.ID]; !seen {
						order = append(order, c.ID)
					}
					byID[c.ID] = c
				}
			}

			flattened := make([]layerfile.Chunk, 0, len(order))
			for _, id := range order {
				if _, gone := suppressed[id]; gone {
					continue
				}
				if c, ok := byID[id]; ok {
					flattened = append(flattened, c)
				}
			}

			started := time.Now()
			ids, err := layerfile.WriteLayerAtomic(destPath, schema, flattened, layerfile.WriteOptions{})
			if err != nil {
				logFailure("smash", err)
				return w.Fail(err)
			}
			logMutation("smash", destPath, started, len(ids))

			return w.Result(struct {
				Chunks int `json:"chunks"`
			}{Chunks: len(ids)}, func() {
				w.Successf("Smashed all layers into %s (%d chunks)", destPath, len(ids))
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "local", "Destination layer for the flattened result")
	return cmd
}
