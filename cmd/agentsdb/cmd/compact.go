package cmd

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

// newCompactCmd rewrites a layer through the atomic write path with its
// tombstoned chunks dropped, shrinking the file without changing any
// surviving chunk's content or id.
func newCompactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact <layer>",
		Short: "Rewrite a layer, dropping resolved tombstones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			path := layerPath(args[0])

			if err := confirmWrite(path, "Compact "+path+"?"); err != nil {
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

			tombstoned := make(map[layerfile.ChunkID]struct{})
			for _, c := range chunks {
				if c.Kind == layerfile.TombstoneKind {
					if n, err := strconv.ParseUint(strings.TrimSpace(c.Content), 10, 32); err == nil {
						tombstoned[layerfile.ChunkID(n)] = struct{}{}
					}
				}
			}

			kept := make([]layerfile.Chunk, 0, len(chunks))
			for _, c := range chunks {
				if c.Kind == layerfile.TombstoneKind {
					continue
				}
				if _, gone := tombstoned[c.ID]; gone {
					continue
				}
				kept = append(kept, c)
			}

			started := time.Now()
			ids, err := layerfile.WriteLayerAtomic(path, lf.Schema, kept, layerfile.WriteOptions{
				Relationships: lf.Relationships(),
				MetadataBytes: lf.MetadataBytes(),
			})
			if err != nil {
				logFailure("compact", err)
				return w.Fail(err)
			}
			logMutation("compact", path, started, len(ids))

			return w.Result(struct {
				Before int `json:"before"`
				After  int `json:"after"`
			}{Before: len(chunks), After: len(ids)}, func() {
				w.Successf("Compacted %s: %d -> %d chunks", path, len(chunks), len(ids))
			})
		},
	}
	return cmd
}
