package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/ops"
)

func newDiffCmd() *cobra.Command {
	var base, delta string

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show the set-difference between a base and a delta layer by chunk id",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			basePath, deltaPath := layerPath(base), layerPath(delta)

			baseFile, err := layerfile.Open(basePath)
			if err != nil {
				return w.Fail(err)
			}
			deltaFile, err := layerfile.Open(deltaPath)
			if err != nil {
				return w.Fail(err)
			}

			res, err := ops.Diff(baseFile, deltaFile)
			if err != nil {
				return w.Fail(err)
			}

			return w.Result(res, func() {
				w.Statusf("Delta: %s (%d chunks)", deltaPath, deltaFile.ChunkCount())
				w.Statusf("New ids (not present in base): %d", len(res.NewIDs))
				for _, id := range res.NewIDs {
					w.Statusf("  - %d", id)
				}
				w.Statusf("Overrides (id exists in base): %d", len(res.Overrides))
				for _, id := range res.Overrides {
					w.Statusf("  - %d", id)
				}
			})
		},
	}

	cmd.Flags().StringVar(&base, "base", "base", "Base layer (base, user, delta, local, or a path)")
	cmd.Flags().StringVar(&delta, "delta", "delta", "Delta layer (base, user, delta, local, or a path)")
	return cmd
}
