package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/ops"
)

func newAppendCmd() *cobra.Command {
	var bundlePath string

	cmd := &cobra.Command{
		Use:   "append <layer>",
		Short: "Append a collect bundle's chunks to an existing writable layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			path := layerPath(args[0])

			bundle, err := readBundle(bundlePath)
			if err != nil {
				return w.Fail(err)
			}

			started := time.Now()
			res, err := ops.Append(cmd.Context(), path, newEmbedder(), bundle, toolName, toolVersion())
			if err != nil {
				logFailure("append", err)
				return w.Fail(err)
			}
			logMutation("append", path, started, len(res.AssignedIDs))

			return w.Result(res, func() {
				w.Successf("Appended %d chunks to %s", len(res.AssignedIDs), path)
			})
		},
	}

	cmd.Flags().StringVarP(&bundlePath, "bundle", "f", "", "Collect bundle JSON path (default: stdin)")
	return cmd
}
