package cmd

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/ops"
)

func readBundle(path string) (ops.CollectBundle, error) {
	var r io.Reader
	if path == "" || path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return ops.CollectBundle{}, agerrors.IOError(path, err)
		}
		defer f.Close()
		r = f
	}
	var bundle ops.CollectBundle
	if err := json.NewDecoder(r).Decode(&bundle); err != nil {
		return ops.CollectBundle{}, agerrors.New(agerrors.CodeInvalidValue, "failed to parse collect bundle JSON", path).WithDetail("cause", err.Error())
	}
	return bundle, nil
}

func newWriteCmd() *cobra.Command {
	var bundlePath string

	cmd := &cobra.Command{
		Use:   "write <layer>",
		Short: "Create a fresh layer from a collect bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			path := layerPath(args[0])

			bundle, err := readBundle(bundlePath)
			if err != nil {
				return w.Fail(err)
			}

			started := time.Now()
			res, err := ops.Write(cmd.Context(), path, newEmbedder(), bundle, toolName, toolVersion())
			if err != nil {
				logFailure("write", err)
				return w.Fail(err)
			}
			logMutation("write", path, started, len(res.AssignedIDs))

			return w.Result(res, func() {
				w.Successf("Wrote %d chunks to %s", len(res.AssignedIDs), path)
			})
		},
	}

	cmd.Flags().StringVarP(&bundlePath, "bundle", "f", "", "Collect bundle JSON path (default: stdin)")
	return cmd
}
