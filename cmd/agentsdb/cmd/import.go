package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/ops"
)

func newImportCmd() *cobra.Command {
	var (
		in     string
		format string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an Export V1 bundle back into layer files under --root",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)

			var f *os.File
			if in == "" || in == "-" {
				f = os.Stdin
			} else {
				opened, err := os.Open(in)
				if err != nil {
					return w.Fail(agerrors.IOError(in, err))
				}
				defer opened.Close()
				f = opened
			}

			var bundle *ops.ExportBundle
			var err error
			if format == "ndjson" {
				bundle, err = ops.ReadNDJSON(f)
			} else {
				bundle, err = ops.ReadJSON(f)
			}
			if err != nil {
				return w.Fail(err)
			}

			started := time.Now()
			res, err := ops.Import(bundle, func(layer ops.ExportLayer) string {
				if layer.Layer != nil {
					return layerPath(layer.Layer.String())
				}
				return layerPath(filepath.Base(layer.Path))
			})
			if err != nil {
				logFailure("import", err)
				return w.Fail(err)
			}
			total := 0
			for _, ids := range res.AssignedIDs {
				total += len(ids)
			}
			logMutation("import", rootDir, started, total)

			return w.Result(res, func() {
				for path, ids := range res.AssignedIDs {
					w.Successf("Imported %d chunks into %s", len(ids), path)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Export bundle path (default: stdin)")
	cmd.Flags().StringVar(&format, "format", "json", "Bundle format (json, ndjson)")
	return cmd
}
