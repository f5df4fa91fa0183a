package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/agix"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

type indexEntry struct {
	Layer     string `json:"layer"`
	LayerPath string `json:"layer_path"`
	IndexPath string `json:"index_path"`
}

func newIndexCmd() *cobra.Command {
	var (
		outDir       string
		storeF32     bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the .agix sidecar index for every open layer",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)

			set, err := openSet(nil)
			if err != nil {
				return w.Fail(err)
			}
			layers := set.Open()
			if len(layers) == 0 {
				return w.Fail(agerrors.New(agerrors.CodeIO, "no layers present under --root", rootDir))
			}

			var built []indexEntry
			for _, lf := range layers {
				id, _ := layerfile.LogicalLayerForPath(lf.Path)
				indexPath := agix.DefaultPath(lf.Path)
				if outDir != "" {
					indexPath = filepath.Join(outDir, filepath.Base(lf.Path)+".agix")
				}
				if err := agix.Build(lf, indexPath, agix.BuildOptions{StoreEmbeddingsEvenIfF32: storeF32}); err != nil {
					return w.Fail(err)
				}
				built = append(built, indexEntry{Layer: id.String(), LayerPath: lf.Path, IndexPath: indexPath})
			}

			return w.Result(struct {
				Built []indexEntry `json:"built"`
			}{Built: built}, func() {
				for _, e := range built {
					w.Successf("indexed [%s] %s -> %s", e.Layer, e.LayerPath, e.IndexPath)
				}
			})
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write sidecars into this directory instead of alongside each layer")
	cmd.Flags().BoolVar(&storeF32, "store-f32", false, "Also store a parallel f32 mirror for F32 layers")
	return cmd
}
