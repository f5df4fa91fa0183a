package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agdbconfig"
	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

// newInitCmd scaffolds a new store directory: an empty Base layer
// declaring the chosen schema, and a .agentsdb.yaml recording the
// project's default knobs.
func newInitCmd() *cobra.Command {
	var (
		dim         uint32
		elementType string
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a new store directory with an empty base layer and .agentsdb.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			dir := rootDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dim == 0 {
				dim = 256
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return w.Fail(agerrors.IOError(dir, err))
			}

			et, ok := layerfile.ElementF32, true
			if elementType == "i8" {
				et, ok = layerfile.ElementI8, true
			} else if elementType != "" && elementType != "f32" {
				ok = false
			}
			if !ok {
				return w.Fail(agerrors.New(agerrors.CodeInvalidValue, "--element-type must be f32 or i8", ""))
			}
			scale := float32(1)

			basePath := filepath.Join(dir, layerfile.BaseFileName)
			if _, err := os.Stat(basePath); err == nil {
				return w.Fail(agerrors.New(agerrors.CodeIO, "base layer already exists", basePath))
			}
			schema := layerfile.LayerSchema{Dim: dim, ElementType: et, QuantScale: scale}
			if _, err := layerfile.WriteLayerAtomic(basePath, schema, nil, layerfile.WriteOptions{}); err != nil {
				return w.Fail(err)
			}

			cfgOut := agdbconfig.Default()
			cfgOut.Root = "."
			cfgOut.Dim = dim
			if err := agdbconfig.WriteYAML(filepath.Join(dir, agdbconfig.ConfigFileName), cfgOut); err != nil {
				return w.Fail(agerrors.Wrap(agerrors.CodeIO, dir, err))
			}

			return w.Result(struct {
				Dir  string `json:"dir"`
				Base string `json:"base"`
			}{Dir: dir, Base: basePath}, func() {
				w.Successf("Initialized store at %s", dir)
			})
		},
	}

	cmd.Flags().Uint32Var(&dim, "dim", 256, "Embedding dimension for the new base layer")
	cmd.Flags().StringVar(&elementType, "element-type", "f32", "Embedding element type (f32, i8)")
	return cmd
}
