package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/collect"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/ops"
)

// newCompileCmd is collect+embed+write as one step: it skips writing the
// intermediate bundle to disk, for the common case of "turn this
// directory into a layer" with no inspection step in between.
func newCompileCmd() *cobra.Command {
	var (
		elementType string
		quantScale  float32
		maxTokens   int
		overlapToks int
		skipDirsCSV string
		chunkAuthor string
		appendMode  bool
	)

	cmd := &cobra.Command{
		Use:   "compile <dir> <layer>",
		Short: "Collect a directory and write it to a layer in one step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			path := layerPath(args[1])

			et, ok := ops.ParseElementType(elementType)
			if !ok {
				return w.Fail(agerrors.New(agerrors.CodeInvalidValue, "--element-type must be f32 or i8", ""))
			}
			scale := quantScale
			if scale == 0 {
				scale = 1
			}

			embedder := newEmbedder()
			opts := collect.Options{
				MaxChunkTokens: maxTokens,
				OverlapTokens:  overlapToks,
				SkipDirs:       splitCSV(skipDirsCSV),
				Author:         chunkAuthor,
			}
			bundle, skipped, err := collect.Dir(cmd.Context(), args[0], opts)
			if err != nil {
				return w.Fail(err)
			}
			bundle.Schema = layerfile.LayerSchema{Dim: embedder.Profile().Dim, ElementType: et, QuantScale: scale}

			started := time.Now()
			var ids []layerfile.ChunkID
			op := "write"
			if appendMode {
				op = "append"
				res, err := ops.Append(cmd.Context(), path, embedder, bundle, toolName, toolVersion())
				if err != nil {
					logFailure(op, err)
					return w.Fail(err)
				}
				ids = res.AssignedIDs
			} else {
				res, err := ops.Write(cmd.Context(), path, embedder, bundle, toolName, toolVersion())
				if err != nil {
					logFailure(op, err)
					return w.Fail(err)
				}
				ids = res.AssignedIDs
			}
			logMutation(op, path, started, len(ids))

			return w.Result(struct {
				AssignedIDs []layerfile.ChunkID `json:"assigned_ids"`
				Skipped     int                 `json:"skipped_files"`
			}{AssignedIDs: ids, Skipped: skipped}, func() {
				w.Successf("Compiled %s into %s: %d chunks (%d files skipped)", args[0], path, len(ids), skipped)
			})
		},
	}

	cmd.Flags().StringVar(&elementType, "element-type", "f32", "Embedding element type (f32, i8)")
	cmd.Flags().Float32Var(&quantScale, "quant-scale", 0, "Quantization scale (required for i8; defaults to 1.0)")
	cmd.Flags().IntVar(&maxTokens, "max-chunk-tokens", 0, "Override the chunker's default max chunk size")
	cmd.Flags().IntVar(&overlapToks, "overlap-tokens", 0, "Override the chunker's default overlap")
	cmd.Flags().StringVar(&skipDirsCSV, "skip-dirs", "", "Comma-separated extra directory names to prune")
	cmd.Flags().StringVar(&chunkAuthor, "author", "mcp", "Author to stamp on produced chunks (human, mcp)")
	cmd.Flags().BoolVar(&appendMode, "append", false, "Append to an existing layer instead of creating a fresh one")

	return cmd
}
