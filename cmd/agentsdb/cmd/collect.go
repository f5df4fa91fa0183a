package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/collect"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/ops"
)

func newCollectCmd() *cobra.Command {
	var (
		out          string
		dim          uint32
		elementType  string
		quantScale   float32
		maxTokens    int
		overlapToks  int
		skipDirsCSV  string
		chunkAuthor  string
	)

	cmd := &cobra.Command{
		Use:   "collect <dir>",
		Short: "Turn a directory of source files into a collect bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			if dim == 0 {
				return w.Fail(agerrors.New(agerrors.CodeInvalidValue, "--dim must be non-zero", ""))
			}
			et, ok := ops.ParseElementType(elementType)
			if !ok {
				return w.Fail(agerrors.New(agerrors.CodeInvalidValue, "--element-type must be f32 or i8", ""))
			}
			scale := quantScale
			if scale == 0 {
				scale = 1
			}

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
			bundle.Schema = layerfile.LayerSchema{Dim: dim, ElementType: et, QuantScale: scale}

			data, err := json.MarshalIndent(bundle, "", "  ")
			if err != nil {
				return w.Fail(agerrors.Wrap(agerrors.CodeInvalidValue, out, err))
			}

			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else {
				if dir := filepath.Dir(out); dir != "." && dir != "" {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return w.Fail(agerrors.IOError(dir, err))
					}
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return w.Fail(agerrors.IOError(out, err))
				}
			}

			return w.Result(struct {
				Out     string `json:"out,omitempty"`
				Chunks  int    `json:"chunks"`
				Skipped int    `json:"skipped"`
			}{Out: out, Chunks: len(bundle.Chunks), Skipped: skipped}, func() {
				dest := out
				if dest == "" {
					dest = "(stdout)"
				}
				w.Successf("Collected %d chunks into %s (%d files skipped)", len(bundle.Chunks), dest, skipped)
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the bundle to this path (default: stdout)")
	cmd.Flags().Uint32Var(&dim, "dim", 0, "Embedding dimension to declare in the bundle schema")
	cmd.Flags().StringVar(&elementType, "element-type", "f32", "Embedding element type (f32, i8)")
	cmd.Flags().Float32Var(&quantScale, "quant-scale", 0, "Quantization scale (required for i8; defaults to 1.0)")
	cmd.Flags().IntVar(&maxTokens, "max-chunk-tokens", 0, "Override the chunker's default max chunk size")
	cmd.Flags().IntVar(&overlapToks, "overlap-tokens", 0, "Override the chunker's default overlap")
	cmd.Flags().StringVar(&skipDirsCSV, "skip-dirs", "", "Comma-separated extra directory names to prune")
	cmd.Flags().StringVar(&chunkAuthor, "author", "mcp", "Author to stamp on produced chunks (human, mcp)")

	return cmd
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
