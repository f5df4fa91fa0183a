package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/ops"
)

func parseLayersCSV(s string) ([]layerfile.LayerID, error) {
	var out []layerfile.LayerID
	for _, raw := range strings.Split(s, ",") {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		id, ok := layerfile.ParseLayerID(v)
		if !ok {
			return nil, agerrors.New(agerrors.CodeInvalidValue, "invalid layer name (expected base,user,delta,local)", "").WithDetail("value", v)
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, agerrors.New(agerrors.CodeInvalidValue, "--layers must include at least one of base,user,delta,local", "")
	}
	return out, nil
}

func newExportCmd() *cobra.Command {
	var (
		layersCSV string
		format    string
		redact    string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one or more layers to an Export V1 bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			wanted, err := parseLayersCSV(layersCSV)
			if err != nil {
				return w.Fail(err)
			}

			redactMode := ops.RedactMode(redact)
			switch redactMode {
			case ops.RedactNone, ops.RedactContent, ops.RedactEmbeddings, ops.RedactAll:
			default:
				return w.Fail(agerrors.New(agerrors.CodeInvalidValue, "--redact must be none, content, embeddings, or all", ""))
			}

			var layers []*layerfile.LayerFile
			var ids []*layerfile.LayerID
			for _, e := range layerfile.StandardFileNames {
				want := false
				for _, id := range wanted {
					if id == e.Layer {
						want = true
						break
					}
				}
				if !want {
					continue
				}
				path := layerPath(e.Name)
				if _, statErr := os.Stat(path); statErr != nil {
					continue
				}
				lf, openErr := layerfile.Open(path)
				if openErr != nil {
					return w.Fail(openErr)
				}
				layer := e.Layer
				layers = append(layers, lf)
				ids = append(ids, &layer)
			}

			bundle, err := ops.Export(layers, ids, toolName, toolVersion(), redactMode)
			if err != nil {
				return w.Fail(err)
			}

			var dest *os.File = os.Stdout
			if out != "" {
				f, createErr := os.Create(out)
				if createErr != nil {
					return w.Fail(agerrors.IOError(out, createErr))
				}
				defer f.Close()
				dest = f
			}

			switch format {
			case "ndjson":
				err = ops.WriteNDJSON(dest, bundle)
			default:
				err = ops.WriteJSON(dest, bundle)
			}
			if err != nil {
				return w.Fail(agerrors.IOError(out, err))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&layersCSV, "layers", "base,user,delta,local", "Comma-separated layers to export")
	cmd.Flags().StringVar(&format, "format", "json", "Bundle format (json, ndjson)")
	cmd.Flags().StringVar(&redact, "redact", "none", "Redaction mode (none, content, embeddings, all)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the bundle to this path (default: stdout)")
	return cmd
}
