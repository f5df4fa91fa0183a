package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agix"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/layerset"
)

// checkResult is one diagnostic check's outcome, modeled on the
// teacher's doctor command: a name, pass/warn/fail status, and a
// human-readable detail.
type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // pass, warn, fail
	Detail string `json:"detail,omitempty"`
}

// runValidation is the spec's `validate` entry point plus a light
// compatibility/health sweep: every present layer opens and decodes
// cleanly, all present layers share one embedding profile, and every
// present sidecar index is coherent with its layer.
func runValidation() []checkResult {
	var results []checkResult

	present := 0
	for _, e := range layerfile.StandardFileNames {
		path := layerPath(e.Name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		present++

		lf, err := layerfile.Open(path)
		if err != nil {
			results = append(results, checkResult{Name: "open:" + e.Name, Status: "fail", Detail: err.Error()})
			continue
		}
		results = append(results, checkResult{
			Name: "open:" + e.Name, Status: "pass",
			Detail: fmt.Sprintf("%d chunks, dim=%d", lf.ChunkCount(), lf.Schema.Dim),
		})

		idxPath := agix.DefaultPath(path)
		if idx, err := agix.Open(idxPath); err == nil {
			if agix.Coherent(idx, lf) {
				results = append(results, checkResult{Name: "index:" + e.Name, Status: "pass"})
			} else {
				results = append(results, checkResult{Name: "index:" + e.Name, Status: "warn", Detail: "sidecar index is stale; rebuild with `agentsdb index`"})
			}
		}
	}

	if present == 0 {
		results = append(results, checkResult{Name: "layers", Status: "warn", Detail: "no layer files present under --root"})
		return results
	}

	if _, err := layerset.OpenDir(rootDir, nil); err != nil {
		results = append(results, checkResult{Name: "profile-compatibility", Status: "fail", Detail: err.Error()})
	} else {
		results = append(results, checkResult{Name: "profile-compatibility", Status: "pass"})
	}

	return results
}

func hasFailures(results []checkResult) bool {
	for _, r := range results {
		if r.Status == "fail" {
			return true
		}
	}
	return false
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate every layer under --root and report compatibility issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			results := runValidation()

			err := w.Result(struct {
				Checks []checkResult `json:"checks"`
			}{Checks: results}, func() {
				for _, r := range results {
					switch r.Status {
					case "pass":
						w.Successf("%s: ok", r.Name)
					case "warn":
						w.Warningf("%s: %s", r.Name, r.Detail)
					default:
						w.Warningf("%s: FAIL: %s", r.Name, r.Detail)
					}
				}
			})
			if err != nil {
				return err
			}
			if hasFailures(results) {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
	return cmd
}
