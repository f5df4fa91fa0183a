package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
)

// newDestroyCmd deletes a writable layer file (and its sidecar index,
// if present) outright. Base is always rejected.
func newDestroyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destroy <layer>",
		Short: "Delete a writable layer file and its sidecar index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			path := layerPath(args[0])

			if err := layerfile.EnsureWritableLayerPathAllowUser(path); err != nil {
				return w.Fail(err)
			}
			if err := confirmWrite(path, "Destroy "+path+"? This permanently deletes the layer."); err != nil {
				return w.Fail(agerrors.New(agerrors.CodeIO, err.Error(), path))
			}

			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return w.Fail(agerrors.IOError(path, err))
			}
			_ = os.Remove(layerfile.SidecarPath(path))

			logMutation("destroy", path, time.Now(), 0)

			return w.Result(struct {
				Destroyed string `json:"destroyed"`
			}{Destroyed: path}, func() {
				w.Successf("Destroyed %s", path)
			})
		},
	}
	return cmd
}
