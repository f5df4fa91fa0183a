package cmd

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/ops"
)

func newRemoveCmd() *cobra.Command {
	var id uint64

	cmd := &cobra.Command{
		Use:   "remove <layer>",
		Short: "Remove one chunk from a writable layer by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			path := layerPath(args[0])

			if err := confirmWrite(path, "Remove chunk "+strconv.FormatUint(id, 10)+" from "+path+"?"); err != nil {
				return w.Fail(agerrors.New(agerrors.CodeIO, err.Error(), path))
			}

			started := time.Now()
			found, err := ops.Remove(path, layerfile.ChunkID(id))
			if err != nil {
				logFailure("remove", err)
				return w.Fail(err)
			}
			if found {
				logMutation("remove", path, started, 1)
			}

			return w.Result(struct {
				Removed bool `json:"removed"`
			}{Removed: found}, func() {
				if found {
					w.Successf("Removed chunk %d from %s", id, path)
				} else {
					w.Warningf("Chunk %d not present in %s", id, path)
				}
			})
		},
	}

	cmd.Flags().Uint64Var(&id, "id", 0, "Chunk id to remove")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
