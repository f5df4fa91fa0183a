package cmd

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/ops"
)

func parseIDsCSV(s string) ([]layerfile.ChunkID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, agerrors.New(agerrors.CodeInvalidValue, "--ids must be non-empty", "")
	}
	parts := strings.Split(s, ",")
	out := make([]layerfile.ChunkID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, agerrors.New(agerrors.CodeInvalidValue, "invalid chunk id in --ids", "").WithDetail("value", p)
		}
		out = append(out, layerfile.ChunkID(n))
	}
	return out, nil
}

func newPromoteCmd() *cobra.Command {
	var (
		from string
		to   string
		ids  string
	)

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Copy chunks from one layer into another, reassigning their ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)
			wanted, err := parseIDsCSV(ids)
			if err != nil {
				return w.Fail(err)
			}

			fromPath := layerPath(from)
			toPath := layerPath(to)

			if err := confirmWrite(toPath, "Promote "+strconv.Itoa(len(wanted))+" chunks into "+toPath+"? This is a durable, append-only layer."); err != nil {
				return w.Fail(agerrors.New(agerrors.CodeIO, err.Error(), toPath))
			}

			src, err := layerfile.Open(fromPath)
			if err != nil {
				return w.Fail(err)
			}

			started := time.Now()
			res, err := ops.Promote(src, toPath, wanted, ops.PromoteOptions{})
			if err != nil {
				logFailure("promote", err)
				return w.Fail(err)
			}
			logMutation("promote", toPath, started, len(res.Promoted))

			return w.Result(res, func() {
				if len(res.Promoted) == 0 {
					w.Status("No chunks to promote")
					return
				}
				w.Successf("Promoted %d chunks from %s to %s", len(res.Promoted), fromPath, toPath)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source layer (base, user, delta, local, or a path)")
	cmd.Flags().StringVar(&to, "to", "user", "Destination layer (user or local)")
	cmd.Flags().StringVar(&ids, "ids", "", "Comma-separated chunk ids to promote")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("ids")

	return cmd
}
