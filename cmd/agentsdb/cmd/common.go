package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agdblog"
	"github.com/agentsdb/agentsdb-go/internal/cliout"
	"github.com/agentsdb/agentsdb-go/internal/embed"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/layerset"
	"github.com/agentsdb/agentsdb-go/pkg/version"
)

const toolName = "agentsdb"

func toolVersion() string { return version.Version }

// writerFor builds the output writer for cmd, honoring --json.
func writerFor(cmd *cobra.Command) *cliout.Writer {
	return cliout.New(cmd.OutOrStdout(), jsonOutput)
}

// newEmbedder constructs the Embedder bound to the current global flags.
func newEmbedder() embed.Embedder {
	dim := embedDim
	if dim == 0 {
		dim = 256
	}
	opts := embed.DefaultOptions(dim)
	if embedderName != "" {
		opts.Backend = embed.BackendName(embedderName)
	}
	return embed.NewEmbedder(opts, logger)
}

// layerPath maps the shorthands base/user/delta/local to the standard
// layer file names under --root, returns p unchanged if it is absolute or
// contains a path separator, and otherwise joins p under --root.
func layerPath(p string) string {
	if p == "" {
		return p
	}
	if filepath.IsAbs(p) || strings.ContainsRune(p, filepath.Separator) {
		return p
	}
	switch p {
	case "base":
		return filepath.Join(rootDir, layerfile.BaseFileName)
	case "user":
		return filepath.Join(rootDir, layerfile.UserFileName)
	case "delta":
		return filepath.Join(rootDir, layerfile.DeltaFileName)
	case "local":
		return filepath.Join(rootDir, layerfile.LocalFileName)
	default:
		return filepath.Join(rootDir, p)
	}
}

// openSet opens the layer set under --root, validated against embedder.
func openSet(embedder embed.Embedder) (*layerset.LayerSet, error) {
	return layerset.OpenDir(rootDir, embedder)
}

// confirmWrite asks for interactive confirmation before a durable write
// into AGENTS.user.db, mirroring original_source's cmd_promote: skipped
// when --yes is set, when --json is set, or when stdin is not a TTY.
func confirmWrite(path, prompt string) error {
	if assumeYes || jsonOutput {
		return nil
	}
	if filepath.Base(path) != layerfile.UserFileName {
		return nil
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return nil
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	if line != "y" && line != "yes" {
		return fmt.Errorf("aborted")
	}
	return nil
}

func logMutation(op, path string, started time.Time, chunks int) {
	agdblog.MutationOp(logger, op, path, started, chunks)
}

func logFailure(op string, err error) {
	agdblog.Error(logger, op, err)
}

func parseKinds(s string) map[string]struct{} {
	if s == "" {
		return nil
	}
	out := make(map[string]struct{})
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}
