package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/ops"
)

// resetGlobals restores the package-level flag state between tests, since
// every command reads rootDir/jsonOutput/etc. as package globals rather
// than through cobra's PersistentPreRunE (tests invoke subcommands
// directly, without going through the root command's setup).
func resetGlobals(t *testing.T, rootDir_ string) {
	t.Helper()
	rootDir = rootDir_
	jsonOutput = true
	embedderName = ""
	embedDim = 8
	useIndex = true
	assumeYes = false
	debugLogging = false
	logger = nil
	loggingCleanup = nil
}

func runJSON(t *testing.T, cmd interface{ Execute() error }, out *bytes.Buffer) map[string]any {
	t.Helper()
	err := cmd.Execute()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	return decoded
}

func TestNewRootCmdRegistersAllSubcommands(t *testing.T) {
	root := NewRootCmd()
	want := []string{
		"collect", "compile", "write", "append", "promote", "remove", "diff",
		"export", "import", "index", "search", "inspect", "list", "validate",
		"reembed", "compact", "smash", "destroy", "init", "web",
	}
	for _, name := range want {
		found, _, err := root.Find([]string{name})
		require.NoErrorf(t, err, "subcommand %q should be registered", name)
		require.Equal(t, name, found.Name())
	}
}

func TestSplitCSV(t *testing.T) {
	require.Nil(t, splitCSV(""))
	require.Equal(t, []string{"a", "b", "c"}, splitCSV("a,b,c"))
	require.Equal(t, []string{"a", "b"}, splitCSV("a,,b,"))
}

func TestParseKinds(t *testing.T) {
	require.Nil(t, parseKinds(""))
	got := parseKinds("doc, code ,doc")
	require.Len(t, got, 2)
	_, ok := got["doc"]
	require.True(t, ok)
	_, ok = got["code"]
	require.True(t, ok)
}

func TestParseIDsCSV(t *testing.T) {
	ids, err := parseIDsCSV("1,2, 3")
	require.NoError(t, err)
	require.Equal(t, []layerfile.ChunkID{1, 2, 3}, ids)

	_, err = parseIDsCSV("")
	require.Error(t, err)

	_, err = parseIDsCSV("1,x")
	require.Error(t, err)
}

func TestParseLayersCSV(t *testing.T) {
	ids, err := parseLayersCSV("base,delta")
	require.NoError(t, err)
	require.Equal(t, []layerfile.LayerID{layerfile.Base, layerfile.Delta}, ids)

	_, err = parseLayersCSV("nonsense")
	require.Error(t, err)

	_, err = parseLayersCSV("")
	require.Error(t, err)
}

func TestLayerPathResolvesShorthandAndLiteral(t *testing.T) {
	rootDir = "/tmp/store"
	require.Equal(t, filepath.Join("/tmp/store", layerfile.BaseFileName), layerPath("base"))
	require.Equal(t, filepath.Join("/tmp/store", layerfile.UserFileName), layerPath("user"))
	require.Equal(t, filepath.Join("/tmp/store", layerfile.DeltaFileName), layerPath("delta"))
	require.Equal(t, filepath.Join("/tmp/store", layerfile.LocalFileName), layerPath("local"))
	require.Equal(t, "/abs/path.db", layerPath("/abs/path.db"))
	require.Equal(t, "", layerPath(""))
}

func TestSourceToString(t *testing.T) {
	require.Equal(t, "chunk:7", sourceToString(layerfile.NewProvenanceChunkID(7)))
	require.Equal(t, "src.go:12", sourceToString(layerfile.NewProvenanceSource("src.go:12")))
}

func TestOneLineTruncatesAndStripsNewlines(t *testing.T) {
	require.Equal(t, "a b", oneLine("a\nb"))
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	got := oneLine(string(long))
	require.Len(t, got, 123)
	require.Equal(t, "...", got[120:])
}

func TestConfirmWriteSkipsWhenJSONOrYes(t *testing.T) {
	jsonOutput = true
	assumeYes = false
	require.NoError(t, confirmWrite(filepath.Join("x", layerfile.UserFileName), "prompt"))

	jsonOutput = false
	assumeYes = true
	require.NoError(t, confirmWrite(filepath.Join("x", layerfile.UserFileName), "prompt"))

	jsonOutput = false
	assumeYes = false
	require.NoError(t, confirmWrite(filepath.Join("x", layerfile.DeltaFileName), "prompt"))
}

// writeTestBundle marshals an ops.CollectBundle to a temp JSON file and
// returns its path, for commands that read --bundle.
func writeTestBundle(t *testing.T, dir string, chunks ...string) string {
	t.Helper()
	bundle := ops.CollectBundle{
		Schema: layerfile.LayerSchema{Dim: 8, ElementType: layerfile.ElementF32, QuantScale: 1},
	}
	for _, c := range chunks {
		bundle.Chunks = append(bundle.Chunks, ops.CollectChunk{
			Kind: "doc", Content: c, Author: layerfile.AuthorHuman, Confidence: 1,
		})
	}
	data, err := json.Marshal(bundle)
	require.NoError(t, err)
	path := filepath.Join(dir, "bundle.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// TestCLIPipeline exercises init -> write -> search -> list -> inspect ->
// validate -> diff end to end against a real store directory, with the
// deterministic hash embedder so no network call is involved.
func TestCLIPipeline(t *testing.T) {
	dir := t.TempDir()
	resetGlobals(t, dir)

	var buf bytes.Buffer
	initCmd := newInitCmd()
	initCmd.SetOut(&buf)
	initCmd.SetArgs([]string{"--dim", "8"})
	runJSON(t, initCmd, &buf)
	require.FileExists(t, filepath.Join(dir, layerfile.BaseFileName))
	require.FileExists(t, filepath.Join(dir, ".agentsdb.yaml"))

	bundlePath := writeTestBundle(t, dir, "hello world", "goodbye world")

	buf.Reset()
	writeCmd := newWriteCmd()
	writeCmd.SetOut(&buf)
	writeCmd.SetArgs([]string{"delta", "--bundle", bundlePath})
	decoded := runJSON(t, writeCmd, &buf)
	ids, ok := decoded["assigned_ids"].([]any)
	require.True(t, ok)
	require.Len(t, ids, 2)

	buf.Reset()
	searchCmd := newSearchCmd()
	searchCmd.SetOut(&buf)
	searchCmd.SetArgs([]string{"--query", "hello", "--k", "5"})
	decoded = runJSON(t, searchCmd, &buf)
	results, ok := decoded["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 2)

	buf.Reset()
	listCmd := newListCmd()
	listCmd.SetOut(&buf)
	listCmd.SetArgs([]string{"--layer", "delta"})
	decoded = runJSON(t, listCmd, &buf)
	chunksOut, ok := decoded["chunks"].([]any)
	require.True(t, ok)
	require.Len(t, chunksOut, 2)

	buf.Reset()
	inspectCmd := newInspectCmd()
	inspectCmd.SetOut(&buf)
	decoded = runJSON(t, inspectCmd, &buf)
	layersOut, ok := decoded["layers"].([]any)
	require.True(t, ok)
	require.Len(t, layersOut, 4)

	buf.Reset()
	validateCmd := newValidateCmd()
	validateCmd.SetOut(&buf)
	require.NoError(t, validateCmd.Execute())
	var validated map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &validated))
	require.Equal(t, true, validated["ok"])

	buf.Reset()
	diffCmd := newDiffCmd()
	diffCmd.SetOut(&buf)
	diffCmd.SetArgs([]string{"--base", "base", "--delta", "delta"})
	decoded = runJSON(t, diffCmd, &buf)
	newIDs, ok := decoded["new_ids"].([]any)
	require.True(t, ok)
	require.Len(t, newIDs, 2)
}

// TestCLIPromoteRemoveCompactSmash covers the mutation commands that
// operate on an already-populated layer.
func TestCLIPromoteRemoveCompactSmash(t *testing.T) {
	dir := t.TempDir()
	resetGlobals(t, dir)

	bundlePath := writeTestBundle(t, dir, "alpha", "beta", "gamma")

	var buf bytes.Buffer
	writeCmd := newWriteCmd()
	writeCmd.SetOut(&buf)
	writeCmd.SetArgs([]string{"delta", "--bundle", bundlePath})
	decoded := runJSON(t, writeCmd, &buf)
	rawIDs := decoded["assigned_ids"].([]any)
	require.Len(t, rawIDs, 3)
	firstID := int(rawIDs[0].(float64))

	buf.Reset()
	promoteCmd := newPromoteCmd()
	promoteCmd.SetOut(&buf)
	promoteCmd.SetArgs([]string{"--from", "delta", "--to", "user", "--ids", strconv.Itoa(firstID)})
	decoded = runJSON(t, promoteCmd, &buf)
	promoted := decoded["promoted"].([]any)
	require.Len(t, promoted, 1)
	require.FileExists(t, filepath.Join(dir, layerfile.UserFileName))

	buf.Reset()
	removeCmd := newRemoveCmd()
	removeCmd.SetOut(&buf)
	secondID := int(rawIDs[1].(float64))
	removeCmd.SetArgs([]string{"delta", "--id", strconv.Itoa(secondID)})
	decoded = runJSON(t, removeCmd, &buf)
	require.Equal(t, true, decoded["removed"])

	buf.Reset()
	compactCmd := newCompactCmd()
	compactCmd.SetOut(&buf)
	compactCmd.SetArgs([]string{"delta"})
	decoded = runJSON(t, compactCmd, &buf)
	require.EqualValues(t, 2, decoded["before"])
	require.EqualValues(t, 2, decoded["after"])

	buf.Reset()
	smashCmd := newSmashCmd()
	smashCmd.SetOut(&buf)
	smashCmd.SetArgs([]string{"--out", "local"})
	decoded = runJSON(t, smashCmd, &buf)
	require.EqualValues(t, 2, decoded["chunks"])
	require.FileExists(t, filepath.Join(dir, layerfile.LocalFileName))
}

// TestCLIExportImportRoundTrip exports a populated delta layer to a JSON
// bundle and imports it into a fresh store directory.
func TestCLIExportImportRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	resetGlobals(t, srcDir)

	bundlePath := writeTestBundle(t, srcDir, "one", "two")
	var buf bytes.Buffer
	writeCmd := newWriteCmd()
	writeCmd.SetOut(&buf)
	writeCmd.SetArgs([]string{"delta", "--bundle", bundlePath})
	runJSON(t, writeCmd, &buf)

	exportPath := filepath.Join(srcDir, "export.json")
	buf.Reset()
	exportCmd := newExportCmd()
	exportCmd.SetOut(&buf)
	exportCmd.SetArgs([]string{"--layers", "delta", "--out", exportPath})
	require.NoError(t, exportCmd.Execute())
	require.FileExists(t, exportPath)

	dstDir := t.TempDir()
	resetGlobals(t, dstDir)

	buf.Reset()
	importCmd := newImportCmd()
	importCmd.SetOut(&buf)
	importCmd.SetArgs([]string{"--in", exportPath})
	decoded := runJSON(t, importCmd, &buf)
	assigned, ok := decoded["assigned_ids"].(map[string]any)
	require.True(t, ok)
	require.Len(t, assigned, 1)
	require.FileExists(t, filepath.Join(dstDir, layerfile.DeltaFileName))
}
