package collect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirChunksCodeAndMarkdown(t *testing.T) {
	dir := t.TempDir()
	goSrc := "package foo\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.go"), []byte(goSrc), 0o644))

	mdSrc := "# Title\n\nSome notes.\n\n## Section\n\nMore notes.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte(mdSrc), 0o644))

	bundle, skipped, err := Dir(context.Background(), dir, Options{})
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.NotEmpty(t, bundle.Chunks)

	var sawCode, sawNote bool
	for _, c := range bundle.Chunks {
		require.NotEmpty(t, c.Content)
		require.Len(t, c.Sources, 1)
		require.Equal(t, "source_string", c.Sources[0].Type)
		switch c.Kind {
		case "code":
			sawCode = true
		case "note":
			sawNote = true
		}
	}
	require.True(t, sawCode, "expected at least one code chunk")
	require.True(t, sawNote, "expected at least one note chunk")
}

func TestDirSkipsBinaryFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.bin"), []byte{0x00, 0x01, 0x02, 'x'}, 0o644))

	bundle, skipped, err := Dir(context.Background(), dir, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, skipped)
	require.Empty(t, bundle.Chunks)
}

func TestDirFallsBackToUnsupportedLanguage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("just plain text content here"), 0o644))

	bundle, skipped, err := Dir(context.Background(), dir, Options{})
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Len(t, bundle.Chunks, 1)
	require.Equal(t, "note", bundle.Chunks[0].Kind)
}

func TestDirPrunesSkippedDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "config"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("kept"), 0o644))

	bundle, _, err := Dir(context.Background(), dir, Options{})
	require.NoError(t, err)
	require.Len(t, bundle.Chunks, 1)
	require.Contains(t, bundle.Chunks[0].Sources[0].Value, "a.txt")
}
