package agerrors

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLIIncludesCode(t *testing.T) {
	err := New(CodeSchemaMismatch, "dim mismatch", "/tmp/AGENTS.user.db")
	s := FormatForCLI(err)
	assert.Contains(t, s, "dim mismatch")
	assert.Contains(t, s, "SCHEMA_MISMATCH")
	assert.Contains(t, s, "/tmp/AGENTS.user.db")
}

func TestFormatJSONEnvelope(t *testing.T) {
	err := New(CodePermissionDenied, "writes are not permitted", "AGENTS.db")
	b, marshalErr := FormatJSONEnvelope(err)
	require.NoError(t, marshalErr)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, false, out["ok"])
	assert.Contains(t, out["error"], "writes are not permitted")
}

func TestFormatForLogIncludesDetails(t *testing.T) {
	err := New(CodeInvalidRange, "bad range", "layer.db").WithDetail("field", "chunk_table")
	m := FormatForLog(err)
	assert.Equal(t, CodeInvalidRange, m["error_code"])
	assert.Equal(t, "layer.db", m["path"])
	assert.Equal(t, "chunk_table", m["detail_field"])
}
