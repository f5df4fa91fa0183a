package agerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesCategory(t *testing.T) {
	cases := []struct {
		code string
		want Category
	}{
		{CodeBadMagic, CategoryFormat},
		{CodeTruncated, CategoryFormat},
		{CodeSchemaMismatch, CategorySchema},
		{CodePermissionDenied, CategoryPermission},
		{CodeIO, CategoryIO},
	}
	for _, tc := range cases {
		err := New(tc.code, "boom", "/tmp/x")
		assert.Equal(t, tc.want, err.Category)
	}
}

func TestErrorMessageIncludesPath(t *testing.T) {
	err := New(CodeBadMagic, "bad magic", "/tmp/AGENTS.db")
	assert.Contains(t, err.Error(), "/tmp/AGENTS.db")
	assert.Contains(t, err.Error(), "FMT_BAD_MAGIC")
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(CodeBadMagic, "one", "a")
	b := New(CodeBadMagic, "two", "b")
	c := New(CodeTruncated, "three", "c")
	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(CodeIO, "/tmp/f", cause)
	require.NotNil(t, wrapped)
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.True(t, errors.Is(wrapped, wrapped))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeIO, "/tmp/f", nil))
}

func TestCategoryPredicates(t *testing.T) {
	assert.True(t, IsFormat(New(CodeBadMagic, "x", "")))
	assert.True(t, IsSchema(New(CodeSchemaMismatch, "x", "")))
	assert.True(t, IsPermission(New(CodePermissionDenied, "x", "")))
	assert.False(t, IsFormat(errors.New("plain")))
}

func TestGetCodeAndCategory(t *testing.T) {
	err := New(CodeInvalidChunkID, "bad id", "")
	assert.Equal(t, CodeInvalidChunkID, GetCode(err))
	assert.Equal(t, CategoryFormat, GetCategory(err))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}
