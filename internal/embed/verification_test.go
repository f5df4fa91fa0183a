package embed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureSha256HexAcceptsMatch(t *testing.T) {
	digest := strings.Repeat("a", 64)
	assert.NoError(t, EnsureSha256Hex(digest))
}

func TestEnsureSha256HexRejectsUppercase(t *testing.T) {
	digest := strings.Repeat("A", 64)
	assert.Error(t, EnsureSha256Hex(digest))
}

func TestEnsureSha256HexRejectsWrongLength(t *testing.T) {
	assert.Error(t, EnsureSha256Hex(strings.Repeat("a", 63)))
	assert.Error(t, EnsureSha256Hex(strings.Repeat("a", 65)))
}

func TestVerifyModelSha256(t *testing.T) {
	digest := strings.Repeat("b", 64)
	assert.NoError(t, VerifyModelSha256("", "anything"))
	assert.NoError(t, VerifyModelSha256(digest, digest))
	assert.Error(t, VerifyModelSha256(digest, strings.Repeat("c", 64)))
}
