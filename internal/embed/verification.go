package embed

import (
	"regexp"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
)

var sha256HexRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// EnsureSha256Hex validates that s is exactly 64 lowercase hex characters.
func EnsureSha256Hex(s string) error {
	if !sha256HexRe.MatchString(s) {
		return agerrors.New(agerrors.CodeInvalidValue,
			"expected a 64-character lowercase hex sha256 digest", "").WithDetail("value", s)
	}
	return nil
}

// VerifyModelSha256 checks that a model's locally computed digest
// matches the one declared in its EmbedderMetadata. An empty declared
// digest is treated as "not pinned" and always passes.
func VerifyModelSha256(declared, computed string) error {
	if declared == "" {
		return nil
	}
	if err := EnsureSha256Hex(declared); err != nil {
		return err
	}
	if declared != computed {
		return agerrors.New(agerrors.CodeInvalidValue,
			"model sha256 does not match declared digest", "").
			WithDetail("declared", declared).WithDetail("computed", computed)
	}
	return nil
}
