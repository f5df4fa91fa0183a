package layerfile

import (
	"os"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
)

func writeFileForTest(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}

func codeOf(err error) string {
	return agerrors.GetCode(err)
}
