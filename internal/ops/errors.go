package ops

import "github.com/agentsdb/agentsdb-go/internal/agerrors"

func schemaMismatch(path, message string) error {
	return agerrors.SchemaMismatch(message, path)
}
