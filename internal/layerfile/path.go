package layerfile

import (
	"path/filepath"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
)

const (
	BaseFileName  = "AGENTS.db"
	UserFileName  = "AGENTS.user.db"
	DeltaFileName = "AGENTS.delta.db"
	LocalFileName = "AGENTS.local.db"
)

// StandardFileNames maps the standard on-disk file names to their
// logical layer, in precedence order.
var StandardFileNames = []struct {
	Name  string
	Layer LayerID
}{
	{LocalFileName, Local},
	{UserFileName, User},
	{DeltaFileName, Delta},
	{BaseFileName, Base},
}

// LogicalLayerForPath maps a layer file's base name to its LayerID.
func LogicalLayerForPath(path string) (LayerID, bool) {
	name := filepath.Base(path)
	for _, e := range StandardFileNames {
		if e.Name == name {
			return e.Layer, true
		}
	}
	return 0, false
}

// SidecarPath returns the default sidecar index path for a layer file.
func SidecarPath(layerPath string) string {
	return layerPath + ".agix"
}

// EnsureWritableLayerPath rejects AGENTS.db (Base is always read-only) and
// AGENTS.user.db: ordinary write/append targets Delta or Local only, since
// User is reserved for human-curated content arriving via promote.
func EnsureWritableLayerPath(path string) error {
	name := filepath.Base(path)
	if name == BaseFileName || name == UserFileName {
		return agerrors.PermissionDenied(path)
	}
	return nil
}

// EnsureWritableLayerPathAllowUser additionally accepts AGENTS.user.db,
// for operations (promote) that are permitted to write into User.
func EnsureWritableLayerPathAllowUser(path string) error {
	if filepath.Base(path) == BaseFileName {
		return agerrors.PermissionDenied(path)
	}
	return nil
}
