// Package layerset implements the layered store (C4): opening a named
// set of layers in precedence order and validating that they all share
// a compatible embedding profile.
package layerset

import (
	"os"
	"path/filepath"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/embed"
	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/layermeta"
)

// LayerSet is the set of opened layers present under a directory,
// accessible by LayerID.
type LayerSet struct {
	Dir    string
	layers map[layerfile.LayerID]*layerfile.LayerFile
}

// Get returns the opened layer for id, or nil if it wasn't present.
func (s *LayerSet) Get(id layerfile.LayerID) *layerfile.LayerFile {
	return s.layers[id]
}

// Open returns the precedence-ordered list of layers that are present
// (Local, User, Delta, Base).
func (s *LayerSet) Open() []*layerfile.LayerFile {
	out := make([]*layerfile.LayerFile, 0, 4)
	for _, id := range []layerfile.LayerID{layerfile.Local, layerfile.User, layerfile.Delta, layerfile.Base} {
		if lf := s.layers[id]; lf != nil {
			out = append(out, lf)
		}
	}
	return out
}

// Path returns the standard on-disk path for a layer under this set's
// directory, whether or not that layer is currently present.
func (s *LayerSet) Path(id layerfile.LayerID) string {
	for _, e := range layerfile.StandardFileNames {
		if e.Layer == id {
			return filepath.Join(s.Dir, e.Name)
		}
	}
	return ""
}

// OpenDir opens every standard layer file present under dir, in
// precedence order, validating that all present layers share a common
// embedding profile via the layer-metadata guard (C3). If embedder is
// nil, the first present layer's own declared profile is taken as
// ground truth instead of an external embedder's.
func OpenDir(dir string, embedder embed.Embedder) (*LayerSet, error) {
	set := &LayerSet{Dir: dir, layers: make(map[layerfile.LayerID]*layerfile.LayerFile, 4)}

	var referenceProfile *embed.EmbeddingProfile
	var referencePath string

	for _, e := range layerfile.StandardFileNames {
		path := filepath.Join(dir, e.Name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		lf, err := layerfile.Open(path)
		if err != nil {
			return nil, err
		}
		set.layers[e.Layer] = lf

		if lf.MetadataBytes() == nil {
			continue
		}
		meta, err := layermeta.FromJSONBytes(lf.MetadataBytes(), path)
		if err != nil {
			return nil, err
		}
		if referenceProfile == nil {
			referenceProfile = &meta.EmbeddingProfile
			referencePath = path
			continue
		}
		if !referenceProfile.Equal(meta.EmbeddingProfile) {
			return nil, agerrors.SchemaMismatch(
				"layer embedding profiles differ across the open layer set", path).
				WithDetail("reference", referencePath)
		}
	}

	if embedder != nil && referenceProfile != nil {
		want := embedder.Profile()
		if !referenceProfile.Equal(want) {
			return nil, agerrors.SchemaMismatch(
				"open layer set's embedding profile does not match the bound embedder", dir)
		}
	}

	return set, nil
}
