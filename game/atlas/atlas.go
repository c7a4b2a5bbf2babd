// Package atlas loads the port and storage location datasets from GeoJSON
// feature collections and resolves board squares against them.
package atlas

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/wricardo/co2-logistics-game/game/engine"
)

var ErrLocationNotFound = errors.New("location not found")

// Atlas is an immutable index of every known location
type Atlas struct {
	ports    []engine.Location
	storages []engine.Location
	byKey    map[engine.LocationKey]engine.Location
}

// New indexes already parsed locations
func New(ports, storages []engine.Location) *Atlas {
	a := &Atlas{
		ports:    slices.Clone(ports),
		storages: slices.Clone(storages),
		byKey:    make(map[engine.LocationKey]engine.Location, len(ports)+len(storages)),
	}
	for _, l := range a.ports {
		a.byKey[l.Key()] = l
	}
	for _, l := range a.storages {
		a.byKey[l.Key()] = l
	}
	return a
}

// Load reads both datasets from disk
func Load(portsPath, storagesPath string) (*Atlas, error) {
	ports, err := loadFile(engine.Port, portsPath)
	if err != nil {
		return nil, err
	}
	storages, err := loadFile(engine.Storage, storagesPath)
	if err != nil {
		return nil, err
	}
	return New(ports, storages), nil
}

func loadFile(kind engine.LocationKind, path string) ([]engine.Location, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s dataset: %w", kind, err)
	}
	defer f.Close()

	locs, err := Parse(kind, f)
	if err != nil {
		return nil, fmt.Errorf("%s dataset %s: %w", kind, path, err)
	}
	return locs, nil
}

// Parse decodes a GeoJSON feature collection into locations of one kind.
// IDs are the 1-based feature index. Coordinates come from the first vertex of
// each feature's geometry.
func Parse(kind engine.LocationKind, r io.Reader) ([]engine.Location, error) {
	var fc geom.GeoJSONFeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	locs := make([]engine.Location, 0, len(fc))
	for i, f := range fc {
		xy, ok := firstVertex(f.Geometry)
		if !ok {
			return nil, fmt.Errorf("feature %d has an empty geometry", i+1)
		}

		locs = append(locs, engine.Location{
			ID:   i + 1,
			Name: featureName(kind, i+1, f.Properties),
			Kind: kind,
			// GeoJSON stores [longitude, latitude]
			Coords: engine.Coordinates{Latitude: xy.Y, Longitude: xy.X},
		})
	}
	return locs, nil
}

func firstVertex(g geom.Geometry) (geom.XY, bool) {
	seq := g.DumpCoordinates()
	if seq.Length() == 0 {
		return geom.XY{}, false
	}
	return seq.GetXY(0), true
}

func featureName(kind engine.LocationKind, id int, props map[string]interface{}) string {
	keys := []string{"name"}
	fallback := fmt.Sprintf("物流センター #%d", id)
	if kind == engine.Port {
		keys = []string{"port", "name"}
		fallback = fmt.Sprintf("港 #%d", id)
	}

	for _, k := range keys {
		if s, ok := props[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return fallback
}

// Lookup returns the location with the given kind and id
func (a *Atlas) Lookup(kind engine.LocationKind, id int) (engine.Location, error) {
	l, ok := a.byKey[engine.LocationKey{Kind: kind, ID: id}]
	if !ok {
		return engine.Location{}, fmt.Errorf("%w: %s:%d", ErrLocationNotFound, kind, id)
	}
	return l, nil
}

// Resolve maps board squares to locations, in order
func (a *Atlas) Resolve(refs []engine.SquareRef) ([]engine.Location, error) {
	out := make([]engine.Location, 0, len(refs))
	for i, ref := range refs {
		l, err := a.Lookup(ref.Kind, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("square %d: %w", i+1, err)
		}
		out = append(out, l)
	}
	return out, nil
}

// List returns the locations of one kind, or every location when kind is empty
func (a *Atlas) List(kind engine.LocationKind) []engine.Location {
	switch kind {
	case engine.Port:
		return slices.Clone(a.ports)
	case engine.Storage:
		return slices.Clone(a.storages)
	case "":
		return slices.Concat(a.ports, a.storages)
	}
	return []engine.Location{}
}

// FindByName returns the first location of kind with an exact name match
func (a *Atlas) FindByName(kind engine.LocationKind, name string) (engine.Location, bool) {
	for _, l := range a.List(kind) {
		if l.Name == name {
			return l, true
		}
	}
	return engine.Location{}, false
}

// Len returns the number of locations of each kind
func (a *Atlas) Len() (ports, storages int) {
	return len(a.ports), len(a.storages)
}
