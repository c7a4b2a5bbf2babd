package atlas

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/co2-logistics-game/game/engine"
)

const portsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"port": "東京", "name": "Tokyo"}, "geometry": {"type": "Point", "coordinates": [139.77, 35.62]}},
    {"type": "Feature", "properties": {"name": "Osaka"}, "geometry": {"type": "Point", "coordinates": [135.43, 34.64]}},
    {"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [130.40, 33.60]}}
  ]
}`

const storagesJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Saitama DC"}, "geometry": {"type": "Point", "coordinates": [139.65, 35.86]}},
    {"type": "Feature", "properties": {"name": "  "}, "geometry": {"type": "Polygon", "coordinates": [[[136.9, 35.1], [137.0, 35.1], [137.0, 35.2], [136.9, 35.1]]]}}
  ]
}`

func testAtlas(t *testing.T) *Atlas {
	t.Helper()
	ports, err := Parse(engine.Port, strings.NewReader(portsJSON))
	require.NoError(t, err)
	storages, err := Parse(engine.Storage, strings.NewReader(storagesJSON))
	require.NoError(t, err)
	return New(ports, storages)
}

func TestParsePortNames(t *testing.T) {
	ports, err := Parse(engine.Port, strings.NewReader(portsJSON))
	require.NoError(t, err)
	require.Len(t, ports, 3)

	assert.Equal(t, "東京", ports[0].Name, "port property wins over name")
	assert.Equal(t, "Osaka", ports[1].Name)
	assert.Equal(t, "港 #3", ports[2].Name)

	assert.Equal(t, 1, ports[0].ID)
	assert.Equal(t, engine.Port, ports[0].Kind)
	assert.InDelta(t, 35.62, ports[0].Coords.Latitude, 1e-9)
	assert.InDelta(t, 139.77, ports[0].Coords.Longitude, 1e-9)
}

func TestParseStorageNamesAndPolygon(t *testing.T) {
	storages, err := Parse(engine.Storage, strings.NewReader(storagesJSON))
	require.NoError(t, err)
	require.Len(t, storages, 2)

	assert.Equal(t, "Saitama DC", storages[0].Name)
	assert.Equal(t, "物流センター #2", storages[1].Name)
	assert.InDelta(t, 35.1, storages[1].Coords.Latitude, 1e-9)
	assert.InDelta(t, 136.9, storages[1].Coords.Longitude, 1e-9)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse(engine.Port, strings.NewReader(`{"type": "nope"`))
	assert.Error(t, err)
}

func TestLookupAndResolve(t *testing.T) {
	a := testAtlas(t)

	p, err := a.Lookup(engine.Port, 2)
	require.NoError(t, err)
	assert.Equal(t, "Osaka", p.Name)

	s, err := a.Lookup(engine.Storage, 1)
	require.NoError(t, err)
	assert.False(t, p.SameAs(s))

	_, err = a.Lookup(engine.Storage, 9)
	assert.ErrorIs(t, err, ErrLocationNotFound)

	squares, err := a.Resolve([]engine.SquareRef{{Kind: engine.Storage, ID: 1}, {Kind: engine.Port, ID: 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Saitama DC", "東京"}, []string{squares[0].Name, squares[1].Name})

	_, err = a.Resolve([]engine.SquareRef{{Kind: engine.Port, ID: 42}})
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestListAndFind(t *testing.T) {
	a := testAtlas(t)

	assert.Len(t, a.List(engine.Port), 3)
	assert.Len(t, a.List(engine.Storage), 2)
	assert.Len(t, a.List(""), 5)
	assert.Empty(t, a.List("warehouse"))

	l, ok := a.FindByName(engine.Port, "東京")
	assert.True(t, ok)
	assert.Equal(t, 1, l.ID)

	_, ok = a.FindByName(engine.Storage, "東京")
	assert.False(t, ok)
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	portsPath := filepath.Join(dir, "ports.geojson")
	storagesPath := filepath.Join(dir, "storages.geojson")
	require.NoError(t, os.WriteFile(portsPath, []byte(portsJSON), 0644))
	require.NoError(t, os.WriteFile(storagesPath, []byte(storagesJSON), 0644))

	a, err := Load(portsPath, storagesPath)
	require.NoError(t, err)
	ports, storages := a.Len()
	assert.Equal(t, 3, ports)
	assert.Equal(t, 2, storages)

	_, err = Load(filepath.Join(dir, "missing.geojson"), storagesPath)
	assert.Error(t, err)
}
