package geodoc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func square(x, y, size float64, clockwise bool) []shp.Point {
	pts := []shp.Point{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}, {X: x, Y: y}}
	if clockwise {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return pts
}

// writeShapes writes one polygon record per entry of parts, with a single
// string attribute named field.
func writeShapes(t *testing.T, field string, values []string, parts [][][]shp.Point) string {
	t.Helper()
	require.Len(t, parts, len(values))
	path := filepath.Join(t.TempDir(), "zips.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{shp.StringField(field, 10)}))
	for i, v := range values {
		poly := shp.Polygon(*shp.NewPolyLine(parts[i]))
		row := w.Write(&poly)
		require.NoError(t, w.WriteAttribute(int(row), 0, v))
	}
	w.Close()

	// go-shp v0.1.1 names the attribute table "<base>dbf" without the dot.
	base := strings.TrimSuffix(path, ".shp")
	if _, err := os.Stat(base + "dbf"); err == nil {
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	}
	_, err = os.Stat(base + ".dbf")
	require.NoError(t, err)
	return path
}

func writeShapefile(t *testing.T, field string, values []string) string {
	t.Helper()
	parts := make([][][]shp.Point, len(values))
	for i := range values {
		parts[i] = [][]shp.Point{square(float64(i), 0, 1, false)}
	}
	return writeShapes(t, field, values, parts)
}

func TestLoadShapefile(t *testing.T) {
	path := writeShapefile(t, "ZIP", []string{"60614", "60657"})

	doc, err := LoadShapefile(path, "zip")
	require.NoError(t, err)

	assert.Equal(t, []int{60614, 60657}, doc.ZIPs())
	feats := doc.Features()
	require.Len(t, feats, 2)
	// DBF padding is stripped from attribute values.
	assert.Equal(t, "60614", feats[0].Properties["ZIP"])
	assert.Equal(t, "60657", feats[1].Properties["zip"])

	poly, ok := feats[1].Geometry.(*geom.Polygon)
	require.True(t, ok)
	require.Equal(t, 1, poly.NumLinearRings())
	ring := poly.LinearRing(0)
	assert.Equal(t, 5, ring.NumCoords())
	assert.Equal(t, 1.0, ring.Coord(0).X())

	serialized, err := doc.Serialize()
	require.NoError(t, err)
	reparsed, err := Parse([]byte(serialized))
	require.NoError(t, err)
	assert.Equal(t, doc.ZIPs(), reparsed.ZIPs())
}

func TestLoadShapefile_CustomZIPField(t *testing.T) {
	path := writeShapefile(t, "ZIP5", []string{"60614"})

	doc, err := LoadShapefile(path, "zip5")
	require.NoError(t, err)
	assert.Equal(t, []int{60614}, doc.ZIPs())
	assert.Equal(t, "60614", doc.Features()[0].Properties["ZIP5"])
}

func TestLoadShapefile_MissingZIPField(t *testing.T) {
	path := writeShapefile(t, "NAME", []string{"north"})

	_, err := LoadShapefile(path, "zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip property: missing")
}

func TestLoadShapefile_MultiPart(t *testing.T) {
	path := writeShapes(t, "ZIP", []string{"60601", "60602"}, [][][]shp.Point{
		// outer ring with a hole
		{square(0, 0, 1, true), square(0.25, 0.25, 0.5, false)},
		// two separate outer rings
		{square(2, 0, 1, true), square(4, 0, 1, true)},
	})

	doc, err := LoadShapefile(path, "zip")
	require.NoError(t, err)
	feats := doc.Features()
	require.Len(t, feats, 2)

	withHole, ok := feats[0].Geometry.(*geom.Polygon)
	require.True(t, ok, "expected *geom.Polygon, got %T", feats[0].Geometry)
	assert.Equal(t, 2, withHole.NumLinearRings())

	split, ok := feats[1].Geometry.(*geom.MultiPolygon)
	require.True(t, ok, "expected *geom.MultiPolygon, got %T", feats[1].Geometry)
	require.Equal(t, 2, split.NumPolygons())
	assert.Equal(t, 1, split.Polygon(0).NumLinearRings())
	assert.Equal(t, 1, split.Polygon(1).NumLinearRings())

	serialized, err := doc.Serialize()
	require.NoError(t, err)
	assert.Contains(t, serialized, `"MultiPolygon"`)
	reparsed, err := Parse([]byte(serialized))
	require.NoError(t, err)
	assert.Equal(t, []int{60601, 60602}, reparsed.ZIPs())
}

func TestDBFValue(t *testing.T) {
	assert.Equal(t, "60614", dbfValue("60614\x00\x00\x00\x00\x00"))
	assert.Equal(t, "60614", dbfValue("  60614   "))
	assert.Equal(t, "", dbfValue("\x00\x00"))
}

func TestSignedArea(t *testing.T) {
	toCoords := func(pts []shp.Point) []geom.Coord {
		out := make([]geom.Coord, len(pts))
		for i, p := range pts {
			out[i] = geom.Coord{p.X, p.Y}
		}
		return out
	}
	assert.InDelta(t, 4.0, signedArea(toCoords(square(0, 0, 2, false))), 1e-9)
	assert.InDelta(t, -4.0, signedArea(toCoords(square(0, 0, 2, true))), 1e-9)
}
