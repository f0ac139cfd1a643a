package geodoc

import (
	"errors"
	"fmt"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// LoadShapefile reads polygon boundaries from an ESRI shapefile. Coordinates
// must already be WGS-84 longitude/latitude. Every DBF attribute becomes a
// feature property; zipField names the attribute holding the ZIP code, which
// is also copied to the "zip" property so the serialized collection parses
// like any other boundary file.
func LoadShapefile(path, zipField string) (*Document, error) {
	if zipField == "" {
		zipField = DefaultZIPProperty
	}
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer r.Close()

	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		// DBF field names are NUL padded.
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	fc := &geojson.FeatureCollection{}
	for r.Next() {
		idx, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		g, err := polygonFromShape(poly)
		if err != nil {
			return nil, fmt.Errorf("shapefile %s record %d: %w", path, idx, err)
		}
		props := make(map[string]any, len(names))
		for i, name := range names {
			props[name] = dbfValue(r.ReadAttribute(idx, i))
		}
		if name := matchField(names, zipField); name != "" {
			props[DefaultZIPProperty] = props[name]
		}
		fc.Features = append(fc.Features, &geojson.Feature{Geometry: g, Properties: props})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", path, err)
	}

	doc, err := newDocument(fc, DefaultZIPProperty)
	if err != nil {
		return nil, fmt.Errorf("shapefile %s: %s field: %w", path, zipField, err)
	}
	return doc, nil
}

// matchField finds the DBF field matching want case-insensitively.
func matchField(names []string, want string) string {
	for _, n := range names {
		if strings.EqualFold(n, want) {
			return n
		}
	}
	return ""
}

// dbfValue strips the NUL and space padding of a fixed-width DBF value.
func dbfValue(v string) string {
	return strings.Trim(v, " \x00")
}

// polygonFromShape groups shapefile parts into polygons. Clockwise rings
// start a new polygon and counter-clockwise rings are holes of the current
// one. A single polygon is returned as *geom.Polygon, several as
// *geom.MultiPolygon.
func polygonFromShape(p *shp.Polygon) (geom.T, error) {
	numParts := len(p.Parts)
	if numParts == 0 || len(p.Points) == 0 {
		return nil, errors.New("polygon has no points")
	}
	var polys [][][]geom.Coord
	for partIdx := 0; partIdx < numParts; partIdx++ {
		start := p.Parts[partIdx]
		end := int32(len(p.Points))
		if partIdx+1 < numParts {
			end = p.Parts[partIdx+1]
		}
		if start < 0 || end > int32(len(p.Points)) || start >= end {
			return nil, fmt.Errorf("part %d has invalid bounds", partIdx)
		}
		ring := make([]geom.Coord, 0, end-start)
		for i := start; i < end; i++ {
			pt := p.Points[i]
			ring = append(ring, geom.Coord{pt.X, pt.Y})
		}
		if len(polys) == 0 || signedArea(ring) < 0 {
			polys = append(polys, [][]geom.Coord{ring})
			continue
		}
		last := len(polys) - 1
		polys[last] = append(polys[last], ring)
	}
	if len(polys) == 1 {
		poly, err := geom.NewPolygon(geom.XY).SetCoords(polys[0])
		if err != nil {
			return nil, err
		}
		return poly, nil
	}
	multi, err := geom.NewMultiPolygon(geom.XY).SetCoords(polys)
	if err != nil {
		return nil, err
	}
	return multi, nil
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring []geom.Coord) float64 {
	var a float64
	for i := range ring {
		j := (i + 1) % len(ring)
		a += ring[i].X()*ring[j].Y() - ring[j].X()*ring[i].Y()
	}
	return a / 2
}
