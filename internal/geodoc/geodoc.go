// Package geodoc holds a ZIP-code boundary feature collection in memory and
// lets callers stamp per-ZIP values onto its features.
package geodoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// DefaultZIPProperty is the feature property holding the ZIP code.
const DefaultZIPProperty = "zip"

// Document is a feature collection keyed by ZIP code.
type Document struct {
	fc      *geojson.FeatureCollection
	zips    []int
	zipProp string
}

// Feature is a read-only view of one boundary.
type Feature struct {
	ZIP        int
	Geometry   geom.T
	Properties map[string]any
}

// Load reads a GeoJSON FeatureCollection from path.
func Load(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geojson %s: %w", path, err)
	}
	doc, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse geojson %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes GeoJSON bytes into a Document.
func Parse(b []byte) (*Document, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, err
	}
	return newDocument(&fc, DefaultZIPProperty)
}

func newDocument(fc *geojson.FeatureCollection, zipProp string) (*Document, error) {
	if len(fc.Features) == 0 {
		return nil, errors.New("feature collection is empty")
	}
	zips := make([]int, len(fc.Features))
	for i, f := range fc.Features {
		if f.Properties == nil {
			f.Properties = make(map[string]any)
		}
		zip, err := ParseZIP(f.Properties[zipProp])
		if err != nil {
			return nil, fmt.Errorf("feature %d: %s property: %w", i, zipProp, err)
		}
		zips[i] = zip
	}
	return &Document{fc: fc, zips: zips, zipProp: zipProp}, nil
}

// ParseZIP converts a ZIP attribute (JSON string or number) to an int.
func ParseZIP(v any) (int, error) {
	switch z := v.(type) {
	case nil:
		return 0, errors.New("missing")
	case float64:
		if z != math.Trunc(z) || z < 0 {
			return 0, fmt.Errorf("not a zip code: %v", z)
		}
		return int(z), nil
	case int:
		return z, nil
	case int64:
		return int(z), nil
	case string:
		s := strings.TrimSpace(z)
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) || f < 0 {
			return 0, fmt.Errorf("not a zip code: %q", z)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// Len returns the number of features.
func (d *Document) Len() int { return len(d.fc.Features) }

// ZIPs returns the ZIP code of every feature, in feature order.
func (d *Document) ZIPs() []int {
	out := make([]int, len(d.zips))
	copy(out, d.zips)
	return out
}

// Features returns views over every feature. Properties are shared with
// the document and must not be modified.
func (d *Document) Features() []Feature {
	out := make([]Feature, len(d.fc.Features))
	for i, f := range d.fc.Features {
		out[i] = Feature{ZIP: d.zips[i], Geometry: f.Geometry, Properties: f.Properties}
	}
	return out
}

// AttachField sets field on every feature to valueByZIP[zip], or def when
// the feature's ZIP has no entry.
func (d *Document) AttachField(field string, valueByZIP map[int]int64, def int64) {
	for i, f := range d.fc.Features {
		v, ok := valueByZIP[d.zips[i]]
		if !ok {
			v = def
		}
		f.Properties[field] = v
	}
}

// Serialize encodes the collection as a GeoJSON string.
func (d *Document) Serialize() (string, error) {
	b, err := json.Marshal(d.fc)
	if err != nil {
		return "", fmt.Errorf("encode geojson: %w", err)
	}
	return string(b), nil
}
