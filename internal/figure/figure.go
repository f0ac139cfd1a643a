// Package figure lays out a choropleth map of ZIP boundaries as drawable
// SVG primitives: one filled patch per feature plus a vertical color bar.
package figure

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"

	"permitmap/internal/geodoc"
)

const (
	defaultWidth  = 600.0
	padding       = 10.0
	colorBarGap   = 24.0
	colorBarWidth = 18.0
	tickLabelRoom = 64.0
	desiredTicks  = 5
)

// Spec selects the series to draw and how to color it.
type Spec struct {
	Title   string
	Field   string
	Low     float64
	High    float64
	Palette []string
	// Width of the map area in view box units.
	Width float64
}

// Tooltip is one "label: value" row shown on hover.
type Tooltip struct {
	Label string
	Value string
}

// Patch is one ZIP boundary.
type Patch struct {
	ZIP      int
	Path     string
	Fill     string
	Value    float64
	Tooltips []Tooltip
}

// Swatch is one palette step of the color bar.
type Swatch struct {
	Y      float64
	Height float64
	Color  string
}

// Tick is a labelled position on the color bar.
type Tick struct {
	Y     float64
	Label string
}

// ColorBar is drawn to the right of the map.
type ColorBar struct {
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Swatches []Swatch
	Ticks    []Tick
}

// Figure is a fully laid out choropleth. Coordinates are view box units.
type Figure struct {
	Title     string
	Field     string
	Width     float64
	Height    float64
	FillAlpha float64
	LineColor string
	LineWidth float64
	Patches   []Patch
	ColorBar  ColorBar
}

// ViewBox formats the SVG viewBox attribute.
func (f *Figure) ViewBox() string {
	return "0 0 " + coord(f.Width) + " " + coord(f.Height)
}

// Build projects every feature of doc and colors it by spec.Field.
func Build(doc *geodoc.Document, spec Spec) (*Figure, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	palette := spec.Palette
	if len(palette) == 0 {
		palette = Viridis6
	}
	width := spec.Width
	if width <= 0 {
		width = defaultWidth
	}

	proj := s2.NewMercatorProjection(180)
	feats := doc.Features()
	projected := make([][][]r2.Point, len(feats))
	bounds := r2.EmptyRect()
	for i, f := range feats {
		for _, ring := range rings(f.Geometry) {
			pts := make([]r2.Point, 0, len(ring))
			for _, c := range ring {
				p := proj.FromLatLng(s2.LatLngFromDegrees(c.Y(), c.X()))
				pts = append(pts, p)
				bounds = bounds.AddPoint(p)
			}
			projected[i] = append(projected[i], pts)
		}
	}
	if bounds.IsEmpty() {
		return nil, errors.New("document has no polygon geometry")
	}
	size := bounds.Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.New("document geometry has zero extent")
	}

	scale := width / size.X
	mapHeight := size.Y * scale
	lo, hi := bounds.Lo(), bounds.Hi()
	toView := func(p r2.Point) (float64, float64) {
		return (p.X-lo.X)*scale + padding, (hi.Y-p.Y)*scale + padding
	}

	mapper := ColorMapper{Palette: palette, Low: spec.Low, High: spec.High}
	fig := &Figure{
		Title:     spec.Title,
		Field:     spec.Field,
		Width:     width + 2*padding + colorBarGap + colorBarWidth + tickLabelRoom,
		Height:    mapHeight + 2*padding,
		FillAlpha: 0.7,
		LineColor: "white",
		LineWidth: 0.5,
		Patches:   make([]Patch, 0, len(feats)),
	}

	for i, f := range feats {
		if len(projected[i]) == 0 {
			continue
		}
		v, ok := numeric(f.Properties[spec.Field])
		if !ok {
			return nil, fmt.Errorf("feature zip %d has no numeric %q", f.ZIP, spec.Field)
		}
		var sb strings.Builder
		for _, ring := range projected[i] {
			for j, p := range ring {
				x, y := toView(p)
				if j == 0 {
					sb.WriteString("M")
				} else {
					sb.WriteString(" L")
				}
				sb.WriteString(coord(x))
				sb.WriteByte(',')
				sb.WriteString(coord(y))
			}
			sb.WriteString(" Z ")
		}
		fig.Patches = append(fig.Patches, Patch{
			ZIP:   f.ZIP,
			Path:  strings.TrimSpace(sb.String()),
			Fill:  mapper.Color(v),
			Value: v,
			Tooltips: []Tooltip{
				{Label: "Zip Code", Value: strconv.Itoa(f.ZIP)},
				{Label: spec.Title, Value: formatValue(v)},
			},
		})
	}

	fig.ColorBar = buildColorBar(mapper, width+2*padding+colorBarGap, padding, mapHeight)
	return fig, nil
}

func buildColorBar(m ColorMapper, x, y, height float64) ColorBar {
	cb := ColorBar{X: x, Y: y, Width: colorBarWidth, Height: height}
	n := len(m.Palette)
	step := height / float64(n)
	for i, c := range m.Palette {
		cb.Swatches = append(cb.Swatches, Swatch{
			Y:      y + height - float64(i+1)*step,
			Height: step,
			Color:  c,
		})
	}
	span := m.High - m.Low
	for _, v := range Ticks(m.Low, m.High, desiredTicks) {
		pos := y + height
		if span > 0 {
			pos -= (v - m.Low) / span * height
		}
		cb.Ticks = append(cb.Ticks, Tick{Y: pos, Label: formatValue(v)})
	}
	return cb
}

// rings flattens polygonal geometry into coordinate rings. Other geometry
// types have no area and yield nothing.
func rings(g geom.T) [][]geom.Coord {
	switch t := g.(type) {
	case *geom.Polygon:
		return t.Coords()
	case *geom.MultiPolygon:
		var out [][]geom.Coord
		for _, poly := range t.Coords() {
			out = append(out, poly...)
		}
		return out
	default:
		return nil
	}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
