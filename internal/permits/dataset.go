// Package permits aggregates building-permit counts by ZIP code, year and
// permit type and joins them onto ZIP boundary geometry.
package permits

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"permitmap/internal/figure"
	"permitmap/internal/geodoc"
	"permitmap/internal/naming"
)

// Range is the smallest and largest per-ZIP sum of one series.
type Range struct {
	Min int64
	Max int64
}

// RenderParams is everything the plotting step needs for one series.
type RenderParams struct {
	Field    string
	Geometry string
	MinCount int64
	MaxCount int64
}

// Options tunes how labels are derived.
type Options struct {
	// DisplayPrefix is stripped from raw permit types to build labels.
	// nil means naming.DefaultDisplayPrefix; an empty string strips nothing.
	DisplayPrefix *string
}

// Dataset is built once at startup and is read-only afterwards, so it can
// be shared by concurrent handlers.
type Dataset struct {
	years       []int
	permitTypes []string
	typeSet     map[string]struct{}
	labels      []naming.Label
	byLabel     map[string]string
	ranges      map[string]Range
	geometry    string
	features    int
}

// LoadFiles reads boundaries from a GeoJSON file and permits from a CSV file.
func LoadFiles(geoPath, csvPath string, opts Options) (*Dataset, error) {
	doc, err := geodoc.Load(geoPath)
	if err != nil {
		return nil, err
	}
	return Load(context.Background(), doc, CSVSource{Path: csvPath}, opts)
}

// Load pulls records from src and builds a Dataset over doc.
func Load(ctx context.Context, doc *geodoc.Document, src Source, opts Options) (*Dataset, error) {
	recs, err := src.Records(ctx)
	if err != nil {
		return nil, err
	}
	return New(doc, recs, opts)
}

// New aggregates recs and stamps one field per (year, permit type) and per
// (year, total) series onto doc. doc must not be used by the caller afterwards.
func New(doc *geodoc.Document, recs []Record, opts Options) (*Dataset, error) {
	if doc == nil {
		return nil, errors.New("permits: nil geometry")
	}
	if len(recs) == 0 {
		return nil, errors.New("permits: dataset is empty")
	}
	prefix := naming.DefaultDisplayPrefix
	if opts.DisplayPrefix != nil {
		prefix = *opts.DisplayPrefix
	}

	d := &Dataset{
		typeSet: make(map[string]struct{}),
		ranges:  make(map[string]Range),
	}

	// sums[year][permitType][zip]; the "total" entry aggregates every type.
	sums := make(map[int]map[string]map[int]int64)
	for _, r := range recs {
		if r.PermitType == "" {
			return nil, fmt.Errorf("permits: empty permit type for zip %d year %d", r.ZIP, r.Year)
		}
		byType, ok := sums[r.Year]
		if !ok {
			byType = make(map[string]map[int]int64)
			sums[r.Year] = byType
			d.years = append(d.years, r.Year)
		}
		for _, key := range []string{r.PermitType, naming.TotalPermitType} {
			byZIP, ok := byType[key]
			if !ok {
				byZIP = make(map[int]int64)
				byType[key] = byZIP
			}
			byZIP[r.ZIP] += r.Count
		}
		if _, ok := d.typeSet[r.PermitType]; !ok {
			d.typeSet[r.PermitType] = struct{}{}
			d.permitTypes = append(d.permitTypes, r.PermitType)
		}
	}
	sort.Ints(d.years)
	sort.Strings(d.permitTypes)

	if a, b, found := naming.FieldCollision(d.permitTypes); found {
		return nil, fmt.Errorf("permits: permit types %q and %q map to the same field", a, b)
	}
	labels, conflict, ok := naming.BuildLabels(prefix, d.permitTypes)
	if !ok {
		return nil, fmt.Errorf("permits: permit type %q has an empty or duplicate display label", conflict)
	}
	d.labels = labels
	d.byLabel = make(map[string]string, len(labels))
	for _, l := range labels {
		d.byLabel[l.Display] = l.Raw
	}

	series := append(append([]string(nil), d.permitTypes...), naming.TotalPermitType)
	for _, year := range d.years {
		for _, pt := range series {
			field := naming.BuildField(year, pt)
			byZIP := sums[year][pt]
			d.ranges[field] = rangeOf(byZIP)
			doc.AttachField(field, byZIP, 0)
		}
	}

	geometry, err := doc.Serialize()
	if err != nil {
		return nil, fmt.Errorf("permits: %w", err)
	}
	d.geometry = geometry
	d.features = doc.Len()
	return d, nil
}

// rangeOf returns the min and max of the sums; an absent series is (0, 0).
func rangeOf(byZIP map[int]int64) Range {
	first := true
	var r Range
	for _, v := range byZIP {
		if first {
			r = Range{Min: v, Max: v}
			first = false
			continue
		}
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
	}
	return r
}

// Years returns the distinct issue years in ascending order.
func (d *Dataset) Years() []int {
	return append([]int(nil), d.years...)
}

// LatestYear returns the most recent issue year.
func (d *Dataset) LatestYear() int {
	return d.years[len(d.years)-1]
}

// PermitTypes returns the distinct raw permit types in ascending order.
func (d *Dataset) PermitTypes() []string {
	return append([]string(nil), d.permitTypes...)
}

// Labels returns display labels in display order; "Total" is last.
func (d *Dataset) Labels() []string {
	out := make([]string, len(d.labels))
	for i, l := range d.labels {
		out[i] = l.Display
	}
	return out
}

// FeatureCount returns the number of boundary features.
func (d *Dataset) FeatureCount() int { return d.features }

// SeriesCount returns the number of precomputed fields.
func (d *Dataset) SeriesCount() int { return len(d.ranges) }

// HasYear reports whether year appears in the table.
func (d *Dataset) HasYear(year int) bool {
	i := sort.SearchInts(d.years, year)
	return i < len(d.years) && d.years[i] == year
}

// HasPermitType reports whether permitType is a raw type from the table or
// the total sentinel.
func (d *Dataset) HasPermitType(permitType string) bool {
	if permitType == naming.TotalPermitType {
		return true
	}
	_, ok := d.typeSet[permitType]
	return ok
}

// ResolveLabel maps a display label to its raw permit type.
func (d *Dataset) ResolveLabel(label string) (string, bool) {
	raw, ok := d.byLabel[label]
	return raw, ok
}

// LabelFor maps a raw permit type back to its display label.
func (d *Dataset) LabelFor(permitType string) (string, bool) {
	for _, l := range d.labels {
		if l.Raw == permitType {
			return l.Display, true
		}
	}
	return "", false
}

// Range returns the (min, max) of a precomputed field.
func (d *Dataset) Range(field string) (Range, bool) {
	r, ok := d.ranges[field]
	return r, ok
}

// GetRenderParams returns the field, geometry and color range for a series.
// year and permitType must already be validated with HasYear and
// HasPermitType.
func (d *Dataset) GetRenderParams(year int, permitType string) RenderParams {
	field := naming.BuildField(year, permitType)
	r := d.ranges[field]
	return RenderParams{
		Field:    field,
		Geometry: d.geometry,
		MinCount: r.Min,
		MaxCount: r.Max,
	}
}

// BuildPlot lays out the choropleth for one series. It panics when the
// selection was not validated first.
func (d *Dataset) BuildPlot(permitType string, year int) (*figure.Figure, error) {
	if !d.HasPermitType(permitType) {
		panic(fmt.Sprintf("permits: BuildPlot called with unknown permit type %q", permitType))
	}
	if !d.HasYear(year) {
		panic(fmt.Sprintf("permits: BuildPlot called with unknown year %d", year))
	}

	params := d.GetRenderParams(year, permitType)
	doc, err := geodoc.Parse([]byte(params.Geometry))
	if err != nil {
		return nil, fmt.Errorf("permits: decode geometry: %w", err)
	}
	label, _ := d.LabelFor(permitType)
	return figure.Build(doc, figure.Spec{
		Title:   fmt.Sprintf("%s - %d", label, year),
		Field:   params.Field,
		Low:     float64(params.MinCount),
		High:    float64(params.MaxCount),
		Palette: figure.Viridis6,
	})
}
