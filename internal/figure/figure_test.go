package figure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permitmap/internal/geodoc"
)

const squares = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"zip": "10001"},
     "geometry": {"type": "Polygon", "coordinates": [[[-87.70,41.90],[-87.60,41.90],[-87.60,42.00],[-87.70,42.00],[-87.70,41.90]]]}},
    {"type": "Feature", "properties": {"zip": "10002"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[-87.60,41.90],[-87.50,41.90],[-87.50,42.00],[-87.60,42.00],[-87.60,41.90]]]]}}
  ]
}`

func TestColorMapper(t *testing.T) {
	m := ColorMapper{Palette: Viridis6, Low: 0, High: 60}

	assert.Equal(t, Viridis6[0], m.Color(-5), "below range clamps low")
	assert.Equal(t, Viridis6[0], m.Color(0))
	assert.Equal(t, Viridis6[0], m.Color(9.99))
	assert.Equal(t, Viridis6[1], m.Color(10))
	assert.Equal(t, Viridis6[3], m.Color(35))
	assert.Equal(t, Viridis6[5], m.Color(59.9))
	assert.Equal(t, Viridis6[5], m.Color(60))
	assert.Equal(t, Viridis6[5], m.Color(1000), "above range clamps high")
}

func TestColorMapper_DegenerateRange(t *testing.T) {
	m := ColorMapper{Palette: Viridis6, Low: 4, High: 4}
	assert.Equal(t, Viridis6[0], m.Color(4))

	assert.Equal(t, "", ColorMapper{}.Color(1))
}

func TestTicks(t *testing.T) {
	assert.Equal(t, []float64{0, 20, 40, 60, 80, 100}, Ticks(0, 100, 5))
	assert.Equal(t, []float64{3, 3.5, 4, 4.5, 5}, Ticks(3, 5, 5))
	assert.Equal(t, []float64{200, 400}, Ticks(137, 412, 2))
	assert.Equal(t, []float64{7}, Ticks(7, 7, 5))
	assert.Equal(t, Ticks(0, 100, 5), Ticks(100, 0, 5))
}

func TestBuild(t *testing.T) {
	doc, err := geodoc.Parse([]byte(squares))
	require.NoError(t, err)
	doc.AttachField("permitnew__2020", map[int]int64{10001: 3, 10002: 5}, 0)

	fig, err := Build(doc, Spec{Title: "New - 2020", Field: "permitnew__2020", Low: 3, High: 5})
	require.NoError(t, err)

	require.Len(t, fig.Patches, 2)
	first, second := fig.Patches[0], fig.Patches[1]
	assert.Equal(t, 10001, first.ZIP)
	assert.Equal(t, Viridis6[0], first.Fill)
	assert.Equal(t, Viridis6[5], second.Fill)
	assert.Equal(t, []Tooltip{{"Zip Code", "10001"}, {"New - 2020", "3"}}, first.Tooltips)
	assert.True(t, strings.HasPrefix(first.Path, "M"))
	assert.True(t, strings.HasSuffix(first.Path, "Z"))

	// The two squares share an edge: the first ends where the second starts.
	assert.Contains(t, first.Path, "310.00,")
	assert.Contains(t, second.Path, "M310.00,")

	assert.Equal(t, 0.7, fig.FillAlpha)
	assert.Equal(t, "white", fig.LineColor)
	assert.Greater(t, fig.ColorBar.X, 600.0)
	assert.Len(t, fig.ColorBar.Swatches, len(Viridis6))
	require.NotEmpty(t, fig.ColorBar.Ticks)
	assert.Equal(t, "3", fig.ColorBar.Ticks[0].Label)
	assert.InDelta(t, fig.ColorBar.Y+fig.ColorBar.Height, fig.ColorBar.Ticks[0].Y, 1e-9)
	assert.True(t, strings.HasPrefix(fig.ViewBox(), "0 0 "))
}

func TestBuild_MissingField(t *testing.T) {
	doc, err := geodoc.Parse([]byte(squares))
	require.NoError(t, err)

	_, err = Build(doc, Spec{Field: "nope__2020"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope__2020")
}

func TestBuild_NoPolygons(t *testing.T) {
	doc, err := geodoc.Parse([]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"zip":"1"},"geometry":{"type":"Point","coordinates":[0,0]}}]}`))
	require.NoError(t, err)

	_, err = Build(doc, Spec{Field: "x"})
	require.Error(t, err)
}
