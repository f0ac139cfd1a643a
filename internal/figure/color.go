package figure

import (
	"math"
	"strconv"
)

// Viridis6 is the six-step Viridis palette, low to high.
var Viridis6 = []string{"#440154", "#404387", "#29788E", "#22A784", "#79D151", "#FDE724"}

// ColorMapper maps [Low, High] linearly onto the palette steps. Values
// outside the range clamp to the first or last step.
type ColorMapper struct {
	Palette []string
	Low     float64
	High    float64
}

// Color returns the palette entry for v.
func (m ColorMapper) Color(v float64) string {
	n := len(m.Palette)
	if n == 0 {
		return ""
	}
	if math.IsNaN(v) || v <= m.Low || m.High <= m.Low {
		return m.Palette[0]
	}
	if v >= m.High {
		return m.Palette[n-1]
	}
	idx := int(math.Floor((v - m.Low) / (m.High - m.Low) * float64(n)))
	if idx >= n {
		idx = n - 1
	}
	return m.Palette[idx]
}

// Ticks returns round tick values inside [low, high], aiming for about
// desired intervals with steps of 1, 2 or 5 times a power of ten.
func Ticks(low, high float64, desired int) []float64 {
	if desired < 1 {
		desired = 1
	}
	if high < low {
		low, high = high, low
	}
	if high == low {
		return []float64{low}
	}

	raw := (high - low) / float64(desired)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := 10 * mag
	for _, m := range []float64{1, 2, 5} {
		if raw <= m*mag {
			step = m * mag
			break
		}
	}

	start := math.Ceil(low/step) * step
	var out []float64
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if v > high+step*1e-9 {
			break
		}
		out = append(out, math.Round(v/step)*step)
	}
	return out
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
