package permits

// Navigation holds the neighbours of a selection for previous/next
// controls. Both lists wrap around at their ends.
type Navigation struct {
	PrevLabel string
	NextLabel string
	PrevYear  int
	NextYear  int
}

// Navigate returns the labels and years adjacent to (label, year). Unknown
// values are treated as the first entry of their list.
func (d *Dataset) Navigate(label string, year int) Navigation {
	labels := d.Labels()
	li := 0
	for i, l := range labels {
		if l == label {
			li = i
			break
		}
	}
	yi := 0
	for i, y := range d.years {
		if y == year {
			yi = i
			break
		}
	}
	return Navigation{
		PrevLabel: labels[wrap(li-1, len(labels))],
		NextLabel: labels[wrap(li+1, len(labels))],
		PrevYear:  d.years[wrap(yi-1, len(d.years))],
		NextYear:  d.years[wrap(yi+1, len(d.years))],
	}
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}
