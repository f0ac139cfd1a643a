package naming

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TotalPermitType is the sentinel raw permit type for the all-types series.
const TotalPermitType = "total"

// DefaultDisplayPrefix is stripped from raw permit types to build labels.
const DefaultDisplayPrefix = "PERMIT - "

// BuildField returns the feature property name for a (year, permit type) series.
// The permit type is lowercased and every non-alphanumeric rune is dropped.
func BuildField(year int, permitType string) string {
	var sb strings.Builder
	sb.Grow(len(permitType) + 8)
	for _, r := range strings.ToLower(permitType) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	sb.WriteString("__")
	sb.WriteString(strconv.Itoa(year))
	return sb.String()
}

// DisplayLabel turns a raw permit type into a human-readable label.
func DisplayLabel(prefix, permitType string) string {
	label := strings.TrimSpace(strings.TrimPrefix(permitType, prefix))
	if label == "" {
		return ""
	}
	return cases.Title(language.English).String(label)
}

// Label is one entry of an ordered label -> raw permit type mapping.
type Label struct {
	Display string
	Raw     string
}

// BuildLabels maps each permit type to its display label, in input order,
// and appends the "Total" entry. ok is false when two raw types share a
// label or a label comes out empty; the offending raw type is returned.
func BuildLabels(prefix string, permitTypes []string) (labels []Label, conflict string, ok bool) {
	seen := make(map[string]struct{}, len(permitTypes)+1)
	labels = make([]Label, 0, len(permitTypes)+1)
	for _, raw := range append(append([]string(nil), permitTypes...), TotalPermitType) {
		display := DisplayLabel(prefix, raw)
		if display == "" {
			return nil, raw, false
		}
		if _, dup := seen[display]; dup {
			return nil, raw, false
		}
		seen[display] = struct{}{}
		labels = append(labels, Label{Display: display, Raw: raw})
	}
	return labels, "", true
}

// FieldCollision reports the first pair of permit types that normalize to
// the same field name, including collisions with the total series.
func FieldCollision(permitTypes []string) (a, b string, found bool) {
	byField := make(map[string]string, len(permitTypes)+1)
	byField[BuildField(0, TotalPermitType)] = TotalPermitType
	for _, pt := range permitTypes {
		f := BuildField(0, pt)
		if prev, ok := byField[f]; ok {
			return prev, pt, true
		}
		byField[f] = pt
	}
	return "", "", false
}
