package naming

import "testing"

func TestBuildField(t *testing.T) {
	if got := BuildField(2020, "PERMIT - NEW"); got != "permitnew__2020" {
		t.Fatalf("expected permitnew__2020, got %q", got)
	}
	if got := BuildField(2019, TotalPermitType); got != "total__2019" {
		t.Fatalf("expected total__2019, got %q", got)
	}
}

func TestBuildField_IgnoresCaseAndPunctuation(t *testing.T) {
	a := BuildField(2021, "Electric Wiring")
	b := BuildField(2021, "ELECTRIC-WIRING!")
	if a != b {
		t.Fatalf("expected equal fields, got %q and %q", a, b)
	}
	if BuildField(2021, "Electric Wiring") != a {
		t.Fatalf("expected BuildField to be deterministic")
	}
}

func TestDisplayLabel(t *testing.T) {
	cases := map[string]string{
		"PERMIT - NEW CONSTRUCTION": "New Construction",
		"PERMIT - NEW":              "New",
		"total":                     "Total",
		"SIGNS":                     "Signs",
	}
	for raw, want := range cases {
		if got := DisplayLabel(DefaultDisplayPrefix, raw); got != want {
			t.Fatalf("DisplayLabel(%q): expected %q, got %q", raw, want, got)
		}
	}
}

func TestBuildLabels_AppendsTotal(t *testing.T) {
	labels, _, ok := BuildLabels(DefaultDisplayPrefix, []string{"PERMIT - NEW", "PERMIT - SIGNS"})
	if !ok {
		t.Fatalf("expected ok")
	}
	want := []Label{{"New", "PERMIT - NEW"}, {"Signs", "PERMIT - SIGNS"}, {"Total", "total"}}
	if len(labels) != len(want) {
		t.Fatalf("expected %v, got %v", want, labels)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, labels)
		}
	}
}

func TestBuildLabels_RejectsDuplicates(t *testing.T) {
	_, conflict, ok := BuildLabels(DefaultDisplayPrefix, []string{"PERMIT - NEW", "new"})
	if ok {
		t.Fatalf("expected duplicate label to be rejected")
	}
	if conflict != "new" {
		t.Fatalf("expected conflict on %q, got %q", "new", conflict)
	}
}

func TestFieldCollision(t *testing.T) {
	if _, _, found := FieldCollision([]string{"PERMIT - NEW", "PERMIT - SIGNS"}); found {
		t.Fatalf("expected no collision")
	}
	a, b, found := FieldCollision([]string{"PERMIT - NEW", "permit new"})
	if !found || a != "PERMIT - NEW" || b != "permit new" {
		t.Fatalf("expected collision between the two spellings, got %q %q %v", a, b, found)
	}
	if _, _, found := FieldCollision([]string{"TOTAL"}); !found {
		t.Fatalf("expected collision with the total series")
	}
}
