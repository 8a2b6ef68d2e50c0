package dictionary

import "testing"

func TestOverlaps(t *testing.T) {
	m := FromPairs(
		"T", "cipf",
		"TEA", "ciptea",
		"Visual", "passe_livre",
		"Baixa visual", "passe_livre",
	)

	got := Overlaps(m)
	if len(got) != 2 {
		t.Fatalf("len=%d: %+v", len(got), got)
	}
	if got[0].Shadowed.Key != "TEA" || got[0].By.Key != "T" {
		t.Fatalf("unexpected first overlap: %+v", got[0])
	}
	if got[1].Shadowed.Key != "BAIXA VISUAL" || got[1].By.Key != "VISUAL" {
		t.Fatalf("unexpected second overlap: %+v", got[1])
	}

	conflicts := Conflicting(got)
	if len(conflicts) != 1 || conflicts[0].Shadowed.Key != "TEA" {
		t.Fatalf("unexpected conflicts: %+v", conflicts)
	}
}

func TestOverlapsSpecificFirst(t *testing.T) {
	m := FromPairs("Baixa visual", "passe_livre", "Visual", "passe_livre")
	if got := Overlaps(m); len(got) != 0 {
		t.Fatalf("specific keys defined first must not be reported: %+v", got)
	}
}
