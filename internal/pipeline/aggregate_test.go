package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"painel/internal"
	"painel/internal/dictionary"
)

func newTestMatcher(t *testing.T, registryCSV string) (*Matcher, *Aggregation) {
	t.Helper()
	reg := mustRegistry(t, registryCSV)
	classifier, err := NewClassifier(dictionary.FromPairs(
		"TEA", "ciptea",
		"AUTISMO", "ciptea",
		"FISICA", "cipf",
		"VISUAL", "passe_livre",
	))
	if err != nil {
		t.Fatal(err)
	}
	aliases := dictionary.FromPairs("APAE", "Associação Alfa")
	return NewMatcher(NewInstitutionResolver(aliases, reg), classifier), NewAggregation(reg)
}

func TestApplyThreeRows(t *testing.T) {
	m, agg := newTestMatcher(t, "nome\nAlfa\n")

	rows := []Fields{
		{LineNo: 2, Institution: "Alfa", Disability: "TEA", Age: "30"},
		{LineNo: 3, Institution: "Alfa", Disability: "???", Age: "30"},
		{LineNo: 4, Institution: "Alfa", Disability: "TEA", Age: "n/a"},
	}
	for _, f := range rows {
		m.Apply(agg, f)
	}

	alfa, _ := agg.Registry.Lookup("ALFA")
	if alfa.Counts.Get(internal.CategoryCIPTEA) != 1 || alfa.Counts.Total() != 1 {
		t.Fatalf("counts=%v", alfa.Counts)
	}
	if got := agg.Demographics.Get("18-59", internal.CategoryCIPTEA); got != 1 {
		t.Fatalf("demographic cell=%d", got)
	}

	var reasons []internal.Reason
	for _, p := range agg.Pendencies {
		reasons = append(reasons, p.Reason)
	}
	want := []internal.Reason{internal.ReasonConditionNotMapped, internal.ReasonInvalidAge}
	if diff := cmp.Diff(want, reasons); diff != "" {
		t.Fatalf("reasons (-want +got):\n%s", diff)
	}
	if agg.RowsProcessed != 3 || agg.RowsApplied != 1 {
		t.Fatalf("processed=%d applied=%d", agg.RowsProcessed, agg.RowsApplied)
	}
}

func TestApplyFirstFailureWins(t *testing.T) {
	m, agg := newTestMatcher(t, "nome\nAlfa\n")

	reason, ok := m.Apply(agg, Fields{Institution: "Desconhecida", Disability: "???", Age: "abc"})
	if ok || reason != internal.ReasonInstitutionNotFound {
		t.Fatalf("reason=%q ok=%v", reason, ok)
	}
	reason, _ = m.Apply(agg, Fields{Institution: "Alfa", Disability: "???", Age: "abc"})
	if reason != internal.ReasonConditionNotMapped {
		t.Fatalf("reason=%q", reason)
	}
	if len(agg.Pendencies) != 2 {
		t.Fatalf("pendencies=%d", len(agg.Pendencies))
	}
	if agg.Demographics != (internal.Demographics{}) {
		t.Fatalf("demographics touched: %v", agg.Demographics)
	}
}

func TestApplyKeepsRawText(t *testing.T) {
	m, agg := newTestMatcher(t, "nome\nAlfa\n")
	m.Apply(agg, Fields{LineNo: 9, Institution: "  Inst Ômega ", Disability: "Física", Age: "40"})

	want := internal.Pendency{LineNo: 9, Institution: "  Inst Ômega ", Disability: "Física", Age: "40", Reason: internal.ReasonInstitutionNotFound}
	if diff := cmp.Diff([]internal.Pendency{want}, agg.Pendencies); diff != "" {
		t.Fatalf("pendency (-want +got):\n%s", diff)
	}
}

func TestApplyThroughAlias(t *testing.T) {
	m, agg := newTestMatcher(t, "nome\nAssociação Alfa\n")
	if _, ok := m.Apply(agg, Fields{Institution: "apae", Disability: "deficiencia visual", Age: "70 anos"}); !ok {
		t.Fatalf("row not applied: %+v", agg.Pendencies)
	}
	if got := agg.Demographics.Get("60+", internal.CategoryPasseLivre); got != 1 {
		t.Fatalf("cell=%d", got)
	}
	totals := agg.CategoryTotals()
	if totals["passe_livre"] != 1 || totals["ciptea"] != 0 {
		t.Fatalf("totals=%v", totals)
	}
}
