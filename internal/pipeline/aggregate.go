package pipeline

import (
	"painel/internal"
	"painel/internal/registry"
)

// Fields are the three raw values the matcher reads from one input row.
type Fields struct {
	LineNo      int
	Institution string
	Disability  string
	Age         string
}

func FieldsFromRow(row internal.RawRow, cols Columns) Fields {
	return Fields{
		LineNo:      row.LineNo,
		Institution: row.Get(cols.Institution),
		Disability:  row.Get(cols.Disability),
		Age:         row.Get(cols.Age),
	}
}

// Aggregation is the mutable state of one run. Counters live on the
// registry records; demographic cells and pendencies live here.
type Aggregation struct {
	Registry      *registry.Registry
	Demographics  internal.Demographics
	Pendencies    []internal.Pendency
	RowsProcessed int
	RowsApplied   int
}

func NewAggregation(reg *registry.Registry) *Aggregation {
	return &Aggregation{Registry: reg}
}

// CategoryTotals sums the demographic cells per category.
func (a *Aggregation) CategoryTotals() map[string]int {
	out := make(map[string]int, len(internal.Categories))
	for _, cat := range internal.Categories {
		total := 0
		for _, cell := range a.Demographics {
			total += cell.Get(cat)
		}
		out[string(cat)] = total
	}
	return out
}

func (a *Aggregation) ReasonTotals() map[string]int {
	out := map[string]int{}
	for _, p := range a.Pendencies {
		out[string(p.Reason)]++
	}
	return out
}

type Matcher struct {
	resolver   *InstitutionResolver
	classifier *Classifier
}

func NewMatcher(resolver *InstitutionResolver, classifier *Classifier) *Matcher {
	return &Matcher{resolver: resolver, classifier: classifier}
}

// Apply runs institution, category and age resolution in that order. The
// first failing stage is recorded as the row's only pendency and nothing is
// counted; a row that clears all three bumps one institution counter and
// one demographic cell.
func (m *Matcher) Apply(agg *Aggregation, f Fields) (internal.Reason, bool) {
	agg.RowsProcessed++

	rec, ok := m.resolver.Resolve(f.Institution)
	if !ok {
		agg.addPendency(f, internal.ReasonInstitutionNotFound)
		return internal.ReasonInstitutionNotFound, false
	}
	cat, ok := m.classifier.Classify(f.Disability)
	if !ok {
		agg.addPendency(f, internal.ReasonConditionNotMapped)
		return internal.ReasonConditionNotMapped, false
	}
	bin, ok := BinAge(f.Age)
	if !ok {
		agg.addPendency(f, internal.ReasonInvalidAge)
		return internal.ReasonInvalidAge, false
	}

	rec.Counts.Add(cat)
	agg.Demographics.Add(bin, cat)
	agg.RowsApplied++
	return "", true
}

// Scan applies every row of table in input order.
func (m *Matcher) Scan(agg *Aggregation, table *internal.Table, cols Columns) {
	for _, row := range table.Rows {
		m.Apply(agg, FieldsFromRow(row, cols))
	}
}

func (a *Aggregation) addPendency(f Fields, reason internal.Reason) {
	a.Pendencies = append(a.Pendencies, internal.Pendency{
		LineNo:      f.LineNo,
		Institution: f.Institution,
		Disability:  f.Disability,
		Age:         f.Age,
		Reason:      reason,
	})
}
