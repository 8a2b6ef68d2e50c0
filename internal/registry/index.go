package registry

import (
	"painel/internal"
	"painel/internal/util"
)

// CounterColumns maps each category to the registry column holding its counter.
var CounterColumns = map[internal.Category]string{
	internal.CategoryCIPTEA:     "quantidade_ciptea",
	internal.CategoryCIPF:      "quantidade_cipf",
	internal.CategoryPasseLivre: "quantidade_passe_livre",
}

// Registry is the canonical institution list loaded for one run.
type Registry struct {
	Header     []string
	NameColumn string
	Records    []*internal.InstitutionRecord

	byName     map[string]*internal.InstitutionRecord
	duplicates []string
}

// BuildIndex keys records by normalized name. When two records share a key
// the later one wins, and the name is reported by Duplicates.
func BuildIndex(header []string, nameColumn string, records []*internal.InstitutionRecord) *Registry {
	r := &Registry{
		Header:     header,
		NameColumn: nameColumn,
		Records:    records,
		byName:     map[string]*internal.InstitutionRecord{},
	}
	for _, rec := range records {
		key := util.Normalize(rec.Name)
		if key == "" {
			continue
		}
		if _, exists := r.byName[key]; exists {
			r.duplicates = append(r.duplicates, rec.Name)
		}
		r.byName[key] = rec
	}
	return r
}

// Lookup expects an already normalized name.
func (r *Registry) Lookup(key string) (*internal.InstitutionRecord, bool) {
	rec, ok := r.byName[key]
	return rec, ok
}

func (r *Registry) Duplicates() []string {
	return r.duplicates
}

func (r *Registry) Len() int {
	return len(r.byName)
}

// OutputHeader is the input header with any missing counter columns appended.
func (r *Registry) OutputHeader() []string {
	out := make([]string, len(r.Header), len(r.Header)+len(internal.Categories))
	copy(out, r.Header)
	for _, cat := range internal.Categories {
		col := CounterColumns[cat]
		if !contains(out, col) {
			out = append(out, col)
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
