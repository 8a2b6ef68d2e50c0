package pipeline

import (
	"fmt"
	"strings"

	"painel/internal/util"
)

// ColumnCandidates lists the accepted header labels for each logical field,
// in priority order.
type ColumnCandidates struct {
	Institution []string
	Age         []string
	Disability  []string
}

func DefaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		Institution: []string{"instituicao credenciadora", "instituição credenciadora", "instituicao"},
		Age:         []string{"idade"},
		Disability:  []string{"deficiencia", "deficiência", "deficiencia / condicao"},
	}
}

// WithOverrides replaces each list that has a non-empty override.
func (c ColumnCandidates) WithOverrides(institution, age, disability []string) ColumnCandidates {
	if len(institution) > 0 {
		c.Institution = institution
	}
	if len(age) > 0 {
		c.Age = age
	}
	if len(disability) > 0 {
		c.Disability = disability
	}
	return c
}

// Columns holds the physical header resolved for each logical field.
type Columns struct {
	Institution string
	Age         string
	Disability  string
}

type MissingColumnError struct {
	Field      string
	Candidates []string
	Header     []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q not found (accepted: %s; header: %s)",
		e.Field, strings.Join(e.Candidates, ", "), strings.Join(e.Header, ", "))
}

func ResolveColumns(header []string, c ColumnCandidates) (Columns, error) {
	var out Columns
	fields := []struct {
		name       string
		candidates []string
		dst        *string
	}{
		{"institution", c.Institution, &out.Institution},
		{"age", c.Age, &out.Age},
		{"disability", c.Disability, &out.Disability},
	}
	for _, f := range fields {
		col, ok := findColumn(header, f.candidates)
		if !ok {
			return Columns{}, &MissingColumnError{Field: f.name, Candidates: f.candidates, Header: header}
		}
		*f.dst = col
	}
	return out, nil
}

func findColumn(header []string, candidates []string) (string, bool) {
	for _, cand := range candidates {
		key := util.CompactKey(cand)
		if key == "" {
			continue
		}
		for _, h := range header {
			if util.CompactKey(h) == key {
				return h, true
			}
		}
	}
	return "", false
}
