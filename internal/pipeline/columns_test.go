package pipeline

import (
	"errors"
	"testing"
)

func TestResolveColumns(t *testing.T) {
	header := []string{"Nome", "Instituição Credenciadora", "IDADE", "Deficiência / Condição"}
	cols, err := ResolveColumns(header, DefaultColumnCandidates())
	if err != nil {
		t.Fatal(err)
	}
	want := Columns{Institution: "Instituição Credenciadora", Age: "IDADE", Disability: "Deficiência / Condição"}
	if cols != want {
		t.Fatalf("got %+v want %+v", cols, want)
	}
}

func TestResolveColumnsCandidateOrderWins(t *testing.T) {
	header := []string{"Instituicao", "Instituicao Credenciadora", "Idade", "Deficiencia"}
	cols, err := ResolveColumns(header, DefaultColumnCandidates())
	if err != nil {
		t.Fatal(err)
	}
	if cols.Institution != "Instituicao Credenciadora" {
		t.Fatalf("institution=%q", cols.Institution)
	}
}

func TestResolveColumnsIgnoresSpacing(t *testing.T) {
	header := []string{"InstituicaoCredenciadora", " idade ", "deficiencia"}
	if _, err := ResolveColumns(header, DefaultColumnCandidates()); err != nil {
		t.Fatal(err)
	}
}

func TestResolveColumnsMissing(t *testing.T) {
	_, err := ResolveColumns([]string{"Instituicao", "Deficiencia"}, DefaultColumnCandidates())
	var missing *MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if missing.Field != "age" {
		t.Fatalf("field=%q", missing.Field)
	}
}

func TestColumnCandidatesOverrides(t *testing.T) {
	c := DefaultColumnCandidates().WithOverrides(nil, []string{"idade (anos)"}, nil)
	if len(c.Age) != 1 || c.Age[0] != "idade (anos)" {
		t.Fatalf("age=%v", c.Age)
	}
	if len(c.Institution) != 3 {
		t.Fatalf("institution=%v", c.Institution)
	}
}
