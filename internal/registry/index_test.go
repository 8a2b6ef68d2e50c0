package registry

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	blob := "\ufeffnome,cidade,quantidade_ciptea\r\nAssociação São José,Lages,12\r\nAlfa,Blumenau\r\n,Sem nome,\r\n"
	reg, err := Parse([]byte(blob), "nome")
	if err != nil {
		t.Fatal(err)
	}
	if len(reg.Records) != 3 || reg.Len() != 2 {
		t.Fatalf("records=%d indexed=%d", len(reg.Records), reg.Len())
	}

	rec, ok := reg.Lookup("ASSOCIACAO SAO JOSE")
	if !ok {
		t.Fatal("lookup failed")
	}
	if rec.Counts.Total() != 0 {
		t.Fatalf("counters not reset: %v", rec.Counts)
	}
	if rec.Fields["cidade"] != "Lages" {
		t.Fatalf("fields=%v", rec.Fields)
	}

	alfa, _ := reg.Lookup("ALFA")
	if alfa.Fields["quantidade_ciptea"] != "" {
		t.Fatalf("short row field=%q", alfa.Fields["quantidade_ciptea"])
	}
}

func TestParseRequiresNameColumn(t *testing.T) {
	_, err := Parse([]byte("instituicao,cidade\nAlfa,Lages\n"), "nome")
	if err == nil || !strings.Contains(err.Error(), `"nome"`) {
		t.Fatalf("err=%v", err)
	}
	if _, err := Parse(nil, "nome"); err == nil {
		t.Fatal("expected error for empty registry")
	}
}

func TestDuplicatesLastWins(t *testing.T) {
	reg, err := Parse([]byte("nome,cidade\nAlfa,Lages\nALFA,Blumenau\n"), "")
	if err != nil {
		t.Fatal(err)
	}
	rec, _ := reg.Lookup("ALFA")
	if rec.Fields["cidade"] != "Blumenau" {
		t.Fatalf("got %q", rec.Fields["cidade"])
	}
	if diff := cmp.Diff([]string{"ALFA"}, reg.Duplicates()); diff != "" {
		t.Fatalf("duplicates (-want +got):\n%s", diff)
	}
}

func TestOutputHeader(t *testing.T) {
	reg, err := Parse([]byte("nome,quantidade_cipf,cidade\n"), "nome")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"nome", "quantidade_cipf", "cidade", "quantidade_ciptea", "quantidade_passe_livre"}
	if diff := cmp.Diff(want, reg.OutputHeader()); diff != "" {
		t.Fatalf("header (-want +got):\n%s", diff)
	}
}
