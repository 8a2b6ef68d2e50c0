package connectors

import "testing"

func TestSubjectMatches(t *testing.T) {
	cases := []struct {
		subject, filter string
		want            bool
	}{
		{"Relatório FCEE - março", "relatorio fcee", true},
		{"Fwd: RELATORIO", "Relatório", true},
		{"Bom dia", "relatorio", false},
		{"qualquer", "", true},
	}
	for _, tc := range cases {
		if got := SubjectMatches(tc.subject, tc.filter); got != tc.want {
			t.Fatalf("SubjectMatches(%q, %q) = %v", tc.subject, tc.filter, got)
		}
	}
}

func TestMessageFromRawWithoutHeaders(t *testing.T) {
	msg, err := MessageFromRaw("dir", []byte("Subject: x\r\n\r\nbody\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	if msg.MessageID != "" || msg.ReceivedAt != "" || msg.Subject != "x" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
