package util

import (
	"math"
	"testing"
)

func TestFirstInteger(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  int
		ok    bool
	}{
		{name: "plain", input: "42", want: 42, ok: true},
		{name: "suffix", input: "42 anos", want: 42, ok: true},
		{name: "prefix", input: "idade: 7", want: 7, ok: true},
		{name: "first run wins", input: "12 anos e 3 meses", want: 12, ok: true},
		{name: "leading zeros", input: "007", want: 7, ok: true},
		{name: "no digits", input: "não informado", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "overflow clamps", input: "99999999999999999999999", want: math.MaxInt, ok: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FirstInteger(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}
