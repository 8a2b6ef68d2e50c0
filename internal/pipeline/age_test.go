package pipeline

import (
	"testing"

	"painel/internal"
)

func TestBinAge(t *testing.T) {
	cases := map[string]string{
		"0":        "0-12",
		"12":       "0-12",
		"13":       "13-17",
		"17 anos":  "13-17",
		"18":       "18-59",
		"42 anos":  "18-59",
		"59":       "18-59",
		"60":       "60+",
		"200":      "60+",
		"idade: 7": "0-12",
		"-5":       "0-12",
	}
	for raw, want := range cases {
		bin, ok := BinAge(raw)
		if !ok || bin.Label != want {
			t.Fatalf("BinAge(%q) = %q ok=%v want %q", raw, bin.Label, ok, want)
		}
	}
}

func TestBinAgeOverflow(t *testing.T) {
	bin, ok := BinAge("99999999999999999999999 anos")
	if !ok || bin.Label != "60+" {
		t.Fatalf("got %q ok=%v", bin.Label, ok)
	}
}

func TestBinAgeInvalid(t *testing.T) {
	for _, raw := range []string{"", "n/a", "doze", "  "} {
		if _, ok := BinAge(raw); ok {
			t.Fatalf("%q binned", raw)
		}
	}
}

func TestAgeBinsExhaustive(t *testing.T) {
	for n := 0; n <= 150; n++ {
		hits := 0
		for _, b := range internal.AgeBins {
			if b.Contains(n) {
				hits++
			}
		}
		if hits != 1 {
			t.Fatalf("age %d in %d bins", n, hits)
		}
	}
}
