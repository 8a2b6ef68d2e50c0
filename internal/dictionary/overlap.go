package dictionary

import "strings"

// Overlap reports a key that the substring fallback can never pick because an
// earlier key is contained in it.
type Overlap struct {
	Shadowed Entry
	By       Entry
}

// Overlaps lists shadowed keys in definition order. It is a diagnostic only;
// classification keeps relying on definition order.
func Overlaps(m *Map) []Overlap {
	entries := m.Entries()
	var out []Overlap
	for j, later := range entries {
		for i := 0; i < j; i++ {
			if strings.Contains(later.Key, entries[i].Key) {
				out = append(out, Overlap{Shadowed: later, By: entries[i]})
				break
			}
		}
	}
	return out
}

// Conflicting keeps only overlaps whose values differ.
func Conflicting(overlaps []Overlap) []Overlap {
	var out []Overlap
	for _, o := range overlaps {
		if o.Shadowed.Value != o.By.Value {
			out = append(out, o)
		}
	}
	return out
}
