// Package dictionary holds the definition-ordered lookup tables that drive
// institution aliasing and condition classification.
package dictionary

import "painel/internal/util"

// Entry is one dictionary line. Key is normalized; Raw is the key as authored.
type Entry struct {
	Key   string
	Raw   string
	Value string
}

// Map preserves definition order. Substring fallback in the classifier
// depends on it, so it must never be replaced by a plain Go map.
type Map struct {
	entries []Entry
	index   map[string]int
}

func New() *Map {
	return &Map{index: map[string]int{}}
}

// FromPairs builds a map from alternating raw-key/value strings.
func FromPairs(pairs ...string) *Map {
	m := New()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Add(pairs[i], pairs[i+1])
	}
	return m
}

// Add inserts rawKey under its normalized form. A repeated key keeps its
// original position and takes the newer value. Keys that normalize to the
// empty string are ignored.
func (m *Map) Add(rawKey, value string) {
	key := util.Normalize(rawKey)
	if key == "" {
		return
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].Value = value
		m.entries[i].Raw = rawKey
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Raw: rawKey, Value: value})
}

// Lookup expects an already normalized key.
func (m *Map) Lookup(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	i, ok := m.index[key]
	if !ok {
		return "", false
	}
	return m.entries[i].Value, true
}

func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}
