package pipeline

import (
	"fmt"
	"strings"

	"painel/internal"
	"painel/internal/dictionary"
	"painel/internal/util"
)

type classifierEntry struct {
	key      string
	category internal.Category
}

// Classifier maps disability descriptors to categories. Entries keep the
// dictionary's definition order, which decides substring ties.
type Classifier struct {
	exact   map[string]internal.Category
	ordered []classifierEntry
}

func NewClassifier(conditions *dictionary.Map) (*Classifier, error) {
	c := &Classifier{exact: map[string]internal.Category{}}
	if conditions == nil {
		return c, nil
	}
	for _, e := range conditions.Entries() {
		cat, err := internal.ParseCategory(strings.ToLower(strings.TrimSpace(e.Value)))
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", e.Raw, err)
		}
		c.exact[e.Key] = cat
		c.ordered = append(c.ordered, classifierEntry{key: e.Key, category: cat})
	}
	return c, nil
}

func (c *Classifier) Classify(raw string) (internal.Category, bool) {
	key := util.Normalize(raw)
	if key == "" {
		return "", false
	}
	if cat, ok := c.exact[key]; ok {
		return cat, true
	}
	for _, e := range c.ordered {
		if strings.Contains(key, e.key) {
			return e.category, true
		}
	}
	return "", false
}
