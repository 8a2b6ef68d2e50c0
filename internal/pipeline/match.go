package pipeline

import (
	"painel/internal"
	"painel/internal/dictionary"
	"painel/internal/registry"
	"painel/internal/util"
)

// InstitutionResolver maps raw institution names to registry records.
type InstitutionResolver struct {
	aliases  *dictionary.Map
	registry *registry.Registry
}

func NewInstitutionResolver(aliases *dictionary.Map, reg *registry.Registry) *InstitutionResolver {
	if aliases == nil {
		aliases = dictionary.New()
	}
	return &InstitutionResolver{aliases: aliases, registry: reg}
}

// Resolve tries the alias dictionary before the literal name, so an alias
// wins even when the raw name is itself a registry entry.
func (r *InstitutionResolver) Resolve(raw string) (*internal.InstitutionRecord, bool) {
	key := util.Normalize(raw)
	if key == "" || r.registry == nil {
		return nil, false
	}

	if target, ok := r.aliases.Lookup(key); ok {
		if rec, ok := r.registry.Lookup(util.Normalize(target)); ok {
			return rec, true
		}
	}
	return r.registry.Lookup(key)
}
