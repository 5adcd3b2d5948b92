package registry

import (
	"fmt"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
)

// Model is one generatable catalog entry
type Model struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Provider       Provider `json:"provider"`
	DefaultEnabled bool     `json:"default_enabled"`
}

// Alias is a retired model id that still appears in stored demos
type Alias struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ReplacedBy string `json:"replaced_by"`
}

// Resolution is the dispatch target for a model id after alias resolution
type Resolution struct {
	Provider    Provider
	CanonicalID string
}

// Registry is the static model catalog. Catalog order is the canonical display order.
type Registry struct {
	models  []Model
	byID    map[string]int
	aliases map[string]Alias
	legacy  []string
}

// New builds a registry from a catalog and a list of aliases.
// Aliases must point at catalog ids.
func New(models []Model, aliases []Alias) (*Registry, error) {
	r := &Registry{
		models:  make([]Model, 0, len(models)),
		byID:    make(map[string]int, len(models)),
		aliases: make(map[string]Alias, len(aliases)),
	}
	for _, m := range models {
		if m.ID == "" {
			return nil, fmt.Errorf("model id is required")
		}
		if _, dup := r.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		r.byID[m.ID] = len(r.models)
		r.models = append(r.models, m)
	}
	for _, a := range aliases {
		if _, ok := r.byID[a.ReplacedBy]; !ok {
			return nil, fmt.Errorf("alias %q points at unknown model %q", a.ID, a.ReplacedBy)
		}
		if _, clash := r.byID[a.ID]; clash {
			return nil, fmt.Errorf("alias %q shadows a catalog model", a.ID)
		}
		r.aliases[a.ID] = a
		r.legacy = append(r.legacy, a.ID)
	}
	return r, nil
}

// Resolve maps a model id (possibly a retired alias) to its provider and canonical id
func (r *Registry) Resolve(modelID string) (Resolution, error) {
	id := modelID
	if a, ok := r.aliases[modelID]; ok {
		id = a.ReplacedBy
	}
	i, ok := r.byID[id]
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %s", domain.ErrUnknownModel, modelID)
	}
	return Resolution{Provider: r.models[i].Provider, CanonicalID: id}, nil
}

// IsGeneratable reports whether new versions can be requested for modelID.
// Retired aliases are known but not generatable.
func (r *Registry) IsGeneratable(modelID string) bool {
	_, ok := r.byID[modelID]
	return ok
}

// IsKnown reports whether modelID is a catalog model or a retired alias
func (r *Registry) IsKnown(modelID string) bool {
	if _, ok := r.byID[modelID]; ok {
		return true
	}
	_, ok := r.aliases[modelID]
	return ok
}

// Lookup returns the catalog entry for modelID
func (r *Registry) Lookup(modelID string) (Model, bool) {
	i, ok := r.byID[modelID]
	if !ok {
		return Model{}, false
	}
	return r.models[i], true
}

// DisplayName returns a human name for any id, falling back to the id itself
func (r *Registry) DisplayName(modelID string) string {
	if m, ok := r.Lookup(modelID); ok {
		return m.Name
	}
	if a, ok := r.aliases[modelID]; ok {
		return a.Name
	}
	return modelID
}

// ProviderOf returns the provider serving modelID, following aliases
func (r *Registry) ProviderOf(modelID string) (Provider, bool) {
	res, err := r.Resolve(modelID)
	if err != nil {
		return "", false
	}
	return res.Provider, true
}

// Models returns the catalog in canonical order
func (r *Registry) Models() []Model {
	out := make([]Model, len(r.models))
	copy(out, r.models)
	return out
}

// DefaultEnabled returns the ids selected for a new demo, in canonical order
func (r *Registry) DefaultEnabled() []string {
	out := make([]string, 0, len(r.models))
	for _, m := range r.models {
		if m.DefaultEnabled {
			out = append(out, m.ID)
		}
	}
	return out
}

// CanonicalOrder returns every known id: catalog models first, then retired aliases
func (r *Registry) CanonicalOrder() []string {
	out := make([]string, 0, len(r.models)+len(r.legacy))
	for _, m := range r.models {
		out = append(out, m.ID)
	}
	return append(out, r.legacy...)
}

// Rank returns the position of modelID in the canonical order.
// ok is false for ids the registry has never heard of.
func (r *Registry) Rank(modelID string) (rank int, ok bool) {
	if i, found := r.byID[modelID]; found {
		return i, true
	}
	for i, id := range r.legacy {
		if id == modelID {
			return len(r.models) + i, true
		}
	}
	return 0, false
}
