// Package resolver decides which recorded version of each model's output a demo displays.
package resolver

import (
	"sort"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/demo-arena/arena-backend/internal/arena/registry"
)

// Ranker orders model ids. ok is false for ids it does not know.
type Ranker interface {
	Rank(modelID string) (rank int, ok bool)
}

// View is the resolved read side of a demo
type View struct {
	// Entries holds one resolved version for every model that has outputs
	Entries []domain.ResolvedOutput
	// Tiles holds one slot per selected model, with or without an output
	Tiles []domain.ResolvedOutput
}

// SortVersions orders one model's outputs oldest first. Ties on CreatedAt fall back to ID.
func SortVersions(outputs []domain.Output) {
	sort.SliceStable(outputs, func(i, j int) bool {
		if !outputs[i].CreatedAt.Equal(outputs[j].CreatedAt) {
			return outputs[i].CreatedAt.Before(outputs[j].CreatedAt)
		}
		return outputs[i].ID < outputs[j].ID
	})
}

// Versions returns modelID's outputs sorted into version order
func Versions(outputs []domain.Output, modelID string) []domain.Output {
	var out []domain.Output
	for _, o := range outputs {
		if o.ModelID == modelID {
			out = append(out, o)
		}
	}
	SortVersions(out)
	return out
}

// CurrentIndex returns the 0-based index shown for a sorted version list.
// A pin that no longer matches any version falls back to the latest.
func CurrentIndex(versions []domain.Output, pinnedID string) int {
	if pinnedID != "" {
		for i, v := range versions {
			if v.ID == pinnedID {
				return i
			}
		}
	}
	return len(versions) - 1
}

// Resolve groups outputs by model, picks the displayed version per model and orders
// everything by the ranker. Unknown ids sort after known ones, keeping first-seen order.
func Resolve(outputs []domain.Output, selectedModels []string, pins map[string]string, ranker Ranker) View {
	groups := make(map[string][]domain.Output)
	var seen []string
	for _, o := range outputs {
		if _, ok := groups[o.ModelID]; !ok {
			seen = append(seen, o.ModelID)
		}
		groups[o.ModelID] = append(groups[o.ModelID], o)
	}

	resolved := make(map[string]domain.ResolvedOutput, len(groups))
	for modelID, versions := range groups {
		SortVersions(versions)
		idx := CurrentIndex(versions, pins[modelID])
		out := versions[idx]
		resolved[modelID] = domain.ResolvedOutput{
			ModelID:      modelID,
			Output:       &out,
			VersionIndex: idx + 1,
			VersionCount: len(versions),
		}
	}

	view := View{}
	for _, id := range Order(seen, ranker) {
		view.Entries = append(view.Entries, resolved[id])
	}
	for _, id := range Order(dedupe(selectedModels), ranker) {
		if r, ok := resolved[id]; ok {
			view.Tiles = append(view.Tiles, r)
			continue
		}
		view.Tiles = append(view.Tiles, domain.ResolvedOutput{ModelID: id})
	}
	return view
}

// Order sorts ids canonically: known ids by rank, then unknown ids in input order
func Order(ids []string, ranker Ranker) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.SliceStable(out, func(i, j int) bool {
		ri, okI := ranker.Rank(out[i])
		rj, okJ := ranker.Rank(out[j])
		switch {
		case okI && okJ:
			return ri < rj
		case okI != okJ:
			return okI
		default:
			return false
		}
	})
	return out
}

// BuildView resolves a demo into its presentation model
func BuildView(demo domain.Demo, outputs []domain.Output, callerID string, reg *registry.Registry) domain.DemoView {
	v := Resolve(outputs, demo.SelectedModels, demo.SelectedOutputs, reg)

	view := domain.DemoView{
		Demo:    demo,
		IsOwner: demo.IsOwnedBy(callerID),
		Outputs: v.Entries,
		Tiles:   make([]domain.Tile, 0, len(v.Tiles)),
	}
	if view.Outputs == nil {
		view.Outputs = []domain.ResolvedOutput{}
	}
	for _, r := range v.Tiles {
		t := domain.Tile{
			ModelID:      r.ModelID,
			Name:         reg.DisplayName(r.ModelID),
			Known:        reg.IsKnown(r.ModelID),
			Generatable:  reg.IsGeneratable(r.ModelID),
			Output:       r.Output,
			VersionIndex: r.VersionIndex,
			VersionCount: r.VersionCount,
		}
		if p, ok := reg.ProviderOf(r.ModelID); ok {
			t.Provider = p.DisplayName()
		}
		view.Tiles = append(view.Tiles, t)
	}
	return view
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
