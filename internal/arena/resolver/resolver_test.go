package resolver

import (
	"testing"
	"time"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/demo-arena/arena-backend/internal/arena/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func out(id, model string, offset time.Duration) domain.Output {
	return domain.Output{
		ID:        id,
		DemoID:    "demo-1",
		ModelID:   model,
		Status:    domain.StatusComplete,
		CreatedAt: base.Add(offset),
	}
}

func TestResolve_LatestVersionByDefault(t *testing.T) {
	outputs := []domain.Output{
		out("b2", "gpt-4o", 2*time.Second),
		out("a1", "grok-4", 0),
		out("b1", "gpt-4o", time.Second),
		out("b3", "gpt-4o", 3*time.Second),
	}

	v := Resolve(outputs, []string{"grok-4", "gpt-4o"}, nil, registry.Default())

	require.Len(t, v.Entries, 2)
	assert.Equal(t, "gpt-4o", v.Entries[0].ModelID)
	assert.Equal(t, "b3", v.Entries[0].Output.ID)
	assert.Equal(t, 3, v.Entries[0].VersionIndex)
	assert.Equal(t, 3, v.Entries[0].VersionCount)

	assert.Equal(t, "grok-4", v.Entries[1].ModelID)
	assert.Equal(t, 1, v.Entries[1].VersionIndex)
	assert.Equal(t, 1, v.Entries[1].VersionCount)
}

func TestResolve_Pins(t *testing.T) {
	outputs := []domain.Output{
		out("v1", "gpt-4o", 0),
		out("v2", "gpt-4o", time.Second),
		out("v3", "gpt-4o", 2*time.Second),
	}

	t.Run("valid pin selects that version", func(t *testing.T) {
		v := Resolve(outputs, []string{"gpt-4o"}, map[string]string{"gpt-4o": "v2"}, registry.Default())
		require.Len(t, v.Tiles, 1)
		assert.Equal(t, "v2", v.Tiles[0].Output.ID)
		assert.Equal(t, 2, v.Tiles[0].VersionIndex)
		assert.Equal(t, 3, v.Tiles[0].VersionCount)
	})

	t.Run("dangling pin falls back to latest", func(t *testing.T) {
		v := Resolve(outputs, []string{"gpt-4o"}, map[string]string{"gpt-4o": "gone"}, registry.Default())
		assert.Equal(t, "v3", v.Tiles[0].Output.ID)
		assert.Equal(t, 3, v.Tiles[0].VersionIndex)
	})

	t.Run("pin for another model's output is ignored", func(t *testing.T) {
		other := append([]domain.Output{out("x1", "grok-4", 0)}, outputs...)
		v := Resolve(other, []string{"gpt-4o"}, map[string]string{"gpt-4o": "x1"}, registry.Default())
		assert.Equal(t, "v3", v.Tiles[0].Output.ID)
	})
}

func TestResolve_Ordering(t *testing.T) {
	outputs := []domain.Output{
		out("u2", "zeta-unknown", 0),
		out("l1", "claude-3-5-haiku-latest", 0),
		out("u1", "alpha-unknown", 0),
		out("k1", "grok-4", 0),
		out("k2", "gpt-4o-mini", 0),
	}

	v := Resolve(outputs, nil, nil, registry.Default())

	ids := make([]string, 0, len(v.Entries))
	for _, e := range v.Entries {
		ids = append(ids, e.ModelID)
	}
	assert.Equal(t, []string{"gpt-4o-mini", "grok-4", "claude-3-5-haiku-latest", "zeta-unknown", "alpha-unknown"}, ids)
}

func TestResolve_EmptySlots(t *testing.T) {
	outputs := []domain.Output{out("a", "gpt-4o", 0)}

	v := Resolve(outputs, []string{"grok-4", "gpt-4o", "grok-4", "mystery"}, nil, registry.Default())

	require.Len(t, v.Tiles, 3)
	assert.Equal(t, "gpt-4o", v.Tiles[0].ModelID)
	assert.NotNil(t, v.Tiles[0].Output)

	assert.Equal(t, "grok-4", v.Tiles[1].ModelID)
	assert.Nil(t, v.Tiles[1].Output)
	assert.Zero(t, v.Tiles[1].VersionIndex)
	assert.Zero(t, v.Tiles[1].VersionCount)

	assert.Equal(t, "mystery", v.Tiles[2].ModelID)
	assert.Nil(t, v.Tiles[2].Output)
}

func TestResolve_VersionIndexBounds(t *testing.T) {
	var outputs []domain.Output
	for i, model := range []string{"gpt-4o", "gpt-4o", "grok-4", "gpt-4o", "grok-4"} {
		outputs = append(outputs, out(string(rune('a'+i)), model, time.Duration(i)*time.Second))
	}
	pins := map[string]string{"gpt-4o": "a", "grok-4": "nope"}

	v := Resolve(outputs, []string{"gpt-4o", "grok-4"}, pins, registry.Default())
	for _, e := range v.Entries {
		assert.GreaterOrEqual(t, e.VersionIndex, 1)
		assert.LessOrEqual(t, e.VersionIndex, e.VersionCount)
	}
}

func TestSortVersions_TieBreaksOnID(t *testing.T) {
	outputs := []domain.Output{out("b", "m", 0), out("a", "m", 0), out("c", "m", -time.Second)}
	SortVersions(outputs)
	assert.Equal(t, "c", outputs[0].ID)
	assert.Equal(t, "a", outputs[1].ID)
	assert.Equal(t, "b", outputs[2].ID)
}

func TestBuildView(t *testing.T) {
	demo := domain.Demo{
		ID:             "demo-1",
		OwnerID:        "owner",
		SelectedModels: []string{"claude-3-5-haiku-latest", "gpt-4o"},
	}
	outputs := []domain.Output{out("a", "gpt-4o", 0), out("l", "claude-3-5-haiku-latest", 0)}

	t.Run("owner view", func(t *testing.T) {
		view := BuildView(demo, outputs, "owner", registry.Default())
		assert.True(t, view.IsOwner)
		require.Len(t, view.Tiles, 2)

		assert.Equal(t, "gpt-4o", view.Tiles[0].ModelID)
		assert.Equal(t, "GPT-4o", view.Tiles[0].Name)
		assert.Equal(t, "OpenAI", view.Tiles[0].Provider)
		assert.True(t, view.Tiles[0].Generatable)

		legacy := view.Tiles[1]
		assert.Equal(t, "claude-3-5-haiku-latest", legacy.ModelID)
		assert.True(t, legacy.Known)
		assert.False(t, legacy.Generatable)
		assert.Equal(t, "Anthropic", legacy.Provider)
	})

	t.Run("shared link view", func(t *testing.T) {
		view := BuildView(demo, outputs, "someone-else", registry.Default())
		assert.False(t, view.IsOwner)
	})

	t.Run("no outputs yet", func(t *testing.T) {
		view := BuildView(demo, nil, "owner", registry.Default())
		assert.NotNil(t, view.Outputs)
		assert.Len(t, view.Tiles, 2)
	})
}
