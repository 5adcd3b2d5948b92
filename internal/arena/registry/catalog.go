package registry

import "sync"

var catalog = []Model{
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: ProviderOpenAI},
	{ID: "gpt-4o", Name: "GPT-4o", Provider: ProviderOpenAI, DefaultEnabled: true},
	{ID: "gpt-5.2", Name: "GPT-5.2", Provider: ProviderOpenAI, DefaultEnabled: true},
	{ID: "gpt-5.2-codex", Name: "GPT-5.2 Codex", Provider: ProviderOpenAI, DefaultEnabled: true},
	{ID: "claude-opus-4-5-20251101", Name: "Opus 4.5", Provider: ProviderAnthropic, DefaultEnabled: true},
	{ID: "claude-haiku-4-5-20251001", Name: "Haiku 4.5", Provider: ProviderAnthropic, DefaultEnabled: true},
	{ID: "claude-sonnet-4-20250514", Name: "Sonnet 4", Provider: ProviderAnthropic, DefaultEnabled: true},
	{ID: "claude-sonnet-4-5-20250929", Name: "Sonnet 4.5", Provider: ProviderAnthropic},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: ProviderGoogle, DefaultEnabled: true},
	{ID: "gemini-3-flash-preview", Name: "Gemini 3 Flash", Provider: ProviderGoogle, DefaultEnabled: true},
	{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro", Provider: ProviderGoogle},
	{ID: "grok-3", Name: "Grok 3", Provider: ProviderXAI},
	{ID: "grok-4", Name: "Grok 4", Provider: ProviderXAI, DefaultEnabled: true},
	{ID: "grok-code-fast-1", Name: "Grok 4 Code", Provider: ProviderXAI, DefaultEnabled: true},
}

// Claude 3.5 Haiku was retired; demos created before that keep the old id.
var aliases = []Alias{
	{ID: "claude-3-5-haiku-latest", Name: "Haiku 3.5", ReplacedBy: "claude-haiku-4-5-20251001"},
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the built-in catalog
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := New(catalog, aliases)
		if err != nil {
			panic("registry: invalid built-in catalog: " + err.Error())
		}
		defaultReg = r
	})
	return defaultReg
}
