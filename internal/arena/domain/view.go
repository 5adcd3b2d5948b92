package domain

// ResolvedOutput is the version chosen for display for one model
type ResolvedOutput struct {
	ModelID      string  `json:"model_id"`
	Output       *Output `json:"output"`
	VersionIndex int     `json:"version_index,omitempty"` // 1-based
	VersionCount int     `json:"version_count,omitempty"`
}

// Tile is one model slot rendered for a demo
type Tile struct {
	ModelID      string  `json:"model_id"`
	Name         string  `json:"name"`
	Provider     string  `json:"provider,omitempty"`
	Known        bool    `json:"known"`
	Generatable  bool    `json:"generatable"`
	Output       *Output `json:"output"`
	VersionIndex int     `json:"version_index,omitempty"`
	VersionCount int     `json:"version_count,omitempty"`
}

// DemoView is the read model returned for a single demo
type DemoView struct {
	Demo    Demo             `json:"demo"`
	IsOwner bool             `json:"is_owner"`
	Outputs []ResolvedOutput `json:"outputs"`
	Tiles   []Tile           `json:"tiles"`
}
