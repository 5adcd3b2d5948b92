package domain

import "time"

// Demo is the main entity a user creates: one prompt fanned out to many models
type Demo struct {
	ID              string            `json:"id"`
	OwnerID         string            `json:"owner_id"`
	Prompt          string            `json:"prompt"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Archived        bool              `json:"archived"`
	SelectedModels  []string          `json:"selected_models"`
	SelectedOutputs map[string]string `json:"selected_outputs,omitempty"` // model id -> pinned output id
}

// IsOwnedBy reports whether callerID owns the demo
func (d *Demo) IsOwnedBy(callerID string) bool {
	return callerID != "" && d.OwnerID == callerID
}

// Output is one generation attempt (one version) for a demo and model
type Output struct {
	ID           string    `json:"id"`
	DemoID       string    `json:"demo_id"`
	ModelID      string    `json:"model_id"`
	Status       string    `json:"status"` // pending, generating, complete, error
	HTML         string    `json:"html"`
	CSS          string    `json:"css"`
	ErrorMessage string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Output status constants
const (
	StatusPending    = "pending"
	StatusGenerating = "generating"
	StatusComplete   = "complete"
	StatusError      = "error"
)

// IsTerminal reports whether the output can no longer change
func (o *Output) IsTerminal() bool {
	return o.Status == StatusComplete || o.Status == StatusError
}

// Direction is a version navigation step
type Direction string

const (
	DirectionPrev Direction = "prev"
	DirectionNext Direction = "next"
)

// ParseDirection validates a navigation direction coming from a request
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionPrev, DirectionNext:
		return Direction(s), nil
	default:
		return "", ErrInvalidDirection
	}
}

// DemoPage is one page of a user's demo listing
type DemoPage struct {
	Demos      []Demo `json:"demos"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// ListDemosRequest holds listing filters and keyset pagination
type ListDemosRequest struct {
	OwnerID         string
	IncludeArchived bool
	Limit           int
	Cursor          string
}
