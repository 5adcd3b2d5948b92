package domain

import "errors"

var (
	ErrDemoNotFound     = errors.New("demo not found")
	ErrOutputNotFound   = errors.New("model output not found")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrUnknownModel     = errors.New("unknown model")
	ErrInvalidPrompt    = errors.New("prompt is required")
	ErrInvalidDirection = errors.New("invalid navigation direction")
	ErrNoModels         = errors.New("at least one model is required")
)
