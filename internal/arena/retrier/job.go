package retrier

import (
	"errors"
	"math"
	"time"
)

var ErrJobNotFound = errors.New("job not found")

// Outcome values record a finished job whose terminal callback has not yet been applied
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Job is the persisted retry state of one output's generation
type Job struct {
	OutputID  string    `json:"output_id"`
	DemoID    string    `json:"demo_id"`
	ModelID   string    `json:"model_id"`
	Prompt    string    `json:"prompt"`
	Attempt   int       `json:"attempt"` // attempts already made
	NextRunAt time.Time `json:"next_run_at"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Outcome string `json:"outcome,omitempty"`
	HTML    string `json:"html,omitempty"`
	CSS     string `json:"css,omitempty"`
}

// Policy is a bounded exponential backoff
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Base           float64
}

// DefaultPolicy makes one attempt plus four retries, waiting 1s, 2s, 4s and 8s
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		Base:           2,
	}
}

// Backoff returns the wait after the n-th failed attempt (n starts at 1)
func (p Policy) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return time.Duration(float64(p.InitialBackoff) * math.Pow(p.Base, float64(n-1)))
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
