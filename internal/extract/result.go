package extract

import (
	"errors"
	"time"
)

// Phase names the pipeline stage that recorded a Problem.
type Phase string

const (
	PhaseSource   Phase = "source"
	PhaseValidate Phase = "validate"
	PhaseOutput   Phase = "output"
	PhaseEntry    Phase = "entry"
	PhaseScaffold Phase = "scaffold"
)

// fatal reports whether a failure in p stops the run before extraction.
func (p Phase) fatal() bool {
	switch p {
	case PhaseSource, PhaseValidate, PhaseOutput:
		return true
	}
	return false
}

// Problem is one recorded failure. It implements error and unwraps to the
// underlying cause, so errors.Is works against the sentinel kinds.
type Problem struct {
	Phase   Phase  `json:"phase"`
	Entry   string `json:"entry,omitempty"`
	Message string `json:"message"`
	err     error
}

func (p Problem) Error() string { return p.Message }
func (p Problem) Unwrap() error { return p.err }

// Result is the outcome of one Extract call. It is only written by Extract
// and must be treated as read-only once returned.
type Result struct {
	RunID         string        `json:"runId"`
	Source        string        `json:"source"`
	OutputDir     string        `json:"outputDir"`
	WrittenPaths  []string      `json:"writtenPaths"`
	ScaffoldPaths []string      `json:"scaffoldPaths"`
	Problems      []Problem     `json:"errors"`
	TotalEntries  int           `json:"totalEntries"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	Fatal         bool          `json:"fatal"`
	StartedAt     time.Time     `json:"startedAt"`
	Duration      time.Duration `json:"duration"`
}

// OK reports whether the run recorded no problems at all.
func (r *Result) OK() bool {
	return len(r.Problems) == 0
}

// Errors returns the problem messages in the order they were recorded.
func (r *Result) Errors() []string {
	msgs := make([]string, len(r.Problems))
	for i, p := range r.Problems {
		msgs[i] = p.Message
	}
	return msgs
}

// Err joins every problem into one error, or returns nil when OK.
func (r *Result) Err() error {
	errs := make([]error, len(r.Problems))
	for i, p := range r.Problems {
		errs[i] = p
	}
	return errors.Join(errs...)
}

func (r *Result) record(phase Phase, entry string, err error) Problem {
	p := Problem{Phase: phase, Entry: entry, Message: err.Error(), err: err}
	r.Problems = append(r.Problems, p)
	if phase.fatal() {
		r.Fatal = true
	}
	return p
}
