package pipeline

import (
	"time"

	"github.com/google/uuid"

	"modpatch/internal/errors"
)

// Phase is a stage of a run.
type Phase string

const (
	PhaseClassify   Phase = "classify"
	PhaseSynthesize Phase = "synthesize"
	PhaseInject     Phase = "inject"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// transitions lists the legal successors of each phase. Terminal phases have none.
var transitions = map[Phase][]Phase{
	PhaseClassify:   {PhaseSynthesize, PhaseFailed},
	PhaseSynthesize: {PhaseInject, PhaseFailed},
	PhaseInject:     {PhaseDone, PhaseFailed},
}

// RunState tracks one run through its phases.
type RunState struct {
	ID         string     `json:"id"`
	Phase      Phase      `json:"phase"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	// FailedIn is the phase that was active when the run failed.
	FailedIn Phase  `json:"failedIn,omitempty"`
	Error    string `json:"error,omitempty"`

	now func() time.Time
}

func newRunState(id string, now func() time.Time) *RunState {
	if id == "" {
		id = uuid.New().String()
	}
	return &RunState{
		ID:        id,
		Phase:     PhaseClassify,
		StartedAt: now().UTC(),
		now:       now,
	}
}

// IsTerminal returns true once the run is done or failed.
func (r *RunState) IsTerminal() bool {
	return r.Phase == PhaseDone || r.Phase == PhaseFailed
}

// CanAdvance reports whether to is a legal successor of the current phase.
func (r *RunState) CanAdvance(to Phase) bool {
	for _, p := range transitions[r.Phase] {
		if p == to {
			return true
		}
	}
	return false
}

// Advance moves the run to the next phase.
func (r *RunState) Advance(to Phase) error {
	if !r.CanAdvance(to) {
		return errors.Newf(errors.InternalError, nil, "illegal phase transition %s -> %s", r.Phase, to)
	}
	r.Phase = to
	if r.IsTerminal() {
		t := r.now().UTC()
		r.FinishedAt = &t
	}
	return nil
}

// Fail moves the run to the failed phase. Failing a terminal run is a no-op.
func (r *RunState) Fail(err error) {
	if r.IsTerminal() {
		return
	}
	r.FailedIn = r.Phase
	_ = r.Advance(PhaseFailed)
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns how long the run took, or has been running.
func (r *RunState) Duration() time.Duration {
	end := r.now().UTC()
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	return end.Sub(r.StartedAt)
}
