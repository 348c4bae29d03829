package models

import (
	"sync"
	"time"
)

// StepStatus is the lifecycle state of a processing step.
type StepStatus string

const (
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// ProcessingStep records one stage of request handling.
type ProcessingStep struct {
	Name      string
	Status    StepStatus
	StartedAt time.Time
	Duration  time.Duration
	Detail    string
	Tool      string
	Reasoning string
}

// Trace is an append-only ordered list of processing steps.
type Trace struct {
	mu    sync.Mutex
	now   func() time.Time
	steps []*ProcessingStep
}

// NewTrace returns an empty trace using the given clock, or time.Now when nil.
func NewTrace(now func() time.Time) *Trace {
	if now == nil {
		now = time.Now
	}
	return &Trace{now: now}
}

// StepHandle finalizes a step previously appended with Start.
type StepHandle struct {
	trace *Trace
	step  *ProcessingStep
}

// Start appends a running step and returns a handle to finish it.
func (t *Trace) Start(name, detail string) *StepHandle {
	t.mu.Lock()
	defer t.mu.Unlock()

	step := &ProcessingStep{
		Name:      name,
		Status:    StepRunning,
		StartedAt: t.now(),
		Detail:    detail,
	}
	t.steps = append(t.steps, step)
	return &StepHandle{trace: t, step: step}
}

// Steps returns a snapshot copy of the recorded steps in order.
func (t *Trace) Steps() []ProcessingStep {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ProcessingStep, len(t.steps))
	for i, s := range t.steps {
		out[i] = *s
	}
	return out
}

// Len returns the number of recorded steps.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.steps)
}

// Complete marks the step completed, replacing the detail when non-empty.
func (h *StepHandle) Complete(detail string) {
	h.finish(StepCompleted, detail)
}

// Fail marks the step failed, replacing the detail when non-empty.
func (h *StepHandle) Fail(detail string) {
	h.finish(StepFailed, detail)
}

// Annotate attaches the tool name and reasoning shown alongside the step.
func (h *StepHandle) Annotate(tool, reasoning string) {
	h.trace.mu.Lock()
	defer h.trace.mu.Unlock()
	if tool != "" {
		h.step.Tool = tool
	}
	if reasoning != "" {
		h.step.Reasoning = reasoning
	}
}

func (h *StepHandle) finish(status StepStatus, detail string) {
	h.trace.mu.Lock()
	defer h.trace.mu.Unlock()

	if h.step.Status != StepRunning {
		return
	}
	h.step.Status = status
	h.step.Duration = h.trace.now().Sub(h.step.StartedAt)
	if detail != "" {
		h.step.Detail = detail
	}
}
