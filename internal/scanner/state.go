// Package scanner drives the screenshot acquisition workflow against a URL
// scanning provider. The workflow is an explicit state machine: Transition is
// pure, and Workflow performs the I/O that produces each event.
package scanner

import (
	"fmt"
	"time"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
)

// Phase names a workflow state.
type Phase string

// Workflow phases. NoCredentials, Ready, and Failed are terminal.
const (
	PhaseNoCredentials  Phase = "no_credentials"
	PhaseSearchExisting Phase = "search_existing"
	PhaseCreateScan     Phase = "create_scan"
	PhasePolling        Phase = "polling"
	PhaseReady          Phase = "ready"
	PhaseFailed         Phase = "failed"
)

// Provider task statuses the workflow reacts to.
const (
	statusFinished = "Finished"
	statusFailed   = "Failed"
)

// State is one step of the workflow. ScanID is set once a scan is known;
// Deadline is set on entering Polling.
type State struct {
	Phase    Phase
	ScanID   string
	Reason   string
	Deadline time.Time
	Reused   bool
	TimedOut bool
}

// Terminal reports whether no further events are accepted.
func (s State) Terminal() bool {
	switch s.Phase {
	case PhaseNoCredentials, PhaseReady, PhaseFailed:
		return true
	default:
		return false
	}
}

// Policy bounds the workflow in time.
type Policy struct {
	ReuseWindow time.Duration
	MaxWait     time.Duration
}

// Event is an observation fed into Transition.
type Event interface {
	isEvent()
}

// SearchCompleted reports the lookup for an existing scan of the URL.
type SearchCompleted struct {
	Task  analysis.ScanTask
	Found bool
	Err   error
	Now   time.Time
}

// ScanCreated reports the outcome of submitting a new scan.
type ScanCreated struct {
	ScanID string
	Err    error
	Now    time.Time
}

// Tick marks the passage of time while polling.
type Tick struct {
	Now time.Time
}

// StatusPolled reports one status poll.
type StatusPolled struct {
	Status analysis.ScanStatus
	Err    error
	Now    time.Time
}

// Cancelled reports that the caller gave up.
type Cancelled struct {
	Err error
}

func (SearchCompleted) isEvent() {}
func (ScanCreated) isEvent()     {}
func (Tick) isEvent()            {}
func (StatusPolled) isEvent()    {}
func (Cancelled) isEvent()       {}

// Begin returns the initial state.
func Begin(hasCredentials bool) State {
	if !hasCredentials {
		return State{Phase: PhaseNoCredentials, Reason: "scanner credentials not configured"}
	}
	return State{Phase: PhaseSearchExisting}
}

// Transition computes the next state. Events that do not apply to the
// current phase leave the state unchanged.
func Transition(s State, ev Event, p Policy) State {
	if s.Terminal() {
		return s
	}
	if c, ok := ev.(Cancelled); ok {
		return failed(s, fmt.Sprintf("cancelled: %v", c.Err))
	}

	switch s.Phase {
	case PhaseSearchExisting:
		e, ok := ev.(SearchCompleted)
		if !ok {
			return s
		}
		// A failed search is not fatal; a fresh scan is requested instead.
		if e.Err == nil && e.Found && e.Task.ID != "" && e.Now.Sub(e.Task.Time) < p.ReuseWindow {
			return State{Phase: PhaseReady, ScanID: e.Task.ID, Reused: true}
		}
		return State{Phase: PhaseCreateScan}

	case PhaseCreateScan:
		e, ok := ev.(ScanCreated)
		if !ok {
			return s
		}
		if e.Err != nil {
			return failed(s, e.Err.Error())
		}
		if e.ScanID == "" {
			return failed(s, "provider returned no scan id")
		}
		return State{Phase: PhasePolling, ScanID: e.ScanID, Deadline: e.Now.Add(p.MaxWait)}

	case PhasePolling:
		switch e := ev.(type) {
		case Tick:
			return expire(s, e.Now)
		case StatusPolled:
			if e.Err == nil {
				switch e.Status.Status {
				case statusFinished:
					if e.Status.Success {
						return ready(s)
					}
					return failed(s, "scan finished unsuccessfully")
				case statusFailed:
					return failed(s, "scan failed")
				}
			}
			return expire(s, e.Now)
		}
	}
	return s
}

// expire resolves an unfinished scan optimistically once the deadline passes.
func expire(s State, now time.Time) State {
	if now.Before(s.Deadline) {
		return s
	}
	next := ready(s)
	next.TimedOut = true
	return next
}

func ready(s State) State {
	return State{Phase: PhaseReady, ScanID: s.ScanID}
}

func failed(s State, reason string) State {
	return State{Phase: PhaseFailed, ScanID: s.ScanID, Reason: reason}
}
