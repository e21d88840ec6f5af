// Package audit records one event per device reconciliation.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/vlanshift/pkg/changeset"
)

// Event represents the outcome of reconciling one device
type Event struct {
	ID          string               `json:"id"`
	RunID       string               `json:"run_id,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
	User        string               `json:"user"`
	Device      string               `json:"device"`
	Host        string               `json:"host,omitempty"`
	Hostname    string               `json:"hostname,omitempty"`
	Operation   EventType            `json:"operation"`
	Commands    []string             `json:"commands"`
	Decisions   []changeset.Decision `json:"decisions,omitempty"`
	Changed     int                  `json:"changed"`
	Warnings    int                  `json:"warnings"`
	Success     bool                 `json:"success"`
	Error       string               `json:"error,omitempty"`
	ExecuteMode bool                 `json:"execute_mode"` // true if -x was used
	DryRun      bool                 `json:"dry_run"`
	Saved       bool                 `json:"saved"`
	Duration    time.Duration        `json:"duration"`
}

// EventType categorizes audit events
type EventType string

const (
	EventTypeSimulate EventType = "simulate"
	EventTypeApply    EventType = "apply"
)

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	User        string
	Operation   EventType
	RunID       string
	Interface   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(user, device string, operation EventType) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		User:      user,
		Device:    device,
		Operation: operation,
	}
}

// WithRun ties the event to a run
func (e *Event) WithRun(id string) *Event {
	e.RunID = id
	return e
}

// WithHost sets the management address and the configured hostname
func (e *Event) WithHost(host, hostname string) *Event {
	e.Host = host
	e.Hostname = hostname
	return e
}

// WithCommands sets the changeset commands
func (e *Event) WithCommands(commands []string) *Event {
	e.Commands = commands
	return e
}

// WithDecisions sets the per-interface decisions and their counts
func (e *Event) WithDecisions(decisions []changeset.Decision) *Event {
	e.Decisions = decisions
	e.Changed, e.Warnings = 0, 0
	for _, d := range decisions {
		switch d.Kind {
		case changeset.Change:
			e.Changed++
		case changeset.WarnDynamic, changeset.RuleRejected:
			e.Warnings++
		}
	}
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithExecuteMode marks if execute mode was used
func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	e.DryRun = !execute
	return e
}

// WithSaved records whether the configuration was saved on the device
func (e *Event) WithSaved(saved bool) *Event {
	e.Saved = saved
	return e
}

// Matches reports whether e satisfies every criterion of f.
func (f Filter) Matches(e *Event) bool {
	if f.Device != "" && e.Device != f.Device && e.Host != f.Device && e.Hostname != f.Device {
		return false
	}
	if f.User != "" && e.User != f.User {
		return false
	}
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.Interface != "" && !touches(e, f.Interface) {
		return false
	}
	if !f.StartTime.IsZero() && e.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && e.Timestamp.After(f.EndTime) {
		return false
	}
	if f.SuccessOnly && !e.Success {
		return false
	}
	if f.FailureOnly && e.Success {
		return false
	}
	return true
}

func touches(e *Event, intf string) bool {
	for _, d := range e.Decisions {
		if d.Interface == intf {
			return true
		}
	}
	return false
}

// page applies offset and limit
func (f Filter) page(events []*Event) []*Event {
	if f.Offset > 0 {
		if f.Offset >= len(events) {
			return nil
		}
		events = events[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(events) {
		events = events[:f.Limit]
	}
	return events
}
