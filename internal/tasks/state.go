package tasks

import "strings"

// State is the lifecycle position of a task.
type State int

const (
	StateUnknown State = iota
	StateQueued
	StateRunning
	StateSucceeded
	StateFailed
	StateAborted
)

var stateNames = map[State]string{
	StateUnknown:   "UNKNOWN",
	StateQueued:    "QUEUED",
	StateRunning:   "RUNNING",
	StateSucceeded: "SUCCEEDED",
	StateFailed:    "FAILED",
	StateAborted:   "ABORTED",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return stateNames[StateUnknown]
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateAborted
}

// ParseState accepts the v3 and v4 spellings, in any case.
func ParseState(s string) State {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "QUEUED", "PENDING":
		return StateQueued
	case "RUNNING", "CANCELING":
		return StateRunning
	case "SUCCEEDED", "SUCCESS":
		return StateSucceeded
	case "FAILED", "FAILURE":
		return StateFailed
	case "ABORTED", "CANCELED", "CANCELLED", "SKIPPED":
		return StateAborted
	}
	return StateUnknown
}
