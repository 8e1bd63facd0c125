package workflow

import (
	"time"
)

// 🚦 State is a step of a run
type State string

const (
	StateValidating State = "validating"
	StateScanning   State = "scanning"
	StateReplacing  State = "replacing"
	StateDryRunning State = "dry_running"
	StateCommitting State = "committing"
	StatePushing    State = "pushing"
	StateOpeningPR  State = "opening_pr"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

func (s State) String() string {
	return string(s)
}

// Terminal reports whether no transition can leave s
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// next lists the legal transitions. Failed is reachable from every
// non-terminal state and is not repeated here.
var next = map[State][]State{
	"":              {StateValidating},
	StateValidating: {StateScanning},
	StateScanning:   {StateReplacing, StateDryRunning, StateCompleted},
	StateReplacing:  {StateCommitting, StateCompleted},
	StateDryRunning: {StateCompleted},
	StateCommitting: {StatePushing},
	StatePushing:    {StateOpeningPR},
	StateOpeningPR:  {StateCompleted},
}

// CanTransition reports whether from -> to is a legal move
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return from != ""
	}
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// 📣 Event is emitted on every state transition
type Event struct {
	From    State     `json:"from,omitempty" yaml:"from,omitempty"`
	State   State     `json:"state" yaml:"state"`
	Time    time.Time `json:"time" yaml:"time"`
	Message string    `json:"message,omitempty" yaml:"message,omitempty"`
	Err     error     `json:"-" yaml:"-"`
}

// Observer receives events synchronously from the goroutine running the job
type Observer func(Event)
