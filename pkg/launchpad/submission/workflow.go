package submission

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/code-payments/launchpad-server/pkg/solana"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrWorkflowFinished  = errors.New("workflow already finished")
)

type State uint8

const (
	StateBuilding State = iota
	StateAwaitingSignature
	StateSubmitted
	StateConfirmed
	StateExpired
	StateRejected
	StateFailed
)

var validTransitions = map[State][]State{
	StateBuilding:          {StateAwaitingSignature, StateFailed},
	StateAwaitingSignature: {StateSubmitted, StateRejected, StateFailed},
	StateSubmitted:         {StateConfirmed, StateExpired, StateFailed},
}

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateAwaitingSignature:
		return "awaiting_signature"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateExpired:
		return "expired"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	_, ok := validTransitions[s]
	return !ok
}

func (s State) canTransitionTo(to State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Transition struct {
	From State
	To   State
	At   time.Time

	// Err is the cause of a transition into a failure state.
	Err error
}

// Listener observes every transition of a workflow. It's called synchronously
// and must not block.
type Listener func(workflow *Workflow, transition Transition)

// Workflow tracks a single user action from assembly to its outcome. A
// workflow is submitted at most once.
type Workflow struct {
	ID   uuid.UUID
	Kind string

	sync.Mutex
	state       State
	signature   solana.Signature
	transitions []Transition
	listener    Listener
}

type WorkflowOption func(*Workflow)

func WithListener(listener Listener) WorkflowOption {
	return func(w *Workflow) {
		w.listener = listener
	}
}

func NewWorkflow(kind string, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		ID:    uuid.New(),
		Kind:  kind,
		state: StateBuilding,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) State() State {
	w.Lock()
	defer w.Unlock()
	return w.state
}

// Signature returns the transaction signature, once the external signer has
// produced one.
func (w *Workflow) Signature() solana.Signature {
	w.Lock()
	defer w.Unlock()
	return w.signature
}

func (w *Workflow) Transitions() []Transition {
	w.Lock()
	defer w.Unlock()
	return append([]Transition{}, w.transitions...)
}

// Transition moves the workflow into state to. Only forward transitions along
// Building, AwaitingSignature, Submitted into a terminal state are allowed.
func (w *Workflow) Transition(to State, cause error) error {
	w.Lock()

	if w.state.IsTerminal() {
		w.Unlock()
		return errors.Wrapf(ErrWorkflowFinished, "workflow is %s", w.state)
	}
	if !w.state.canTransitionTo(to) {
		from := w.state
		w.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
	}

	transition := Transition{
		From: w.state,
		To:   to,
		At:   time.Now(),
		Err:  cause,
	}
	w.state = to
	w.transitions = append(w.transitions, transition)
	listener := w.listener

	w.Unlock()

	if listener != nil {
		listener(w, transition)
	}
	return nil
}

func (w *Workflow) setSignature(sig solana.Signature) {
	w.Lock()
	defer w.Unlock()
	w.signature = sig
}
