package evolatent

import "fmt"

// Phase is the coarse position of a session in its state machine.
type Phase int

const (
	// Idle: no prompt yet.
	Idle Phase = iota
	// PromptSet: a prompt is set and the next Generate may run.
	PromptSet
	// Generating: a request is in flight.
	Generating
	// Ready: step n is persisted and shown.
	Ready
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case PromptSet:
		return "PromptSet"
	case Generating:
		return "Generating"
	case Ready:
		return "Ready"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is a snapshot of the session state machine.
type State struct {
	Phase Phase
	// Step is the latest persisted step; only meaningful when HasStep is true.
	Step    int
	HasStep bool
}

func (s State) String() string {
	if s.Phase == Ready {
		return fmt.Sprintf("Ready(%d)", s.Step)
	}
	return s.Phase.String()
}

// nextStep is the index the next successful transition persists.
func (s State) nextStep() int {
	if !s.HasStep {
		return 0
	}
	return s.Step + 1
}
