package engine

import "fmt"

// State is the capture lifecycle of one document context.
type State int

const (
	Idle State = iota
	Captured
	Pending
	Reconciled
	Failed
	Cancelled
)

var stateNames = [...]string{
	Idle:       "idle",
	Captured:   "captured",
	Pending:    "pending",
	Reconciled: "reconciled",
	Failed:     "failed",
	Cancelled:  "cancelled",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// allowed lists the legal transitions. Reconciled, Failed and Cancelled are
// transient and always fall back to Idle.
var allowed = map[State][]State{
	Idle:       {Captured},
	Captured:   {Captured, Pending, Cancelled},
	Pending:    {Reconciled, Failed, Cancelled},
	Reconciled: {Idle},
	Failed:     {Idle},
	Cancelled:  {Idle},
}

func canTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Outcome reports what an Enhance call did.
type Outcome int

const (
	// OutcomeIgnored means an enhancement was already in flight.
	OutcomeIgnored Outcome = iota
	OutcomeReplaced
	// OutcomeClipboard means the result could not be placed and was copied
	// to the clipboard instead.
	OutcomeClipboard
	// OutcomeDiscarded means the capture was cancelled before the result
	// arrived.
	OutcomeDiscarded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeReplaced:
		return "replaced"
	case OutcomeClipboard:
		return "clipboard"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}
