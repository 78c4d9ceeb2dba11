package fsm

// Status is the lifecycle state of a payment attempt.
type Status string

// Status constants used by the payment state machine.
const (
	StatusPending    Status = "PENDING"
	StatusInitiated  Status = "INITIATED"
	StatusProcessing Status = "PROCESSING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusExpired    Status = "EXPIRED"
)

var terminals = []Status{StatusSucceeded, StatusFailed, StatusCancelled, StatusExpired}

var transitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusInitiated:  {},
		StatusProcessing: {},
		StatusSucceeded:  {},
		StatusFailed:     {},
		StatusCancelled:  {},
		StatusExpired:    {},
	},
	StatusInitiated: {
		StatusProcessing: {},
		StatusSucceeded:  {},
		StatusFailed:     {},
		StatusCancelled:  {},
		StatusExpired:    {},
	},
	StatusProcessing: {
		StatusSucceeded: {},
		StatusFailed:    {},
		StatusCancelled: {},
		StatusExpired:   {},
	},
	StatusSucceeded: {},
	StatusFailed:    {},
	StatusCancelled: {},
	StatusExpired:   {},
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	for _, t := range terminals {
		if s == t {
			return true
		}
	}
	return false
}

// Terminals returns the terminal statuses.
func Terminals() []Status {
	out := make([]Status, len(terminals))
	copy(out, terminals)
	return out
}

// CanTransition returns whether a payment can move from the current status to the target status.
// A self-transition is never allowed; repeating a status is not a change.
func CanTransition(from, to Status) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}
