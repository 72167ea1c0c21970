package domain

// LedgerState is the canonical payment status recorded against an order.
// Values mirror the ledger's numeric status ids.
type LedgerState int

// Ledger states
const (
	StateAwaitingApproval LedgerState = 1
	StateApproved         LedgerState = 2
	StateCaptured         LedgerState = 3
	StateCanceled         LedgerState = 5
	StateRefused          LedgerState = 6
	StateRefunded         LedgerState = 9
)

// AllStates lists every ledger state in ledger id order
var AllStates = []LedgerState{
	StateAwaitingApproval,
	StateApproved,
	StateCaptured,
	StateCanceled,
	StateRefused,
	StateRefunded,
}

var stateNames = map[LedgerState]string{
	StateAwaitingApproval: "awaiting_approval",
	StateApproved:         "approved",
	StateCaptured:         "captured",
	StateCanceled:         "canceled",
	StateRefused:          "refused",
	StateRefunded:         "refunded",
}

func (s LedgerState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether no further gateway notification may move the state
func (s LedgerState) IsTerminal() bool {
	switch s {
	case StateCaptured, StateRefused, StateCanceled, StateRefunded:
		return true
	}
	return false
}

// transitions lists the legal successor states for status notifications.
// Refunded is only reachable through refund events, see refundable.
var transitions = map[LedgerState][]LedgerState{
	StateAwaitingApproval: {StateApproved, StateRefused, StateCanceled},
	StateApproved:         {StateCaptured, StateRefused, StateCanceled},
}

var refundable = map[LedgerState]bool{
	StateCaptured: true,
	StateApproved: true,
}

// CanTransition reports whether a status notification may move a payment from one state to another
func CanTransition(from, to LedgerState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanRefund reports whether a refund event may be booked against a payment in the given state
func CanRefund(from LedgerState) bool {
	return refundable[from]
}
