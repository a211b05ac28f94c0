package db

import "strings"

// LoanState is the canonical lifecycle state of a loan
type LoanState string

const (
	LoanPending  LoanState = "pending"
	LoanActive   LoanState = "active"
	LoanReturned LoanState = "returned"
	LoanExpired  LoanState = "expired"
)

var loanStates = []LoanState{LoanPending, LoanActive, LoanReturned, LoanExpired}

// LoanStatesWhere lists the canonical loan states for which keep is true
func LoanStatesWhere(keep func(LoanState) bool) []LoanState {
	var states []LoanState
	for _, s := range loanStates {
		if keep(s) {
			states = append(states, s)
		}
	}
	return states
}

// legacy spellings found in older rows
var loanStateAliases = map[string]LoanState{
	"pending":    LoanPending,
	"pendiente":  LoanPending,
	"active":     LoanActive,
	"activo":     LoanActive,
	"en curso":   LoanActive,
	"returned":   LoanReturned,
	"devuelto":   LoanReturned,
	"finalizado": LoanReturned,
	"expired":    LoanExpired,
	"vencido":    LoanExpired,
	"expirado":   LoanExpired,
}

// ParseLoanState normalizes free-text state values. Unknown values report false.
func ParseLoanState(s string) (LoanState, bool) {
	state, ok := loanStateAliases[strings.ToLower(strings.TrimSpace(s))]
	return state, ok
}

// CanTransitionTo reports whether a loan may move from s to next.
func (s LoanState) CanTransitionTo(next LoanState) bool {
	switch s {
	case LoanPending:
		return next == LoanActive
	case LoanActive:
		return next == LoanReturned || next == LoanExpired
	case LoanExpired:
		return next == LoanReturned
	}
	return false
}

// CountsTowardHistory reports whether the loan is a completed or ongoing lending.
func (s LoanState) CountsTowardHistory() bool {
	return s == LoanActive || s == LoanReturned
}

// ReserveStatus is the lifecycle state of a reserve
type ReserveStatus string

const (
	ReservePending  ReserveStatus = "pending"
	ReserveActive   ReserveStatus = "active"
	ReserveExpired  ReserveStatus = "expired"
	ReserveReturned ReserveStatus = "returned"
)
