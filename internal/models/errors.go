package models

import "errors"

// Sentinel errors for every rejected circle transition. Handlers map these to
// stable error kinds so integrators can match on them.
var (
	ErrCircleNotFound        = errors.New("circle not found")
	ErrCircleNotOpen         = errors.New("circle is not open for membership changes")
	ErrCircleNotActive       = errors.New("circle is not active")
	ErrAlreadyJoined         = errors.New("address is already a member")
	ErrUnauthorized          = errors.New("caller is not authorized for this operation")
	ErrInsufficientAllowance = errors.New("token allowance does not cover the transfer")
	ErrInsufficientFunds     = errors.New("token balance does not cover the transfer")
	ErrCycleNotComplete      = errors.New("not every member has contributed this cycle")
	ErrAlreadyContributed    = errors.New("address already contributed this cycle")
	ErrInvalidAmount         = errors.New("amount does not match the required contribution")
	ErrMaxMembersReached     = errors.New("circle is full")
	ErrTooFewMembers         = errors.New("circle needs at least two members to start")
)

// ErrorKind returns the stable wire name for a domain error, or "Internal"
// for anything unrecognized.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrCircleNotFound):
		return "CircleNotFound"
	case errors.Is(err, ErrCircleNotOpen):
		return "CircleNotOpen"
	case errors.Is(err, ErrCircleNotActive):
		return "CircleNotActive"
	case errors.Is(err, ErrAlreadyJoined):
		return "AlreadyJoined"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrInsufficientAllowance):
		return "InsufficientAllowance"
	case errors.Is(err, ErrInsufficientFunds):
		return "InsufficientFunds"
	case errors.Is(err, ErrCycleNotComplete):
		return "CycleNotComplete"
	case errors.Is(err, ErrAlreadyContributed):
		return "AlreadyContributed"
	case errors.Is(err, ErrInvalidAmount):
		return "InvalidAmount"
	case errors.Is(err, ErrMaxMembersReached):
		return "MaxMembersReached"
	case errors.Is(err, ErrTooFewMembers):
		return "TooFewMembers"
	default:
		return "Internal"
	}
}

// IsDomainError reports whether err is one of the named domain errors.
func IsDomainError(err error) bool {
	return ErrorKind(err) != "Internal"
}
