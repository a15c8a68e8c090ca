package models

import "errors"

// Domain error taxonomy. Handlers map these onto HTTP statuses; callers
// branch with errors.Is.
var (
	// ErrUnknownMarket is returned for a market id no adapter is registered for.
	ErrUnknownMarket = errors.New("unknown market")

	// ErrCalendarExhausted is returned when a forward scan finds no open day
	// within the bounded horizon. This indicates a degenerate calendar
	// configuration, not a transient condition.
	ErrCalendarExhausted = errors.New("calendar exhausted: no open day within scan horizon")

	// ErrOracleUnavailable covers network failures and timeouts reaching the
	// analysis oracle. Safe to retry with backoff.
	ErrOracleUnavailable = errors.New("analysis oracle unavailable")

	// ErrOracleMalformed means the oracle responded but the payload did not
	// match the declared result schema.
	ErrOracleMalformed = errors.New("analysis oracle response malformed")

	// ErrPersistenceFailure wraps storage errors after a result was produced
	// but before it could be recorded.
	ErrPersistenceFailure = errors.New("persistence failure")
)
