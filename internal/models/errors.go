package models

import "fmt"

// AuthError is returned by Adapter.Connect when no credential combination
// yields a session. Surfaced to the caller; never retried from a request
// path.
type AuthError struct {
	Platform Platform
	Reason   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth failed for platform %s: %s", e.Platform, e.Reason)
}

// TransportError is a transient network failure. On a live stream it is
// retried with backoff by the adapter's reconnect loop; on a single REST
// call it is surfaced without retry to keep order semantics predictable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotConnectedError is returned when placing or querying without a live
// session.
type NotConnectedError struct {
	AccountID string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("account %s has no live adapter session", e.AccountID)
}

// RiskRejectedError means a risk gate denied a follower copy. Logged as
// warn; never surfaced to the master path and never a process error.
type RiskRejectedError struct {
	Reason string
}

func (e *RiskRejectedError) Error() string { return "risk rejected: " + e.Reason }

// NotFoundError is an ownership-scoped persistence miss.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// UnauthorisedError signals an ownership scoping violation on a persistence
// read or write.
type UnauthorisedError struct {
	UserID string
	Kind   string
	ID     string
}

func (e *UnauthorisedError) Error() string {
	return fmt.Sprintf("user %s is not authorised for %s %s", e.UserID, e.Kind, e.ID)
}

// ValidationError is a malformed request with field-level detail.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConflictError is a uniqueness violation. For TradeMapping this is the
// idempotency signal: a conflict on (masterTradeId, slaveAccountId) means
// the fan-out already ran and callers MUST treat it as success.
type ConflictError struct {
	Constraint string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on constraint %s", e.Constraint)
}

// EngineFault is unrecoverable: the Copier transitions to ERROR and the
// master subscription is disposed.
type EngineFault struct {
	CopierID string
	Reason   string
}

func (e *EngineFault) Error() string {
	return fmt.Sprintf("engine fault on copier %s: %s", e.CopierID, e.Reason)
}

// UnknownAdapterError is returned by the Adapter Registry when no
// (platform, firm) mapping exists.
type UnknownAdapterError struct {
	Platform Platform
	Firm     Firm
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("no adapter registered for platform %s / firm %s", e.Platform, e.Firm)
}

// AlreadyRunningError is reported when start is called on an already-ACTIVE
// copier; it is a no-op, not a failure.
type AlreadyRunningError struct {
	CopierID string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("copier %s is already running", e.CopierID)
}
