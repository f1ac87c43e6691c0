package custom_error

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type NotFoundError struct {
	Resource string
	ID       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// InvalidTransitionError is returned for session status changes the state
// machine does not allow, including any change of a terminal session.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change session status from %s to %s", e.From, e.To)
}

// StaleSessionError means a guarded session write matched no row: the session
// left the expected status before the write landed.
type StaleSessionError struct {
	ID int
}

func (e *StaleSessionError) Error() string {
	return fmt.Sprintf("vaccination session %d changed concurrently", e.ID)
}
