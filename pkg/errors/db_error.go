package custom_error

import "fmt"

type CustomError interface {
	Error() string
}

type UniqueViolationError struct {
	message string
	code    string // PostgreSQL error code (e.g., "23505")
}

type ForeignKeyViolationError struct {
	message string
	code    string // PostgreSQL error code (e.g., "23503")
}

func (f *ForeignKeyViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", f.message, f.code)
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", e.message, e.code)
}

// WrapDBError turns a PostgreSQL error code into one of the typed errors.
// Serialization failures and deadlocks are reported as write conflicts so
// the ledger retry loop picks them up.
func WrapDBError(message, code string) CustomError {
	switch code {
	case "23505":
		return &UniqueViolationError{
			message: message,
			code:    code,
		}
	case "23503":
		return &ForeignKeyViolationError{
			message: "Referenced resource does not exist or is still in use: " + message,
			code:    code,
		}
	case "40001", "40P01":
		return &WriteConflictError{Reason: fmt.Sprintf("%s (code: %s)", message, code)}
	default:
		return fmt.Errorf("uncategorized error occurred with code %s: %s", code, message)
	}
}
