package domain

import "fmt"

// ErrorCode identifies a class of reconciliation error.
type ErrorCode string

const (
	// ErrorDuplicateSourceEntry indicates a source entry is already matched by a line.
	ErrorDuplicateSourceEntry ErrorCode = "duplicate_source_entry"
	// ErrorInvalidWorkingSet indicates a structural invariant of the working set broke.
	ErrorInvalidWorkingSet ErrorCode = "invalid_working_set"
	// ErrorLineNotFound indicates no line carries the requested index.
	ErrorLineNotFound ErrorCode = "line_not_found"
	// ErrorReadOnly indicates the transaction is already reconciled.
	ErrorReadOnly ErrorCode = "read_only"
	// ErrorInvalidState indicates an operation was called in the wrong validity state.
	ErrorInvalidState ErrorCode = "invalid_state"
	// ErrorUnknownCommand indicates a command variant with no registered handler.
	ErrorUnknownCommand ErrorCode = "unknown_command"
	// ErrorInvalidInput indicates a malformed request.
	ErrorInvalidInput ErrorCode = "invalid_input"
	// ErrorRateNotFound indicates no exchange rate is known for a currency and date.
	ErrorRateNotFound ErrorCode = "rate_not_found"
	// ErrorNotFound indicates a referenced record does not exist.
	ErrorNotFound ErrorCode = "not_found"
)

// DomainError is a user-actionable reconciliation error.
type DomainError struct {
	Code    ErrorCode
	Field   string
	Message string
}

func (e DomainError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
}

// Is matches any DomainError carrying the same code.
func (e DomainError) Is(target error) bool {
	t, ok := target.(DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a domain error with code, field, and message.
func NewDomainError(code ErrorCode, field, message string) error {
	return DomainError{Code: code, Field: field, Message: message}
}

var (
	ErrDuplicateSourceEntry = DomainError{Code: ErrorDuplicateSourceEntry, Message: "source entry already matched"}
	ErrInvalidWorkingSet    = DomainError{Code: ErrorInvalidWorkingSet, Message: "working set invariant violated"}
	ErrLineNotFound         = DomainError{Code: ErrorLineNotFound, Message: "line not found"}
	ErrReadOnly             = DomainError{Code: ErrorReadOnly, Message: "transaction is already reconciled"}
	ErrInvalidState         = DomainError{Code: ErrorInvalidState, Message: "operation not allowed in current state"}
	ErrUnknownCommand       = DomainError{Code: ErrorUnknownCommand, Message: "unknown command"}
	ErrInvalidInput         = DomainError{Code: ErrorInvalidInput, Message: "invalid input"}
	ErrRateNotFound         = DomainError{Code: ErrorRateNotFound, Message: "exchange rate not found"}
	ErrNotFound             = DomainError{Code: ErrorNotFound, Message: "record not found"}
)
