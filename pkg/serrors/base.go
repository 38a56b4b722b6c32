package serrors

import "fmt"

// BaseError is the coded error carried across module boundaries. Code is a
// stable machine-readable identifier, Message is for humans.
type BaseError struct {
	Code    string
	Message string
	Details string
}

func (e *BaseError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
}

func NewError(code, message, details string) *BaseError {
	return &BaseError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WithDetails returns a copy carrying extra context. The original sentinel
// stays comparable via errors.Is on Code.
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{Code: e.Code, Message: e.Message, Details: details}
}

// Is matches any BaseError with the same Code, so sentinel errors survive
// WithDetails copies.
func (e *BaseError) Is(target error) bool {
	other, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return other.Code == e.Code
}
