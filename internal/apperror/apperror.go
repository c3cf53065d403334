package apperror

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by config resolution and event generation. Callers
// match them with errors.Is; the wrapping AppError carries the context.
var (
	ErrInvalidTimeZone   = errors.New("invalid time zone")
	ErrInvalidOriginDate = errors.New("invalid origin date")
	ErrLunarConversion   = errors.New("lunar conversion failure")
	ErrConfigResolution  = errors.New("config resolution error")
)

type AppError struct {
	Err     error  // one of the sentinel kinds above
	Message string // human-readable detail
	Person  string // optional: person whose generation failed
	Field   string // optional: config field causing the error
	Cause   error  // optional: underlying library error
}

func (e *AppError) Error() string {
	msg := e.Err.Error() + ": " + e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	if e.Person != "" {
		msg = fmt.Sprintf("%s [person %s]", msg, e.Person)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func InvalidTimeZone(zone string, cause error) *AppError {
	return &AppError{
		Err:     ErrInvalidTimeZone,
		Message: fmt.Sprintf("unknown zone %q", zone),
		Field:   "timezone",
		Cause:   cause,
	}
}

func InvalidOriginDate(value string, cause error) *AppError {
	return &AppError{
		Err:     ErrInvalidOriginDate,
		Message: fmt.Sprintf("cannot use %q as a calendar date", value),
		Field:   "startdate",
		Cause:   cause,
	}
}

func LunarConversion(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrLunarConversion,
		Message: message,
		Cause:   cause,
	}
}

func ConfigResolution(field, message string) *AppError {
	return &AppError{
		Err:     ErrConfigResolution,
		Message: message,
		Field:   field,
	}
}

// WithPerson attaches the person name to err when it is an AppError that
// does not carry one yet. Other errors are returned unchanged.
func WithPerson(err error, person string) error {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Person == "" {
		cp := *appErr
		cp.Person = person
		return &cp
	}
	return err
}
