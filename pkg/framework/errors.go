package framework

import (
	"context"
	"errors"
	"strings"
)

// AggregatedError collects failures of concurrently running services.
type AggregatedError struct {
	Errors []error
}

// Error implements error.
func (e *AggregatedError) Error() string {
	switch len(e.Errors) {
	case 0:
		return ""
	case 1:
		return e.Errors[0].Error()
	}
	msg := make([]string, len(e.Errors))
	for n, err := range e.Errors {
		msg[n] = err.Error()
	}
	return "multiple errors: " + strings.Join(msg, "; ")
}

// Unwrap supports errors.Is/As on any of the collected errors.
func (e *AggregatedError) Unwrap() []error {
	return e.Errors
}

// Add collects errors. nil and cancellation are skipped.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	for _, err := range errs {
		if err != nil && !IsCanceled(err) {
			e.Errors = append(e.Errors, err)
		}
	}
	return e
}

// Aggregate returns nil if nothing failed.
func (e *AggregatedError) Aggregate() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// IsCanceled indicates err is caused by a canceled context, which is the
// normal way a service stops.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
