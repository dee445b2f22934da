package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable matches any UpstreamError.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidMarkup       = errors.New("invalid markup")
	ErrInvalidCost         = errors.New("invalid cost")
	ErrNotFound            = errors.New("not found")
)

// ValidationError rejects an inbound payload at the boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError wraps a transport or timeout failure of an external service.
type UpstreamError struct {
	Service string // catalog | knowledge | responder | delivery
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// Upstream wraps err as an UpstreamError for service. A nil err stays nil.
func Upstream(service string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Service: service, Err: err}
}

// ParseError reports user input that could not be turned into a value.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// GenerationError is returned by a Responder when the backend answered
// but the answer has no usable completion.
type GenerationError struct {
	Reason string
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Reason
}

// DeliveryError reports a non-success status from the messaging API.
type DeliveryError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}
