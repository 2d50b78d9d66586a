package carousel

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by ServiceError and FormatError.
var (
	ErrGeneratorNotConfigured = errors.New("generation client not configured")
	ErrNoArray                = errors.New("no JSON array found in reply")
	ErrEmptyCarousel          = errors.New("reply contained no slides")
	ErrSlideCount             = errors.New("unexpected slide count")
)

// ServiceError means the remote service never substantively replied. It covers
// configuration and transport failures as well as non-success provider statuses.
type ServiceError struct {
	// StatusCode is the provider's HTTP status, or 0 when no response was received.
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation service error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation service error: %v", e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// FormatStage identifies where reply processing failed.
type FormatStage string

const (
	// StageExtract means no bracketed array span was found.
	StageExtract FormatStage = "extract"
	// StageParse means the span was found but was not a list of title/body records.
	StageParse FormatStage = "parse"
	// StageCount means the slide count was rejected by the count policy.
	StageCount FormatStage = "count"
)

// FormatError means the service replied but the reply could not be understood.
type FormatError struct {
	Stage FormatStage
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("reply format error at %s: %v", e.Stage, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// httpStatuser is implemented by generator errors that carry a provider status.
type httpStatuser interface {
	HTTPStatus() int
}

func newServiceError(err error) *ServiceError {
	se := &ServiceError{Err: err}
	var hs httpStatuser
	if errors.As(err, &hs) {
		se.StatusCode = hs.HTTPStatus()
	}
	return se
}
