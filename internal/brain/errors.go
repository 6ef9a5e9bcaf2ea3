package brain

import (
	"errors"
	"fmt"
)

// FailureKind classifies terminal pipeline failures. The user-facing reply is
// derived from the kind alone; the wrapped error is only logged.
type FailureKind string

const (
	FailureNotFound           FailureKind = "not_found"
	FailureUnsupportedType    FailureKind = "unsupported_type"
	FailureModelInvalidOutput FailureKind = "model_invalid_output"
	FailureServiceError       FailureKind = "service_error"
)

var (
	ErrUnsupportedIssueType = errors.New("unsupported issue type")
	ErrInvalidAfterRepair   = errors.New("invalid model output after repair")
)

type PipelineError struct {
	Kind FailureKind
	// IssueType is set for FailureUnsupportedType.
	IssueType string
	Err       error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func newPipelineError(kind FailureKind, err error) *PipelineError {
	return &PipelineError{Kind: kind, Err: err}
}

// FailureKindOf returns the kind of a pipeline error, or FailureServiceError for
// anything that was not classified.
func FailureKindOf(err error) FailureKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return FailureServiceError
}

// UserMessage renders the single reply a user sees for a failed command. Raw
// error text never reaches it.
func UserMessage(err error, issueKey, correlationID string) string {
	var pe *PipelineError
	if !errors.As(err, &pe) {
		pe = &PipelineError{Kind: FailureServiceError}
	}

	switch pe.Kind {
	case FailureNotFound:
		return fmt.Sprintf("I couldn't find Jira issue %s. Please check the key and try again. (correlation: %s)", issueKey, correlationID)
	case FailureUnsupportedType:
		return fmt.Sprintf("Unsupported issue type: %q. Supported: User Story or Bug. (correlation: %s)", pe.IssueType, correlationID)
	case FailureModelInvalidOutput:
		return fmt.Sprintf("Failed to process %s. OpenAI generation failed. (correlation: %s)", issueKey, correlationID)
	default:
		return fmt.Sprintf("Failed to process %s. Please try again. (correlation: %s)", issueKey, correlationID)
	}
}
