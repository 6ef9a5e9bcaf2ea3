package id

import "github.com/google/uuid"

// NewCorrelationID mints the opaque token that ties together every log line and
// user-facing message of a single slash-command invocation.
func NewCorrelationID() string {
	return uuid.NewString()
}
