package sheepy

import (
	"fmt"
	"html"
)

// TransportError reports that no HTTP response was obtained.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError reports a non-200 or undecodable API response. Message is
// HTML-escaped and safe to display.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func newUpstreamError(status int, msg string) *UpstreamError {
	return &UpstreamError{StatusCode: status, Message: html.EscapeString(msg)}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("request error (%d): %s", e.StatusCode, e.Message)
}
