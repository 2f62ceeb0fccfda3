package backend

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrMissingFamilyID = errors.New("backend accepted the member but returned no FamilyId")
	ErrMissingID       = errors.New("backend accepted the record but returned no id")
	ErrKeyLoop         = errors.New("backend repeated a continuation key")
)

// APIError is a response the backend rejected, either with a non-2xx status
// or with a 2xx body whose success flag is false.
type APIError struct {
	Op      string // "METHOD /resource"
	Status  int
	Message string
	Refused bool // true when the body said success:false
}

// Error implements error.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Sprintf("%s: %d: %s", e.Op, e.Status, msg)
}

// UserMessage returns the text suitable for a notification.
func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("The server rejected the request (%d)", e.Status)
}

// Message extracts a notification-friendly message from any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return err.Error()
}
