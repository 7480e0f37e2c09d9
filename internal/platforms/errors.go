package platforms

import (
	"errors"
	"fmt"
)

// ExternalAPIError means a third-party platform rejected a call: token
// exchange, refresh, profile or metrics fetch. Adapters never retry these
// automatically; they propagate to the caller.
type ExternalAPIError struct {
	Platform  Platform
	Operation string
	Status    int
	Message   string
}

func (e *ExternalAPIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %s", e.Platform, e.Operation, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Platform, e.Operation, e.Message)
}

func apiError(p Platform, op string, status int, message string) *ExternalAPIError {
	return &ExternalAPIError{Platform: p, Operation: op, Status: status, Message: message}
}

// AsExternalAPIError unwraps err into an *ExternalAPIError if it is one.
func AsExternalAPIError(err error) (*ExternalAPIError, bool) {
	var ae *ExternalAPIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
