package client

import (
	"errors"
	"fmt"
)

// BackendError is the normalized form of every failed backend call:
// network failures, 4xx and 5xx responses all end up here.
type BackendError struct {
	Status         int    `json:"status"`
	Code           string `json:"code,omitempty"`
	Message        string `json:"message"`
	IsNetworkError bool   `json:"is_network_error"`
}

func (e *BackendError) Error() string {
	if e.IsNetworkError {
		return fmt.Sprintf("socialdeck: network error: %s", e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("socialdeck: %s (status: %d, code: %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("socialdeck: %s (status: %d)", e.Message, e.Status)
}

// IsServerError returns true if the backend responded with a 5xx status.
func (e *BackendError) IsServerError() bool {
	return e.Status >= 500
}

// IsClientError returns true if the backend rejected the request as a 4xx.
func (e *BackendError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// retryableStatuses are the transient response codes worth another attempt.
var retryableStatuses = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// IsRetryable returns true if the error might resolve by retrying.
func (e *BackendError) IsRetryable() bool {
	return e.IsNetworkError || retryableStatuses[e.Status]
}

// AsBackendError unwraps err into a *BackendError if it is one.
func AsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
