package amo

import (
	"errors"
	"fmt"
	"net"
)

// APIError is a non-2xx response from the signing service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("signing service returned %d: %s", e.StatusCode, e.Body)
}

// SignatureError means the service has not finished validating or
// signing yet. It is the retryable "poll again" signal.
type SignatureError struct {
	Detail string
}

func (e *SignatureError) Error() string {
	return "signing not complete: " + e.Detail
}

// ConflictError means the version already exists on the service. The
// signing flow treats it as success with no new version id.
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return "version already exists: " + e.Detail
}

// retryable reports whether an error is worth another attempt: network
// failures, incomplete signing, and server-side errors. Client-side API
// errors and conflicts are terminal.
func retryable(err error) bool {
	var sigErr *SignatureError
	if errors.As(err, &sigErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
