package mealapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork means the request never got an HTTP response.
	ErrNetwork = errors.New("network failure")
	// ErrNotFound matches any *APIError with status 404.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx answer. Reason is the first message of the envelope, if any.
type APIError struct {
	Status int
	Reason string
}

func (e *APIError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d: %s", e.Status, e.Reason)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Reason extracts the server-provided reason from err, if it carries one.
func Reason(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Reason != "" {
		return apiErr.Reason, true
	}
	return "", false
}
