package provider

import "fmt"

// APIError reports a non-success response status from the feed endpoint,
// distinct from a transport failure.
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feed API error: status %d", e.StatusCode)
}
