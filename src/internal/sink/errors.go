package sink

import "fmt"

// StatusError reports a non-success status from the webhook endpoint.
// Distinguishable from transport-level failures so callers can tell a
// reachable-but-rejecting endpoint from a connectivity problem.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
}
