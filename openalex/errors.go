package openalex

import "fmt"

// StatusError reports a fatal upstream status (non-2xx, non-429). It is
// marked with errors.ErrFetch so callers can match the taxonomy without
// knowing this type.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("openalex returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("openalex returned status %d: %s", e.StatusCode, e.Body)
}
