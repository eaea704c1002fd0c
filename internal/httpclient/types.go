package httpclient

import "fmt"

// HTTPError is returned for any non-2xx upstream response. It keeps the
// status code so callers can distinguish permanent failures from retryable
// ones.
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError wraps a failed response's status and body excerpt.
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}
