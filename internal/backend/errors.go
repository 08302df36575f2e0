package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is a non-2xx backend response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (%d)", e.Status)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Error != "" {
			return &HTTPError{Status: status, Message: apiErr.Error}
		}
		if apiErr.Message != "" {
			return &HTTPError{Status: status, Message: apiErr.Message}
		}
	}
	return &HTTPError{Status: status, Message: strings.TrimSpace(string(payload))}
}
