package tracking

import (
	"errors"
	"fmt"
)

// StatusError reports a backend response with an unexpected status
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend API error on %s: %d - %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given status code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// ErrMissingProfileID is returned when an operation needs a profile id and none is set
var ErrMissingProfileID = errors.New("profile id is not set: call SetProfileID before registering a push token")
