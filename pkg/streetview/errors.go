package streetview

import (
	"errors"
	"fmt"
)

// ErrInvalidInput reports a malformed or ambiguous request, detected before
// any network call is made.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotImage reports a 200 response whose body is not an image.
var ErrNotImage = errors.New("non-image response from API")

// StatusError is returned when the upstream API answers with a non-200 status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Code)
}
