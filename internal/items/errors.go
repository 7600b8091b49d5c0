package items

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the referenced item does not exist.
var ErrNotFound = errors.New("item not found")

// ValidationError reports a client-fixable problem with an input value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
