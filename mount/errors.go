package mount

import "fmt"

// ValidationError reports a request rejected before any movement began.
// It is always returned synchronously and never retried by the engine.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}
