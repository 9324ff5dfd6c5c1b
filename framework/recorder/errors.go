package recorder

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAssertionOutsideTest means an assertion was made when there was no test in
	// progress, or before the test had recorded any HTTP interaction to attach it to.
	ErrAssertionOutsideTest = errors.New("assertion outside test")

	// ErrInteractionOutsideTest means an HTTP interaction was recorded when there was no
	// test in progress.
	ErrInteractionOutsideTest = errors.New("HTTP interaction recorded outside test")
)

// AssertionError is raised when an intercepted assertion fails.
type AssertionError struct {
	Type    string
	Message string
	Line    int
}

func (e *AssertionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s failed (line %d): %s", e.Type, e.Line, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Type, e.Message)
}

// IsUsageError returns true if the error indicates that the recorder was used incorrectly,
// rather than that the server under test misbehaved.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrAssertionOutsideTest) || errors.Is(err, ErrInteractionOutsideTest)
}
