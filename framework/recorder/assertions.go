package recorder

import (
	"fmt"
	"strings"

	"github.com/fhirconformance/fhir-contract-tests/framework"

	"github.com/stretchr/testify/assert"
)

// Assertion types, as they appear in the report.
const (
	AssertEquals       = "assertEquals"
	AssertNotEquals    = "assertNotEquals"
	AssertStrictEquals = "assertStrictEquals"
	AssertExists       = "assertExists"
	AssertFalse        = "assertFalse"
	AssertThrows       = "assertThrows"
	AssertGeneric      = "assert"
	AssertTrue         = "assertTrue"
	AssertContains     = "assertContains"
	AssertLen          = "assertLen"
	AssertNoError      = "assertNoError"
)

// failureCapture is the assert.TestingT that intercepted checks report to, so a failure
// message can be recorded before the test is stopped.
type failureCapture struct {
	messages []string
}

func (f *failureCapture) Errorf(format string, args ...interface{}) {
	f.messages = append(f.messages, fmt.Sprintf(format, args...))
}

func (f *failureCapture) message() string {
	return summarizeFailure(strings.Join(f.messages, "\n"))
}

// summarizeFailure drops testify's "Error Trace" section, since the assertion's line is
// recorded separately.
func summarizeFailure(s string) string {
	if i := strings.Index(s, "\tError:"); i >= 0 {
		s = s[i:]
	}
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func formatMessage(msgAndArgs []interface{}) string {
	switch len(msgAndArgs) {
	case 0:
		return ""
	case 1:
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%+v", msgAndArgs[0])
	default:
		if format, ok := msgAndArgs[0].(string); ok {
			return fmt.Sprintf(format, msgAndArgs[1:]...)
		}
		return fmt.Sprint(msgAndArgs...)
	}
}

// check runs one intercepted assertion. The assertion is recorded under the current step
// whether or not it passes; a failure then panics with an *AssertionError.
func (t *T) check(
	kind string,
	expected, actual interface{},
	msgAndArgs []interface{},
	fn func(assert.TestingT) bool,
) {
	line := t.recorder.source.callerLine(2)
	step, err := t.recorder.currentStepFor(t.test)
	if err != nil {
		panic(err)
	}

	capture := &failureCapture{}
	passed := fn(capture)
	message := formatMessage(msgAndArgs)
	if !passed {
		message = capture.message()
	}

	t.recorder.appendAssertion(step, Assertion{
		Type:     kind,
		Expected: expected,
		Actual:   actual,
		Passed:   passed,
		Message:  message,
		Line:     line,
	})

	if !passed {
		panic(&AssertionError{Type: kind, Message: message, Line: line})
	}
}

// Equals asserts that the values are equal, comparing them as testify's assert.Equal does.
func (t *T) Equals(expected, actual interface{}, msgAndArgs ...interface{}) {
	t.check(AssertEquals, expected, actual, msgAndArgs, func(ct assert.TestingT) bool {
		return assert.Equal(ct, expected, actual, msgAndArgs...)
	})
}

// NotEquals asserts that the values are not equal.
func (t *T) NotEquals(expected, actual interface{}, msgAndArgs ...interface{}) {
	t.check(AssertNotEquals, expected, actual, msgAndArgs, func(ct assert.TestingT) bool {
		return assert.NotEqual(ct, expected, actual, msgAndArgs...)
	})
}

// StrictEquals asserts that the values are equal and of the same type.
func (t *T) StrictEquals(expected, actual interface{}, msgAndArgs ...interface{}) {
	t.check(AssertStrictEquals, expected, actual, msgAndArgs, func(ct assert.TestingT) bool {
		return assert.Exactly(ct, expected, actual, msgAndArgs...)
	})
}

// Exists asserts that the value is not nil.
func (t *T) Exists(actual interface{}, msgAndArgs ...interface{}) {
	t.check(AssertExists, nil, actual, msgAndArgs, func(ct assert.TestingT) bool {
		return assert.NotNil(ct, actual, msgAndArgs...)
	})
}

// False asserts that the value is false.
func (t *T) False(actual bool, msgAndArgs ...interface{}) {
	t.check(AssertFalse, false, actual, msgAndArgs, func(ct assert.TestingT) bool {
		return assert.False(ct, actual, msgAndArgs...)
	})
}

// Assert asserts that the condition is true.
func (t *T) Assert(condition bool, msgAndArgs ...interface{}) {
	t.check(AssertGeneric, true, condition, msgAndArgs, func(ct assert.TestingT) bool {
		return assert.True(ct, condition, msgAndArgs...)
	})
}

// True is the same as Assert, but is recorded as its own assertion type.
func (t *T) True(actual bool, msgAndArgs ...interface{}) {
	t.check(AssertTrue, true, actual, msgAndArgs, func(ct assert.TestingT) bool {
		return assert.True(ct, actual, msgAndArgs...)
	})
}

// Throws asserts that the function panics. The recorded actual value is whatever the
// function panicked with.
//
// A function that stops the test itself, with FailNow, require or Skip, has not thrown: the
// test ends there and nothing is recorded for the Throws call.
func (t *T) Throws(fn func(), msgAndArgs ...interface{}) {
	thrown, didPanic := catchPanic(fn)
	if c, ok := thrown.(*framework.Context); ok {
		panic(c)
	}
	var actual interface{}
	switch e := thrown.(type) {
	case error:
		actual = e.Error()
	case fmt.Stringer:
		actual = e.String()
	default:
		actual = thrown
	}
	t.check(AssertThrows, "panic", actual, msgAndArgs, func(ct assert.TestingT) bool {
		if !didPanic {
			return assert.Fail(ct, "function did not panic", msgAndArgs...)
		}
		return true
	})
}

func catchPanic(fn func()) (thrown interface{}, didPanic bool) {
	defer func() {
		if thrown = recover(); thrown != nil {
			didPanic = true
		}
	}()
	fn()
	return nil, false
}

// Contains asserts that the string, slice or map contains the element.
func (t *T) Contains(container, element interface{}, msgAndArgs ...interface{}) {
	t.check(AssertContains, element, container, msgAndArgs, func(ct assert.TestingT) bool {
		return assert.Contains(ct, container, element, msgAndArgs...)
	})
}

// Len asserts that the object has the specified length.
func (t *T) Len(object interface{}, length int, msgAndArgs ...interface{}) {
	t.check(AssertLen, length, object, msgAndArgs, func(ct assert.TestingT) bool {
		return assert.Len(ct, object, length, msgAndArgs...)
	})
}

// NoError asserts that the error is nil.
func (t *T) NoError(err error, msgAndArgs ...interface{}) {
	var actual interface{}
	if err != nil {
		actual = err.Error()
	}
	t.check(AssertNoError, nil, actual, msgAndArgs, func(ct assert.TestingT) bool {
		return assert.NoError(ct, err, msgAndArgs...)
	})
}
