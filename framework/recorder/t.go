package recorder

import (
	"net/http"
	"time"

	"github.com/fhirconformance/fhir-contract-tests/framework"
)

const defaultHTTPTimeout = time.Second * 30

// T is the handle passed to a test body registered with It. Assertions and HTTP interactions
// made through it are recorded under that test.
//
// T also implements the TestingT interfaces of testify's assert and require packages, so
// those can be used directly; such checks affect the test's outcome but are not recorded as
// assertions.
type T struct {
	context  *framework.Context
	recorder *Recorder
	test     *Test
	client   *http.Client
}

// ID returns the host identifier of the test.
func (t *T) ID() framework.TestID {
	return t.context.ID()
}

// Name returns the name given to It.
func (t *T) Name() string {
	return t.test.Name
}

// Errorf is called by testify assertions to report a failure without stopping the test.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by testify's require package to stop the test.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Skip stops the test and records it as skipped.
func (t *T) Skip(reason string) {
	t.context.SkipWithReason(reason)
}

// Debug adds a line of debug output to the test, which the console logger can show if the
// test fails.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

func (t *T) DebugLogger() framework.Logger {
	return t.context.DebugLogger()
}

// Defer schedules a function to run when the test ends.
func (t *T) Defer(fn func()) {
	t.context.Defer(fn)
}

// HTTPClient returns a client whose requests are recorded as steps of this test.
func (t *T) HTTPClient() *http.Client {
	if t.client == nil {
		t.client = &http.Client{
			Transport: &Transport{Recorder: t.recorder, owner: t.test, Logger: t.context.DebugLogger()},
			Timeout:   defaultHTTPTimeout,
		}
		t.Defer(t.client.CloseIdleConnections)
	}
	return t.client
}

// RecordHTTPInteraction records an interaction that was performed some other way than with
// HTTPClient. It panics with a usage error if this test is not the current test.
func (t *T) RecordHTTPInteraction(request HTTPRequest, response HTTPResponse) *Step {
	step := &Step{Request: &request, Response: &response}
	if err := t.recorder.appendStep(t.test, step); err != nil {
		panic(err)
	}
	return step
}
