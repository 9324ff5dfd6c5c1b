package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
)

type environment struct {
	results    Results
	testLogger TestLogger
	filter     Filter
}

// Context is the host runner's handle for one test or group of tests. It is similar to Go's
// *testing.T: test logic is associated with a TestID and accumulates success/failure results.
//
// Tests run strictly one at a time, in the order in which Run is called.
type Context struct {
	env         *environment
	id          TestID
	group       bool
	debugLogger CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
	deferred    []func()
}

// Run creates a root Context and runs the specified action against it, returning the
// accumulated results of every test that was run inside it.
func Run(
	filter Filter,
	testLogger TestLogger,
	action func(*Context),
) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:     filter,
		testLogger: testLogger,
	}
	c := &Context{env: env, group: true}
	c.run(action)
	return env.results
}

func (c *Context) run(action func(*Context)) {
	defer func() {
		if r := recover(); r != nil {
			if c.skipped {
				c.runDeferred()
				c.addResult()
				return
			}
			c.failed = true
			var addError error
			switch e := r.(type) {
			case *Context:
				if len(c.errors) == 0 {
					addError = errors.New("test failed with no failure message")
				}
			case error:
				addError = e
			default:
				addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				c.errors = append(c.errors, addError)
				c.env.testLogger.TestError(c.id, addError)
			}
		}
		c.runDeferred()
		c.addResult()
	}()

	action(c)
}

func (c *Context) addResult() {
	if c.group && !c.failed && !c.skipped {
		return
	}
	result := TestResult{TestID: c.id, Errors: c.errors, Skipped: c.skipped, SkipReason: c.skipReason}
	c.env.results.Tests = append(c.env.results.Tests, result)
	if c.failed {
		c.env.results.Failures = append(c.env.results.Failures, result)
	}
}

func (c *Context) runDeferred() {
	for i := len(c.deferred) - 1; i >= 0; i-- {
		c.deferred[i]()
	}
	c.deferred = nil
}

// ID returns the identifier of this test.
func (c *Context) ID() TestID {
	return c.id
}

// Run runs a subtest. The filter, if any, decides whether the subtest runs at all.
func (c *Context) Run(name string, action func(*Context)) {
	c.runChild(name, false, action)
}

// RunGroup runs a named group of subtests. Unlike Run it is never excluded by the filter,
// since the filter is meant to select individual tests within the group.
func (c *Context) RunGroup(name string, action func(*Context)) {
	c.runChild(name, true, action)
}

func (c *Context) runChild(name string, group bool, action func(*Context)) {
	id := c.id.Plus(name)

	c.env.testLogger.TestStarted(id)
	if !group && c.env.filter != nil && !c.env.filter(id) {
		c.env.testLogger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	c1 := &Context{
		id:    id,
		env:   c.env,
		group: group,
	}
	c1.run(action)
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
	} else {
		c.env.testLogger.TestFinished(id, c1.failed, c1.debugLogger.Output())
	}
}

// Errorf marks the test as failed and records an error message, without stopping the test.
func (c *Context) Errorf(format string, args ...interface{}) {
	c.failed = true
	err := fmt.Errorf(format, args...)
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.id, err)
}

// FailNow marks the test as failed and exits it immediately.
func (c *Context) FailNow() {
	c.failed = true
	panic(c)
}

// Skip exits the test immediately and marks it as skipped.
func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

// SkipWithReason is the same as Skip, but the reason is passed to the test logger.
func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

// Failed returns true if the test has failed so far.
func (c *Context) Failed() bool {
	return c.failed
}

// Skipped returns true if Skip was called.
func (c *Context) Skipped() bool {
	return c.skipped
}

// Errors returns the errors reported so far for this test.
func (c *Context) Errors() []error {
	return append([]error(nil), c.errors...)
}

// Defer schedules a function to be run when the test ends, whether it passed or not.
// Deferred functions run in last-in-first-out order.
func (c *Context) Defer(fn func()) {
	c.deferred = append(c.deferred, fn)
}

func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

func (c *Context) DebugLogger() Logger {
	return &c.debugLogger
}
