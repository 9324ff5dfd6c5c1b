package recorder

import (
	"errors"
	"fmt"

	"github.com/fhirconformance/fhir-contract-tests/framework"
)

const implicitSuiteName = "(top level)"

var errNoFailureMessage = errors.New("test failed with no failure message")

// Describe registers a suite and runs its callback on the host context. Suites and tests
// registered inside the callback become children of the suite.
//
// If the callback panics, the suite's Error is set and the panic continues to the host,
// which records the failure and goes on with the next sibling.
func (r *Recorder) Describe(c *framework.Context, name string, action func(*framework.Context)) {
	c.RunGroup(name, func(c1 *framework.Context) {
		r.runSuite(c1, name, action)
	})
}

func (r *Recorder) runSuite(c *framework.Context, name string, action func(*framework.Context)) {
	suite := &Suite{Name: name}

	r.lock.Lock()
	previous := r.state.CurrentDescribe
	if previous == nil {
		r.state.TestResults = append(r.state.TestResults, suite)
	} else {
		previous.Tests = append(previous.Tests, suite)
	}
	r.state.SetCurrentDescribe(suite)
	r.lock.Unlock()

	start := r.now()
	defer func() {
		p := recover()
		elapsed := r.now().Sub(start)

		r.lock.Lock()
		if p != nil && !isSkip(p) {
			suite.Error = panicError(p).Error()
		}
		// A suite that directly contains tests reports the sum of their durations, which
		// It has been keeping up to date; only suites of suites use their own span.
		if total, ok := suite.directTestDurations(); ok {
			suite.Duration = &total
		} else {
			suite.Duration = &elapsed
		}
		r.state.SetCurrentDescribe(previous)
		r.lock.Unlock()

		if p != nil {
			panic(p)
		}
	}()

	action(c)
}

// It registers a test and runs it on the host context. The source text of the It call is
// captured before the test runs, for inclusion in the report.
//
// If the test body panics, because of a failed assertion or for any other reason, the test
// is recorded as failed and the panic continues to the host.
func (r *Recorder) It(c *framework.Context, name string, action func(*T)) {
	snippet := r.source.extract(1)
	c.Run(name, func(c1 *framework.Context) {
		r.runTest(c1, name, snippet, action)
	})
}

func (r *Recorder) runTest(c *framework.Context, name string, snippet sourceSnippet, action func(*T)) {
	test := &Test{
		Name:       name,
		Result:     ResultPass,
		SourceCode: snippet.code,
		LineOffset: snippet.line,
	}

	r.lock.Lock()
	suite := r.state.CurrentDescribe
	if suite == nil {
		suite = r.implicitSuite(c.ID().Parent())
	}
	suite.Tests = append(suite.Tests, test)
	r.state.SetCurrentTest(test)
	r.state.SetCurrentStep(nil)
	r.lock.Unlock()

	t := &T{context: c, recorder: r, test: test}
	start := r.now()
	defer func() {
		p := recover()
		elapsed := r.now().Sub(start)

		r.lock.Lock()
		switch {
		case p != nil && isSkip(p):
			test.Result = ResultSkip
		case p != nil || c.Failed():
			test.Result = ResultFail
			test.Error = firstFailure(c, p)
		}
		r.state.SetCurrentTest(nil)
		r.state.SetCurrentStep(nil)
		test.Duration = &elapsed
		if total, ok := suite.directTestDurations(); ok {
			suite.Duration = &total
		}
		r.lock.Unlock()

		if p != nil {
			panic(p)
		}
	}()

	action(t)
}

// implicitSuite returns the suite that holds tests registered outside of any Describe,
// grouped by the host test they were registered in. The caller must hold the lock.
func (r *Recorder) implicitSuite(id framework.TestID) *Suite {
	name := id.String()
	if name == "" {
		name = implicitSuiteName
	}
	if s, ok := r.implicit[name]; ok {
		return s
	}
	s := &Suite{Name: name}
	r.implicit[name] = s
	r.state.TestResults = append(r.state.TestResults, s)
	return s
}

func isSkip(p interface{}) bool {
	c, ok := p.(*framework.Context)
	return ok && c.Skipped()
}

// firstFailure returns the earliest failure of a test: the first error reported to its
// context, or else whatever it panicked with.
func firstFailure(c *framework.Context, p interface{}) error {
	if errs := c.Errors(); len(errs) > 0 {
		return errs[0]
	}
	if p == nil {
		return errNoFailureMessage
	}
	return panicError(p)
}

func panicError(p interface{}) error {
	switch e := p.(type) {
	case *framework.Context:
		if errs := e.Errors(); len(errs) > 0 {
			return errs[0]
		}
		return errNoFailureMessage
	case error:
		return e
	default:
		return fmt.Errorf("unexpected panic: %v", p)
	}
}
