package framework

import (
	"fmt"
	"io"
	"strings"
)

type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

type TestResult struct {
	TestID     TestID
	Errors     []error
	Skipped    bool
	SkipReason string
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// SkippedCount returns the number of tests that were skipped from inside the test, not
// counting tests that were excluded by the filter.
func (r Results) SkippedCount() int {
	n := 0
	for _, t := range r.Tests {
		if t.Skipped {
			n++
		}
	}
	return n
}

type TestID struct {
	Path []string
}

// Plus returns a new TestID for a subtest of this one.
func (t TestID) Plus(name string) TestID {
	return TestID{Path: append(append([]string(nil), t.Path...), name)}
}

// Parent returns the TestID of the enclosing test, or an empty TestID for a top-level test.
func (t TestID) Parent() TestID {
	if len(t.Path) == 0 {
		return t
	}
	return TestID{Path: t.Path[:len(t.Path)-1]}
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// PrintResults writes a summary of the test run.
func PrintResults(out io.Writer, results Results) {
	passed := len(results.Tests) - len(results.Failures) - results.SkippedCount()
	fmt.Fprintf(out, "Ran %d tests: %d passed, %d failed, %d skipped\n",
		len(results.Tests), passed, len(results.Failures), results.SkippedCount())
	if results.OK() {
		fmt.Fprintln(out, "All tests passed")
		return
	}
	fmt.Fprintln(out, "Failed tests:")
	for _, f := range results.Failures {
		fmt.Fprintf(out, "  %s\n", f.TestID)
	}
}
