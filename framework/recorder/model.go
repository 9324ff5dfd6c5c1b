package recorder

import "time"

// Result is the outcome of a Test.
type Result string

const (
	ResultPass Result = "pass"
	ResultFail Result = "fail"
	// ResultSkip is used for tests that called Skip. A skipped test counts as neither passed
	// nor failed.
	ResultSkip Result = "skip"
)

// Node is an entry in a Suite's list of children: either a *Test or a nested *Suite.
type Node interface {
	NodeName() string
	isNode()
}

// Suite corresponds to one Describe block.
type Suite struct {
	Name  string
	Tests []Node
	// Error is set if the suite's own callback failed, as opposed to one of its tests.
	Error    string
	Duration *time.Duration
}

func (s *Suite) NodeName() string { return s.Name }
func (s *Suite) isNode()          {}

// Test corresponds to one It block.
type Test struct {
	Name   string
	Steps  []*Step
	Result Result
	Error  error
	// SourceCode is the literal text of the It call that registered the test.
	SourceCode string
	// LineOffset is the 1-based line where SourceCode starts, or -1 if it is unknown.
	LineOffset int
	Duration   *time.Duration
}

func (t *Test) NodeName() string { return t.Name }
func (t *Test) isNode()          {}

// Step is one HTTP interaction plus the assertions made after it.
type Step struct {
	Request    *HTTPRequest
	Response   *HTTPResponse
	Assertions []Assertion
	Duration   *time.Duration
}

// HTTPRequest is the request side of a recorded interaction.
type HTTPRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// HTTPResponse is the response side of a recorded interaction.
type HTTPResponse struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// Assertion is the record of one check. Expected and Actual are the values that were passed
// to the check, not copies.
type Assertion struct {
	Type     string
	Expected interface{}
	Actual   interface{}
	Passed   bool
	Message  string
	Line     int
}

func (s *Suite) directTestDurations() (time.Duration, bool) {
	var total time.Duration
	found := false
	for _, n := range s.Tests {
		if t, ok := n.(*Test); ok {
			found = true
			if t.Duration != nil {
				total += *t.Duration
			}
		}
	}
	return total, found
}
