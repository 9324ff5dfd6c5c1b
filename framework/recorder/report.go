package recorder

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Report is the plain form of a recorded run, in declaration order.
type Report struct {
	Suites []SuiteReport
}

type SuiteReport struct {
	Name string `json:"name"`
	// Tests holds TestReport and SuiteReport values.
	Tests    []interface{} `json:"tests"`
	Error    string        `json:"error,omitempty"`
	Duration ldvalue.Value `json:"duration"`
}

type TestReport struct {
	Name       string        `json:"name"`
	Steps      []StepReport  `json:"steps"`
	Result     Result        `json:"result"`
	Error      *ErrorReport  `json:"error,omitempty"`
	SourceCode string        `json:"sourceCode"`
	LineOffset int           `json:"lineOffset"`
	Duration   ldvalue.Value `json:"duration"`
}

type ErrorReport struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type StepReport struct {
	Request    *HTTPRequest      `json:"request,omitempty"`
	Response   *HTTPResponse     `json:"response,omitempty"`
	Assertions []AssertionReport `json:"assertions"`
	Duration   ldvalue.Value     `json:"duration"`
}

type AssertionReport struct {
	Type     string        `json:"type"`
	Expected ldvalue.Value `json:"expected"`
	Actual   ldvalue.Value `json:"actual"`
	Passed   bool          `json:"passed"`
	Message  string        `json:"message"`
	Line     int           `json:"line"`
}

// Summary counts test outcomes across a report.
type Summary struct {
	Passed      int
	Failed      int
	Skipped     int
	SuiteErrors int
}

func (s Summary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// BuildReport converts a suite tree into its plain form. Recorded values are converted to
// JSON-compatible values; anything that can't be marshaled is reported as its %v text.
func BuildReport(suites []*Suite) Report {
	r := Report{Suites: make([]SuiteReport, 0, len(suites))}
	for _, s := range suites {
		r.Suites = append(r.Suites, suiteReport(s))
	}
	return r
}

func suiteReport(s *Suite) SuiteReport {
	ret := SuiteReport{
		Name:     s.Name,
		Tests:    make([]interface{}, 0, len(s.Tests)),
		Error:    s.Error,
		Duration: durationValue(s.Duration),
	}
	for _, n := range s.Tests {
		switch node := n.(type) {
		case *Suite:
			ret.Tests = append(ret.Tests, suiteReport(node))
		case *Test:
			ret.Tests = append(ret.Tests, testReport(node))
		}
	}
	return ret
}

func testReport(t *Test) TestReport {
	ret := TestReport{
		Name:       t.Name,
		Steps:      make([]StepReport, 0, len(t.Steps)),
		Result:     t.Result,
		SourceCode: t.SourceCode,
		LineOffset: t.LineOffset,
		Duration:   durationValue(t.Duration),
	}
	if t.Error != nil {
		ret.Error = &ErrorReport{
			Type:    errorType(t.Error),
			Message: t.Error.Error(),
		}
	}
	for _, step := range t.Steps {
		sr := StepReport{
			Request:    step.Request,
			Response:   step.Response,
			Assertions: make([]AssertionReport, 0, len(step.Assertions)),
			Duration:   durationValue(step.Duration),
		}
		for _, a := range step.Assertions {
			sr.Assertions = append(sr.Assertions, AssertionReport{
				Type:     a.Type,
				Expected: toValue(a.Expected),
				Actual:   toValue(a.Actual),
				Passed:   a.Passed,
				Message:  a.Message,
				Line:     a.Line,
			})
		}
		ret.Steps = append(ret.Steps, sr)
	}
	return ret
}

func durationValue(d *time.Duration) ldvalue.Value {
	if d == nil {
		return ldvalue.Null()
	}
	return ldvalue.Float64(float64(*d) / float64(time.Millisecond))
}

func toValue(v interface{}) ldvalue.Value {
	if v == nil {
		return ldvalue.Null()
	}
	if lv, ok := v.(ldvalue.Value); ok {
		return lv
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ldvalue.String(fmt.Sprintf("%v", v))
	}
	return ldvalue.Parse(data)
}

// Summary counts the tests in the report by result, and the suites that failed on their own.
func (r Report) Summary() Summary {
	var s Summary
	for _, suite := range r.Suites {
		s.addSuite(suite)
	}
	return s
}

func (s *Summary) addSuite(suite SuiteReport) {
	if suite.Error != "" {
		s.SuiteErrors++
	}
	for _, n := range suite.Tests {
		switch node := n.(type) {
		case SuiteReport:
			s.addSuite(node)
		case TestReport:
			switch node.Result {
			case ResultPass:
				s.Passed++
			case ResultFail:
				s.Failed++
			case ResultSkip:
				s.Skipped++
			}
		}
	}
}

func (r Report) MarshalJSON() ([]byte, error) {
	suites := r.Suites
	if suites == nil {
		suites = []SuiteReport{}
	}
	return json.Marshal(suites)
}

// WriteJSON writes the report as JSON indented with four spaces.
func (r Report) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteFile writes the report as JSON to the named file, replacing it if it exists.
func (r Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteJSON(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return f.Close()
}

// UsageErrorType is the error type reported for tests that used the recorder incorrectly.
const UsageErrorType = "UsageError"

func errorType(err error) string {
	if IsUsageError(err) {
		return UsageErrorType
	}
	return fmt.Sprintf("%T", errors.Cause(err))
}
