// Package recorder captures what happens while FHIR search tests run: which suites and
// tests ran, the HTTP interactions each test made, and every assertion about them. The
// resulting tree can be rendered as a report once the run is over.
//
// Tests are registered with Describe and It, which delegate scheduling to the host
// framework.Context. The Recorder assumes that the host runs tests one at a time; an
// interaction or assertion is always attributed to whichever test is current.
package recorder

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultSourcePatterns are the file patterns that identify test source files when looking
// for the caller of It or of an assertion.
var DefaultSourcePatterns = []string{"**/tests_*.go", "**/*_test.go"}

type Option func(*Recorder)

// WithSourcePatterns overrides DefaultSourcePatterns. Patterns use doublestar syntax and are
// matched against slash-separated absolute paths with the leading slash removed.
func WithSourcePatterns(patterns ...string) Option {
	return func(r *Recorder) {
		r.source.patterns = patterns
	}
}

// WithClock overrides the time source used for durations.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithLogger sets the logger for diagnostics such as source extraction failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
			r.source.logger = logger
		}
	}
}

// Recorder owns a State and the operations that mutate it.
type Recorder struct {
	state    State
	implicit map[string]*Suite
	source   *sourceExtractor
	now      func() time.Time
	logger   *slog.Logger
	lock     sync.Mutex
}

func New(opts ...Option) *Recorder {
	logger := slog.Default()
	r := &Recorder{
		implicit: make(map[string]*Suite),
		source:   newSourceExtractor(DefaultSourcePatterns, logger),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the live state. Callers that read it while tests are still running must
// not assume it is consistent.
func (r *Recorder) State() *State {
	return &r.state
}

// TestResults returns the top-level suites in declaration order.
func (r *Recorder) TestResults() []*Suite {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]*Suite(nil), r.state.TestResults...)
}
