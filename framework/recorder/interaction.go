package recorder

import (
	"github.com/pkg/errors"
)

// RecordHTTPInteraction adds a step for a request/response pair to the current test. The new
// step becomes the current step, so later assertions attach to it.
//
// It returns ErrInteractionOutsideTest if no test is running.
func (r *Recorder) RecordHTTPInteraction(request HTTPRequest, response HTTPResponse) (*Step, error) {
	step := &Step{Request: &request, Response: &response}
	if err := r.appendStep(nil, step); err != nil {
		return nil, err
	}
	return step, nil
}

// appendStep adds a step to the current test. If owner is not nil, it must be the current
// test; otherwise the interaction came from a test that has already ended.
func (r *Recorder) appendStep(owner *Test, step *Step) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	test := r.state.CurrentTest
	if test == nil {
		return errors.WithStack(ErrInteractionOutsideTest)
	}
	if owner != nil && owner != test {
		return errors.WithMessagef(ErrInteractionOutsideTest, "test %q has already finished", owner.Name)
	}
	if step.Assertions == nil {
		step.Assertions = []Assertion{}
	}
	test.Steps = append(test.Steps, step)
	r.state.SetCurrentStep(step)
	return nil
}

// currentStepFor returns the step that an assertion made by the owner test should attach to.
func (r *Recorder) currentStepFor(owner *Test) (*Step, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	test := r.state.CurrentTest
	switch {
	case test == nil:
		return nil, errors.WithStack(ErrAssertionOutsideTest)
	case owner != nil && owner != test:
		return nil, errors.WithMessagef(ErrAssertionOutsideTest, "test %q has already finished", owner.Name)
	case r.state.CurrentStep == nil:
		return nil, errors.WithMessagef(ErrAssertionOutsideTest,
			"test %q has not made an HTTP request yet", test.Name)
	}
	return r.state.CurrentStep, nil
}

func (r *Recorder) appendAssertion(step *Step, a Assertion) {
	r.lock.Lock()
	step.Assertions = append(step.Assertions, a)
	r.lock.Unlock()
}
