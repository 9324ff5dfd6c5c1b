package recorder

// State is the suite tree under construction plus pointers to whatever is executing right
// now. The Recorder's methods are the only writers; State only stores what they tell it.
type State struct {
	TestResults     []*Suite
	CurrentDescribe *Suite
	CurrentTest     *Test
	CurrentStep     *Step
}

func (s *State) SetCurrentDescribe(suite *Suite) {
	s.CurrentDescribe = suite
}

// SetCurrentTest sets the current test and returns it.
func (s *State) SetCurrentTest(test *Test) *Test {
	s.CurrentTest = test
	return test
}

func (s *State) SetCurrentStep(step *Step) {
	s.CurrentStep = step
}
