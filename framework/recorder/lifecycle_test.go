package recorder

import (
	"strings"
	"testing"
	"time"

	"github.com/fhirconformance/fhir-contract-tests/framework"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fakeRequest  = HTTPRequest{Method: "GET", URL: "http://fhir.example/Patient"}
	fakeResponse = HTTPResponse{Status: 200, StatusText: "OK", Body: `{"resourceType":"Bundle"}`}
)

func steppingClock(step time.Duration) func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func runTests(action func(c *framework.Context)) framework.Results {
	return framework.Run(nil, nil, action)
}

func onlySuite(t *testing.T, r *Recorder) *Suite {
	suites := r.TestResults()
	require.Len(t, suites, 1)
	return suites[0]
}

func testAt(t *testing.T, s *Suite, i int) *Test {
	require.True(t, i < len(s.Tests), "suite %q has only %d children", s.Name, len(s.Tests))
	test, ok := s.Tests[i].(*Test)
	require.True(t, ok, "child %d of suite %q is not a test", i, s.Name)
	return test
}

func TestPassingTestWithOneInteraction(t *testing.T) {
	r := New()
	results := runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "t1", func(rt *T) {
				rt.RecordHTTPInteraction(fakeRequest, fakeResponse)
				rt.Equals(1, 1)
			})
		})
	})
	assert.True(t, results.OK())

	suite := onlySuite(t, r)
	assert.Equal(t, "suite", suite.Name)
	assert.Equal(t, "", suite.Error)
	require.Len(t, suite.Tests, 1)

	test := testAt(t, suite, 0)
	assert.Equal(t, "t1", test.Name)
	assert.Equal(t, ResultPass, test.Result)
	assert.Nil(t, test.Error)
	require.Len(t, test.Steps, 1)

	step := test.Steps[0]
	assert.Equal(t, fakeRequest, *step.Request)
	assert.Equal(t, fakeResponse, *step.Response)
	require.Len(t, step.Assertions, 1)
	assert.True(t, step.Assertions[0].Passed)
	assert.Equal(t, AssertEquals, step.Assertions[0].Type)
}

func TestAssertionBeforeInteractionIsUsageError(t *testing.T) {
	r := New()
	results := runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "t2", func(rt *T) {
				rt.Equals(1, 2)
			})
		})
	})
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "suite/t2", results.Failures[0].TestID.String())

	test := testAt(t, onlySuite(t, r), 0)
	assert.Equal(t, ResultFail, test.Result)
	require.Error(t, test.Error)
	assert.True(t, IsUsageError(test.Error))
	assert.Len(t, test.Steps, 0)
}

func TestSequentialTestsAreRecordedInOrder(t *testing.T) {
	r := New()
	runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			for _, name := range []string{"first", "second"} {
				r.It(c, name, func(rt *T) {
					rt.RecordHTTPInteraction(fakeRequest, fakeResponse)
					rt.Equals(200, 200)
				})
			}
		})
	})

	suite := onlySuite(t, r)
	require.Len(t, suite.Tests, 2)
	for i, name := range []string{"first", "second"} {
		test := testAt(t, suite, i)
		assert.Equal(t, name, test.Name)
		require.Len(t, test.Steps, 1)
		assert.Len(t, test.Steps[0].Assertions, 1)
	}
}

func TestFailingSuiteKeepsEarlierTestsAndSiblingsStillRun(t *testing.T) {
	r := New()
	results := runTests(func(c *framework.Context) {
		r.Describe(c, "broken", func(c *framework.Context) {
			r.It(c, "before", func(rt *T) {})
			c.Errorf("setup failed")
			c.FailNow()
			r.It(c, "after", func(rt *T) {})
		})
		r.Describe(c, "sibling", func(c *framework.Context) {
			r.It(c, "runs", func(rt *T) {})
		})
	})
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "broken", results.Failures[0].TestID.String())

	suites := r.TestResults()
	require.Len(t, suites, 2)
	assert.Equal(t, "setup failed", suites[0].Error)
	require.Len(t, suites[0].Tests, 1)
	assert.Equal(t, "before", suites[0].Tests[0].NodeName())

	assert.Equal(t, "", suites[1].Error)
	require.Len(t, suites[1].Tests, 1)
	assert.Equal(t, ResultPass, testAt(t, suites[1], 0).Result)
}

func TestSuitePanicIsRecordedAsSuiteError(t *testing.T) {
	r := New()
	results := runTests(func(c *framework.Context) {
		r.Describe(c, "panics", func(c *framework.Context) {
			var m map[string]int
			m["x"] = 1
		})
	})
	assert.False(t, results.OK())
	assert.Contains(t, onlySuite(t, r).Error, "assignment to entry in nil map")
}

func TestNestedSuitesAreInsertedIntoTheTree(t *testing.T) {
	r := New()
	runTests(func(c *framework.Context) {
		r.Describe(c, "outer", func(c *framework.Context) {
			r.It(c, "a", func(rt *T) {})
			r.Describe(c, "inner", func(c *framework.Context) {
				r.It(c, "b", func(rt *T) {})
			})
			r.It(c, "c", func(rt *T) {})
		})
		r.Describe(c, "next", func(c *framework.Context) {})
	})

	suites := r.TestResults()
	require.Len(t, suites, 2)
	outer := suites[0]
	require.Len(t, outer.Tests, 3)
	assert.Equal(t, "a", outer.Tests[0].NodeName())
	assert.Equal(t, "c", outer.Tests[2].NodeName())

	inner, ok := outer.Tests[1].(*Suite)
	require.True(t, ok)
	assert.Equal(t, "inner", inner.Name)
	require.Len(t, inner.Tests, 1)
	assert.Equal(t, "b", inner.Tests[0].NodeName())

	assert.Equal(t, "next", suites[1].Name)
	assert.Nil(t, r.State().CurrentDescribe)
}

func TestThrowingTestIsFailedAndLaterTestsContinue(t *testing.T) {
	r := New()
	results := runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "fails", func(rt *T) {
				rt.RecordHTTPInteraction(fakeRequest, fakeResponse)
				rt.Equals(200, 404)
			})
			r.It(c, "passes", func(rt *T) {})
		})
	})
	require.Len(t, results.Failures, 1)

	suite := onlySuite(t, r)
	failed := testAt(t, suite, 0)
	assert.Equal(t, ResultFail, failed.Result)
	var assertionErr *AssertionError
	require.ErrorAs(t, failed.Error, &assertionErr)
	assert.Equal(t, AssertEquals, assertionErr.Type)
	require.Len(t, failed.Steps[0].Assertions, 1)
	assert.False(t, failed.Steps[0].Assertions[0].Passed)

	assert.Equal(t, ResultPass, testAt(t, suite, 1).Result)
}

func TestSwallowedAssertionFailureLeavesTestPassing(t *testing.T) {
	r := New()
	results := runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "swallows", func(rt *T) {
				rt.RecordHTTPInteraction(fakeRequest, fakeResponse)
				rt.Throws(func() { rt.Equals("a", "b") })
			})
		})
	})
	assert.True(t, results.OK())

	test := testAt(t, onlySuite(t, r), 0)
	assert.Equal(t, ResultPass, test.Result)
	require.Len(t, test.Steps[0].Assertions, 2)
	assert.False(t, test.Steps[0].Assertions[0].Passed)
	assert.Equal(t, AssertThrows, test.Steps[0].Assertions[1].Type)
	assert.True(t, test.Steps[0].Assertions[1].Passed)
}

func TestHostFailureWithoutPanicMarksTestFailed(t *testing.T) {
	r := New()
	results := runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "errorf", func(rt *T) {
				assert.Equal(rt, 1, 2)
			})
		})
	})
	assert.False(t, results.OK())

	test := testAt(t, onlySuite(t, r), 0)
	assert.Equal(t, ResultFail, test.Result)
	require.Error(t, test.Error)
	assert.Contains(t, test.Error.Error(), "Not equal")
}

func TestFirstFailureIsReportedAsTestError(t *testing.T) {
	r := New()
	results := runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "errorf then assertion", func(rt *T) {
				rt.Errorf("first problem")
				rt.RecordHTTPInteraction(fakeRequest, fakeResponse)
				rt.Equals(200, 500)
			})
			r.It(c, "errorf then failnow", func(rt *T) {
				rt.Errorf("first problem")
				rt.Errorf("second problem")
				rt.FailNow()
			})
		})
	})
	require.Len(t, results.Failures, 2)

	suite := onlySuite(t, r)
	for i, failure := range results.Failures {
		test := testAt(t, suite, i)
		assert.Equal(t, ResultFail, test.Result, test.Name)
		require.Error(t, test.Error, test.Name)
		assert.Equal(t, "first problem", test.Error.Error(), test.Name)
		assert.Equal(t, failure.Errors[0], test.Error, test.Name)
	}
}

func TestRequireFailureMarksTestFailed(t *testing.T) {
	r := New()
	runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "require", func(rt *T) {
				require.Fail(rt, "stopped early")
			})
		})
	})
	test := testAt(t, onlySuite(t, r), 0)
	assert.Equal(t, ResultFail, test.Result)
	require.Error(t, test.Error)
	assert.Contains(t, test.Error.Error(), "stopped early")
}

func TestSkippedTest(t *testing.T) {
	r := New()
	results := runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "skips", func(rt *T) {
				rt.Skip("server does not support Observation")
			})
		})
	})
	assert.True(t, results.OK())
	assert.Equal(t, 1, results.SkippedCount())

	test := testAt(t, onlySuite(t, r), 0)
	assert.Equal(t, ResultSkip, test.Result)
	assert.Nil(t, test.Error)
}

func TestFilteredTestIsNotRecorded(t *testing.T) {
	r := New()
	var filters framework.RegexFilters
	require.NoError(t, filters.MustNotMatch.Set("excluded"))
	framework.Run(filters.AsFilter, nil, func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "included", func(rt *T) {})
			r.It(c, "excluded", func(rt *T) {})
		})
	})

	suite := onlySuite(t, r)
	require.Len(t, suite.Tests, 1)
	assert.Equal(t, "included", suite.Tests[0].NodeName())
}

func TestTestOutsideDescribeGoesIntoImplicitSuite(t *testing.T) {
	r := New()
	runTests(func(c *framework.Context) {
		r.It(c, "loose", func(rt *T) {})
		c.Run("group", func(c *framework.Context) {
			r.It(c, "grouped1", func(rt *T) {})
			r.It(c, "grouped2", func(rt *T) {})
		})
	})

	suites := r.TestResults()
	require.Len(t, suites, 2)
	assert.Equal(t, implicitSuiteName, suites[0].Name)
	require.Len(t, suites[0].Tests, 1)
	assert.Equal(t, "group", suites[1].Name)
	assert.Len(t, suites[1].Tests, 2)
}

func TestCurrentPointersAreClearedAfterTest(t *testing.T) {
	r := New()
	runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "t", func(rt *T) {
				rt.RecordHTTPInteraction(fakeRequest, fakeResponse)
				assert.Same(t, rt.test, r.State().CurrentTest)
				assert.NotNil(t, r.State().CurrentStep)
			})
			assert.Nil(t, r.State().CurrentTest)
			assert.Nil(t, r.State().CurrentStep)
		})
	})
}

func TestStaleHandleIsUsageError(t *testing.T) {
	r := New()
	var saved *T
	runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "first", func(rt *T) {
				saved = rt
			})
			r.It(c, "second", func(rt *T) {
				rt.RecordHTTPInteraction(fakeRequest, fakeResponse)
				saved.Equals(1, 1)
			})
		})
	})

	suite := onlySuite(t, r)
	second := testAt(t, suite, 1)
	assert.Equal(t, ResultFail, second.Result)
	assert.True(t, IsUsageError(second.Error))
	assert.Contains(t, second.Error.Error(), `"first" has already finished`)
	require.Len(t, second.Steps, 1)
	assert.Len(t, second.Steps[0].Assertions, 0)
}

func TestSuiteDurationIsSumOfDirectTests(t *testing.T) {
	step := 10 * time.Millisecond
	r := New(WithClock(steppingClock(step)))
	runTests(func(c *framework.Context) {
		r.Describe(c, "outer", func(c *framework.Context) {
			r.It(c, "a", func(rt *T) {})
			r.It(c, "b", func(rt *T) {})
			r.Describe(c, "inner", func(c *framework.Context) {
				r.It(c, "c", func(rt *T) {})
			})
		})
		r.Describe(c, "only suites", func(c *framework.Context) {
			r.Describe(c, "leaf", func(c *framework.Context) {
				r.It(c, "d", func(rt *T) {})
			})
		})
	})

	suites := r.TestResults()
	require.Len(t, suites, 2)

	outer := suites[0]
	require.NotNil(t, outer.Duration)
	assert.Equal(t, 2*step, *outer.Duration)
	for _, n := range outer.Tests {
		if test, ok := n.(*Test); ok {
			require.NotNil(t, test.Duration)
			assert.Equal(t, step, *test.Duration)
		}
	}
	inner := outer.Tests[2].(*Suite)
	require.NotNil(t, inner.Duration)
	assert.Equal(t, step, *inner.Duration)

	onlySuites := suites[1]
	require.NotNil(t, onlySuites.Duration)
	assert.True(t, *onlySuites.Duration > step, "suite without direct tests uses its own elapsed time")
}

func TestSourceOfItCallIsCaptured(t *testing.T) {
	r := New()
	runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "has source", func(rt *T) {
				rt.Debug("this line is part of the snippet")
			})
		})
	})

	test := testAt(t, onlySuite(t, r), 0)
	assert.True(t, strings.HasPrefix(test.SourceCode, `r.It(c, "has source"`), test.SourceCode)
	assert.Contains(t, test.SourceCode, "this line is part of the snippet")
	assert.True(t, strings.HasSuffix(test.SourceCode, "})"), test.SourceCode)
	assert.Greater(t, test.LineOffset, 0)
}

func TestSourceIsUnavailableWhenNoFrameMatches(t *testing.T) {
	r := New(WithSourcePatterns("**/no_such_file.go"))
	runTests(func(c *framework.Context) {
		r.Describe(c, "suite", func(c *framework.Context) {
			r.It(c, "t", func(rt *T) {})
		})
	})

	test := testAt(t, onlySuite(t, r), 0)
	assert.Equal(t, sourceUnavailable, test.SourceCode)
	assert.Equal(t, -1, test.LineOffset)
}
