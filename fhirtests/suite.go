package fhirtests

import (
	"github.com/fhirconformance/fhir-contract-tests/framework"
	"github.com/fhirconformance/fhir-contract-tests/framework/recorder"
)

// SearchResource is the resource type that the search tests query. Tests that depend on it
// are skipped if the server's CapabilityStatement does not list it.
const SearchResource = "Patient"

// RequiredResources lists the resource types that some tests will not run without.
var RequiredResources = []string{SearchResource}

type testSuite struct {
	server *framework.FHIRServer
	rec    *recorder.Recorder
}

// RunTestSuite runs every suite against the server, recording into rec.
func RunTestSuite(
	server *framework.FHIRServer,
	rec *recorder.Recorder,
	filter framework.Filter,
	testLogger framework.TestLogger,
) framework.Results {
	s := &testSuite{server: server, rec: rec}
	return framework.Run(filter, testLogger, func(c *framework.Context) {
		rec.Describe(c, "capability statement", s.doCapabilityTests)
		rec.Describe(c, "search basics", s.doSearchBasicsTests)
		rec.Describe(c, "search result parameters", s.doResultParameterTests)
	})
}
