package fhirtests

import (
	"net/http"

	"github.com/fhirconformance/fhir-contract-tests/framework"
	"github.com/fhirconformance/fhir-contract-tests/framework/recorder"
)

func (s *testSuite) doCapabilityTests(c *framework.Context) {
	s.rec.It(c, "metadata returns a CapabilityStatement", func(t *recorder.T) {
		resp := s.get(t, "/metadata", nil)
		t.Equals(http.StatusOK, resp.Status)
		t.Equals("CapabilityStatement", resp.resourceType())
	})

	s.rec.It(c, "CapabilityStatement declares a FHIR version", func(t *recorder.T) {
		resp := s.get(t, "/metadata", nil)
		t.NotEquals("", resp.Body.GetByKey("fhirVersion").StringValue(), "fhirVersion is required")
	})

	s.rec.It(c, "CapabilityStatement lists resource types", func(t *recorder.T) {
		resp := s.get(t, "/metadata", nil)
		rest := resp.Body.GetByKey("rest")
		t.Assert(rest.Count() > 0, "expected at least one rest entry")
		t.Assert(rest.GetByIndex(0).GetByKey("resource").Count() > 0, "expected at least one resource type")
	})
}
