package fhirtests

import (
	"net/url"

	"github.com/fhirconformance/fhir-contract-tests/framework"
	"github.com/fhirconformance/fhir-contract-tests/framework/recorder"
)

func (s *testSuite) doResultParameterTests(c *framework.Context) {
	s.rec.It(c, "_summary=count returns a total without entries", func(t *recorder.T) {
		s.requireResource(t, SearchResource)
		bundle := s.searchset(t, SearchResource, url.Values{"_summary": {"count"}})
		t.Assert(bundle.GetByKey("total").IsNumber(), "total is required")
		t.Len(matchEntries(bundle), 0)
	})

	s.rec.It(c, "_total=accurate returns a total", func(t *recorder.T) {
		s.requireResource(t, SearchResource)
		bundle := s.searchset(t, SearchResource, url.Values{"_total": {"accurate"}})
		total := bundle.GetByKey("total")
		t.Assert(total.IsNumber(), "total is required")
		t.False(total.IntValue() < len(matchEntries(bundle)), "total is less than the number of entries")
	})

	s.rec.It(c, "searchset has a self link", func(t *recorder.T) {
		s.requireResource(t, SearchResource)
		bundle := s.searchset(t, SearchResource, nil)
		t.NotEquals("", linkURL(bundle, "self"), "self link is required")
	})
}
