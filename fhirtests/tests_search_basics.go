package fhirtests

import (
	"net/http"
	"net/url"

	"github.com/fhirconformance/fhir-contract-tests/framework"
	"github.com/fhirconformance/fhir-contract-tests/framework/recorder"
)

func (s *testSuite) doSearchBasicsTests(c *framework.Context) {
	s.rec.It(c, "search returns a searchset Bundle", func(t *recorder.T) {
		s.requireResource(t, SearchResource)
		s.searchset(t, SearchResource, nil)
	})

	s.rec.It(c, "_count limits the number of entries", func(t *recorder.T) {
		s.requireResource(t, SearchResource)
		bundle := s.searchset(t, SearchResource, url.Values{"_count": {"1"}})
		t.Assert(len(matchEntries(bundle)) <= 1, "expected at most one entry")
	})

	s.rec.It(c, "_id returns only the matching resource", func(t *recorder.T) {
		s.requireResource(t, SearchResource)
		all := matchEntries(s.searchset(t, SearchResource, url.Values{"_count": {"1"}}))
		if len(all) == 0 {
			t.Skip("server has no " + SearchResource + " resources")
		}
		id := all[0].GetByKey("resource").GetByKey("id").StringValue()
		t.NotEquals("", id, "resource in search result has no id")

		found := matchEntries(s.searchset(t, SearchResource, url.Values{"_id": {id}}))
		t.Len(found, 1)
		t.Equals([]string{id}, resourceIDs(found))
	})

	s.rec.It(c, "unknown resource type is rejected", func(t *recorder.T) {
		resp := s.get(t, "/NotARealResourceType", nil)
		t.Assert(resp.Status >= 400 && resp.Status < 500, "expected a 4xx status, got %d", resp.Status)
	})

	s.rec.It(c, "POST _search returns the same results as GET", func(t *recorder.T) {
		s.requireResource(t, SearchResource)
		query := url.Values{"_count": {"5"}}
		viaGet := resourceIDs(matchEntries(s.searchset(t, SearchResource, query)))

		resp := s.postSearch(t, SearchResource, query)
		t.Equals(http.StatusOK, resp.Status)
		t.Equals("Bundle", resp.resourceType())
		t.Equals(viaGet, resourceIDs(matchEntries(resp.Body)))
	})
}
