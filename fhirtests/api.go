package fhirtests

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fhirconformance/fhir-contract-tests/framework"
	"github.com/fhirconformance/fhir-contract-tests/framework/recorder"

	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// fhirResponse is a response from the server with its JSON body already parsed. A body
// that is not valid JSON parses as a null value.
type fhirResponse struct {
	Status int
	Header http.Header
	Body   ldvalue.Value
}

func (r fhirResponse) resourceType() string {
	return r.Body.GetByKey("resourceType").StringValue()
}

func (s *testSuite) requireResource(t *recorder.T, resourceType string) {
	if !s.server.SupportsResource(resourceType) {
		t.Skip("server does not declare support for " + resourceType)
	}
}

// get sends a GET request for a path relative to the server's base URL.
func (s *testSuite) get(t *recorder.T, path string, query url.Values) fhirResponse {
	u := s.server.BaseURL() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	require.NoError(t, err)
	return s.do(t, req)
}

// postSearch sends a search as a form-encoded POST to [type]/_search.
func (s *testSuite) postSearch(t *recorder.T, resourceType string, params url.Values) fhirResponse {
	req, err := http.NewRequest(http.MethodPost, s.server.BaseURL()+"/"+resourceType+"/_search",
		strings.NewReader(params.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(t, req)
}

func (s *testSuite) do(t *recorder.T, req *http.Request) fhirResponse {
	req.Header.Set("Accept", framework.FHIRMediaType)
	resp, err := t.HTTPClient().Do(req)
	t.NoError(err, "%s %s", req.Method, req.URL)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	t.NoError(err)
	t.Debug("response body: %s", string(data))
	return fhirResponse{Status: resp.StatusCode, Header: resp.Header, Body: ldvalue.Parse(data)}
}

// searchset issues a search and asserts that the result is a searchset Bundle.
func (s *testSuite) searchset(t *recorder.T, resourceType string, query url.Values) ldvalue.Value {
	resp := s.get(t, "/"+resourceType, query)
	t.Equals(http.StatusOK, resp.Status)
	t.Equals("Bundle", resp.resourceType())
	t.Equals("searchset", resp.Body.GetByKey("type").StringValue())
	return resp.Body
}

// matchEntries returns the Bundle entries whose search mode is "match", or that have no
// search mode at all.
func matchEntries(bundle ldvalue.Value) []ldvalue.Value {
	var ret []ldvalue.Value
	entries := bundle.GetByKey("entry")
	for i := 0; i < entries.Count(); i++ {
		e := entries.GetByIndex(i)
		mode := e.GetByKey("search").GetByKey("mode").StringValue()
		if mode == "" || mode == "match" {
			ret = append(ret, e)
		}
	}
	return ret
}

func linkURL(bundle ldvalue.Value, relation string) string {
	links := bundle.GetByKey("link")
	for i := 0; i < links.Count(); i++ {
		if l := links.GetByIndex(i); l.GetByKey("relation").StringValue() == relation {
			return l.GetByKey("url").StringValue()
		}
	}
	return ""
}

func resourceIDs(entries []ldvalue.Value) []string {
	ret := make([]string, 0, len(entries))
	for _, e := range entries {
		ret = append(ret, e.GetByKey("resource").GetByKey("id").StringValue())
	}
	return ret
}
