package recorder

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/fhirconformance/fhir-contract-tests/framework"
)

// Transport is an http.RoundTripper that records every exchange it carries as a step of the
// current test.
type Transport struct {
	Recorder *Recorder
	// Base is the transport that actually performs requests. If nil, http.DefaultTransport
	// is used.
	Base http.RoundTripper
	// Logger, if set, receives one line per request.
	Logger framework.Logger

	owner *Test
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	request, req, err := captureRequest(req)
	if err != nil {
		return nil, err
	}
	if t.Logger != nil {
		t.Logger.Printf("%s %s", request.Method, request.URL)
	}

	start := t.Recorder.now()
	resp, respErr := base.RoundTrip(req)
	elapsed := t.Recorder.now().Sub(start)

	step := &Step{Request: &request, Duration: &elapsed}
	if respErr == nil {
		response, err := captureResponse(resp)
		if err != nil {
			_ = resp.Body.Close()
			return nil, err
		}
		step.Response = &response
		if t.Logger != nil {
			t.Logger.Printf("  => %d %s (%s)", response.Status, response.StatusText, elapsed)
		}
	} else if t.Logger != nil {
		t.Logger.Printf("  => error: %s", respErr)
	}

	if err := t.Recorder.appendStep(t.owner, step); err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return resp, respErr
}

// captureRequest returns the recorded form of req, and the request to send in its place. If
// req has a body, it has been consumed and closed, and a clone carrying a copy is returned.
func captureRequest(req *http.Request) (HTTPRequest, *http.Request, error) {
	r := HTTPRequest{
		Method:  req.Method,
		URL:     req.URL.String(),
		Headers: flattenHeaders(req.Header),
	}
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	if req.Body != nil && req.Body != http.NoBody {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return r, nil, err
		}
		out := req.Clone(req.Context())
		out.Body = io.NopCloser(bytes.NewReader(data))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
		r.Body = string(data)
		return r, out, nil
	}
	return r, req, nil
}

func captureResponse(resp *http.Response) (HTTPResponse, error) {
	r := HTTPResponse{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		Headers:    flattenHeaders(resp.Header),
	}
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return r, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	r.Body = string(data)
	return r, nil
}

// statusText returns the reason phrase the server sent, e.g. "Not Found" from "404 Not Found".
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}

func flattenHeaders(h http.Header) map[string]string {
	ret := make(map[string]string, len(h))
	for name, values := range h {
		ret[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return ret
}
