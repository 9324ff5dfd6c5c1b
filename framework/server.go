package framework

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// FHIRMediaType is the media type for FHIR resources in JSON format.
const FHIRMediaType = "application/fhir+json"

const metadataPath = "/metadata"

// ServerInfo is the part of the server's CapabilityStatement that the harness cares about.
type ServerInfo struct {
	FHIRVersion string
	Software    string
	Resources   []string
}

// FHIRServer represents the FHIR server under test.
type FHIRServer struct {
	baseURL string
	info    ServerInfo
	logger  Logger
}

// ConnectToServer verifies that the FHIR server is responding by querying its metadata
// endpoint, retrying until the timeout elapses. Progress is written to startupOutput.
func ConnectToServer(
	baseURL string,
	statusQueryTimeout time.Duration,
	debugLogger Logger,
	startupOutput io.Writer,
) (*FHIRServer, error) {
	if debugLogger == nil {
		debugLogger = NullLogger()
	}
	if startupOutput == nil {
		startupOutput = io.Discard
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	info, err := queryServerInfo(baseURL, statusQueryTimeout, debugLogger, startupOutput)
	if err != nil {
		return nil, err
	}
	return &FHIRServer{baseURL: baseURL, info: info, logger: debugLogger}, nil
}

func queryServerInfo(baseURL string, timeout time.Duration, logger Logger, output io.Writer) (ServerInfo, error) {
	url := baseURL + metadataPath
	fmt.Fprintf(output, "Connecting to FHIR server at %s", baseURL)

	deadline := time.Now().Add(timeout)
	for {
		fmt.Fprintf(output, ".")
		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			fmt.Fprintln(output)
			return ServerInfo{}, fmt.Errorf("invalid server URL: %w", err)
		}
		req.Header.Set("Accept", FHIRMediaType)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			fmt.Fprintln(output)
			respData, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode != 200 {
				return ServerInfo{}, fmt.Errorf("metadata endpoint returned status code %d", resp.StatusCode)
			}
			if readErr != nil {
				return ServerInfo{}, readErr
			}
			logger.Printf("CapabilityStatement: %s", string(respData))
			info, err := parseCapabilityStatement(respData)
			if err != nil {
				return ServerInfo{}, err
			}
			fmt.Fprintf(output, "Server declares FHIR version %q with %d resource types\n",
				info.FHIRVersion, len(info.Resources))
			return info, nil
		}
		if !time.Now().Before(deadline) {
			return ServerInfo{}, fmt.Errorf("timed out, result of last query was: %w", err)
		}
		time.Sleep(time.Millisecond * 100)
	}
}

func parseCapabilityStatement(data []byte) (ServerInfo, error) {
	cs := ldvalue.Parse(data)
	if cs.GetByKey("resourceType").StringValue() != "CapabilityStatement" {
		return ServerInfo{}, fmt.Errorf("metadata endpoint did not return a CapabilityStatement: %s", string(data))
	}
	info := ServerInfo{
		FHIRVersion: cs.GetByKey("fhirVersion").StringValue(),
		Software:    cs.GetByKey("software").GetByKey("name").StringValue(),
	}
	rest := cs.GetByKey("rest")
	for i := 0; i < rest.Count(); i++ {
		resources := rest.GetByIndex(i).GetByKey("resource")
		for j := 0; j < resources.Count(); j++ {
			if t := resources.GetByIndex(j).GetByKey("type").StringValue(); t != "" {
				info.Resources = append(info.Resources, t)
			}
		}
	}
	return info, nil
}

// BaseURL returns the server's base URL, without a trailing slash.
func (s *FHIRServer) BaseURL() string {
	return s.baseURL
}

// Info returns what the server declared about itself in its CapabilityStatement.
func (s *FHIRServer) Info() ServerInfo {
	return s.info
}

// SupportsResource returns true if the CapabilityStatement lists the resource type.
func (s *FHIRServer) SupportsResource(resourceType string) bool {
	for _, r := range s.info.Resources {
		if r == resourceType {
			return true
		}
	}
	return false
}
