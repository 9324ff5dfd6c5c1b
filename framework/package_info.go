// Package framework contains the host test runner and the infrastructure for talking to the
// FHIR server under test. The execution recorder that turns a run into a report is in the
// recorder subpackage.
//
// The general model is:
//
// 1. The harness connects to a FHIR server at a configured base URL and reads its
// CapabilityStatement from the metadata endpoint.
//
// 2. There is a general notion of a test context which is similar to Go's testing.T,
// allowing pieces of test logic to be associated with a test identifier and to accumulate
// success/failure results. Tests always run one at a time.
//
// The domain-specific code that knows what is being tested registers suites and tests
// through the recorder, which in turn schedules them on the test context.
package framework
