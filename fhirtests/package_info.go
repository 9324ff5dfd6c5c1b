// Package fhirtests contains the FHIR search contract tests themselves and their supporting
// API.
//
// Suites and tests are registered through a recorder.Recorder, so that every request they
// make and every assertion about the response ends up in the execution report. Connecting
// to the server and running tests one at a time is the job of the lower-level framework
// package.
package fhirtests
