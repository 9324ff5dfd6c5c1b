package main

import (
	"bytes"
	"flag"
	"testing"
	"time"

	"github.com/fhirconformance/fhir-contract-tests/framework"
	"github.com/fhirconformance/fhir-contract-tests/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() *config.Config {
	return &config.Config{
		StatusQueryTimeout: config.DefaultStatusQueryTimeout,
		LogLevel:           "info",
		ResultsFile:        config.DefaultResultsFile,
	}
}

func readParams(cfg *config.Config, args ...string) (commandParams, string, error) {
	var params commandParams
	var out bytes.Buffer
	err := params.Read(append([]string{"fhir-contract-tests"}, args...), cfg, &out)
	return params, out.String(), err
}

func TestStoreFlagWithoutValueUsesDefaultFile(t *testing.T) {
	for _, arg := range []string{"--store", "-s", "-store"} {
		params, _, err := readParams(defaultConfig(), "--url", "http://fhir", arg)
		require.NoError(t, err)
		assert.True(t, params.store.enabled, arg)
		assert.Equal(t, "test-results.json", params.store.file, arg)
	}
}

func TestStoreFlagWithValue(t *testing.T) {
	for _, arg := range []string{"--store=out.json", "-s=out.json"} {
		params, _, err := readParams(defaultConfig(), "--url", "http://fhir", arg)
		require.NoError(t, err)
		assert.True(t, params.store.enabled, arg)
		assert.Equal(t, "out.json", params.store.file, arg)
	}
}

func TestStoreDefaultFileComesFromConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.ResultsFile = "reports/latest.json"
	params, _, err := readParams(cfg, "--url", "http://fhir", "--store")
	require.NoError(t, err)
	assert.Equal(t, "reports/latest.json", params.store.file)
}

func TestNoStoreFlag(t *testing.T) {
	params, _, err := readParams(defaultConfig(), "--url", "http://fhir")
	require.NoError(t, err)
	assert.False(t, params.store.enabled)
}

func TestHelpFlag(t *testing.T) {
	for _, arg := range []string{"--help", "-h"} {
		_, out, err := readParams(defaultConfig(), arg)
		assert.ErrorIs(t, err, flag.ErrHelp)
		assert.Contains(t, out, "-store")
	}
}

func TestURLIsRequired(t *testing.T) {
	_, out, err := readParams(defaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url is required")
	assert.Contains(t, out, "-url")
}

func TestURLFromConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.BaseURL = "http://configured/fhir"
	params, _, err := readParams(cfg, "--timeout", "3s", "--run", "search")
	require.NoError(t, err)
	assert.Equal(t, "http://configured/fhir", params.serviceURL)
	assert.Equal(t, 3*time.Second, params.statusTimeout)
	assert.True(t, params.filters.MustMatch.IsDefined())
}

func TestUnexpectedArguments(t *testing.T) {
	_, _, err := readParams(defaultConfig(), "--url", "http://fhir", "--store", "out.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out.json")
}

func TestRerunCommand(t *testing.T) {
	params := commandParams{serviceURL: "http://localhost:8080/fhir", debug: true}
	failures := []framework.TestResult{
		{TestID: framework.TestID{Path: []string{"search basics", "_count limits the number of entries"}}},
	}
	assert.Equal(t,
		`fhir-contract-tests --url http://localhost:8080/fhir --run '^search basics/_count limits the number of entries$' --debug`,
		rerunCommand("fhir-contract-tests", params, failures))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warn").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("anything").String())
}
