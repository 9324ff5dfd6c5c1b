package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/fhirconformance/fhir-contract-tests/framework"
	"github.com/fhirconformance/fhir-contract-tests/internal/config"

	"github.com/alessio/shellescape"
)

type commandParams struct {
	serviceURL    string
	statusTimeout time.Duration
	filters       framework.RegexFilters
	debug         bool
	debugAll      bool
	store         storeFlag
	logLevel      string
	logFile       string
}

// storeFlag is set by either "--store" alone, which writes the report to the default file,
// or "--store=filename".
type storeFlag struct {
	enabled bool
	file    string
}

func (s *storeFlag) String() string {
	if s == nil {
		return ""
	}
	return s.file
}

func (s *storeFlag) Set(value string) error {
	switch value {
	case "", "true":
		s.enabled = true
	case "false":
		s.enabled = false
	default:
		s.enabled = true
		s.file = value
	}
	return nil
}

func (s *storeFlag) IsBoolFlag() bool { return true }

// Read parses the command line. Values from cfg are used as defaults. It returns
// flag.ErrHelp if help was requested, after printing usage.
func (c *commandParams) Read(args []string, cfg *config.Config, output io.Writer) error {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&c.serviceURL, "url", cfg.BaseURL, "base URL of the FHIR server")
	fs.DurationVar(&c.statusTimeout, "timeout", cfg.StatusQueryTimeout, "how long to wait for the server to respond to /metadata")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")
	fs.Var(&c.store, "store", "write the test report as JSON (default file "+cfg.ResultsFile+")")
	fs.Var(&c.store, "s", "shorthand for --store")
	fs.StringVar(&c.logLevel, "log-level", cfg.LogLevel, "operational log level: debug, info, warn or error")
	fs.StringVar(&c.logFile, "log-file", cfg.LogFile, "also write operational logs to this file, with rotation")

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if c.serviceURL == "" {
		fs.Usage()
		return errors.New("--url is required")
	}
	if c.store.enabled && c.store.file == "" {
		c.store.file = cfg.ResultsFile
	}
	return nil
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

// rerunCommand returns a command line that runs only the failed tests again.
func rerunCommand(program string, params commandParams, failures []framework.TestResult) string {
	var b commandBuilder
	b.add(program, "--url", params.serviceURL)
	for _, f := range failures {
		b.add("--run", "^"+regexp.QuoteMeta(f.TestID.String())+"$")
	}
	if params.debug || params.debugAll {
		b.add("--debug")
	}
	return b.String()
}
