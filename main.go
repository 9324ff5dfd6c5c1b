package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fhirconformance/fhir-contract-tests/fhirtests"
	"github.com/fhirconformance/fhir-contract-tests/framework"
	"github.com/fhirconformance/fhir-contract-tests/framework/recorder"
	"github.com/fhirconformance/fhir-contract-tests/internal/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %s\n", err)
		os.Exit(1)
	}

	var params commandParams
	if err := params.Read(os.Args, cfg, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Invalid parameters: %s\n", err)
		os.Exit(1)
	}

	logger, err := setupLogger(params.logLevel, params.logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %s\n", err)
		os.Exit(1)
	}

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = framework.SlogLogger(logger, slog.LevelInfo)
	}

	server, err := framework.ConnectToServer(
		params.serviceURL,
		params.statusTimeout,
		mainDebugLogger,
		os.Stdout,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FHIR server error: %s\n", err)
		os.Exit(1)
	}
	logger.Info("connected to FHIR server",
		"url", server.BaseURL(),
		"fhir_version", server.Info().FHIRVersion,
		"software", server.Info().Software,
	)

	fmt.Println()
	framework.PrintFilterDescription(os.Stdout, server, params.filters, fhirtests.RequiredResources)

	fmt.Println("Running test suite")

	testLogger := &framework.ConsoleTestLogger{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}

	rec := recorder.New(recorder.WithLogger(logger))
	results := fhirtests.RunTestSuite(server, rec, params.filters.AsFilter, testLogger)

	fmt.Println()
	framework.PrintResults(os.Stdout, results)

	if params.store.enabled {
		report := recorder.BuildReport(rec.TestResults())
		if err := report.WriteFile(params.store.file); err != nil {
			logger.Error("could not write test report", "file", params.store.file, "error", err)
			os.Exit(1)
		}
		summary := report.Summary()
		logger.Info("wrote test report",
			"file", params.store.file,
			"passed", summary.Passed,
			"failed", summary.Failed,
			"skipped", summary.Skipped,
			"total", summary.Total(),
		)
	}

	if !results.OK() {
		fmt.Println()
		fmt.Println("To run only the failed tests again:")
		fmt.Printf("  %s\n", rerunCommand(filepath.Base(os.Args[0]), params, results.Failures))
		os.Exit(1)
	}
}

// setupLogger installs the default structured logger. Logs go to stderr, and also to a
// rotated file if filename is set.
func setupLogger(level, filename string) (*slog.Logger, error) {
	var out io.Writer = os.Stderr
	if filename != "" {
		if dir := filepath.Dir(filename); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    25,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		})
	}

	h := slog.NewTextHandler(out, &slog.HandlerOptions{Level: parseLevel(level)})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
