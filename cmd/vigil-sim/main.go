// Command vigil-sim drives synthetic candidates against a running vigild.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/vigil/internal/simulate"
	"github.com/okian/vigil/pkg/logger"
)

// Upper bound on a whole run.
const defaultRunTimeout = 10 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		candidates = flag.Int("candidates", simulate.DefaultCandidates, "Number of simulated candidates")
		assessment = flag.String("assessment", simulate.DefaultAssessmentID, "Assessment id shared by all candidates")
		scenario   = flag.String("scenario", "", "calm, multiface or environment (default: rotate)")
		duration   = flag.Duration("duration", simulate.DefaultDuration, "How long each candidate streams")
		interval   = flag.Duration("interval", simulate.DefaultSampleInterval, "Gap between detection samples")
		workers    = flag.Int("workers", 0, "Candidates connected at once (default: all)")
		timeout    = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP and dial timeout")
		outputFile = flag.String("output", "", "Write a JSON report to this file")
		logFormat  = flag.String("log-format", logger.FormatText, "text or json")
		verbose    = flag.Bool("verbose", false, "Log every received violation")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return 0
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithFormat(*logFormat), logger.WithLevel(level)); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return 2
	}

	sc, err := simulate.ParseScenario(*scenario)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:        *baseURL,
		Candidates:     *candidates,
		AssessmentID:   *assessment,
		Scenario:       sc,
		Duration:       *duration,
		SampleInterval: *interval,
		Workers:        *workers,
		Timeout:        *timeout,
		OutputFile:     *outputFile,
		Verbose:        *verbose,
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return 1
	}
	return 0
}
