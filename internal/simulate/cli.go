package simulate

import "os"

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`vigil candidate simulator
=========================

Drives synthetic candidates against a running vigild over the signal
websocket and checks that every scripted violation comes back.

Usage:
  go run ./cmd/vigil-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -candidates int
        Number of simulated candidates (default 10)
  -assessment string
        Assessment id shared by all candidates (default "sim-assessment")
  -scenario string
        calm, multiface, environment or gaze (default: rotate through all)
  -duration duration
        How long each candidate streams (default 5s)
  -interval duration
        Gap between detection samples (default 100ms)
  -workers int
        Candidates connected at once (default: all)
  -timeout duration
        HTTP and dial timeout (default 10s)
  -output string
        Write a JSON report to this file
  -log-format string
        text or json (default "text")
  -verbose
        Log every received violation
  -help
        Show this help message

Examples:
  # Rotate through every scenario
  go run ./cmd/vigil-sim

  # Fifty candidates leaving the tab
  go run ./cmd/vigil-sim -candidates 50 -scenario environment
`)
}
