// Package simulate drives synthetic candidates against a running vigild.
//
// Each candidate opens the signal websocket, follows a scripted scenario
// and records the violations pushed back, so a deployment can be checked
// end to end without a browser.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Candidates     int           // Number of simulated candidates
	AssessmentID   string        // Assessment shared by all candidates
	Scenario       Scenario      // Scenario for every candidate; empty rotates through all
	Duration       time.Duration // How long each candidate streams
	SampleInterval time.Duration // Gap between detection samples
	Workers        int           // Candidates connected at once
	Timeout        time.Duration // HTTP and dial timeout
	OutputFile     string        // Optional JSON report path
	Verbose        bool          // Log every received violation
}

// Result is the outcome of one simulated candidate.
type Result struct {
	SubjectID  string         `json:"subjectId"`
	SessionID  string         `json:"sessionId"`
	Scenario   Scenario       `json:"scenario"`
	Violations map[string]int `json:"violations"`
	Missing    []string       `json:"missing,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	Candidates  int
	Connected   int
	Failed      int
	SamplesSent int
	SignalsSent int
	Violations  int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
