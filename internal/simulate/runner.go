package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/vigil/pkg/logger"
)

// Run executes a complete simulation and returns the per-candidate results.
// It fails with ErrVerification when any candidate missed an expected
// violation or could not connect.
func Run(ctx context.Context, cfg *Config) ([]Result, error) {
	applyDefaults(cfg)
	stats := &Stats{Candidates: cfg.Candidates, StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting vigil simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("candidates", cfg.Candidates),
		logger.Int("workers", cfg.Workers),
		logger.String("scenario", scenarioLabel(cfg.Scenario)),
		logger.Duration("duration", cfg.Duration),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Run candidates concurrently
	results := runCandidates(ctx, client, cfg, stats)

	// Step 3: Verify results
	verr := verify(results)
	for _, r := range results {
		if r.Error != "" {
			stats.Failed++
			continue
		}
		stats.Connected++
		for _, n := range r.Violations {
			stats.Violations += n
		}
	}

	// Step 4: Check sessions were released
	if snapshot, err := client.Stats(ctx); err != nil {
		log.Warn(ctx, "failed to fetch service stats", logger.Error(err))
	} else {
		log.Info(ctx, "service stats", logger.Any("activeSessions", snapshot["activeSessions"]))
	}

	// Step 5: Save report
	if cfg.OutputFile != "" {
		if err := saveResults(ctx, cfg.OutputFile, results); err != nil {
			log.Warn(ctx, "failed to save results", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verr != nil {
		return results, verr
	}
	log.Info(ctx, "simulation completed successfully")
	return results, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Candidates <= 0 {
		cfg.Candidates = DefaultCandidates
	}
	if cfg.Workers <= 0 || cfg.Workers > cfg.Candidates {
		cfg.Workers = cfg.Candidates
	}
	if cfg.AssessmentID == "" {
		cfg.AssessmentID = DefaultAssessmentID
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultSampleInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
}

func runCandidates(ctx context.Context, client *Client, cfg *Config, stats *Stats) []Result {
	results := make([]Result, cfg.Candidates)
	scenarios := Scenarios()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := 0; i < cfg.Candidates; i++ {
		i := i
		scenario := cfg.Scenario
		if scenario == "" {
			scenario = scenarios[i%len(scenarios)]
		}
		c := newCandidate(uuid.NewString(), scenario, cfg)
		g.Go(func() error {
			results[i] = c.run(gctx, client)
			samples, signals := c.counts()
			mu.Lock()
			stats.SamplesSent += samples
			stats.SignalsSent += signals
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// saveResults writes the results to path as indented JSON.
func saveResults(ctx context.Context, path string, results []Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	logger.Get().Info(ctx, "results saved to file", logger.String("filename", path))
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var samplesPerSecond float64
	if stats.Duration > 0 {
		samplesPerSecond = float64(stats.SamplesSent) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("candidates", stats.Candidates),
		logger.Int("connected", stats.Connected),
		logger.Int("failed", stats.Failed),
		logger.Int("samplesSent", stats.SamplesSent),
		logger.Int("signalsSent", stats.SignalsSent),
		logger.Int("violations", stats.Violations),
		logger.Duration("duration", stats.Duration),
		logger.Float64("samplesPerSecond", samplesPerSecond),
	)
}

func scenarioLabel(s Scenario) string {
	if s == "" {
		return "rotate"
	}
	return string(s)
}
