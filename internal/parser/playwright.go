// Package parser turns Playwright JSON reports into run batches the tracker
// can ingest. Parsing raw framework text output is out of scope; this only
// consumes the structured JSON reporter format.
package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kamilpajak/flakewatch/pkg/models"
)

// PlaywrightParser converts Playwright JSON reports into batches.
type PlaywrightParser struct{}

// playwrightReport represents the raw Playwright JSON structure.
type playwrightReport struct {
	Suites []playwrightSuite `json:"suites"`
	Stats  playwrightStats   `json:"stats"`
}

type playwrightStats struct {
	StartTime string `json:"startTime"`
}

type playwrightSuite struct {
	Title  string            `json:"title"`
	File   string            `json:"file"`
	Specs  []playwrightSpec  `json:"specs"`
	Suites []playwrightSuite `json:"suites"`
}

type playwrightSpec struct {
	Title string           `json:"title"`
	File  string           `json:"file"`
	Tests []playwrightTest `json:"tests"`
}

type playwrightTest struct {
	Results []playwrightResult `json:"results"`
}

type playwrightResult struct {
	Status   string `json:"status"`
	Duration int64  `json:"duration"`
}

// Parse reads a Playwright JSON report file and returns it as a batch.
func (p *PlaywrightParser) Parse(path string) (*models.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return p.ParseBytes(data)
}

// ParseBytes parses a Playwright JSON report from raw bytes.
func (p *PlaywrightParser) ParseBytes(data []byte) (*models.Batch, error) {
	var raw playwrightReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	batch := &models.Batch{
		BatchID:   uuid.NewString(),
		Timestamp: batchTimestamp(raw.Stats),
	}
	for _, suite := range raw.Suites {
		p.collect(batch, suite, nil)
	}
	if len(batch.Outcomes) == 0 {
		return nil, fmt.Errorf("report contains no test results")
	}
	return batch, nil
}

func batchTimestamp(stats playwrightStats) time.Time {
	if stats.StartTime != "" {
		if ts, err := time.Parse(time.RFC3339Nano, stats.StartTime); err == nil {
			return ts
		}
	}
	return time.Now()
}

func (p *PlaywrightParser) collect(batch *models.Batch, suite playwrightSuite, titles []string) {
	if suite.Title != "" {
		titles = append(titles, suite.Title)
	}

	for _, spec := range suite.Specs {
		if outcome := p.outcome(spec, titles); outcome != nil {
			batch.Outcomes = append(batch.Outcomes, *outcome)
		}
	}
	for _, nested := range suite.Suites {
		p.collect(batch, nested, titles)
	}
}

func (p *PlaywrightParser) outcome(spec playwrightSpec, titles []string) *models.TestOutcome {
	if len(spec.Tests) == 0 || len(spec.Tests[0].Results) == 0 {
		return nil
	}

	// A retried test has multiple results; the last one is authoritative.
	results := spec.Tests[0].Results
	result := results[len(results)-1]

	return &models.TestOutcome{
		TestID:     testID(spec.File, titles, spec.Title),
		Status:     mapStatus(result.Status),
		DurationMS: result.Duration,
	}
}

// testID builds a stable identifier from the spec's file path and title
// chain, e.g. "login.spec.ts › auth › remembers session".
func testID(file string, titles []string, title string) string {
	parts := make([]string, 0, len(titles)+2)
	if file != "" {
		parts = append(parts, file)
	}
	parts = append(parts, titles...)
	parts = append(parts, title)
	return strings.Join(parts, " › ")
}

func mapStatus(status string) models.RunStatus {
	switch status {
	case "passed":
		return models.StatusPassed
	case "skipped":
		return models.StatusSkipped
	case "timedOut":
		return models.StatusTimedOut
	default:
		return models.StatusFailed
	}
}
