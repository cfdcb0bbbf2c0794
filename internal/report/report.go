// Package report assembles the analysis views of a log source into a
// single Report and renders it for people and machines.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/loganalyzer-go/internal/analyzer"
	"github.com/olegiv/loganalyzer-go/internal/detector"
	"github.com/olegiv/loganalyzer-go/internal/parser"
)

// AlertSubject is the subject line of response time alerts.
const AlertSubject = "High API Response Time Detected"

// Report is the result of analyzing one log source.
type Report struct {
	Source         string                `json:"source"`
	GeneratedAt    time.Time             `json:"generated_at"`
	TotalRecords   int                   `json:"total_records"`
	ThresholdMS    int                   `json:"threshold_ms"`
	LevelCounts    []analyzer.LevelCount `json:"level_counts"`
	FrequentErrors []analyzer.ErrorCount `json:"frequent_errors"`
	Anomalies      []detector.Anomaly    `json:"anomalies"`
}

// Options controls which thresholds Build applies.
type Options struct {
	ThresholdMS   int
	MinErrorCount int
	Now           func() time.Time
}

// Build runs every analysis over records.
func Build(source string, records []parser.Record, opts Options) *Report {
	if opts.ThresholdMS <= 0 {
		opts.ThresholdMS = detector.DefaultThresholdMS
	}
	if opts.MinErrorCount <= 0 {
		opts.MinErrorCount = analyzer.DefaultMinErrorCount
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	return &Report{
		Source:         source,
		GeneratedAt:    now().UTC(),
		TotalRecords:   len(records),
		ThresholdMS:    opts.ThresholdMS,
		LevelCounts:    nonNil(analyzer.LevelCounts(records)),
		FrequentErrors: nonNil(analyzer.FrequentErrors(records, opts.MinErrorCount)),
		Anomalies:      nonNil(detector.DetectHighResponseTimes(records, opts.ThresholdMS)),
	}
}

// HasAnomalies reports whether an alert should be sent.
func (r *Report) HasAnomalies() bool {
	return len(r.Anomalies) > 0
}

// AlertBody lists one anomaly per line as "<timestamp> - <message>".
func AlertBody(anomalies []detector.Anomaly) string {
	lines := make([]string, 0, len(anomalies))
	for _, a := range anomalies {
		lines = append(lines, fmt.Sprintf("%s - %s", a.Timestamp, a.Message))
	}
	return strings.Join(lines, "\n")
}

// nonNil keeps empty views as [] rather than null in JSON output.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
