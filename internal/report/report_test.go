package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/olegiv/loganalyzer-go/internal/detector"
	"github.com/olegiv/loganalyzer-go/internal/parser"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func sampleRecords() []parser.Record {
	return []parser.Record{
		{Timestamp: "2024-05-01 10:00:00", Level: "INFO", Message: "API response time: 300ms"},
		{Timestamp: "2024-05-01 10:00:01", Level: "ERROR", Message: "DB timeout"},
		{Timestamp: "2024-05-01 10:00:02", Level: "ERROR", Message: "DB timeout"},
		{Timestamp: "2024-05-01 10:00:03", Level: "WARN", Message: "API response time: 1500ms"},
		{Timestamp: "2024-05-01 10:00:04", Level: "INFO", Message: "API response time: 2500ms"},
		{Timestamp: "2024-05-01 10:00:05", Level: "INFO", Message: "started"},
	}
}

func TestBuild(t *testing.T) {
	r := Build("app.log", sampleRecords(), Options{ThresholdMS: 1000, Now: fixedNow})

	if r.Source != "app.log" || r.TotalRecords != 6 || r.ThresholdMS != 1000 {
		t.Errorf("Unexpected header: %+v", r)
	}
	if !r.GeneratedAt.Equal(fixedNow()) {
		t.Errorf("Expected GeneratedAt %v, got %v", fixedNow(), r.GeneratedAt)
	}
	if len(r.LevelCounts) != 3 || r.LevelCounts[0].Level != "INFO" || r.LevelCounts[0].Count != 3 {
		t.Errorf("Unexpected level counts: %+v", r.LevelCounts)
	}
	if len(r.FrequentErrors) != 1 || r.FrequentErrors[0].Message != "DB timeout" {
		t.Errorf("Unexpected frequent errors: %+v", r.FrequentErrors)
	}
	if len(r.Anomalies) != 2 || r.Anomalies[0].ResponseTime != 2500 {
		t.Errorf("Unexpected anomalies: %+v", r.Anomalies)
	}
	if !r.HasAnomalies() {
		t.Error("Expected HasAnomalies")
	}
}

func TestBuildDefaults(t *testing.T) {
	r := Build("empty", nil, Options{})

	if r.ThresholdMS != detector.DefaultThresholdMS {
		t.Errorf("Expected default threshold, got %d", r.ThresholdMS)
	}
	if r.LevelCounts == nil || r.FrequentErrors == nil || r.Anomalies == nil {
		t.Error("Expected empty, non-nil views")
	}
	if r.HasAnomalies() {
		t.Error("Expected no anomalies")
	}
}

func TestAlertBody(t *testing.T) {
	body := AlertBody([]detector.Anomaly{
		{Timestamp: "2024-05-01 10:00:04", ResponseTime: 2500, Message: "API response time: 2500ms"},
		{Timestamp: "2024-05-01 10:00:03", ResponseTime: 1500, Message: "API response time: 1500ms"},
	})
	want := "2024-05-01 10:00:04 - API response time: 2500ms\n2024-05-01 10:00:03 - API response time: 1500ms"
	if body != want {
		t.Errorf("AlertBody() = %q, want %q", body, want)
	}
	if AlertBody(nil) != "" {
		t.Error("Expected empty body for no anomalies")
	}
}

func TestNewRenderer(t *testing.T) {
	for _, format := range []string{"text", "json", "markdown", "csv"} {
		r, err := NewRenderer(format)
		if err != nil {
			t.Fatalf("NewRenderer(%q) failed: %v", format, err)
		}
		if r.Name() != format {
			t.Errorf("Expected renderer %q, got %q", format, r.Name())
		}
	}
	if _, err := NewRenderer("xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func render(t *testing.T, format string, r *Report) string {
	t.Helper()
	renderer, err := NewRenderer(format)
	if err != nil {
		t.Fatalf("NewRenderer() failed: %v", err)
	}
	var buf bytes.Buffer
	if err := renderer.Render(&buf, r); err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	return buf.String()
}

func TestRenderText(t *testing.T) {
	out := render(t, "text", Build("app.log", sampleRecords(), Options{Now: fixedNow}))

	for _, want := range []string{
		"Parsed 6 log entries.",
		"Log Level Counts:",
		"2x DB timeout",
		"Detected 2 high response time logs",
		"- 2024-05-01 10:00:04 | 2500ms | API response time: 2500ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected text output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderTextNoAnomalies(t *testing.T) {
	out := render(t, "text", Build("app.log", nil, Options{Now: fixedNow}))

	if !strings.Contains(out, "No high response time anomalies found") {
		t.Errorf("Unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "No errors found.") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestRenderJSON(t *testing.T) {
	out := render(t, "json", Build("app.log", sampleRecords(), Options{Now: fixedNow}))

	var decoded struct {
		Source       string `json:"source"`
		TotalRecords int    `json:"total_records"`
		Anomalies    []struct {
			Timestamp    string `json:"timestamp"`
			ResponseTime int    `json:"response_time"`
		} `json:"anomalies"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if decoded.Source != "app.log" || decoded.TotalRecords != 6 {
		t.Errorf("Unexpected decoded report: %+v", decoded)
	}
	if len(decoded.Anomalies) != 2 || decoded.Anomalies[1].ResponseTime != 1500 {
		t.Errorf("Unexpected anomalies: %+v", decoded.Anomalies)
	}
}

func TestRenderMarkdown(t *testing.T) {
	out := render(t, "markdown", Build("app.log", sampleRecords(), Options{Now: fixedNow}))

	for _, want := range []string{
		"# Log Analysis Summary",
		"**Log File**: app.log",
		"**Generated**: 2024-05-01T12:00:00Z",
		"## Log Level Counts\n- INFO: 3\n",
		"- DB timeout (2)",
		"## Anomalies\n- `2024-05-01 10:00:04` 2500ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected markdown to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	records := append(sampleRecords(), parser.Record{
		Timestamp: "2024-05-01 10:00:06",
		Level:     "INFO",
		Message:   `slow, "quoted" API response time: 1200ms`,
	})
	out := render(t, "csv", Build("app.log", records, Options{Now: fixedNow}))

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("Invalid CSV output: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header plus 3 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "timestamp,response_time,message" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	if rows[3][2] != `slow, "quoted" API response time: 1200ms` {
		t.Errorf("Expected quoted message to round trip, got %q", rows[3][2])
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderWriteError(t *testing.T) {
	r := Build("app.log", sampleRecords(), Options{Now: fixedNow})
	for _, format := range []string{"text", "markdown", "csv"} {
		renderer, _ := NewRenderer(format)
		if err := renderer.Render(failingWriter{}, r); err == nil {
			t.Errorf("%s: expected write error", format)
		}
	}
}
