package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Renderer writes a report in one output format.
type Renderer interface {
	Render(w io.Writer, r *Report) error
	Name() string
}

// NewRenderer returns the renderer for format.
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "", "text":
		return textRenderer{}, nil
	case "json":
		return jsonRenderer{}, nil
	case "markdown":
		return markdownRenderer{}, nil
	case "csv":
		return csvRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown report format: %s", format)
	}
}

type textRenderer struct{}

func (textRenderer) Name() string { return "text" }

func (textRenderer) Render(w io.Writer, r *Report) error {
	ew := &errWriter{w: w}

	ew.printf("Log file: %s\n", r.Source)
	ew.printf("Parsed %d log entries.\n\n", r.TotalRecords)

	ew.printf("Log Level Counts:\n")
	if len(r.LevelCounts) == 0 {
		ew.printf("  (none)\n")
	}
	for _, lc := range r.LevelCounts {
		ew.printf("  %-8s %d\n", lc.Level, lc.Count)
	}

	ew.printf("\nFrequent Errors:\n")
	if len(r.FrequentErrors) == 0 {
		ew.printf("  No errors found.\n")
	}
	for _, ec := range r.FrequentErrors {
		ew.printf("  %dx %s\n", ec.Count, ec.Message)
	}

	if len(r.Anomalies) == 0 {
		ew.printf("\nNo high response time anomalies found (threshold %dms).\n", r.ThresholdMS)
		return ew.err
	}
	ew.printf("\nDetected %d high response time logs (threshold %dms):\n", len(r.Anomalies), r.ThresholdMS)
	for _, a := range r.Anomalies {
		ew.printf("- %s | %dms | %s\n", a.Timestamp, a.ResponseTime, a.Message)
	}
	return ew.err
}

type jsonRenderer struct{}

func (jsonRenderer) Name() string { return "json" }

func (jsonRenderer) Render(w io.Writer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

type markdownRenderer struct{}

func (markdownRenderer) Name() string { return "markdown" }

func (markdownRenderer) Render(w io.Writer, r *Report) error {
	ew := &errWriter{w: w}

	ew.printf("# Log Analysis Summary\n\n")
	ew.printf("**Log File**: %s\n", r.Source)
	ew.printf("**Generated**: %s\n", r.GeneratedAt.Format(time.RFC3339))
	ew.printf("**Entries**: %d\n\n", r.TotalRecords)

	ew.printf("## Log Level Counts\n")
	for _, lc := range r.LevelCounts {
		ew.printf("- %s: %d\n", lc.Level, lc.Count)
	}

	ew.printf("\n## Frequent Errors\n")
	if len(r.FrequentErrors) == 0 {
		ew.printf("No errors found.\n")
	}
	for _, ec := range r.FrequentErrors {
		ew.printf("- %s (%d)\n", ec.Message, ec.Count)
	}

	ew.printf("\n## Anomalies\n")
	if len(r.Anomalies) == 0 {
		ew.printf("No anomalies found.\n")
	}
	for _, a := range r.Anomalies {
		ew.printf("- `%s` %dms: %s\n", a.Timestamp, a.ResponseTime, a.Message)
	}
	return ew.err
}

// csvRenderer exports the anomalies table.
type csvRenderer struct{}

func (csvRenderer) Name() string { return "csv" }

func (csvRenderer) Render(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "response_time", "message"}); err != nil {
		return err
	}
	for _, a := range r.Anomalies {
		if err := cw.Write([]string{a.Timestamp, strconv.Itoa(a.ResponseTime), a.Message}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// errWriter remembers the first write error so renderers can print freely.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
