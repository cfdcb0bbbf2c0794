// Package detector finds records whose embedded API response time exceeds
// a threshold.
package detector

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/olegiv/loganalyzer-go/internal/parser"
)

// DefaultThresholdMS is the response time above which a record is anomalous.
const DefaultThresholdMS = 1000

var responseTimePattern = regexp.MustCompile(`(?i)API response time: (\d+)ms`)

// Anomaly is a record whose response time exceeded the threshold.
type Anomaly struct {
	Timestamp    string `json:"timestamp"`
	ResponseTime int    `json:"response_time"`
	Message      string `json:"message"`
}

// ExtractResponseTime returns the response time embedded in a message.
// It returns false when the message has none or the value does not fit in
// an int.
func ExtractResponseTime(message string) (int, bool) {
	m := responseTimePattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	ms, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return ms, true
}

// DetectHighResponseTimes returns the records whose response time is
// strictly greater than thresholdMS, slowest first. Records with equal
// response times keep their input order.
func DetectHighResponseTimes(records []parser.Record, thresholdMS int) []Anomaly {
	var anomalies []Anomaly
	for _, rec := range records {
		ms, ok := ExtractResponseTime(rec.Message)
		if !ok || ms <= thresholdMS {
			continue
		}
		anomalies = append(anomalies, Anomaly{
			Timestamp:    rec.Timestamp,
			ResponseTime: ms,
			Message:      rec.Message,
		})
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].ResponseTime > anomalies[j].ResponseTime
	})
	return anomalies
}
