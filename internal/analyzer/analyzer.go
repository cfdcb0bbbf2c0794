// Package analyzer provides the aggregate views computed over parsed
// records: how often each level occurs and which error messages recur.
package analyzer

import (
	"sort"

	"github.com/olegiv/loganalyzer-go/internal/parser"
)

// ErrorLevel is the level whose messages FrequentErrors considers.
const ErrorLevel = "ERROR"

// DefaultMinErrorCount is the default threshold for FrequentErrors.
const DefaultMinErrorCount = 2

// LevelCount is the number of records carrying a level.
type LevelCount struct {
	Level string `json:"level"`
	Count int    `json:"count"`
}

// ErrorCount is the number of ERROR records sharing a message.
type ErrorCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// LevelCounts counts records per level, most frequent first.
// Ties keep the order in which levels first appeared. Records without a
// level are not counted.
func LevelCounts(records []parser.Record) []LevelCount {
	var counts []LevelCount
	index := make(map[string]int)

	for _, rec := range records {
		if rec.Level == "" {
			continue
		}
		if i, ok := index[rec.Level]; ok {
			counts[i].Count++
			continue
		}
		index[rec.Level] = len(counts)
		counts = append(counts, LevelCount{Level: rec.Level, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

// FrequentErrors returns the ERROR messages seen at least minCount times,
// in order of first appearance. Empty messages are ignored. A minCount
// below 1 is treated as 1.
func FrequentErrors(records []parser.Record, minCount int) []ErrorCount {
	if minCount < 1 {
		minCount = 1
	}

	var counts []ErrorCount
	index := make(map[string]int)

	for _, rec := range records {
		if rec.Level != ErrorLevel || rec.Message == "" {
			continue
		}
		if i, ok := index[rec.Message]; ok {
			counts[i].Count++
			continue
		}
		index[rec.Message] = len(counts)
		counts = append(counts, ErrorCount{Message: rec.Message, Count: 1})
	}

	frequent := counts[:0]
	for _, c := range counts {
		if c.Count >= minCount {
			frequent = append(frequent, c)
		}
	}
	return frequent
}
