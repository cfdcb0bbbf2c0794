package parser

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"plain", "hello", "hello", true},
		{"surrounding whitespace", "  \thello world \r", "hello world", true},
		{"empty", "", "", false},
		{"whitespace only", " \t \r ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   Fields
		wantOK bool
	}{
		{
			name:   "json object",
			line:   `{"timestamp": "2025-08-13 15:22:01", "level": "warn", "message": "Cache - miss - rate high"}`,
			want:   Fields{Format: FormatJSON, Timestamp: "2025-08-13 15:22:01", Level: "warn", Message: "Cache - miss - rate high"},
			wantOK: true,
		},
		{
			name:   "json object without known keys",
			line:   `{"foo": 1}`,
			want:   Fields{Format: FormatJSON},
			wantOK: true,
		},
		{
			name:   "json non-string values keep their json text",
			line:   `{"timestamp": 1723562521, "level": null, "message": true}`,
			want:   Fields{Format: FormatJSON, Timestamp: "1723562521", Message: "true"},
			wantOK: true,
		},
		{
			name:   "space delimited",
			line:   "2025-08-13 15:22:01 INFO Something happened",
			want:   Fields{Format: FormatSpace, Timestamp: "2025-08-13 15:22:01", Level: "INFO", Message: "Something happened"},
			wantOK: true,
		},
		{
			name:   "space delimited unicode level",
			line:   "2025-08-13 15:22:01 straße closed",
			want:   Fields{Format: FormatSpace, Timestamp: "2025-08-13 15:22:01", Level: "straße", Message: "closed"},
			wantOK: true,
		},
		{
			name:   "space delimited level with digits and underscore",
			line:   "2025-08-13 15:22:01 LEVEL_2 retrying",
			want:   Fields{Format: FormatSpace, Timestamp: "2025-08-13 15:22:01", Level: "LEVEL_2", Message: "retrying"},
			wantOK: true,
		},
		{
			name:   "dash after timestamp is not a level",
			line:   "2025-08-13 15:22:01 - ERROR - Disk full",
			want:   Fields{Format: FormatDash, Timestamp: "2025-08-13 15:22:01", Level: "ERROR", Message: "Disk full"},
			wantOK: true,
		},
		{
			name:   "space delimited dash in message",
			line:   "2025-08-13 15:22:01 WARN a - b - c - d",
			want:   Fields{Format: FormatSpace, Timestamp: "2025-08-13 15:22:01", Level: "WARN", Message: "a - b - c - d"},
			wantOK: true,
		},
		{
			name:   "dash delimited",
			line:   "Aug 13 15:22:01 - ERROR - Disk full",
			want:   Fields{Format: FormatDash, Timestamp: "Aug 13 15:22:01", Level: "ERROR", Message: "Disk full"},
			wantOK: true,
		},
		{
			name:   "malformed json falls through to dash",
			line:   `{"broken - ERROR - still parsed`,
			want:   Fields{Format: FormatDash, Timestamp: `{"broken`, Level: "ERROR", Message: "still parsed"},
			wantOK: true,
		},
		{
			name:   "json array is not an object",
			line:   `["a - b - c"]`,
			want:   Fields{Format: FormatDash, Timestamp: `["a`, Level: "b", Message: `c"]`},
			wantOK: true,
		},
		{"four dash segments", "a - b - c - d", Fields{}, false},
		{"two dash segments", "a - b", Fields{}, false},
		{"bare json scalar", "null", Fields{}, false},
		{"plain text", "just some words", Fields{}, false},
		{"date without message", "2025-08-13 15:22:01 INFO", Fields{}, false},
		{"bracketed level", "2025-08-13 15:22:01 [warn] disk at 91%", Fields{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v (%+v)", tt.wantOK, ok, got)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Record
		wantOK bool
	}{
		{
			name:   "space delimited",
			raw:    "2025-08-13 15:22:01 INFO Something happened",
			want:   Record{Timestamp: "2025-08-13 15:22:01", Level: "INFO", Message: "Something happened"},
			wantOK: true,
		},
		{
			name:   "dash delimited with iso timestamp",
			raw:    "2025-08-13 15:22:01 - ERROR - Disk full",
			want:   Record{Timestamp: "2025-08-13 15:22:01", Level: "ERROR", Message: "Disk full"},
			wantOK: true,
		},
		{
			name:   "json record",
			raw:    `{"timestamp": "2025-08-13 15:22:01", "level": "warn", "message": "API response time: 1500ms"}`,
			want:   Record{Timestamp: "2025-08-13 15:22:01", Level: "WARN", Message: "API response time: 1500ms"},
			wantOK: true,
		},
		{
			name:   "dash delimited",
			raw:    "  13/08/2025 15:22:01 -  error  -  Disk full  ",
			want:   Record{Timestamp: "13/08/2025 15:22:01", Level: "ERROR", Message: "Disk full"},
			wantOK: true,
		},
		{
			name:   "json message kept verbatim after trimming",
			raw:    `{"level": "debug", "message": "  a - b - c 2025-08-13 15:22:01 X y  "}`,
			want:   Record{Level: "DEBUG", Message: "a - b - c 2025-08-13 15:22:01 X y"},
			wantOK: true,
		},
		{
			name:   "json empty object",
			raw:    "{}",
			want:   Record{},
			wantOK: true,
		},
		{
			name:   "unicode level upper-cased",
			raw:    "2025-08-13 15:22:01 straße closed",
			want:   Record{Timestamp: "2025-08-13 15:22:01", Level: "STRASSE", Message: "closed"},
			wantOK: true,
		},
		{"blank", "   ", Record{}, false},
		{"four segments", "a - b - c - d", Record{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	got := Build(Fields{Timestamp: " ts ", Level: " warning ", Message: "\tmsg\n"})
	want := Record{Timestamp: "ts", Level: "WARNING", Message: "msg"}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if empty := Build(Fields{}); empty != (Record{}) {
		t.Errorf("Expected empty record, got %+v", empty)
	}
}
