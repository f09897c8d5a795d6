package main

import (
	"strings"
	"testing"

	"dictate/log"
)

func TestJobStatsPercentiles(t *testing.T) {
	var s jobStats
	if s.table() != "" {
		t.Error("empty stats should render nothing")
	}

	for i := 1; i <= 10; i++ {
		s.add(log.JobMetrics{TotalTimeMs: float64(i * 100), Polls: i})
	}

	n, st := s.snapshot()
	if n != 10 {
		t.Fatalf("count = %d, want 10", n)
	}
	want := [5]float64{100, 500, 900, 900, 1000}
	if st.TotalMs != want {
		t.Errorf("TotalMs = %v, want %v", st.TotalMs, want)
	}
	if st.Polls[0] != 1 || st.Polls[4] != 10 {
		t.Errorf("Polls = %v", st.Polls)
	}

	table := s.table()
	for _, row := range []string{"total", "upload", "encode", "polls"} {
		if !strings.Contains(table, row) {
			t.Errorf("table missing %q row:\n%s", row, table)
		}
	}
}

func TestMetricLines(t *testing.T) {
	lines := metricLines(log.JobMetrics{AudioLengthS: 2.5, Polls: 3, TotalTimeMs: 4200, ConnReused: true})
	if len(lines) != 3 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "conn reused") {
		t.Errorf("upload line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "3 polls, 4.2s total") {
		t.Errorf("job line = %q", lines[2])
	}
}
