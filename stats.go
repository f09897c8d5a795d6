package main

import (
	"fmt"
	"sort"
	"sync"

	"dictate/log"
)

// PercentileStats holds min, p50, p90, p95 and max per measure.
type PercentileStats struct {
	TotalMs  [5]float64
	UploadMs [5]float64
	EncodeMs [5]float64
	Polls    [5]float64
}

// jobStats collects the metrics of finished jobs for the terminal UI.
type jobStats struct {
	mu    sync.Mutex
	jobs  []log.JobMetrics
	stats PercentileStats
}

func (s *jobStats) add(m log.JobMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, m)
	s.update()
}

func (s *jobStats) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *jobStats) snapshot() (int, PercentileStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs), s.stats
}

func (s *jobStats) update() {
	n := len(s.jobs)
	if n == 0 {
		return
	}

	extract := func(fn func(log.JobMetrics) float64) []float64 {
		vals := make([]float64, n)
		for i, j := range s.jobs {
			vals[i] = fn(j)
		}
		sort.Float64s(vals)
		return vals
	}

	percentile := func(sorted []float64, p float64) float64 {
		idx := int(float64(len(sorted)-1) * p)
		return sorted[idx]
	}

	calcStats := func(sorted []float64) [5]float64 {
		return [5]float64{
			sorted[0],
			percentile(sorted, 0.50),
			percentile(sorted, 0.90),
			percentile(sorted, 0.95),
			sorted[len(sorted)-1],
		}
	}

	s.stats.TotalMs = calcStats(extract(func(j log.JobMetrics) float64 { return j.TotalTimeMs }))
	s.stats.UploadMs = calcStats(extract(func(j log.JobMetrics) float64 { return j.UploadMs }))
	s.stats.EncodeMs = calcStats(extract(func(j log.JobMetrics) float64 { return j.EncodeTimeMs }))
	s.stats.Polls = calcStats(extract(func(j log.JobMetrics) float64 { return float64(j.Polls) }))
}

func (s *jobStats) table() string {
	n, st := s.snapshot()
	if n == 0 {
		return ""
	}

	ts, us, es, ps := st.TotalMs, st.UploadMs, st.EncodeMs, st.Polls
	return fmt.Sprintf(
		"        %5s %5s %5s %5s %5s\n"+
			"total   %5.0f %5.0f %5.0f %5.0f %5.0f\n"+
			"upload  %5.0f %5.0f %5.0f %5.0f %5.0f\n"+
			"encode  %5.0f %5.0f %5.0f %5.0f %5.0f\n"+
			"polls   %5.0f %5.0f %5.0f %5.0f %5.0f",
		"min", "p50", "p90", "p95", "max",
		ts[0], ts[1], ts[2], ts[3], ts[4],
		us[0], us[1], us[2], us[3], us[4],
		es[0], es[1], es[2], es[3], es[4],
		ps[0], ps[1], ps[2], ps[3], ps[4],
	)
}

// metricLines is the per-job summary shown under the transcript.
func metricLines(m log.JobMetrics) []string {
	conn := "new"
	if m.ConnReused {
		conn = "reused"
	}
	return []string{
		fmt.Sprintf("audio:  %.1fs  raw %.0f KB  flac %.0f KB", m.AudioLengthS, m.RawSizeKB, m.PayloadKB),
		fmt.Sprintf("upload: %.0fms (tls %.0fms, ttfb %.0fms, conn %s)", m.UploadMs, m.TLSTimeMs, m.TTFBMs, conn),
		fmt.Sprintf("job:    %d polls, %.1fs total", m.Polls, m.TotalTimeMs/1000),
	}
}
