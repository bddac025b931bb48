package timedomain

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// latencyWindow bounds the number of per-step latency samples retained for
// jitter/percentile accounting, mirroring the bounded ring-buffer
// convention spec.md §9 prescribes for controller histories.
const latencyWindow = 1000

// Metrics is an optional, nil-safe set of Prometheus collectors a caller
// may attach to a RealTimeScheduler. A nil *Metrics disables instrumentation
// entirely; every method tolerates a nil receiver.
type Metrics struct {
	MissedDeadlines prometheus.Counter
	TotalSteps      prometheus.Counter
	StepLatency     prometheus.Histogram
}

// NewMetrics registers and returns a Metrics set on reg. Pass a
// prometheus.NewRegistry() (or nil to skip registration and use the
// collectors unregistered, e.g. in tests).
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		MissedDeadlines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "missed_deadlines_total",
			Help: "Count of real-time scheduler deadlines missed beyond tolerance.",
		}),
		TotalSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "scheduler_steps_total",
			Help: "Count of real-time scheduler steps completed.",
		}),
		StepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "scheduler_step_latency_seconds",
			Help:    "Observed latency of each real-time scheduler step.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.MissedDeadlines, m.TotalSteps, m.StepLatency)
	}
	return m
}

func (m *Metrics) observe(latency time.Duration, missed bool) {
	if m == nil {
		return
	}
	m.TotalSteps.Inc()
	m.StepLatency.Observe(latency.Seconds())
	if missed {
		m.MissedDeadlines.Inc()
	}
}

// TimingStats summarizes a RealTimeScheduler's accumulated history.
type TimingStats struct {
	Missed       int
	Total        int
	TargetPeriod time.Duration
	MaxJitter    time.Duration
	MeanLatency  time.Duration
	P95Latency   time.Duration
}

// RealTimeScheduler arms deadlines spaced exactly period apart (phase is
// preserved across cycles: a deadline is always the previous deadline plus
// period, never "now plus period", so the schedule does not drift under
// measured jitter) and reports whether each one was met within tolerance.
type RealTimeScheduler struct {
	period    time.Duration
	tolerance time.Duration

	deadline     time.Time
	haveDeadline bool

	missed int
	total  int

	latencies []time.Duration // ring buffer, most recent latencyWindow samples
	hits      []bool          // ring buffer of deadline-met outcomes, for weakly-hard queries

	metrics *Metrics

	nowFn func() time.Time
	sleep func(time.Duration)
}

// NewRealTimeScheduler constructs a scheduler targeting the given period,
// accepting deadlines met within tolerance. metrics may be nil.
func NewRealTimeScheduler(period, tolerance time.Duration, metrics *Metrics) *RealTimeScheduler {
	return &RealTimeScheduler{
		period:    period,
		tolerance: tolerance,
		metrics:   metrics,
		nowFn:     time.Now,
		sleep:     time.Sleep,
	}
}

// StartStep arms the next deadline at the previous deadline plus period
// (or now+period for the very first step).
func (s *RealTimeScheduler) StartStep() {
	now := s.nowFn()
	if !s.haveDeadline {
		s.deadline = now.Add(s.period)
		s.haveDeadline = true
		return
	}
	s.deadline = s.deadline.Add(s.period)
}

// WaitForNextStep blocks until the armed deadline (sleeping if there is
// time left) and reports whether the deadline was met within tolerance.
// Missed deadlines are counted but never abort the schedule.
func (s *RealTimeScheduler) WaitForNextStep() bool {
	if !s.haveDeadline {
		return true
	}
	stepStart := s.nowFn()

	now := stepStart
	missed := now.After(s.deadline.Add(s.tolerance))
	if !missed {
		if sleepFor := s.deadline.Sub(now); sleepFor > 0 {
			s.sleep(sleepFor)
		}
	} else {
		s.missed++
	}
	s.total++

	latency := s.nowFn().Sub(stepStart)
	s.recordLatency(latency)
	s.recordHit(!missed)
	s.metrics.observe(latency, missed)

	return !missed
}

func (s *RealTimeScheduler) recordLatency(d time.Duration) {
	s.latencies = append(s.latencies, d)
	if len(s.latencies) > latencyWindow {
		s.latencies = s.latencies[len(s.latencies)-latencyWindow:]
	}
}

func (s *RealTimeScheduler) recordHit(hit bool) {
	s.hits = append(s.hits, hit)
	if len(s.hits) > latencyWindow {
		s.hits = s.hits[len(s.hits)-latencyWindow:]
	}
}

// Stats returns the scheduler's accumulated timing statistics, including
// max jitter and the mean/p95 of the retained latency window.
func (s *RealTimeScheduler) Stats() TimingStats {
	stats := TimingStats{
		Missed:       s.missed,
		Total:        s.total,
		TargetPeriod: s.period,
	}
	if len(s.latencies) == 0 {
		return stats
	}

	sorted := make([]time.Duration, len(s.latencies))
	copy(sorted, s.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	maxJitter := sorted[len(sorted)-1] - sorted[0]
	for _, d := range s.latencies {
		sum += d
	}
	stats.MaxJitter = maxJitter
	stats.MeanLatency = sum / time.Duration(len(s.latencies))

	p95Idx := int(0.95 * float64(len(sorted)))
	if p95Idx >= len(sorted) {
		p95Idx = len(sorted) - 1
	}
	stats.P95Latency = sorted[p95Idx]

	return stats
}

// CheckWeaklyHard reports whether at most m deadlines were missed in the
// trailing window of the last k recorded deadlines (a weakly-hard (m,k)
// constraint). If fewer than k deadlines have been recorded yet, the
// entire recorded history is checked instead.
func (s *RealTimeScheduler) CheckWeaklyHard(m, k int) bool {
	window := s.hits
	if k < len(window) {
		window = window[len(window)-k:]
	}
	misses := 0
	for _, hit := range window {
		if !hit {
			misses++
		}
	}
	return misses <= m
}

// Reset clears all accumulated state, including the armed deadline.
func (s *RealTimeScheduler) Reset() {
	s.haveDeadline = false
	s.missed = 0
	s.total = 0
	s.latencies = nil
	s.hits = nil
}
