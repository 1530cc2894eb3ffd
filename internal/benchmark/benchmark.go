// Package benchmark times repeated detection runs and summarizes the
// per-iteration latencies.
package benchmark

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/MeKo-Tech/codescan/internal/scanerr"
)

// Timer provides simple timing utilities for benchmarking.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration { return t.duration }

func (t *Timer) String() string { return fmt.Sprintf("%s: %v", t.name, t.duration) }

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64 // Currently allocated bytes
	TotalAllocBytes uint64 // Total allocated bytes (cumulative)
	NumGC           uint32
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{AllocBytes: m.Alloc, TotalAllocBytes: m.TotalAlloc, NumGC: m.NumGC}
}

// Stats summarizes a latency sample.
type Stats struct {
	N      int
	Mean   time.Duration
	StdDev time.Duration
	Min    time.Duration
	P50    time.Duration
	P95    time.Duration
	Max    time.Duration
}

// Summarize computes Stats over samples. An empty sample yields the zero value.
func Summarize(samples []time.Duration) Stats {
	if len(samples) == 0 {
		return Stats{}
	}
	xs := make([]float64, len(samples))
	for i, d := range samples {
		xs[i] = float64(d)
	}
	slices.Sort(xs)

	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	return Stats{
		N:      len(xs),
		Mean:   time.Duration(mean),
		StdDev: time.Duration(std),
		Min:    time.Duration(xs[0]),
		P50:    time.Duration(stat.Quantile(0.5, stat.Empirical, xs, nil)),
		P95:    time.Duration(stat.Quantile(0.95, stat.Empirical, xs, nil)),
		Max:    time.Duration(xs[len(xs)-1]),
	}
}

// Result holds the outcome of one benchmark.
type Result struct {
	Name       string
	Iterations int
	Stats      Stats
	// AllocBytes is the cumulative allocation across all iterations.
	AllocBytes uint64
	// Outcome is the detection result of the last iteration.
	Outcome scanerr.Result
	Error   error
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	outcome := r.Outcome.Value
	if !r.Outcome.OK() {
		outcome = string(r.Outcome.Code())
	}
	return fmt.Sprintf("%s: %d iterations, mean %v, stddev %v, p50 %v, p95 %v, alloc %d KB, result %s",
		r.Name, r.Iterations, r.Stats.Mean, r.Stats.StdDev, r.Stats.P50, r.Stats.P95, r.AllocBytes/1024, outcome)
}

// Func is one benchmarked detection.
type Func func() scanerr.Result

// Benchmark is a named detection.
type Benchmark struct {
	Name string
	Func Func
}

// Suite manages multiple benchmarks.
type Suite struct {
	benchmarks []Benchmark
	results    []Result
	mu         sync.Mutex
}

// NewSuite creates a new benchmark suite.
func NewSuite() *Suite { return &Suite{} }

// Add adds a benchmark to the suite.
func (s *Suite) Add(name string, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benchmarks = append(s.benchmarks, Benchmark{Name: name, Func: fn})
}

// Run runs a single benchmark with the specified number of iterations.
func (s *Suite) Run(name string, iterations int) Result {
	s.mu.Lock()
	idx := slices.IndexFunc(s.benchmarks, func(b Benchmark) bool { return b.Name == name })
	var b Benchmark
	if idx >= 0 {
		b = s.benchmarks[idx]
	}
	s.mu.Unlock()

	if idx < 0 {
		return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
	}
	return run(b, iterations)
}

// RunAll runs every benchmark in insertion order.
func (s *Suite) RunAll(iterations int) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]Result, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		s.results = append(s.results, run(b, iterations))
	}
	return s.results
}

// Results returns the last RunAll results.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// Print writes one line per result of the last RunAll.
func (s *Suite) Print(w io.Writer) {
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

func run(b Benchmark, iterations int) Result {
	if iterations < 1 {
		return Result{Name: b.Name, Error: fmt.Errorf("iterations must be positive, got %d", iterations)}
	}

	// Force garbage collection before measuring
	runtime.GC()
	before := GetMemoryStats()

	samples := make([]time.Duration, 0, iterations)
	var last scanerr.Result
	for range iterations {
		t := NewTimer(b.Name)
		last = b.Func()
		samples = append(samples, t.Stop())
	}

	after := GetMemoryStats()
	return Result{
		Name:       b.Name,
		Iterations: iterations,
		Stats:      Summarize(samples),
		AllocBytes: after.TotalAllocBytes - before.TotalAllocBytes,
		Outcome:    last,
	}
}
