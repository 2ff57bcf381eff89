// Package telemetry tracks frame timing for the simulation loop:
// an exponentially smoothed frame time for display, FPS counted over
// one-second windows, and tail percentiles over a rolling sample
// window for benchmark output.
package telemetry

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// emaAlpha is the smoothing factor for the displayed frame time. 0.1
// follows roughly the last 10 frames without jittering every frame.
const emaAlpha = 0.1

// fpsWindow is the length of the FPS counting window.
const fpsWindow = time.Second

// Collector aggregates per-frame timings. Not safe for concurrent use;
// it lives on the frame loop.
type Collector struct {
	windowSize int
	samples    []float64 // frame durations in ms, rolling
	writeIndex int
	count      int

	emaMs   float64
	emaInit bool

	frameStart time.Time

	fpsStart  time.Time
	fpsFrames int
	fps       float64

	totalFrames int
}

// NewCollector creates a collector with the given percentile window, in
// frames. windowSize below 1 defaults to 120.
func NewCollector(windowSize int) *Collector {
	if windowSize < 1 {
		windowSize = 120
	}
	return &Collector{
		windowSize: windowSize,
		samples:    make([]float64, windowSize),
	}
}

// StartFrame marks the beginning of a frame.
func (c *Collector) StartFrame() {
	c.frameStart = time.Now()
}

// EndFrame records the frame that StartFrame began and returns its
// duration.
func (c *Collector) EndFrame() time.Duration {
	d := time.Since(c.frameStart)
	c.Record(d)
	return d
}

// Record folds one frame duration into the statistics. Exposed
// separately from StartFrame/EndFrame so externally timed frames (or
// tests) can feed the collector directly.
func (c *Collector) Record(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)

	if c.emaInit {
		c.emaMs += emaAlpha * (ms - c.emaMs)
	} else {
		c.emaMs = ms
		c.emaInit = true
	}

	c.samples[c.writeIndex] = ms
	c.writeIndex = (c.writeIndex + 1) % c.windowSize
	if c.count < c.windowSize {
		c.count++
	}
	c.totalFrames++

	now := time.Now()
	if c.fpsStart.IsZero() {
		c.fpsStart = now
	}
	c.fpsFrames++
	if elapsed := now.Sub(c.fpsStart); elapsed >= fpsWindow {
		c.fps = float64(c.fpsFrames) / elapsed.Seconds()
		c.fpsStart = now
		c.fpsFrames = 0
	}
}

// FrameStats is a point-in-time aggregate of the collector.
type FrameStats struct {
	Frames int // total frames recorded

	EMAMs float64 // smoothed frame time, ms
	FPS   float64 // last completed one-second window

	P50Ms float64
	P95Ms float64
	P99Ms float64
}

// Stats computes the aggregate over the rolling window.
func (c *Collector) Stats() FrameStats {
	s := FrameStats{
		Frames: c.totalFrames,
		EMAMs:  c.emaMs,
		FPS:    c.fps,
	}
	if c.count == 0 {
		return s
	}

	sorted := make([]float64, c.count)
	copy(sorted, c.samples[:c.count])
	sort.Float64s(sorted)

	s.P50Ms = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	s.P95Ms = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	s.P99Ms = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	return s
}
