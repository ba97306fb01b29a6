package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"go.uber.org/zap"
)

// Profiler tracks frame rate, scene throughput and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	logger         *zap.Logger
	now            func() time.Time
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	pushed  int
	culled  int
	joints  int
	skipped int
	last    scene.FrameStats
}

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(*Profiler)

// WithLogger sets the logger stats are written to.
func WithLogger(l *zap.Logger) ProfilerOption {
	return func(p *Profiler) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithInterval sets how often stats are logged.
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		logger:         logger.Named("profiler"),
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, option := range options {
		option(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame with that frame's stats.
// Logs performance statistics when the update interval has elapsed: FPS, per-frame averages of
// pushed and culled primitive instances and joints, heap usage, allocation rate and GC pauses.
//
// Parameters:
//   - stats: the counters returned by Scene.Frame
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats scene.FrameStats) bool {
	p.frameCount++
	p.pushed += stats.PrimitivesPushed
	p.culled += stats.PrimitivesCulled
	p.joints += stats.JointsPushed
	p.skipped += stats.Skipped
	p.last = stats

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	gcCount := p.memStats.NumGC

	var lastPause, maxPause time.Duration
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		lastPause = time.Duration(p.memStats.PauseNs[(gcCount-1)%256])
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPause = max(maxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	frames := float64(p.frameCount)
	p.logger.Info("frame stats",
		zap.Float64("fps", frames/elapsed.Seconds()),
		zap.Int("models", stats.Models),
		zap.Int("pending_loads", stats.PendingLoads),
		zap.Int("instances", stats.Instances),
		zap.Int("draws", stats.Draws),
		zap.Float64("pushed_per_frame", float64(p.pushed)/frames),
		zap.Float64("culled_per_frame", float64(p.culled)/frames),
		zap.Float64("joints_per_frame", float64(p.joints)/frames),
		zap.Int("skipped", p.skipped),
		zap.Int("joint_buffers", stats.JointBuffers),
		zap.Float64("heap_mb", float64(p.memStats.Alloc)/1024/1024),
		zap.Float64("alloc_rate_mb_s", float64(allocDelta)/1024/1024/elapsed.Seconds()),
		zap.Uint32("gc", gcCount),
		zap.Duration("gc_last_pause", lastPause),
		zap.Duration("gc_max_pause", maxPause),
		zap.Float64("sys_mb", float64(p.memStats.Sys)/1024/1024),
	)

	p.frameCount = 0
	p.pushed, p.culled, p.joints, p.skipped = 0, 0, 0, 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the stats passed to the most recent Tick.
func (p *Profiler) Last() scene.FrameStats {
	return p.last
}
