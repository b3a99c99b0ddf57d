package internal

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"
)

// Profiler instruments refresh cycles and overall memory usage. It is
// off unless ENABLE_PROFILING=true; every method is a no-op when off.
type Profiler struct {
	enabled bool
	logger  *Logger
}

func NewProfiler(logger *Logger) *Profiler {
	enabled := os.Getenv("ENABLE_PROFILING") == "true"
	return &Profiler{
		enabled: enabled,
		logger:  logger,
	}
}

// ProfileCycle wraps one reconciliation cycle and logs its wall time
// and allocation delta.
func (p *Profiler) ProfileCycle(ctx context.Context, fn func(context.Context) (*ReconciledStatus, error)) (*ReconciledStatus, error) {
	if !p.enabled {
		return fn(ctx)
	}

	start := time.Now()
	var before, after runtime.MemStats

	runtime.ReadMemStats(&before)
	status, err := fn(ctx)
	runtime.ReadMemStats(&after)

	allocDiff := after.TotalAlloc - before.TotalAlloc

	p.logger.Info("cycle_profiled").
		Component("profiler").
		Operation("profile_cycle").
		Duration(time.Since(start)).
		Meta("memory_alloc_bytes", allocDiff).
		Meta("goroutines", runtime.NumGoroutine()).
		Log()

	return status, err
}

func (p *Profiler) LogMemoryStats() {
	if !p.enabled {
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	p.logger.Info("memory_stats").
		Component("profiler").
		Operation("log_stats").
		Meta("alloc_mb", bToMb(m.Alloc)).
		Meta("total_alloc_mb", bToMb(m.TotalAlloc)).
		Meta("sys_mb", bToMb(m.Sys)).
		Meta("gc_cycles", m.NumGC).
		Meta("goroutines", runtime.NumGoroutine()).
		Log()
}

func (p *Profiler) StartPeriodicMemoryLogging() {
	if !p.enabled {
		return
	}

	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			p.LogMemoryStats()
		}
	}()

	p.logger.Info("periodic_memory_logging_started").
		Component("profiler").
		Operation("start_periodic").
		Log()
}

// CaptureHeapProfile writes a one-shot heap profile next to the
// binary, for offline inspection with pprof.
func (p *Profiler) CaptureHeapProfile() {
	if !p.enabled {
		return
	}

	filename := fmt.Sprintf("mem_%d.prof", time.Now().Unix())
	f, err := os.Create(filename)
	if err != nil {
		p.logger.Error("memory_profile_create_failed").
			Component("profiler").
			Operation("capture_memory").
			Err(err).
			Log()
		return
	}
	defer f.Close()

	runtime.GC()

	if err := pprof.WriteHeapProfile(f); err != nil {
		p.logger.Error("memory_profile_write_failed").
			Component("profiler").
			Operation("capture_memory").
			Err(err).
			Log()
		return
	}

	p.logger.Info("memory_profile_captured").
		Component("profiler").
		Operation("capture_memory").
		Meta("filename", filename).
		Log()
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
