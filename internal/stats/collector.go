// Package stats samples process resource usage while the marker service
// runs and writes a plain-text report on shutdown, for sizing cache
// capacity and warm schedules against real datasets.
package stats

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/geomarkers/poicluster/memcache"
)

// Sample is one point-in-time reading.
type Sample struct {
	Timestamp    time.Time `json:"timestamp"`
	HeapAlloc    uint64    `json:"heap_alloc"`
	Sys          uint64    `json:"sys"`
	NumGC        uint32    `json:"num_gc"`
	RSS          uint64    `json:"process_rss_bytes"`
	CPUPercent   float64   `json:"cpu_percent"`
	SystemCPU    []float64 `json:"system_cpu_percent"`
	NumGoroutine int       `json:"num_goroutine"`
}

// Report is the aggregate written at shutdown.
type Report struct {
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Samples   []Sample       `json:"samples"`
	Cache     memcache.Stats `json:"cache"`

	PeakHeapAlloc  uint64  `json:"peak_heap_alloc"`
	PeakRSS        uint64  `json:"peak_process_rss"`
	PeakCPUPercent float64 `json:"peak_cpu_percent"`
	AvgCPUPercent  float64 `json:"avg_cpu_percent"`
	PeakGoroutines int     `json:"peak_goroutines"`
	GCCycles       uint32  `json:"gc_cycles"`
}

// Collector periodically samples the running process.
type Collector struct {
	mu       sync.Mutex
	samples  []Sample
	start    time.Time
	interval time.Duration
	proc     *process.Process
	stop     chan struct{}
	done     chan struct{}
}

func NewCollector(interval time.Duration) (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to get process info: %w", err)
	}
	return &Collector{
		interval: interval,
		proc:     proc,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (c *Collector) Start() {
	c.start = time.Now()
	go c.loop()
}

func (c *Collector) loop() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample()
	for {
		select {
		case <-c.stop:
			c.sample()
			return
		case <-ticker.C:
			c.sample()
		}
	}
}

func (c *Collector) sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s := Sample{
		Timestamp:    time.Now(),
		HeapAlloc:    ms.HeapAlloc,
		Sys:          ms.Sys,
		NumGC:        ms.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
	}
	if mem, err := c.proc.MemoryInfo(); err == nil && mem != nil {
		s.RSS = mem.RSS
	}
	if pct, err := c.proc.CPUPercent(); err == nil {
		s.CPUPercent = pct
	}
	if sys, err := cpu.Percent(0, true); err == nil {
		s.SystemCPU = sys
	}

	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
}

// Stop halts sampling and assembles the report. cacheStats is folded in
// so one file tells the whole story of a run.
func (c *Collector) Stop(cacheStats memcache.Stats) Report {
	close(c.stop)
	<-c.done

	c.mu.Lock()
	defer c.mu.Unlock()

	r := Report{
		StartTime: c.start,
		EndTime:   time.Now(),
		Samples:   c.samples,
		Cache:     cacheStats,
	}

	var totalCPU float64
	for _, s := range c.samples {
		r.PeakHeapAlloc = max(r.PeakHeapAlloc, s.HeapAlloc)
		r.PeakRSS = max(r.PeakRSS, s.RSS)
		if s.CPUPercent > r.PeakCPUPercent {
			r.PeakCPUPercent = s.CPUPercent
		}
		if s.NumGoroutine > r.PeakGoroutines {
			r.PeakGoroutines = s.NumGoroutine
		}
		if s.NumGC > r.GCCycles {
			r.GCCycles = s.NumGC
		}
		totalCPU += s.CPUPercent
	}
	if len(c.samples) > 0 {
		r.AvgCPUPercent = totalCPU / float64(len(c.samples))
	}
	return r
}

// SaveToFile writes the report as plain text.
func (r Report) SaveToFile(filename string) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "run: %s .. %s (%s)\n",
		r.StartTime.Format(time.RFC3339),
		r.EndTime.Format(time.RFC3339),
		r.EndTime.Sub(r.StartTime))
	fmt.Fprintf(&sb, "samples: %d\n\n", len(r.Samples))

	fmt.Fprintf(&sb, "peak heap alloc:  %s\n", humanize.IBytes(r.PeakHeapAlloc))
	fmt.Fprintf(&sb, "peak process rss: %s\n", humanize.IBytes(r.PeakRSS))
	fmt.Fprintf(&sb, "peak cpu:         %.2f%%\n", r.PeakCPUPercent)
	fmt.Fprintf(&sb, "avg cpu:          %.2f%%\n", r.AvgCPUPercent)
	fmt.Fprintf(&sb, "peak goroutines:  %d\n", r.PeakGoroutines)
	fmt.Fprintf(&sb, "gc cycles:        %d\n\n", r.GCCycles)

	fmt.Fprintf(&sb, "result cache: len=%d hits=%d misses=%d evictions=%d\n",
		r.Cache.Len, r.Cache.Hits, r.Cache.Misses, r.Cache.Evictions)

	if err := os.WriteFile(filename, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return nil
}
