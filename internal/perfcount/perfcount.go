// Package perfcount measures how much work a heuristic run costs: wall
// time always, hardware counters of the calling thread when the kernel
// allows perf events.
package perfcount

import (
	"runtime"
	"sync"
	"time"

	"offset-bench/internal/logging"

	"github.com/elastic/go-perf"
	"github.com/sirupsen/logrus"
)

type Counters struct {
	Instructions       *uint64 `json:"instructions,omitempty"`
	Cycles             *uint64 `json:"cycles,omitempty"`
	CacheMisses        *uint64 `json:"cache_misses,omitempty"`
	CacheReferences    *uint64 `json:"cache_references,omitempty"`
	BranchInstructions *uint64 `json:"branch_instructions,omitempty"`
	BranchMisses       *uint64 `json:"branch_misses,omitempty"`

	InstructionsPerCycle *float64 `json:"ipc,omitempty"`
	CacheMissRate        *float64 `json:"cache_miss_rate,omitempty"`
}

type Sample struct {
	Wall     time.Duration `json:"wall_ns"`
	Counters *Counters     `json:"counters,omitempty"`
}

var hardwareCounters = []perf.HardwareCounter{
	perf.Instructions,
	perf.CPUCycles,
	perf.CacheMisses,
	perf.CacheReferences,
	perf.BranchInstructions,
	perf.BranchMisses,
}

// Meter runs functions under measurement. A meter whose counters cannot be
// opened keeps measuring wall time and warns once.
type Meter struct {
	enabled bool

	mu          sync.Mutex
	unavailable bool
	warnOnce    sync.Once
}

func NewMeter(enableCounters bool) *Meter {
	return &Meter{enabled: enableCounters}
}

func (m *Meter) countersAvailable() bool {
	if !m.enabled {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unavailable
}

func (m *Meter) markUnavailable(err error) {
	m.mu.Lock()
	m.unavailable = true
	m.mu.Unlock()
	m.warnOnce.Do(func() {
		logging.GetLogger().WithError(err).Warn("Hardware counters unavailable, measuring wall time only")
	})
}

// Measure runs fn once and returns its cost alongside fn's own error.
func (m *Meter) Measure(fn func() error) (Sample, error) {
	if !m.countersAvailable() {
		start := time.Now()
		err := fn()
		return Sample{Wall: time.Since(start)}, err
	}

	// Thread-scoped events only count the OS thread that opened them.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	events, err := openEvents()
	if err != nil {
		m.markUnavailable(err)
		start := time.Now()
		err := fn()
		return Sample{Wall: time.Since(start)}, err
	}
	defer closeEvents(events)

	for _, event := range events {
		_ = event.Reset()
		_ = event.Enable()
	}
	start := time.Now()
	fnErr := fn()
	wall := time.Since(start)
	for _, event := range events {
		_ = event.Disable()
	}

	return Sample{Wall: wall, Counters: readCounters(events)}, fnErr
}

func openEvents() ([]*perf.Event, error) {
	var events []*perf.Event
	for _, counter := range hardwareCounters {
		attr := &perf.Attr{}
		counter.Configure(attr)
		attr.CountFormat.Enabled = true
		attr.CountFormat.Running = true
		attr.Options.Disabled = true
		attr.Options.ExcludeKernel = true
		attr.Options.ExcludeHypervisor = true
		event, err := perf.Open(attr, perf.CallingThread, perf.AnyCPU, nil)
		if err != nil {
			closeEvents(events)
			logging.GetLogger().WithFields(logrus.Fields{
				"counter": counter,
			}).WithError(err).Debug("Failed to open perf event")
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func closeEvents(events []*perf.Event) {
	for _, event := range events {
		if event != nil {
			event.Close()
		}
	}
}

// readCounters scales each count by enabled/running time to undo
// multiplexing.
func readCounters(events []*perf.Event) *Counters {
	values := make(map[string]uint64)
	for _, event := range events {
		count, err := event.ReadCount()
		if err != nil {
			continue
		}
		value := count.Value
		if count.Running > 0 && count.Enabled > 0 && count.Running != count.Enabled {
			value = uint64(float64(value) * float64(count.Enabled) / float64(count.Running))
		}
		values[count.Label] = value
	}

	get := func(label string) *uint64 {
		if v, ok := values[label]; ok && v > 0 {
			return &v
		}
		return nil
	}
	c := &Counters{
		Instructions:       get("instructions"),
		Cycles:             get("cpu-cycles"),
		CacheMisses:        get("cache-misses"),
		CacheReferences:    get("cache-references"),
		BranchInstructions: get("branch-instructions"),
		BranchMisses:       get("branch-misses"),
	}
	if c.Instructions != nil && c.Cycles != nil {
		ipc := float64(*c.Instructions) / float64(*c.Cycles)
		c.InstructionsPerCycle = &ipc
	}
	if c.CacheMisses != nil && c.CacheReferences != nil {
		rate := float64(*c.CacheMisses) / float64(*c.CacheReferences)
		c.CacheMissRate = &rate
	}
	return c
}
