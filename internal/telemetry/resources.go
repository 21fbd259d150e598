// Package telemetry records system resource samples streamed by the backend.
package telemetry

import (
	"sync"
	"time"

	"github.com/soyeahso/dewey/internal/domain"
)

const defaultWindow = 120

// Sample is one timestamped resource reading.
type Sample struct {
	Time          time.Time
	CPULoad       float64
	MemoryUsage   float64
	DiskReadRate  float64
	DiskWriteRate float64
	GPULoad       float64
	GPUMemory     float64
}

// Recorder keeps a bounded window of resource samples for the sidebar
// readout. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	window  int
	samples []Sample
	now     func() time.Time
}

// NewRecorder creates a recorder retaining at most window samples.
// A non-positive window uses the default.
func NewRecorder(window int) *Recorder {
	if window <= 0 {
		window = defaultWindow
	}
	return &Recorder{window: window, now: time.Now}
}

// Record appends a sample, evicting the oldest when the window is full.
func (r *Recorder) Record(evt domain.SystemResourcesEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples = append(r.samples, Sample{
		Time:          r.now(),
		CPULoad:       evt.CPULoad,
		MemoryUsage:   evt.MemoryUsage,
		DiskReadRate:  evt.DiskReadRate,
		DiskWriteRate: evt.DiskWriteRate,
		GPULoad:       evt.GPULoad,
		GPUMemory:     evt.GPUMemory,
	})
	if len(r.samples) > r.window {
		r.samples = r.samples[len(r.samples)-r.window:]
	}
}

// Latest returns the most recent sample, if any.
func (r *Recorder) Latest() (Sample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.samples) == 0 {
		return Sample{}, false
	}
	return r.samples[len(r.samples)-1], true
}

// History returns a copy of the retained samples, oldest first.
func (r *Recorder) History() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}
