package log

import (
	"runtime"
	"time"

	"github.com/go-logr/logr"
)

// StageTimer tracks elapsed time, heap growth, and bytes sent across a
// scheme's stages, grounded on the teacher's printStageStats helper
// (pkg/kkrtpsi/sender.go), which reports the same per-stage deltas at
// V(1). bytesSent, when non-nil, is usually
// (*pkg/transport.CountingReadWriter).BytesSent.
type StageTimer struct {
	logger    logr.Logger
	start     time.Time
	last      time.Time
	startMem  uint64
	lastMem   uint64
	bytesSent func() uint64
}

// NewStageTimer starts a timer, taking a heap baseline immediately.
func NewStageTimer(logger logr.Logger, bytesSent func() uint64) *StageTimer {
	now := time.Now()
	mem := heapAlloc()
	return &StageTimer{
		logger:    logger,
		start:     now,
		last:      now,
		startMem:  mem,
		lastMem:   mem,
		bytesSent: bytesSent,
	}
}

// Stage logs the named stage's elapsed time, heap delta since the
// previous stage, and cumulative bytes sent so far, at V(1), then
// resets the per-stage baseline.
func (t *StageTimer) Stage(name string) {
	now := time.Now()
	mem := heapAlloc()

	var sent uint64
	if t.bytesSent != nil {
		sent = t.bytesSent()
	}

	t.logger.V(1).Info("stage complete",
		"stage", name,
		"elapsed", now.Sub(t.last),
		"total_elapsed", now.Sub(t.start),
		"heap_delta_bytes", int64(mem)-int64(t.lastMem),
		"heap_bytes", mem,
		"bytes_sent", sent,
	)

	t.last = now
	t.lastMem = mem
}

func heapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc
}
