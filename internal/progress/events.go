// Package progress defines the tagged-union event stream the Supervisor
// emits and the throttle clock the streamer uses to rate-limit FileProgress
// events to roughly one per 100ms per file.
package progress

import (
	"sync/atomic"
	"time"
)

// Kind tags which fields of an Event are valid.
type Kind int

const (
	// KindFileProgress carries Path, BytesSoFar, BytesTotal.
	KindFileProgress Kind = iota
	// KindFileDone carries Path, CompletedFiles, TotalFiles.
	KindFileDone
	// KindOverall carries CompletedFiles, TotalFiles.
	KindOverall
)

// Event is a tagged union: exactly one Kind is set per value, and only the
// fields documented for that Kind are meaningful.
type Event struct {
	Kind Kind

	Path           string
	BytesSoFar     int64
	BytesTotal     int64
	CompletedFiles int
	TotalFiles     int
}

// FileProgress builds a KindFileProgress event.
func FileProgress(path string, bytesSoFar, bytesTotal int64) Event {
	return Event{Kind: KindFileProgress, Path: path, BytesSoFar: bytesSoFar, BytesTotal: bytesTotal}
}

// FileDone builds a KindFileDone event.
func FileDone(path string, completed, total int) Event {
	return Event{Kind: KindFileDone, Path: path, CompletedFiles: completed, TotalFiles: total}
}

// Overall builds a KindOverall event.
func Overall(completed, total int) Event {
	return Event{Kind: KindOverall, CompletedFiles: completed, TotalFiles: total}
}

// minInterval is the floor between two FileProgress emissions for the same
// file, per the streamer contract in the component design.
const minInterval = 100 * time.Millisecond

// Throttle gates FileProgress emission to at most once per minInterval.
// It is intended for use by a single worker goroutine per file, so the
// zero value is ready to use without further synchronization; the atomic
// field exists only so a Throttle can be shared safely if a caller chooses
// to reuse one across sequential files without reallocating.
type Throttle struct {
	last int64
}

// NewThrottle returns a Throttle whose clock starts now, so the very first
// Allow call on a freshly opened file is suppressed — the streamer contract
// allows the first chunk to skip its progress event.
func NewThrottle() *Throttle {
	return &Throttle{last: time.Now().UnixNano()}
}

// Allow reports whether enough time has passed since the last allowed call
// to emit a new FileProgress event, and if so resets the clock.
func (t *Throttle) Allow() bool {
	now := time.Now().UnixNano()
	prev := atomic.LoadInt64(&t.last)
	if prev != 0 && now-prev < int64(minInterval) {
		return false
	}
	return atomic.CompareAndSwapInt64(&t.last, prev, now)
}

// Reset clears the throttle so the next Allow call always succeeds.
func (t *Throttle) Reset() {
	atomic.StoreInt64(&t.last, 0)
}
