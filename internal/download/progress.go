package download

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// sampleInterval bounds how often add() turns into a speed sample.
	sampleInterval = 20 * time.Millisecond
	// publishInterval bounds how often the UI sees a stats push. Independent
	// of the sample rate: a burst of adds produces at most one event per
	// interval, and slow sampling never starves the UI beyond this.
	publishInterval = 250 * time.Millisecond
)

// Progress accumulates per-chunk byte counters for one run and publishes
// throttled speed/ETA updates. Counters are lock-free; the slice itself is
// only replaced between runs.
type Progress struct {
	max atomic.Int64

	mu     sync.RWMutex
	chunks []*atomic.Int64

	start           atomic.Int64 // unix nanos
	lastSample      atomic.Int64 // unix nanos
	bytesLastSample atomic.Int64
	lastPublish     atomic.Int64 // unix nanos

	rolling *RollingWindow
	sender  Sender
}

func NewProgress(max int64, size int, sender Sender) *Progress {
	p := &Progress{
		rolling: NewRollingWindow(),
		sender:  sender,
	}
	p.max.Store(max)
	p.SetSize(size)
	now := time.Now().UnixNano()
	p.start.Store(now)
	p.lastSample.Store(now)
	return p
}

// Handle returns the write handle for chunk slot i.
func (p *Progress) Handle(i int) ProgressHandle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ProgressHandle{counter: p.chunks[i], progress: p}
}

// Sum is the total bytes accounted so far across all chunk slots.
func (p *Progress) Sum() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var sum int64
	for _, c := range p.chunks {
		sum += c.Load()
	}
	return sum
}

func (p *Progress) Max() int64 {
	return p.max.Load()
}

func (p *Progress) SetMax(max int64) {
	p.max.Store(max)
}

// SetSize replaces the chunk counters with size fresh slots.
func (p *Progress) SetSize(size int) {
	chunks := make([]*atomic.Int64, size)
	for i := range chunks {
		chunks[i] = &atomic.Int64{}
	}
	p.mu.Lock()
	p.chunks = chunks
	p.mu.Unlock()
}

// Fraction is sum/max, for the queue UI.
func (p *Progress) Fraction() float64 {
	max := p.Max()
	if max == 0 {
		return 0
	}
	return float64(p.Sum()) / float64(max)
}

// Reset restarts the clock, the sample anchor and every counter. Called at
// the start of each download and validation pass.
func (p *Progress) Reset() {
	now := time.Now().UnixNano()
	p.start.Store(now)
	p.lastSample.Store(now)
	p.bytesLastSample.Store(0)
	p.rolling.Reset()

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.chunks {
		c.Store(0)
	}
}

// sample computes throughput since the previous sample and feeds the rolling
// window, at most once per sampleInterval.
func (p *Progress) sample() {
	now := time.Now().UnixNano()
	last := p.lastSample.Load()
	if time.Duration(now-last) < sampleInterval {
		return
	}
	if !p.lastSample.CompareAndSwap(last, now) {
		return // another worker took this sample
	}

	current := p.Sum()
	previous := p.bytesLastSample.Swap(current)

	delta := current - previous
	if delta < 0 {
		delta = 0
	}
	elapsedMillis := float64(now-last) / float64(time.Millisecond)
	if elapsedMillis <= 0 {
		return
	}

	// bytes per millisecond is KB/s
	p.rolling.Update(uint64(float64(delta) / elapsedMillis))
	p.publish(current)
}

// publish pushes stats and a queue refresh to the manager, at most once per
// publishInterval.
func (p *Progress) publish(current int64) {
	now := time.Now().UnixNano()
	last := p.lastPublish.Load()
	if time.Duration(now-last) < publishInterval {
		return
	}
	if !p.lastPublish.CompareAndSwap(last, now) {
		return
	}

	speed := p.rolling.Mean()
	remaining := p.Max() - current
	if remaining < 0 {
		remaining = 0
	}
	divisor := speed
	if divisor < 1 {
		divisor = 1
	}
	secondsRemaining := uint64(remaining) / 1000 / divisor

	p.sender.SendUI(SignalUpdateStats{KBps: speed, SecondsRemaining: secondsRemaining})
	p.sender.SendUI(SignalUpdateQueue{})
}

// ProgressHandle is the per-worker view onto one chunk counter.
type ProgressHandle struct {
	counter  *atomic.Int64
	progress *Progress
}

// Add records n downloaded bytes and may trigger a speed sample.
func (h ProgressHandle) Add(n int64) {
	h.counter.Add(n)
	h.progress.sample()
}

// Skip records n bytes that were already on disk. The sample anchor moves
// with the counter so skipped bytes never count as throughput.
func (h ProgressHandle) Skip(n int64) {
	h.counter.Add(n)
	h.progress.bytesLastSample.Add(n)
}

// Set overwrites the counter, for rewinding a bucket's slot before a retry.
func (h ProgressHandle) Set(n int64) {
	h.counter.Store(n)
}
