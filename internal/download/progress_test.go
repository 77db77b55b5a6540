package download

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSender(cap int) (Sender, chan Signal) {
	ch := make(chan Signal, cap)
	return Sender{signals: ch}, ch
}

func TestProgressSumAndMax(t *testing.T) {
	sender, _ := testSender(64)
	p := NewProgress(100, 4, sender)

	p.Handle(0).Add(10)
	p.Handle(1).Add(20)
	p.Handle(3).Add(5)

	assert.Equal(t, int64(35), p.Sum())
	assert.Equal(t, int64(100), p.Max())
	assert.InDelta(t, 0.35, p.Fraction(), 1e-9)
	assert.LessOrEqual(t, p.Sum(), p.Max())
}

func TestProgressReset(t *testing.T) {
	sender, _ := testSender(64)
	p := NewProgress(100, 2, sender)
	p.Handle(0).Add(50)
	p.Reset()

	assert.Equal(t, int64(0), p.Sum())
}

func TestProgressSkipDoesNotCountAsThroughput(t *testing.T) {
	sender, ch := testSender(64)
	p := NewProgress(1000, 1, sender)
	h := p.Handle(0)

	h.Skip(500)

	// A skip must not produce a sample or a publish.
	select {
	case sig := <-ch:
		t.Fatalf("unexpected signal after skip: %#v", sig)
	default:
	}

	// The next real sample sees only the genuinely downloaded delta.
	time.Sleep(sampleInterval + 5*time.Millisecond)
	h.Add(100)

	// Speed samples feed the rolling window; with only 100 bytes over ~25ms
	// the KB/s figure must be far below what 600 bytes would produce if the
	// skip leaked into the delta.
	mean := p.rolling.Mean()
	assert.Less(t, mean, uint64(20), "skipped bytes leaked into throughput: %d KB/s", mean)
	assert.Equal(t, int64(600), p.Sum())
}

func TestProgressPublishThrottle(t *testing.T) {
	sender, ch := testSender(1024)
	p := NewProgress(1_000_000, 1, sender)
	h := p.Handle(0)

	// Hammer add for ~300ms; the publisher may fire at most twice
	// (one per 250ms window boundary).
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		h.Add(10)
		time.Sleep(time.Millisecond)
	}

	statsEvents := 0
	for {
		select {
		case sig := <-ch:
			if _, ok := sig.(SignalUpdateStats); ok {
				statsEvents++
			}
		default:
			require.LessOrEqual(t, statsEvents, 2,
				"publisher fired %d times in 300ms", statsEvents)
			return
		}
	}
}

func TestProgressSetSizeReplacesCounters(t *testing.T) {
	sender, _ := testSender(64)
	p := NewProgress(10, 1, sender)
	p.Handle(0).Add(10)

	p.SetSize(3)
	assert.Equal(t, int64(0), p.Sum())
	p.Handle(2).Add(7)
	assert.Equal(t, int64(7), p.Sum())
}
