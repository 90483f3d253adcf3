package progress

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"paqman/pkg/stream"

	"github.com/dustin/go-humanize"
)

const tickInterval = 250 * time.Millisecond

// Tracker reports how many bytes an operation has processed. It belongs to
// one operation; a nil *Tracker is valid and does nothing.
type Tracker struct {
	processed atomic.Uint64
	total     uint64
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
	stopped chan struct{}
	start   time.Time
}

// New returns a Tracker for an operation expected to process total bytes.
// A total of zero means the size is unknown.
func New(total uint64, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{total: total, logger: logger}
}

// Start begins periodic reporting.
func (t *Tracker) Start() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true
	t.start = time.Now()
	t.done = make(chan struct{})
	t.stopped = make(chan struct{})
	go t.report()
}

// Stop ends reporting and logs a summary. It waits for the reporting
// goroutine to exit.
func (t *Tracker) Stop() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.done)
	stopped := t.stopped
	t.mu.Unlock()

	<-stopped
}

// AddBytes adds n processed bytes.
func (t *Tracker) AddBytes(n uint64) {
	if t == nil || n == 0 {
		return
	}
	t.processed.Add(n)
}

// Processed returns the number of bytes processed so far.
func (t *Tracker) Processed() uint64 {
	if t == nil {
		return 0
	}
	return t.processed.Load()
}

// Source wraps src so bytes read through it are counted.
func (t *Tracker) Source(src stream.Source) stream.Source {
	if t == nil {
		return src
	}
	return &source{src: src, t: t}
}

// report logs progress periodically until Stop is called.
func (t *Tracker) report() {
	defer close(t.stopped)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var prevBytes uint64
	var prevPercentage float64
	lastOutput := t.start

	for {
		select {
		case <-ticker.C:
			current := t.processed.Load()
			// Bytes per second over one tick.
			rate := (current - prevBytes) * uint64(time.Second/tickInterval)
			prevBytes = current

			percentage := t.percentage(current)
			if time.Since(lastOutput) < time.Second && percentage-prevPercentage < 10 {
				continue
			}
			lastOutput = time.Now()
			prevPercentage = percentage

			if t.total == 0 {
				t.logger.Info("processing",
					"processed", humanize.IBytes(current),
					"rate", humanize.IBytes(rate)+"/s")
				continue
			}

			eta := "calculating..."
			if rate > 0 && current < t.total {
				remaining := time.Duration(float64(t.total-current) / float64(rate) * float64(time.Second))
				eta = remaining.Round(time.Second).String()
			}
			t.logger.Info("processing",
				"processed", humanize.IBytes(current),
				"total", humanize.IBytes(t.total),
				"percent", humanize.FtoaWithDigits(percentage, 1),
				"rate", humanize.IBytes(rate)+"/s",
				"eta", eta)

		case <-t.done:
			elapsed := time.Since(t.start)
			seconds := elapsed.Seconds()
			if seconds < 0.001 {
				seconds = 0.001
			}
			current := t.processed.Load()
			t.logger.Info("processing complete",
				"processed", humanize.IBytes(current),
				"elapsed", elapsed.Round(time.Millisecond).String(),
				"rate", humanize.IBytes(uint64(float64(current)/seconds))+"/s")
			return
		}
	}
}

func (t *Tracker) percentage(current uint64) float64 {
	if t.total == 0 {
		return 0
	}
	return float64(current) / float64(t.total) * 100
}

// source counts bytes read from the wrapped Source.
type source struct {
	src stream.Source
	t   *Tracker
}

func (s *source) ReadByte() (byte, error) {
	c, err := s.src.ReadByte()
	if err == nil {
		s.t.AddBytes(1)
	}
	return c, err
}

func (s *source) Read(p []byte) (int, error) {
	n, err := s.src.Read(p)
	if n > 0 {
		s.t.AddBytes(uint64(n))
	}
	return n, err
}
