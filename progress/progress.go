package progress

import (
	"log/slog"
	"time"
)

// Sink receives progress notifications from a single filter invocation.
type Sink interface {
	SetTotal(total int)
	SetProgress(current int)
	Done()
}

type nopSink struct{}

func (nopSink) SetTotal(int)    {}
func (nopSink) SetProgress(int) {}
func (nopSink) Done()           {}

var Nop Sink = nopSink{}

// Tracker keeps the step count handed to a Sink monotonically increasing.
// A nil *Tracker is valid and discards everything.
type Tracker struct {
	sink    Sink
	total   int
	current int
	done    bool
}

func NewTracker(sink Sink, total int) *Tracker {
	if sink == nil {
		sink = Nop
	}
	total = max(total, 0)
	sink.SetTotal(total)
	return &Tracker{sink: sink, total: total}
}

// Advance moves the tracker forward by n steps. Negative steps are ignored.
// If the new position overshoots the announced total, the total grows with it.
func (t *Tracker) Advance(n int) {
	if t == nil || n <= 0 || t.done {
		return
	}
	t.current += n
	if t.current > t.total {
		t.total = t.current
		t.sink.SetTotal(t.total)
	}
	t.sink.SetProgress(t.current)
}

func (t *Tracker) Current() int {
	if t == nil {
		return 0
	}
	return t.current
}

func (t *Tracker) Total() int {
	if t == nil {
		return 0
	}
	return t.total
}

// Done notifies completion once; later calls are no-ops.
func (t *Tracker) Done() {
	if t == nil || t.done {
		return
	}
	t.done = true
	t.sink.Done()
}

// LogSink reports progress through slog, at most once per Interval.
type LogSink struct {
	Logger   *slog.Logger
	Interval time.Duration

	total int
	last  time.Time
	now   func() time.Time
}

var _ Sink = &LogSink{}

func NewLogSink(logger *slog.Logger, interval time.Duration) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger, Interval: interval}
}

func (s *LogSink) SetTotal(total int) {
	s.total = total
}

func (s *LogSink) SetProgress(current int) {
	now := time.Now()
	if s.now != nil {
		now = s.now()
	}
	if now.Sub(s.last) < s.Interval {
		return
	}
	s.last = now

	var pct float64
	if s.total > 0 {
		pct = float64(current) * 100 / float64(s.total)
	}
	s.logger().Debug("progress", "current", current, "total", s.total, "percent", int(pct))
}

func (s *LogSink) Done() {
	s.logger().Debug("progress done", "total", s.total)
}

func (s *LogSink) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
