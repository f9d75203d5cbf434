// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Statistics engine: a closed table of counters, rolling averages and timers
// with a periodic one-line-per-metric report.

package control

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Kind is the fixed kind of a metric entry.
type Kind int

const (
	KindCounter Kind = iota
	KindAverage
	KindTimer
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindAverage:
		return "average"
	case KindTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// Entry enumerates the metrics tracked by the server.
type Entry int

const (
	Uptime Entry = iota
	TicksCount
	TickTimes
	MessagesSent
	MessagesReceived
	TickMessagesSent
	TickMessagesReceived
	BytesSent
	BytesReceived
	TickBytesSent
	TickBytesReceived
	PlayersCurrently
	PlayersJoined
	PlayersLeft
	BogusMessages
	PlayersRejected
	NumEntries
)

// Adding or removing an entry must be a conscious change: update the count here.
var _ [NumEntries - 16]struct{} = [0]struct{}{}

type definition struct {
	kind        Kind
	name        string
	description string
}

var definitions = [NumEntries]definition{
	Uptime:               {KindTimer, "uptime", "Uptime"},
	TicksCount:           {KindCounter, "ticks_count", "Ticks count"},
	TickTimes:            {KindAverage, "tick_time_ms", "Average time to process a tick"},
	MessagesSent:         {KindCounter, "messages_sent", "Total messages sent"},
	MessagesReceived:     {KindCounter, "messages_received", "Total messages received"},
	TickMessagesSent:     {KindAverage, "tick_messages_sent", "Average messages sent per tick"},
	TickMessagesReceived: {KindAverage, "tick_messages_received", "Average messages received per tick"},
	BytesSent:            {KindCounter, "bytes_sent", "Total bytes sent"},
	BytesReceived:        {KindCounter, "bytes_received", "Total bytes received"},
	TickBytesSent:        {KindAverage, "tick_bytes_sent", "Average bytes sent per tick"},
	TickBytesReceived:    {KindAverage, "tick_bytes_received", "Average bytes received per tick"},
	PlayersCurrently:     {KindCounter, "players_currently", "Currently players"},
	PlayersJoined:        {KindCounter, "players_joined", "Total players joined"},
	PlayersLeft:          {KindCounter, "players_left", "Total players left"},
	BogusMessages:        {KindCounter, "bogus_messages", "Total bogus-amogus messages"},
	PlayersRejected:      {KindCounter, "players_rejected", "Total players rejected"},
}

// Kind returns the kind the entry was defined with.
func (e Entry) Kind() Kind {
	return e.definition().kind
}

// Name returns the machine-readable metric name.
func (e Entry) Name() string {
	return e.definition().name
}

// String returns the human-readable description used in reports.
func (e Entry) String() string {
	if e < 0 || e >= NumEntries {
		return fmt.Sprintf("Entry(%d)", int(e))
	}
	return definitions[e].description
}

func (e Entry) definition() definition {
	if e < 0 || e >= NumEntries {
		panic(fmt.Sprintf("control: metric entry %d out of range", int(e)))
	}
	return definitions[e]
}

func (e Entry) mustBe(k Kind) {
	if got := e.Kind(); got != k {
		panic(fmt.Sprintf("control: %q is a %s metric, not a %s", e.String(), got, k))
	}
}

type metric struct {
	counter   int
	samples   Samples
	startedAt time.Time
}

// Stats is the statistics engine. The zero value is not usable; use NewStats.
type Stats struct {
	mu      sync.Mutex
	metrics [NumEntries]metric
}

// NewStats creates an engine with every counter at 0, every average empty
// and every timer unarmed.
func NewStats() *Stats {
	return &Stats{}
}

// PushSample records a sample into an average metric.
func (s *Stats) PushSample(e Entry, v float32) {
	e.mustBe(KindAverage)
	s.mu.Lock()
	s.metrics[e].samples.Push(v)
	s.mu.Unlock()
}

// Inc adds delta (possibly negative) to a counter metric.
func (s *Stats) Inc(e Entry, delta int) {
	e.mustBe(KindCounter)
	s.mu.Lock()
	s.metrics[e].counter += delta
	s.mu.Unlock()
}

// StartTimerAt arms, or re-arms, a timer metric.
func (s *Stats) StartTimerAt(e Entry, t time.Time) {
	e.mustBe(KindTimer)
	s.mu.Lock()
	s.metrics[e].startedAt = t
	s.mu.Unlock()
}

// Counter returns the value of a counter metric.
func (s *Stats) Counter(e Entry) int {
	e.mustBe(KindCounter)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics[e].counter
}

// Average returns the current mean of an average metric.
func (s *Stats) Average(e Entry) float32 {
	e.mustBe(KindAverage)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics[e].samples.Average()
}

// Elapsed returns now minus the start of a timer metric. An unarmed timer,
// or a start in the future, reads as zero.
func (s *Stats) Elapsed(e Entry, now time.Time) time.Duration {
	e.mustBe(KindTimer)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics[e].elapsed(now)
}

func (m *metric) elapsed(now time.Time) time.Duration {
	if m.startedAt.IsZero() {
		return 0
	}
	d := now.Sub(m.startedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Value is a point-in-time reading of one metric.
type Value struct {
	Entry   Entry
	Counter int
	Average float32
	Elapsed time.Duration
}

// Snapshot reads every metric under a single lock acquisition.
func (s *Stats) Snapshot(now time.Time) [NumEntries]Value {
	var out [NumEntries]Value
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.metrics {
		m := &s.metrics[i]
		out[i] = Value{
			Entry:   Entry(i),
			Counter: m.counter,
			Average: m.samples.Average(),
			Elapsed: m.elapsed(now),
		}
	}
	return out
}

// Display formats a single metric the way Render does.
func (s *Stats) Display(e Entry, now time.Time) string {
	e.definition()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display(e, now)
}

func (s *Stats) display(e Entry, now time.Time) string {
	m := &s.metrics[e]
	switch e.Kind() {
	case KindCounter:
		return fmt.Sprintf("%d", m.counter)
	case KindAverage:
		return fmt.Sprintf("%f", m.samples.Average())
	case KindTimer:
		return FormatInterval(m.elapsed(now))
	default:
		panic("control: unreachable metric kind")
	}
}

// Render produces the full report: a header line, then one line per metric.
func (s *Stats) Render(now time.Time) string {
	var sb strings.Builder
	sb.WriteString("Stats:\n")
	s.mu.Lock()
	defer s.mu.Unlock()
	for e := Entry(0); e < NumEntries; e++ {
		sb.WriteString("  ")
		sb.WriteString(e.String())
		sb.WriteByte(' ')
		sb.WriteString(s.display(e, now))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// PrintPerNTicks writes the report to w when the tick counter is a multiple
// of n, tick 0 included. It does nothing for n <= 0.
func (s *Stats) PrintPerNTicks(w io.Writer, n int, now time.Time) error {
	if n <= 0 {
		return nil
	}
	if s.Counter(TicksCount)%n != 0 {
		return nil
	}
	_, err := io.WriteString(w, s.Render(now))
	return err
}
