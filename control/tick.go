// File: control/tick.go
// Author: momentics <momentics@gmail.com>
//
// Per-tick event accumulators folded into the statistics engine once per tick.

package control

// TickCounters accumulates raw per-event counts within the current tick.
// It is owned by the scheduler thread and carries no lock.
type TickCounters struct {
	MessagesSent     int
	MessagesReceived int
	BytesSent        int
	BytesReceived    int
}

// Sent records one outbound message of n payload bytes.
func (t *TickCounters) Sent(n int) {
	t.MessagesSent++
	t.BytesSent += n
}

// Received records one inbound message of n payload bytes.
func (t *TickCounters) Received(n int) {
	t.MessagesReceived++
	t.BytesReceived += n
}

// Flush pushes the accumulated counts into the per-tick averages, adds them
// to the running totals, and resets the accumulators for the next tick.
func (t *TickCounters) Flush(s *Stats) {
	s.PushSample(TickMessagesSent, float32(t.MessagesSent))
	s.PushSample(TickMessagesReceived, float32(t.MessagesReceived))
	s.PushSample(TickBytesSent, float32(t.BytesSent))
	s.PushSample(TickBytesReceived, float32(t.BytesReceived))
	s.Inc(MessagesSent, t.MessagesSent)
	s.Inc(MessagesReceived, t.MessagesReceived)
	s.Inc(BytesSent, t.BytesSent)
	s.Inc(BytesReceived, t.BytesReceived)
	*t = TickCounters{}
}
