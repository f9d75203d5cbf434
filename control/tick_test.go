// File: control/tick_test.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTickCountersFlush(t *testing.T) {
	s := NewStats()
	var tc TickCounters

	tc.Sent(12)
	tc.Sent(3)
	tc.Received(5)
	tc.Flush(s)

	require.Equal(t, TickCounters{}, tc)
	require.Equal(t, 2, s.Counter(MessagesSent))
	require.Equal(t, 15, s.Counter(BytesSent))
	require.Equal(t, 1, s.Counter(MessagesReceived))
	require.Equal(t, 5, s.Counter(BytesReceived))
	require.Equal(t, float32(2), s.Average(TickMessagesSent))
	require.Equal(t, float32(15), s.Average(TickBytesSent))

	// An idle tick still contributes a zero sample.
	tc.Flush(s)
	require.Equal(t, float32(1), s.Average(TickMessagesSent))
	require.Equal(t, float32(7.5), s.Average(TickBytesSent))
	require.Equal(t, 2, s.Counter(MessagesSent))
}
