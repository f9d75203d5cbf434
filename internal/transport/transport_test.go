// File: internal/transport/transport_test.go
// Author: momentics <momentics@gmail.com>

package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/fake"
)

func TestReadYieldsWhileBlocked(t *testing.T) {
	conn := fake.NewConn([]byte("hello"))
	conn.BlockReads(3)
	y := &fake.Yielder{}
	s := NewSocket(conn, y)

	buf := make([]byte, 16)
	n, err := s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))
	require.Equal(t, 3, y.Count())
}

func TestReadWaitsForData(t *testing.T) {
	conn := fake.NewConn(nil)
	y := &fake.Yielder{OnYield: func(n int) {
		if n == 2 {
			conn.Feed([]byte{0x42})
		}
	}}
	s := NewSocket(conn, y)

	buf := make([]byte, 4)
	n, err := s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, byte(0x42), buf[0])
	require.Equal(t, 2, y.Count())
}

func TestZeroByteReadIsClosed(t *testing.T) {
	conn := fake.NewConn(nil)
	conn.ClosePeer()
	y := &fake.Yielder{}
	s := NewSocket(conn, y)

	_, err := s.Read(make([]byte, 4))
	require.ErrorIs(t, err, api.ErrConnectionClosed)
	_, err = s.Peek(make([]byte, 4))
	require.ErrorIs(t, err, api.ErrConnectionClosed)
	require.Zero(t, y.Count())
}

func TestEmptyBufferIsNoop(t *testing.T) {
	conn := fake.NewConn(nil)
	conn.FailReads(errors.New("must not be called"))
	s := NewSocket(conn, &fake.Yielder{})
	n, err := s.Read(nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestPeekDoesNotConsume(t *testing.T) {
	conn := fake.NewConn([]byte("abc"))
	s := NewSocket(conn, &fake.Yielder{})

	buf := make([]byte, 3)
	n, err := s.Peek(buf)
	require.NoError(t, err)
	require.Equal(t, "abc", string(buf[:n]))

	n, err = s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "abc", string(buf[:n]))
	require.Zero(t, conn.Pending())
}

func TestOSErrorBecomesTransportError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	conn := fake.NewConn(nil)
	conn.FailReads(cause)
	conn.FailWrites(cause)
	s := NewSocket(conn, &fake.Yielder{})

	_, err := s.Read(make([]byte, 1))
	var te *api.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "read", te.Op)
	require.ErrorIs(t, err, cause)

	_, err = s.Write([]byte{1})
	require.ErrorAs(t, err, &te)
	require.Equal(t, "write", te.Op)
}

func TestWriteYieldsWhileBlocked(t *testing.T) {
	conn := fake.NewConn(nil)
	conn.BlockWrites(2)
	y := &fake.Yielder{}
	s := NewSocket(conn, y)

	n, err := s.Write([]byte("payload"))
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, 2, y.Count())
	require.Equal(t, "payload", string(conn.Written()))
}

func TestWriteAllLoopsOverShortWrites(t *testing.T) {
	conn := fake.NewConn(nil)
	conn.LimitWrites(3)
	s := NewSocket(conn, &fake.Yielder{})

	msg := []byte("0123456789")
	n, err := s.WriteAll(msg)
	require.NoError(t, err)
	require.Equal(t, len(msg), n)
	require.Equal(t, msg, conn.Written())
}

func TestWriteAllReportsPartialProgress(t *testing.T) {
	conn := fake.NewConn(nil)
	conn.LimitWrites(4)
	s := NewSocket(conn, &fake.Yielder{})

	// Fail after the first chunk lands.
	calls := 0
	s.raw = writeHook{Conn: conn, before: func() error {
		calls++
		if calls == 2 {
			return errors.New("broken pipe")
		}
		return nil
	}}
	n, err := s.WriteAll([]byte("0123456789"))
	require.Error(t, err)
	require.Equal(t, 4, n)
	require.False(t, s.writing)
}

type writeHook struct {
	*fake.Conn
	before func() error
}

func (w writeHook) Write(p []byte) (int, error) {
	if err := w.before(); err != nil {
		return 0, err
	}
	return w.Conn.Write(p)
}

func TestWriteAllSerializesWriters(t *testing.T) {
	conn := fake.NewConn(nil)
	y := &fake.Yielder{}
	s := NewSocket(conn, y)

	s.writing = true
	y.OnYield = func(n int) {
		if n == 3 {
			s.writing = false
		}
	}
	_, err := s.WriteAll([]byte("x"))
	require.NoError(t, err)
	require.Equal(t, 3, y.Count())
	require.False(t, s.writing)
}

func TestShutdownAndClose(t *testing.T) {
	conn := fake.NewConn(nil)
	s := NewSocket(conn, &fake.Yielder{})

	require.NoError(t, s.Shutdown(api.ShutdownBoth))
	require.Equal(t, []api.ShutdownHow{api.ShutdownBoth}, conn.Shutdowns())
	_, err := s.Read(make([]byte, 1))
	require.ErrorIs(t, err, api.ErrConnectionClosed)

	conn.FailClose(errors.New("bad descriptor"))
	err = s.Close()
	var te *api.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "close", te.Op)
	require.True(t, conn.Closed())
}

func TestWriteAfterCloseDuringSuspend(t *testing.T) {
	conn := fake.NewConn(nil)
	conn.BlockWrites(1)
	y := &fake.Yielder{}
	s := NewSocket(conn, y)
	// The owner task closes the handle while this write is suspended.
	y.OnYield = func(int) { require.NoError(t, s.Close()) }

	n, err := s.WriteAll([]byte("late"))
	require.ErrorIs(t, err, api.ErrConnectionClosed)
	require.Zero(t, n)
	require.Empty(t, conn.Written())
	require.True(t, conn.Closed())
	require.False(t, s.writing)
}

func TestReadAfterCloseDuringSuspend(t *testing.T) {
	conn := fake.NewConn(nil)
	y := &fake.Yielder{}
	s := NewSocket(conn, y)
	y.OnYield = func(int) {
		require.NoError(t, s.Close())
		conn.Feed([]byte("stale"))
	}

	_, err := s.Read(make([]byte, 8))
	require.ErrorIs(t, err, api.ErrConnectionClosed)
	require.Equal(t, 5, conn.Pending())
	require.Equal(t, 1, y.Count())
}

func TestQueuedWriterSeesClose(t *testing.T) {
	conn := fake.NewConn(nil)
	y := &fake.Yielder{}
	s := NewSocket(conn, y)

	s.writing = true
	y.OnYield = func(int) {
		s.writing = false
		require.NoError(t, s.Close())
	}
	_, err := s.WriteAll([]byte("x"))
	require.ErrorIs(t, err, api.ErrConnectionClosed)
	require.Empty(t, conn.Written())
}

func TestClosedSocketRefusesEverything(t *testing.T) {
	conn := fake.NewConn([]byte("data"))
	s := NewSocket(conn, &fake.Yielder{})
	require.NoError(t, s.Close())
	require.True(t, s.Closed())

	_, err := s.Peek(make([]byte, 4))
	require.ErrorIs(t, err, api.ErrConnectionClosed)
	_, err = s.Write([]byte("x"))
	require.ErrorIs(t, err, api.ErrConnectionClosed)
	require.ErrorIs(t, s.Shutdown(api.ShutdownBoth), api.ErrConnectionClosed)
	require.Empty(t, conn.Shutdowns())
	require.Empty(t, conn.Written())
	require.NoError(t, s.Close())
}

func TestBlockedWriteFailsWhileUnwinding(t *testing.T) {
	conn := fake.NewConn(nil)
	conn.BlockWrites(1 << 30)
	y := &fake.Yielder{}
	y.Unwind()
	s := NewSocket(conn, y)

	n, err := s.WriteAll([]byte("bye"))
	require.ErrorIs(t, err, api.ErrShuttingDown)
	require.Zero(t, n)
	require.Equal(t, 1, y.Count())
	require.False(t, s.writing)

	// Reads that need no suspension still complete.
	conn.Feed([]byte("x"))
	_, err = s.Read(make([]byte, 1))
	require.NoError(t, err)
}

func TestSuspend(t *testing.T) {
	y := &fake.Yielder{}
	s := NewSocket(fake.NewConn(nil), y)
	s.Suspend()
	require.Equal(t, 1, y.Count())
}
