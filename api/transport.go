// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Raw byte-stream contract consumed by the transport adapter, and the
// scheduler primitive it suspends through.

package api

// ShutdownHow selects the direction closed by Shutdown.
type ShutdownHow int

const (
	ShutdownRead ShutdownHow = iota
	ShutdownWrite
	ShutdownBoth
)

func (h ShutdownHow) String() string {
	switch h {
	case ShutdownRead:
		return "read"
	case ShutdownWrite:
		return "write"
	case ShutdownBoth:
		return "both"
	default:
		return "unknown"
	}
}

// RawConn abstracts one non-blocking, full-duplex byte stream.
//
// Read, Peek and Write never block: they return ErrWouldBlock when no
// progress is possible. A zero count with a nil error from Read or Peek
// means the peer closed the stream.
type RawConn interface {
	// Read consumes up to len(p) bytes.
	Read(p []byte) (n int, err error)

	// Peek copies up to len(p) bytes without consuming them.
	Peek(p []byte) (n int, err error)

	// Write sends up to len(p) bytes; short writes are allowed.
	Write(p []byte) (n int, err error)

	// Shutdown closes one or both directions of the stream.
	Shutdown(how ShutdownHow) error

	// Close releases the underlying descriptor.
	Close() error
}

// Yielder is the single primitive required from the task scheduler: suspend
// the calling task and return once the scheduler resumes it.
type Yielder interface {
	Yield()
}

// Unwinder is implemented by schedulers that can refuse a suspension. When
// Unwinding reports true the calling task is being torn down and a Yield
// returned without waiting, so blocked I/O must give up instead of retrying.
type Unwinder interface {
	Unwinding() bool
}

// YieldFunc adapts a plain function to the Yielder interface.
type YieldFunc func()

// Yield calls f().
func (f YieldFunc) Yield() { f() }
