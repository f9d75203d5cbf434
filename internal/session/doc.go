// Package session
// Author: momentics <momentics@gmail.com>
//
// Connection registry: maps a connection identity to the transport handle
// that serves it. Identities come from a monotonically increasing allocator
// and are never reused while the process runs.
//
// The registry stores handles but never closes them; whoever removes an
// entry owns the handle from then on.
package session
