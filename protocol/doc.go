// Package protocol
// Author: momentics <momentics@gmail.com>
//
// WebSocket framing for the arena server (RFC 6455, binary messages only),
// built on github.com/gobwas/ws.
//
// Includes:
//   - Opening handshake driven by peeking the request head off the stream
//   - Unmasked binary frames for server-to-client messages
//   - Message reassembly, unmasking, ping/pong and close handling for
//     client-to-server traffic
//
// All I/O goes through a Stream, normally a *transport.Socket, so every
// read and write may suspend the calling task.
package protocol
