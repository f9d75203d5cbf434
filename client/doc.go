// Package client
// Author: momentics <momentics@gmail.com>
//
// Load-generating player bots for the arena server. Each bot is a plain
// WebSocket client: it joins, learns its id from the first message, sends
// binary payloads at a fixed interval and drains whatever the server relays.
package client
