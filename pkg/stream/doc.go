// Package stream keeps a reconnecting subscription to a push feed and hands
// decoded messages to a set of replaceable handlers.
//
// A Client owns at most one live connection. When the connection fails it is
// closed and a single retry is scheduled after min(base*attempt, cap); a
// successful open resets the attempt counter. Transports are pluggable through
// the Dialer interface: SSE over HTTP, WebSocket and Redis Streams are
// provided.
package stream

// Transport names of the bundled dialers.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
	TransportRedis     = "redis"
)
