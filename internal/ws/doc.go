// Package ws carries the session protocol over persistent WebSocket
// connections.
//
// Each accepted connection gets a stable identifier and a buffered outbound
// queue. The read pump applies inbound control messages to the broker in
// arrival order; the write pump serializes all outbound frames and keeps
// the connection alive with pings. Closing the connection tears down every
// session it owns.
package ws
