/*
Package presence contains the real-time presence and relay engine.

It tracks which users are currently connected (possibly via several simultaneous
connections), keeps an in-memory view of ephemeral session state (position, current
table), and fans out events to the correct live connections while a durable mirror
is kept eventually consistent in the background.
*/
package presence

// Conn is one live bidirectional transport session (one browser tab or app instance).
// The concrete implementation is the WebSocket Client; tests substitute mocks.
type Conn interface {
	// ID returns the unique connection identifier assigned at transport accept time.
	ID() string

	// Send queues the already-marshaled event frame for delivery. It must not block;
	// a full outbound queue is reported as an error and the frame is dropped.
	Send(data []byte) error

	// Close tears down the underlying transport. Safe to call more than once.
	Close() error
}
