// Package wsserver is the WebSocket binding of the queuing API. Each
// client holds one long-lived connection; every inbound text frame is a
// JSON envelope {action, body, headers} that is structurally validated,
// dispatched, and answered with exactly one outbound text frame. Frames on
// a connection are processed strictly in arrival order, so request/response
// pairing is implicit; connections are independent of each other.
package wsserver
