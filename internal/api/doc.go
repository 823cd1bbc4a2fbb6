// Package api is the transport-agnostic core of the queuing service: the
// uniform request/response model, the validation pipeline, the error
// taxonomy with its status-code mapping, and the action dispatcher that
// both the HTTP and WebSocket bindings drive.
//
// Transports translate their native message format into a Request, hand it
// to Dispatcher.Handle, and translate the returned Response back. All
// business semantics live here; the bindings are thin adapters.
package api
