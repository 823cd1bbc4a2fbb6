// Package httpserver is the HTTP binding of the queuing API. Each route
// maps a verb and path to exactly one dispatcher action; before-hooks
// enforce the Accept header, the project id header, and the queue-name path
// segment before any action is dispatched.
package httpserver
