// Package runtime wires storage, config, and the action dispatcher into a
// single-node queuing instance. It exposes Open/Close, a basic health
// check, and the dispatcher the transport bindings drive.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: cfg})
//	defer rt.Close()
//	resp := rt.Dispatcher().Handle(ctx, req)
package runtime
