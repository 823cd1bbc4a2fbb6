// Package serverrun exposes a shared Run entrypoint used by the CLI to
// start the queuing service with its HTTP and WebSocket servers, handling
// lifecycle and shutdown.
//
// Example:
//
//	opts := serverrun.Options{DataDir: "./data", HTTPAddr: ":8888", WSAddr: ":9000", Config: config.Default()}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
