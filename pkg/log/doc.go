// Package log provides the structured logging facade used across zaqar
// components.
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by the standard
// library's slog via a bridge handler that routes records through a
// formatter/output pipeline, so output stays consistent no matter which API
// produced the record.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("dispatcher"))
//	l.Info("server started", log.Str("http", ":8888"))
//
// Use ApplyConfig to build a logger from a declarative Config (level and
// format). To capture stdlib logs (for example Pebble's), use RedirectStdLog.
package log
