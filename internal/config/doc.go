// Package config provides loading and environment overlay for the zaqar
// server configuration. It exposes a Default() baseline, a JSON file loader,
// and a ZAQAR_* env overlay. The resulting Config is immutable by convention:
// it is built once at startup and passed into the validator, dispatcher, and
// servers by value.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/zaqar.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config
