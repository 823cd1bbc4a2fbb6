package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/vkmc/zaqar-websocket/internal/api"
	cfgpkg "github.com/vkmc/zaqar-websocket/internal/config"
	pebblestore "github.com/vkmc/zaqar-websocket/internal/storage/pebble"
	"github.com/vkmc/zaqar-websocket/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        log.Logger
}

// Runtime wires the storage backend and the dispatcher for a single-node
// instance. Both transports share one Runtime.
type Runtime struct {
	store      *pebblestore.Store
	dispatcher *api.Dispatcher
	config     cfgpkg.Config
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	store, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
	})
	if err != nil {
		return nil, err
	}
	dispatcher, err := api.NewDispatcher(opts.Config, store, opts.Logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &Runtime{store: store, dispatcher: dispatcher, config: opts.Config}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// CheckHealth reports whether the storage backend is reachable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.store == nil {
		return errors.New("store not open")
	}
	return r.store.CheckHealth()
}

// Dispatcher returns the action dispatcher shared by the transports.
func (r *Runtime) Dispatcher() *api.Dispatcher { return r.dispatcher }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
