package serverrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	cfgpkg "github.com/vkmc/zaqar-websocket/internal/config"
	pebblestore "github.com/vkmc/zaqar-websocket/internal/storage/pebble"
)

func TestGetenvDefault(t *testing.T) {
	_ = os.Setenv("ZAQAR_TEST_VAR", "set")
	t.Cleanup(func() { _ = os.Unsetenv("ZAQAR_TEST_VAR") })

	if got := getenvDefault("ZAQAR_TEST_VAR", "default"); got != "set" {
		t.Errorf("getenvDefault = %q, want set", got)
	}
	if got := getenvDefault("ZAQAR_TEST_VAR_UNSET", "default"); got != "default" {
		t.Errorf("getenvDefault = %q, want default", got)
	}
}

func TestDataDirFallback(t *testing.T) {
	opts := Options{DataDir: ""}
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.DataDir == "" {
		t.Fatal("DataDir should not be empty after fallback")
	}
	if got := filepath.Join(opts.DataDir, "store"); filepath.Base(got) != "store" {
		t.Fatalf("store dir = %s", got)
	}
}

// TestRunShutdown starts both servers on ephemeral ports and verifies Run
// returns cleanly once the context ends.
func TestRunShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping server startup in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := Run(ctx, Options{
		DataDir:  t.TempDir(),
		HTTPAddr: "127.0.0.1:0",
		WSAddr:   "127.0.0.1:0",
		Fsync:    pebblestore.FsyncModeNever,
		Config:   cfgpkg.Default(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}
