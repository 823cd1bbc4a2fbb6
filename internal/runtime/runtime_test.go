package runtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/vkmc/zaqar-websocket/internal/api"
	"github.com/vkmc/zaqar-websocket/internal/config"
)

func TestOpenDispatchClose(t *testing.T) {
	rt, err := Open(Options{DataDir: t.TempDir(), Config: config.Default()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}

	req := api.NewRequest(api.ActionQueueCreate,
		map[string]string{api.HeaderProjectID: "demo"},
		json.RawMessage(`{"queue_name":"q"}`))
	resp := rt.Dispatcher().Handle(context.Background(), req)
	if resp.Headers.Status != 201 {
		t.Fatalf("status = %d, want 201", resp.Headers.Status)
	}
}
