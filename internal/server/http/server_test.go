package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vkmc/zaqar-websocket/internal/config"
	"github.com/vkmc/zaqar-websocket/internal/runtime"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Config: config.Default()})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	ts := httptest.NewServer(New(rt, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]interface{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func projectHeaders() map[string]string {
	return map[string]string{"X-Project-ID": "demo", "Client-ID": "c1"}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := do(t, ts, http.MethodGet, "/v1/health", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %v", body["status"])
	}
}

func TestMissingProjectID(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := do(t, ts, http.MethodGet, "/v1/queues", "", nil)
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestNotAcceptable(t *testing.T) {
	ts := newTestServer(t)
	h := projectHeaders()
	h["Accept"] = "text/xml"
	resp, _ := do(t, ts, http.MethodGet, "/v1/queues", "", h)
	if resp.StatusCode != 406 {
		t.Fatalf("status = %d, want 406", resp.StatusCode)
	}
}

func TestQueueLifecycle(t *testing.T) {
	ts := newTestServer(t)
	h := projectHeaders()

	resp, _ := do(t, ts, http.MethodPost, "/v1/queues",
		`{"queue_name":"orders","metadata":{"team":"billing"}}`, h)
	if resp.StatusCode != 201 {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	resp, body := do(t, ts, http.MethodGet, "/v1/queues/orders", "", h)
	if resp.StatusCode != 200 {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	if body["team"] != "billing" {
		t.Fatalf("metadata = %v", body)
	}

	resp, body = do(t, ts, http.MethodGet, "/v1/queues", "", h)
	if resp.StatusCode != 200 {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	if queues, ok := body["queues"].([]interface{}); !ok || len(queues) != 1 {
		t.Fatalf("queues = %v", body["queues"])
	}

	// delete twice; both must be 204
	for i := 0; i < 2; i++ {
		resp, _ = do(t, ts, http.MethodDelete, "/v1/queues/orders", "", h)
		if resp.StatusCode != 204 {
			t.Fatalf("delete #%d status = %d, want 204", i+1, resp.StatusCode)
		}
	}
}

func TestBadQueueNameInPath(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := do(t, ts, http.MethodGet, "/v1/queues/bad%20name", "", projectHeaders())
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMessagePostAutoCreates(t *testing.T) {
	ts := newTestServer(t)
	h := projectHeaders()

	resp, body := do(t, ts, http.MethodPost, "/v1/queues/myqueue/messages",
		`{"messages":[{"ttl":60,"body":"hi"}]}`, h)
	if resp.StatusCode != 201 {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	ids, _ := body["message_ids"].(string)
	if ids == "" || strings.Contains(ids, ",") {
		t.Fatalf("message_ids = %q, want one id", ids)
	}

	resp, _ = do(t, ts, http.MethodGet, "/v1/queues/myqueue", "", h)
	if resp.StatusCode != 200 {
		t.Fatalf("queue not auto-created, status = %d", resp.StatusCode)
	}
}

func TestStatsMissingQueue(t *testing.T) {
	ts := newTestServer(t)
	resp, body := do(t, ts, http.MethodGet, "/v1/queues/missingqueue/stats", "", projectHeaders())
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	msgs, ok := body["messages"].(map[string]interface{})
	if !ok {
		t.Fatalf("body = %v, want fixed stats shape", body)
	}
	for _, field := range []string{"claimed", "free", "total"} {
		if msgs[field] != float64(0) {
			t.Fatalf("%s = %v, want 0", field, msgs[field])
		}
	}
}

func TestMessageListPagination(t *testing.T) {
	ts := newTestServer(t)
	h := projectHeaders()
	do(t, ts, http.MethodPost, "/v1/queues/q/messages",
		`{"messages":[{"body":1},{"body":2},{"body":3}]}`, h)

	seen := map[string]bool{}
	marker := ""
	for {
		resp, body := do(t, ts, http.MethodGet,
			"/v1/queues/q/messages?echo=true&limit=2&marker="+marker, "", h)
		if resp.StatusCode != 200 {
			t.Fatalf("list status = %d", resp.StatusCode)
		}
		msgs, _ := body["messages"].([]interface{})
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			id := m.(map[string]interface{})["id"].(string)
			if seen[id] {
				t.Fatalf("message %s repeated across pages", id)
			}
			seen[id] = true
		}
		marker, _ = body["marker"].(string)
	}
	if len(seen) != 3 {
		t.Fatalf("saw %d messages, want 3", len(seen))
	}
}

func TestDeleteClaimedMessage(t *testing.T) {
	ts := newTestServer(t)
	h := projectHeaders()
	do(t, ts, http.MethodPost, "/v1/queues/q/messages", `{"messages":[{"body":1}]}`, h)

	resp, body := do(t, ts, http.MethodPost, "/v1/queues/q/claims",
		`{"ttl":60,"grace":60}`, h)
	if resp.StatusCode != 201 {
		t.Fatalf("claim status = %d, want 201", resp.StatusCode)
	}
	msgs := body["messages"].([]interface{})
	mid := msgs[0].(map[string]interface{})["id"].(string)
	claimID := body["claim_id"].(string)

	// no claim id: forbidden
	resp, body = do(t, ts, http.MethodDelete, "/v1/queues/q/messages/"+mid, "", h)
	if resp.StatusCode != 403 {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if errMsg, _ := body["error"].(string); !strings.Contains(errMsg, "claimed") {
		t.Fatalf("error = %q, want claimed message", errMsg)
	}

	// matching claim id: gone
	resp, _ = do(t, ts, http.MethodDelete,
		"/v1/queues/q/messages/"+mid+"?claim_id="+claimID, "", h)
	if resp.StatusCode != 204 {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
}

func TestPopMessages(t *testing.T) {
	ts := newTestServer(t)
	h := projectHeaders()
	do(t, ts, http.MethodPost, "/v1/queues/q/messages",
		`{"messages":[{"body":1},{"body":2},{"body":3}]}`, h)

	resp, body := do(t, ts, http.MethodDelete, "/v1/queues/q/messages?pop=2", "", h)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if msgs, _ := body["messages"].([]interface{}); len(msgs) != 2 {
		t.Fatalf("popped %d, want 2", len(msgs))
	}

	// both modes at once is rejected
	resp, _ = do(t, ts, http.MethodDelete, "/v1/queues/q/messages?pop=1&ids=a,b", "", h)
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestClaimRoutes(t *testing.T) {
	ts := newTestServer(t)
	h := projectHeaders()
	do(t, ts, http.MethodPost, "/v1/queues/q/messages", `{"messages":[{"body":1},{"body":2}]}`, h)

	resp, body := do(t, ts, http.MethodPost, "/v1/queues/q/claims?limit=1", `{"ttl":120,"grace":60}`, h)
	if resp.StatusCode != 201 {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	if msgs, _ := body["messages"].([]interface{}); len(msgs) != 1 {
		t.Fatalf("claimed %d messages, want 1", len(msgs))
	}
	claimID := body["claim_id"].(string)

	resp, body = do(t, ts, http.MethodGet, "/v1/queues/q/claims", "", h)
	if resp.StatusCode != 200 {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	if claims, _ := body["claims"].([]interface{}); len(claims) != 1 {
		t.Fatalf("claims = %v", body["claims"])
	}

	resp, _ = do(t, ts, http.MethodPatch, "/v1/queues/q/claims/"+claimID, `{"ttl":300}`, h)
	if resp.StatusCode != 204 {
		t.Fatalf("update status = %d, want 204", resp.StatusCode)
	}

	resp, _ = do(t, ts, http.MethodDelete, "/v1/queues/q/claims/"+claimID, "", h)
	if resp.StatusCode != 204 {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, _ = do(t, ts, http.MethodGet, "/v1/queues/q/claims/"+claimID, "", h)
	if resp.StatusCode != 404 {
		t.Fatalf("get released claim status = %d, want 404", resp.StatusCode)
	}
}
