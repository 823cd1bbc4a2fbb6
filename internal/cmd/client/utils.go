package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"
)

// BaseURLFunc returns the HTTP base URL of the server to talk to.
type BaseURLFunc func() string

// clientID returns a stable id for this invocation, from ZAQAR_CLIENT_ID
// or freshly generated.
func clientID() string {
	if v := os.Getenv("ZAQAR_CLIENT_ID"); v != "" {
		return v
	}
	return uuid.NewString()
}

// call performs one API request with the project and client headers set and
// returns the status code and raw body.
func call(method, url, project string, body []byte) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Project-ID", project)
	req.Header.Set("Client-ID", clientID())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}

// printResult prints the status line and, when present, the indented
// response body.
func printResult(status int, raw []byte) {
	fmt.Printf("status: %d\n", status)
	if len(raw) == 0 {
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(buf.String())
}
