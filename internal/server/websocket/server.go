package wsserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vkmc/zaqar-websocket/internal/api"
	"github.com/vkmc/zaqar-websocket/internal/runtime"
	"github.com/vkmc/zaqar-websocket/pkg/log"
)

// envelope is the inbound frame format.
type envelope struct {
	Action  string            `json:"action"`
	Headers map[string]string `json:"headers"`
	Body    json.RawMessage   `json:"body"`
}

type Server struct {
	rt       *runtime.Runtime
	srv      *http.Server
	lis      net.Listener
	logger   log.Logger
	upgrader websocket.Upgrader
}

func New(rt *runtime.Runtime, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Server{
		rt:     rt,
		logger: logger.With(log.Component("websocket")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)
	s.srv = &http.Server{Handler: mux}
	return s
}

// ListenAndServe serves until the context is canceled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("websocket listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// Handler exposes the upgrade handler for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	s.serveConn(r.Context(), c)
}

// serveConn processes one connection's frames sequentially in arrival
// order. Each inbound frame produces exactly one outbound frame, so the
// client can pair responses by send order.
func (s *Server) serveConn(ctx context.Context, c *websocket.Conn) {
	defer c.Close()
	remote := c.RemoteAddr().String()
	s.logger.Debug("connection open", log.Str("remote", remote))
	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			s.logger.Debug("connection closed", log.Str("remote", remote), log.Err(err))
			return
		}
		var resp *api.Response
		if mt != websocket.TextMessage {
			resp = api.NewErrorResponse(nil,
				api.ValidationFailed("Binary frames are not supported."), nil)
		} else {
			resp = s.handleFrame(ctx, data)
		}
		out, err := json.Marshal(resp)
		if err != nil {
			s.logger.Error("response marshal", log.Err(err))
			return
		}
		if err := c.WriteMessage(websocket.TextMessage, out); err != nil {
			s.logger.Debug("write failed", log.Str("remote", remote), log.Err(err))
			return
		}
	}
}

// handleFrame decodes and structurally validates one envelope, then
// dispatches it. A broken or unknown envelope is rejected here and never
// reaches the dispatcher.
func (s *Server) handleFrame(ctx context.Context, data []byte) *api.Response {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return api.NewErrorResponse(nil, api.MalformedPayload(err), nil)
	}
	if apiErr := api.ValidateEnvelope(api.Action(env.Action), env.Headers, env.Body); apiErr != nil {
		return api.NewErrorResponse(nil, apiErr, nil)
	}
	req := api.NewRequest(api.Action(env.Action), env.Headers, env.Body)
	return s.rt.Dispatcher().Handle(ctx, req)
}
