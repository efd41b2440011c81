// Copyright 2024 github.com/ucirello
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logstream

import (
	"context"
	_ "embed"
	"encoding/json"
	"html/template"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"

	terminal "github.com/buildkite/terminal-to-html/v3"
	"nhooyr.io/websocket"
)

//go:embed logs.tpl
var logsPageTPL string

var logsPage = template.Must(template.New("logs").Parse(logsPageTPL))

// Server is the optional diagnostic HTTP/websocket front-end for a Hub.
// It is never required for the orchestrator to function; it exists only
// so a human can tail script output over a browser or the logstail
// companion command.
type Server struct {
	Hub    *Hub
	Addr   string
	Logger *log.Logger
}

// NewServer builds a Server bound to hub, listening on addr.
func NewServer(hub *Hub, addr string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{Hub: hub, Addr: addr, Logger: logger}
}

// Handler builds the mux serving "/" and "/logs", exposed separately from
// ListenAndServe so tests can drive it through httptest.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/logs", s.handleLogs)
	return mux
}

// ListenAndServe starts the HTTP server and blocks until ctx is canceled,
// then shuts it down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, req *http.Request) {
	filter := req.URL.Query().Get("filter")
	u := url.URL{Scheme: "http", Host: req.Host, Path: "/logs"}
	if filter != "" {
		q := u.Query()
		q.Set("filter", filter)
		u.RawQuery = q.Encode()
	}
	logsPage.Execute(w, struct {
		URL    string
		Filter string
	}{u.String(), filter})
}

func (s *Server) handleLogs(w http.ResponseWriter, req *http.Request) {
	filter := req.URL.Query().Get("filter")
	htmlMode := req.URL.Query().Get("mode") == "html"

	conn, err := websocket.Accept(w, req, nil)
	if err != nil {
		s.Logger.Println("logstream: accept:", err)
		return
	}
	defer conn.CloseNow()

	ctx := req.Context()
	stream, cancel := s.Hub.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg, ok := <-stream:
			if !ok {
				return
			}
			if filter != "" && !strings.Contains(msg.Script, filter) && !strings.Contains(msg.Line, filter) {
				continue
			}
			if htmlMode {
				msg.Line = string(terminal.Render([]byte(msg.Line)))
			}
			b, err := json.Marshal(msg)
			if err != nil {
				s.Logger.Println("logstream: encode:", err)
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
				s.Logger.Println("logstream: write:", err)
				return
			}
		}
	}
}
