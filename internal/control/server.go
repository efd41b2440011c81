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

package control

import (
	"io"
	"log"
	"net"
	"os"

	"cirello.io/runnerd/internal/orcherr"
	"cirello.io/runnerd/internal/orchestrator"
)

// ServerAddr and ClientAddr are the control socket's bind and dial
// addresses, fixed by the protocol.
const (
	ServerAddr = "0.0.0.0:65000"
	ClientAddr = "127.0.0.1:65000"
)

const maxCommandBytes = 10000

// Server accepts one connection at a time, each carrying exactly one
// command, and dispatches it against a shared Manager.
type Server struct {
	Manager *orchestrator.Manager
	DryRun  bool
	Logger  *log.Logger
}

// NewServer builds a Server. If logger is nil, diagnostics go to a logger
// writing to os.Stderr with the "runnerd: " prefix used elsewhere in the
// daemon.
func NewServer(m *orchestrator.Manager, dryRun bool, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "runnerd: ", log.LstdFlags)
	}
	return &Server{Manager: m, DryRun: dryRun, Logger: logger}
}

// ListenAndServe binds ServerAddr and serves connections sequentially
// until the listener is closed or the process exits via the "exit" verb.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", ServerAddr)
	if err != nil {
		return orcherr.NewNetworkError("listen", err)
	}
	defer ln.Close()
	s.Logger.Printf("control server listening on %s", ServerAddr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return orcherr.NewNetworkError("accept", err)
		}
		exit := s.handle(conn)
		if exit {
			return nil
		}
	}
}

func (s *Server) handle(conn net.Conn) (exit bool) {
	defer conn.Close()
	buf := make([]byte, maxCommandBytes)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		s.Logger.Printf("control connection read: %v", err)
		return false
	}
	line := string(buf[:n])

	w := NewConnWriter(os.Stdout, conn)
	exit, err = Dispatch(s.Manager, w, line, s.DryRun)
	if err != nil {
		s.Logger.Printf("dispatch %q: %v", line, err)
	}
	return exit
}
