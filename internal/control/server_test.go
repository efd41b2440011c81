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
	"net"
	"strings"
	"testing"
	"time"
)

// TestServerHandleSingleConnection exercises Server.handle directly,
// bypassing the fixed ServerAddr port so tests don't collide with a real
// daemon or each other.
func TestServerHandleSingleConnection(t *testing.T) {
	m := newTestManager(t)
	s := NewServer(m, false, nil)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go func() {
		clientConn.SetDeadline(time.Now().Add(2 * time.Second))
		clientConn.Write([]byte("status svc"))
	}()

	done := make(chan bool, 1)
	go func() {
		done <- s.handle(serverConn)
	}()

	buf := make([]byte, 4096)
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _ := clientConn.Read(buf)
	if !strings.Contains(string(buf[:n]), "svc.s1") {
		t.Errorf("reply = %q, want it to mention svc.s1", string(buf[:n]))
	}
	if exit := <-done; exit {
		t.Error("status must not request exit")
	}
}
