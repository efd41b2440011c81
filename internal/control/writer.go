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

// Package control implements the line-oriented TCP control protocol: the
// Writer every dispatched command writes through, the command dispatcher
// itself, and the server/client pair that carry commands across the wire.
package control

import (
	"io"
	"net"
)

// Writer fans every line out to stdout and, if bound to a connection, to
// that connection too. A local invocation of the dispatcher uses a Writer
// with no connection; a ControlServer session binds one per accepted
// connection.
type Writer struct {
	stdout io.Writer
	conn   net.Conn
}

// NewWriter builds a Writer backed by stdout alone.
func NewWriter(stdout io.Writer) *Writer {
	return &Writer{stdout: stdout}
}

// NewConnWriter builds a Writer backed by stdout and conn.
func NewConnWriter(stdout io.Writer, conn net.Conn) *Writer {
	return &Writer{stdout: stdout, conn: conn}
}

// Write implements io.Writer so a Writer can be handed directly to
// anything expecting one (command.Spec.RunSync, fmt.Fprintf, and so on).
// Connection write failures are silently dropped: the local copy is
// authoritative.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.stdout.Write(p)
	if w.conn != nil {
		w.conn.Write(p)
	}
	return n, err
}

// WriteLine writes s followed by a newline to stdout and, if present, to
// the bound connection.
func (w *Writer) WriteLine(s string) {
	w.Write([]byte(s + "\n"))
}

// Read implements io.Reader by reading off the bound connection, mirroring
// the write side's fan-out struct with the read half the control protocol
// documents. A Writer with no connection (the local-dispatch case) has
// nothing to read from and always reports io.EOF.
func (w *Writer) Read(p []byte) (int, error) {
	if w.conn == nil {
		return 0, io.EOF
	}
	return w.conn.Read(p)
}
