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
	"net"

	"cirello.io/runnerd/internal/orcherr"
)

// SendCommand connects to ClientAddr, writes command, then copies
// everything the server sends back to stdout until EOF.
func SendCommand(command string, stdout io.Writer) error {
	conn, err := net.Dial("tcp", ClientAddr)
	if err != nil {
		return orcherr.NewNetworkError("dial", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(command)); err != nil {
		return orcherr.NewNetworkError("write", err)
	}
	if _, err := io.Copy(stdout, conn); err != nil {
		return orcherr.NewNetworkError("read", err)
	}
	return nil
}
