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

package orchestrator

import (
	"strconv"
	"strings"

	"cirello.io/runnerd/internal/orcherr"
)

// SplitName splits a fully-qualified script name ("service.script") at
// its single dot. It fails with InvalidName when fq does not contain
// exactly one dot, or either half is empty.
func SplitName(fq string) (service, script string, err error) {
	if strings.Count(fq, ".") != 1 {
		return "", "", orcherr.NewInvalidName(fq, "must contain exactly one '.'")
	}
	service, script, _ = strings.Cut(fq, ".")
	if service == "" || script == "" {
		return "", "", orcherr.NewInvalidName(fq, "service and script name must be non-empty")
	}
	return service, script, nil
}

// PortTarget is a (host, port) pair a Script waits to accept connections
// on before it is launched.
type PortTarget struct {
	Host string
	Port int
}

// ParsePort parses a wait_for_ports entry: a bare port number (host
// defaults to "localhost"), or "host:port". Ports outside [1, 65535], a
// non-numeric port, or more than one ':' are rejected.
func ParsePort(s string) (PortTarget, error) {
	if strings.Count(s, ":") > 1 {
		return PortTarget{}, orcherr.NewConfigError("invalid port spec %q: more than one ':'", s)
	}
	host, portStr, found := strings.Cut(s, ":")
	if !found {
		host, portStr = "localhost", s
	}
	if host == "" {
		host = "localhost"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return PortTarget{}, orcherr.NewConfigError("invalid port spec %q: %v", s, err)
	}
	if port < 1 || port > 65535 {
		return PortTarget{}, orcherr.NewConfigError("invalid port spec %q: out of range", s)
	}
	return PortTarget{Host: host, Port: port}, nil
}
