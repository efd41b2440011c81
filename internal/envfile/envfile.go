// Copyright 2024 github.com/ucirello, cirello.io, U. Cirello
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

// Package envfile parses the trivial KEY=VALUE environment files used to
// seed a script's environment.
package envfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"cirello.io/runnerd/internal/orcherr"
)

// Parse reads r as a KEY=VALUE file. Blank lines and lines whose first
// non-space character is '#' are skipped. Every other line is split at
// its first '='; a line missing '=' is a ConfigError citing fn and its
// 1-based line number.
func Parse(fn string, r io.Reader) (map[string]string, error) {
	env := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, orcherr.NewConfigError("%s:%d: missing '=' in %q", fn, lineNo, line)
		}
		env[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("envfile: reading %s: %w", fn, err)
	}
	return env, nil
}
