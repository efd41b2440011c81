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

// Package orcherr holds the error kinds shared across the orchestrator's
// packages, so that dispatcher and control code can tell them apart with
// errors.As instead of string matching.
package orcherr

import "fmt"

// ConfigError reports a malformed configuration: bad YAML, missing
// required sections, dangling references, invalid ports, malformed env
// files.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string { return "config error: " + e.Detail }

// NewConfigError builds a ConfigError with a formatted detail message.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Detail: fmt.Sprintf(format, args...)}
}

// InvalidName reports an unknown service, script, service-set, or a
// fully-qualified script name without exactly one dot.
type InvalidName struct {
	Name   string
	Detail string
}

func (e *InvalidName) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid name %q: %s", e.Name, e.Detail)
	}
	return fmt.Sprintf("invalid name %q", e.Name)
}

// NewInvalidName builds an InvalidName error.
func NewInvalidName(name, detail string) *InvalidName {
	return &InvalidName{Name: name, Detail: detail}
}

// InvalidCommand reports an unknown control verb or wrong arity.
type InvalidCommand struct {
	Detail string
}

func (e *InvalidCommand) Error() string { return "invalid command: " + e.Detail }

// NewInvalidCommand builds an InvalidCommand error.
func NewInvalidCommand(format string, args ...any) *InvalidCommand {
	return &InvalidCommand{Detail: fmt.Sprintf(format, args...)}
}

// ProcessError reports an OS-level spawn/wait/kill failure, or a
// redirection file creation failure.
type ProcessError struct {
	Op  string
	Err error
}

func (e *ProcessError) Error() string { return "process error: " + e.Op + ": " + e.Err.Error() }

func (e *ProcessError) Unwrap() error { return e.Err }

// NewProcessError builds a ProcessError wrapping the underlying OS error.
func NewProcessError(op string, err error) *ProcessError {
	return &ProcessError{Op: op, Err: err}
}

// NetworkError reports a bind, accept, connect, read, or write failure on
// the control socket.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Op + ": " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// NewNetworkError builds a NetworkError wrapping the underlying net error.
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

// Aggregated wraps multiple failures raised by fan-out operations (such as
// stopping every service during shutdown) into a single error that lists
// the names that raised.
type Aggregated struct {
	Op      string
	Failed  map[string]error
	Ordered []string
}

func (e *Aggregated) Error() string {
	s := e.Op + " failed for:"
	for _, name := range e.Ordered {
		err, ok := e.Failed[name]
		if !ok {
			continue
		}
		s += fmt.Sprintf(" %s (%v)", name, err)
	}
	return s
}

// NewAggregated builds an Aggregated error from an ordered set of
// name/error pairs. Returns nil if failed is empty, so callers can always
// call it and check for nil.
func NewAggregated(op string, ordered []string, failed map[string]error) error {
	if len(failed) == 0 {
		return nil
	}
	return &Aggregated{Op: op, Failed: failed, Ordered: ordered}
}
