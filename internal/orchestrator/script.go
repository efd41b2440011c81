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
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"cirello.io/runnerd/internal/command"
)

const (
	readinessPollInterval = time.Second
	superviseInterval     = 100 * time.Millisecond
	killGrace             = 3 * time.Second
)

// Script is the unit of supervision: one CommandSpec, its readiness
// preconditions, its status, and a single-shot interrupt consumed exactly
// once by the goroutine running its current start cycle.
type Script struct {
	// FullName is the fully-qualified "service.script" name.
	FullName string

	cmd            *command.Spec
	waitForPorts   []PortTarget
	waitForScripts []string
	delay          time.Duration
	registry       Registry

	status atomic.Int32

	mu            sync.Mutex
	interruptCh   chan struct{}
	interruptOnce *sync.Once
	doneCh        chan struct{}
	handle        *command.Handle
}

// NewScript builds a Script bound to reg, the capability it uses to
// evaluate waitForScripts dependencies.
func NewScript(fullName string, cmd *command.Spec, ports []PortTarget, deps []string, delay time.Duration, reg Registry) *Script {
	return &Script{
		FullName:       fullName,
		cmd:            cmd,
		waitForPorts:   ports,
		waitForScripts: deps,
		delay:          delay,
		registry:       reg,
	}
}

// Status returns the current status.
func (s *Script) Status() Status {
	return Status(s.status.Load())
}

// StatusString returns a human label for status().
func (s *Script) StatusString() string {
	return fmt.Sprintf("%s: %s", s.FullName, s.Status())
}

func (s *Script) setStatus(st Status) {
	s.status.Store(int32(st))
}

// beginCycle performs the NotStarted/terminal -> Starting transition and
// hands back the interrupt and completion channels for this cycle. ok is
// false if the script was not in a startable state, in which case start
// is a silent no-op and nothing else in this type is touched.
func (s *Script) beginCycle() (interrupt chan struct{}, done chan struct{}, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Status().Startable() {
		return nil, nil, false
	}
	s.setStatus(Starting)
	s.interruptCh = make(chan struct{})
	s.interruptOnce = &sync.Once{}
	s.doneCh = make(chan struct{})
	return s.interruptCh, s.doneCh, true
}

// Stop delivers the interrupt iff the script is Starting or Running. It is
// an idempotent no-op otherwise, and then logs to w; a repeated stop on a
// script whose interrupt was already delivered writes nothing.
func (s *Script) Stop(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Status().Cancellable() {
		fmt.Fprintf(w, "stop %s: not running (status: %s)\n", s.FullName, s.Status())
		return
	}
	ch, once := s.interruptCh, s.interruptOnce
	once.Do(func() {
		fmt.Fprintf(w, "stop %s: interrupting\n", s.FullName)
		close(ch)
	})
}

// WaitFinish blocks the caller until status leaves {Starting, Running}.
func (s *Script) WaitFinish() {
	s.mu.Lock()
	status, done := s.Status(), s.doneCh
	s.mu.Unlock()
	if !status.Cancellable() {
		return
	}
	if done != nil {
		<-done
	}
}

// runCycle drives one full start cycle: readiness, spawn, supervision. It
// is meant to run inside a dedicated goroutine managed by the owning
// Service's supervision tree. ctx cancellation is treated the same as an
// explicit interrupt.
func (s *Script) runCycle(ctx context.Context, forced, dryRun bool, w io.Writer, interrupt, done chan struct{}) {
	defer close(done)

	if !forced {
		if !s.awaitReadiness(ctx, interrupt, w) {
			s.setStatus(Interrupted)
			return
		}
	}

	handle, err := s.cmd.RunAsync(dryRun, w)
	if err != nil {
		fmt.Fprintf(w, "%s: failed to start: %v\n", s.FullName, err)
		s.setStatus(Failed)
		return
	}
	if handle == nil {
		// Dry-run: nothing was spawned, the cycle is immediately done.
		s.setStatus(Finished)
		return
	}

	s.mu.Lock()
	s.handle = handle
	s.mu.Unlock()
	s.setStatus(Running)

	s.superviseLoop(ctx, handle, interrupt, w)
}

// awaitReadiness runs the three readiness phases in order. It returns
// false the instant an interrupt or context cancellation is observed,
// without spawning the child.
func (s *Script) awaitReadiness(ctx context.Context, interrupt chan struct{}, w io.Writer) bool {
	for _, target := range s.waitForPorts {
		if !s.awaitPort(ctx, interrupt, w, target) {
			return false
		}
	}
	if !s.awaitScripts(ctx, interrupt, w) {
		return false
	}
	if s.delay > 0 {
		fmt.Fprintf(w, "%s: delaying %s\n", s.FullName, s.delay)
		select {
		case <-interrupt:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(s.delay):
		}
	}
	return true
}

func (s *Script) awaitPort(ctx context.Context, interrupt chan struct{}, w io.Writer, target PortTarget) bool {
	addr := fmt.Sprintf("%s:%d", target.Host, target.Port)
	fmt.Fprintf(w, "%s: waiting for port %s\n", s.FullName, addr)
	for {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return true
		}
		select {
		case <-interrupt:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(readinessPollInterval):
		}
	}
}

func (s *Script) awaitScripts(ctx context.Context, interrupt chan struct{}, w io.Writer) bool {
	if len(s.waitForScripts) == 0 {
		return true
	}
	fmt.Fprintf(w, "%s: waiting for %v\n", s.FullName, s.waitForScripts)
	for {
		allDone := true
		for _, dep := range s.waitForScripts {
			if s.registry.ScriptStatus(dep) != Finished {
				allDone = false
				break
			}
		}
		if allDone {
			return true
		}
		select {
		case <-interrupt:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(readinessPollInterval):
		}
	}
}

func (s *Script) superviseLoop(ctx context.Context, handle *command.Handle, interrupt chan struct{}, w io.Writer) {
	for {
		select {
		case <-interrupt:
			handle.Kill(killGrace)
			s.setStatus(Interrupted)
			return
		case <-ctx.Done():
			handle.Kill(killGrace)
			s.setStatus(Interrupted)
			return
		case <-time.After(superviseInterval):
			done, err := handle.TryWait()
			if err != nil {
				fmt.Fprintf(w, "%s: poll error: %v\n", s.FullName, err)
				handle.Kill(killGrace)
				s.setStatus(Failed)
				return
			}
			if done {
				s.setStatus(Finished)
				return
			}
		}
	}
}
