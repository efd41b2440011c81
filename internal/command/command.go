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

// Package command builds and launches the OS child processes behind every
// script, applying path expansion and stdio redirection once, at
// construction time, so the launch path itself never touches user input.
package command

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"cirello.io/runnerd/internal/orcherr"
	"cirello.io/runnerd/internal/pathexpand"
)

// Spec is an immutable launch descriptor for one script's command.
type Spec struct {
	Program string
	Argv    []string
	Workdir string
	Env     map[string]string

	StdoutTarget string
	StderrTarget string

	// LinePublisher, if set, receives every line written to stdout or
	// stderr by the spawned child, in addition to the normal
	// redirection target. It is the diagnostic log fan-out hook used
	// by internal/logstream; it never affects scheduling.
	LinePublisher func(line string)

	raw string
}

// Build tokenizes raw, expands every path-valued input against workdir,
// and uses env, as given, as the child's extra environment (env-files are
// loaded by the caller). It returns a ConfigError if raw tokenizes to
// nothing.
func Build(raw, stdoutPath, stderrPath, workdir string, env map[string]string) (*Spec, error) {
	expandedWorkdir := workdir
	if workdir != "" {
		w, err := pathexpand.Expand(workdir, "")
		if err != nil {
			return nil, err
		}
		expandedWorkdir = w
	}

	tokens := Tokenize(raw)
	if len(tokens) == 0 {
		return nil, orcherr.NewConfigError("empty command")
	}
	expandedTokens := make([]string, len(tokens))
	for i, t := range tokens {
		v, err := pathexpand.Expand(t, expandedWorkdir)
		if err != nil {
			return nil, err
		}
		expandedTokens[i] = v
	}

	spec := &Spec{
		Program: expandedTokens[0],
		Argv:    expandedTokens[1:],
		Workdir: expandedWorkdir,
		Env:     env,
		raw:     raw,
	}

	if stdoutPath != "" {
		v, err := pathexpand.Expand(stdoutPath, expandedWorkdir)
		if err != nil {
			return nil, err
		}
		spec.StdoutTarget = v
	}
	if stderrPath != "" {
		v, err := pathexpand.Expand(stderrPath, expandedWorkdir)
		if err != nil {
			return nil, err
		}
		spec.StderrTarget = v
	}
	return spec, nil
}

// String renders a stable, human-readable form of the spec, used both for
// dry-run printing and for log lines.
func (s *Spec) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", s.Program, strings.Join(s.Argv, " "))
	if s.Workdir != "" {
		fmt.Fprintf(&b, " (workdir=%s)", s.Workdir)
	}
	if s.StdoutTarget != "" {
		fmt.Fprintf(&b, " (stdout=%s)", s.StdoutTarget)
	}
	if s.StderrTarget != "" {
		fmt.Fprintf(&b, " (stderr=%s)", s.StderrTarget)
	}
	if len(s.Env) > 0 {
		keys := make([]string, 0, len(s.Env))
		for k := range s.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, s.Env[k])
		}
	}
	return b.String()
}

func (s *Spec) buildCmd() (*exec.Cmd, []io.Closer, error) {
	c := exec.Command(s.Program, s.Argv...)
	c.Dir = s.Workdir
	c.Env = os.Environ()
	for k, v := range s.Env {
		c.Env = append(c.Env, k+"="+v)
	}
	setProcessGroup(c)

	var closers []io.Closer
	if s.StdoutTarget != "" {
		f, err := os.Create(s.StdoutTarget)
		if err != nil {
			return nil, nil, orcherr.NewProcessError("open stdout target", err)
		}
		c.Stdout = s.tee(f)
		closers = append(closers, f)
	} else {
		c.Stdout = s.tee(os.Stdout)
	}
	if s.StderrTarget != "" {
		f, err := os.Create(s.StderrTarget)
		if err != nil {
			for _, cl := range closers {
				cl.Close()
			}
			return nil, nil, orcherr.NewProcessError("open stderr target", err)
		}
		c.Stderr = s.tee(f)
		closers = append(closers, f)
	} else {
		c.Stderr = s.tee(os.Stderr)
	}
	return c, closers, nil
}

// tee wraps target so every line written through it is also handed to
// LinePublisher, if one is set. With no publisher it returns target
// unchanged, so the common case pays no extra cost.
func (s *Spec) tee(target io.Writer) io.Writer {
	if s.LinePublisher == nil {
		return target
	}
	return &linePublishingWriter{target: target, publish: s.LinePublisher}
}

// linePublishingWriter splits writes on newlines so LinePublisher always
// sees whole lines, buffering a partial trailing line across calls.
type linePublishingWriter struct {
	target  io.Writer
	publish func(string)
	buf     []byte
}

func (w *linePublishingWriter) Write(p []byte) (int, error) {
	n, err := w.target.Write(p)
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.publish(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return n, err
}

// RunSync runs the command to completion. In dry-run mode it prints the
// spec to w and returns immediately without spawning anything.
func (s *Spec) RunSync(dryRun bool, w io.Writer) error {
	if dryRun {
		fmt.Fprintln(w, "dry-run:", s.String())
		return nil
	}
	c, closers, err := s.buildCmd()
	if err != nil {
		return err
	}
	defer func() {
		for _, cl := range closers {
			cl.Close()
		}
	}()
	if err := c.Run(); err != nil {
		return orcherr.NewProcessError("run", err)
	}
	return nil
}

// Handle supervises one spawned child process.
type Handle struct {
	cmd     *exec.Cmd
	closers []io.Closer

	mu       sync.Mutex
	done     bool
	waitErr  error
	waitOnce sync.Once
	waitCh   chan struct{}
}

// RunAsync spawns the command and returns a Handle for non-blocking
// supervision. In dry-run mode it prints the spec to w and returns a nil
// handle with a nil error, per the documented "no child in dry-run"
// contract.
func (s *Spec) RunAsync(dryRun bool, w io.Writer) (*Handle, error) {
	if dryRun {
		fmt.Fprintln(w, "dry-run:", s.String())
		return nil, nil
	}
	c, closers, err := s.buildCmd()
	if err != nil {
		return nil, err
	}
	if err := c.Start(); err != nil {
		for _, cl := range closers {
			cl.Close()
		}
		return nil, orcherr.NewProcessError("start", err)
	}
	h := &Handle{cmd: c, closers: closers, waitCh: make(chan struct{})}
	go h.wait()
	return h, nil
}

func (h *Handle) wait() {
	err := h.cmd.Wait()
	for _, cl := range h.closers {
		cl.Close()
	}
	h.mu.Lock()
	h.done = true
	h.waitErr = err
	h.mu.Unlock()
	close(h.waitCh)
}

// TryWait performs a non-blocking poll of the child's exit status. done is
// true once the child has exited (regardless of exit code, see the
// orchestrator's documented handling of exit codes); err is non-nil only
// when the poll itself failed, never for a mere non-zero exit code.
func (h *Handle) TryWait() (done bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.done {
		return false, nil
	}
	var exitErr *exec.ExitError
	if h.waitErr != nil && !errors.As(h.waitErr, &exitErr) {
		return true, orcherr.NewProcessError("wait", h.waitErr)
	}
	return true, nil
}

// Wait blocks until the child exits.
func (h *Handle) Wait() {
	<-h.waitCh
}

// Kill terminates the child, and anything it spawned into its own process
// group, first with SIGTERM and, if it has not exited within grace, with
// SIGKILL.
func (h *Handle) Kill(grace time.Duration) error {
	if h.cmd.Process == nil {
		return nil
	}
	if err := terminateGroup(h.cmd); err != nil {
		return orcherr.NewProcessError("terminate", err)
	}
	select {
	case <-h.waitCh:
		return nil
	case <-time.After(grace):
	}
	if err := killGroup(h.cmd); err != nil {
		return orcherr.NewProcessError("kill", err)
	}
	<-h.waitCh
	return nil
}
