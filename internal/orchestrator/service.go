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
	"strings"

	oversight "cirello.io/oversight/easy"

	"cirello.io/runnerd/internal/command"
)

// Service is a named bundle of scripts plus an optional post-stop
// command. It exclusively owns its Scripts.
type Service struct {
	Name string

	scripts      map[string]*Script
	scriptOrder  []string
	postStop     *command.Spec
	supervisedBy context.Context
}

// NewService builds a Service. order fixes the iteration order used by
// Start, Stop, and StatusString (the declaration order in configuration).
func NewService(name string, scripts map[string]*Script, order []string, postStop *command.Spec) *Service {
	return &Service{Name: name, scripts: scripts, scriptOrder: order, postStop: postStop}
}

// Init binds the Service to the supervision tree that will run its
// scripts' start cycles. It must be called once, before the first Start.
func (sv *Service) Init(rootCtx context.Context) {
	sv.supervisedBy = oversight.WithContext(rootCtx)
}

// Start launches every owned script concurrently; no order is implied
// beyond what each script's own waitForScripts establishes.
func (sv *Service) Start(forced, dryRun bool, w io.Writer) {
	for _, name := range sv.scriptOrder {
		sc := sv.scripts[name]
		interrupt, done, ok := sc.beginCycle()
		if !ok {
			continue
		}
		sv.supervise(sc, forced, dryRun, w, interrupt, done)
	}
}

// StartScript starts a single owned script by its short name. ok is false
// if name does not belong to this Service.
func (sv *Service) StartScript(name string, forced, dryRun bool, w io.Writer) bool {
	sc, ok := sv.scripts[name]
	if !ok {
		return false
	}
	interrupt, done, ok := sc.beginCycle()
	if !ok {
		return true
	}
	sv.supervise(sc, forced, dryRun, w, interrupt, done)
	return true
}

// supervise wires one script's start cycle into the supervision tree.
// cirello.io/oversight restarts a Temporary task at most never on normal
// or abnormal exit, which is exactly the "a script that exits is terminal
// until explicitly restarted" rule: the tree only guards against a Go
// panic inside the cycle goroutine, it never resurrects a finished,
// failed, or killed child process.
func (sv *Service) supervise(sc *Script, forced, dryRun bool, w io.Writer, interrupt, done chan struct{}) {
	oversight.Add(sv.supervisedBy, func(ctx context.Context) error {
		sc.runCycle(ctx, forced, dryRun, w, interrupt, done)
		return nil
	}, oversight.RestartWith(oversight.Temporary()))
}

// Stop delivers the interrupt to every owned script, then, if postStop is
// defined, runs it synchronously.
func (sv *Service) Stop(dryRun bool, w io.Writer) error {
	for _, name := range sv.scriptOrder {
		sv.scripts[name].Stop(w)
	}
	if sv.postStop != nil {
		fmt.Fprintf(w, "%s: running post-stop\n", sv.Name)
		err := sv.postStop.RunSync(dryRun, w)
		fmt.Fprintf(w, "%s: post-stop finished\n", sv.Name)
		return err
	}
	return nil
}

// StopScript delivers the interrupt to a single owned script. ok is false
// if name does not belong to this Service.
func (sv *Service) StopScript(name string, w io.Writer) bool {
	sc, ok := sv.scripts[name]
	if !ok {
		return false
	}
	sc.Stop(w)
	return true
}

// WaitFinish waits for every owned script to leave {Starting, Running}.
func (sv *Service) WaitFinish() {
	for _, name := range sv.scriptOrder {
		sv.scripts[name].WaitFinish()
	}
}

// StatusString concatenates each script's StatusString, newline-separated,
// in declaration order.
func (sv *Service) StatusString() string {
	lines := make([]string, 0, len(sv.scriptOrder))
	for _, name := range sv.scriptOrder {
		lines = append(lines, sv.scripts[name].StatusString())
	}
	return strings.Join(lines, "\n")
}
