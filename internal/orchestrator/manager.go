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
	"time"

	"cirello.io/runnerd/internal/command"
	"cirello.io/runnerd/internal/logstream"
	"cirello.io/runnerd/internal/orcherr"
)

// ScriptConfig is the already-validated, already-path-expanded
// description of one script, ready to be turned into a Script.
type ScriptConfig struct {
	Name           string
	Command        *command.Spec
	WaitForPorts   []PortTarget
	WaitForScripts []string
	Delay          time.Duration
}

// ServiceConfig is the already-validated description of one service.
type ServiceConfig struct {
	Name     string
	Scripts  []ScriptConfig
	PostStop *command.Spec
}

// Spec is the fully-resolved configuration a Manager is built from: every
// path already expanded, every env-file already loaded, only graph-level
// validation (dangling references, duplicate names) remains to be done by
// New.
type Spec struct {
	Services        []ServiceConfig
	ServiceSets     []ServiceSetConfig
	InitCommand     *command.Spec
	ShutdownCommand *command.Spec
}

// Manager is the top-level lifecycle owner: it holds the Registry (a view
// over its own Services) and the ServiceSets built from it.
type Manager struct {
	services     map[string]*Service
	serviceOrder []string
	serviceSets  map[string]*ServiceSet
	initCommand  *command.Spec
	shutdownCmd  *command.Spec

	// Hub fans every script's stdout/stderr lines out to the optional
	// diagnostic HTTP/websocket endpoint. It always exists; it only
	// matters once something subscribes to it (see cmd/runnerd, which
	// starts logstream.Server when LogAddr is configured).
	Hub *logstream.Hub
}

// New builds every Service (and, transitively, every Script) described by
// spec, then expands its ServiceSets, then eagerly runs InitCommand if
// present. Any error here is fatal to the daemon: the Manager either
// comes up whole or not at all.
func New(ctx context.Context, spec Spec, dryRun bool, w io.Writer) (*Manager, error) {
	reg := newRegistryView()
	hub := logstream.NewHub()

	var order []string
	for _, svcCfg := range spec.Services {
		if _, exists := reg.services[svcCfg.Name]; exists {
			return nil, orcherr.NewConfigError("duplicate service name %q", svcCfg.Name)
		}
		scripts := make(map[string]*Script, len(svcCfg.Scripts))
		var scriptOrder []string
		for _, scriptCfg := range svcCfg.Scripts {
			if _, exists := scripts[scriptCfg.Name]; exists {
				return nil, orcherr.NewConfigError("service %q: duplicate script name %q", svcCfg.Name, scriptCfg.Name)
			}
			fq := svcCfg.Name + "." + scriptCfg.Name
			if scriptCfg.Command != nil {
				scriptCfg.Command.LinePublisher = func(line string) {
					hub.Publish(logstream.LogMessage{Script: fq, Line: line})
				}
			}
			scripts[scriptCfg.Name] = NewScript(fq, scriptCfg.Command, scriptCfg.WaitForPorts, scriptCfg.WaitForScripts, scriptCfg.Delay, reg)
			scriptOrder = append(scriptOrder, scriptCfg.Name)
		}
		sv := NewService(svcCfg.Name, scripts, scriptOrder, svcCfg.PostStop)
		sv.Init(ctx)
		reg.services[svcCfg.Name] = sv
		order = append(order, svcCfg.Name)
	}

	// waitForScripts only names scripts that exist at configuration
	// time: validated once, here, so a runtime dependency lookup never
	// has to distinguish "doesn't exist" from "hasn't run yet".
	for _, svcCfg := range spec.Services {
		for _, scriptCfg := range svcCfg.Scripts {
			for _, dep := range scriptCfg.WaitForScripts {
				if !reg.ScriptExists(dep) {
					return nil, orcherr.NewConfigError("script %q: wait_until_scripts_are_done references unknown script %q", svcCfg.Name+"."+scriptCfg.Name, dep)
				}
			}
		}
	}

	serviceSets, err := expandServiceSets(spec.ServiceSets, reg.services)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		services:     reg.services,
		serviceOrder: order,
		serviceSets:  serviceSets,
		initCommand:  spec.InitCommand,
		shutdownCmd:  spec.ShutdownCommand,
		Hub:          hub,
	}

	if m.initCommand != nil {
		if err := m.initCommand.RunSync(dryRun, w); err != nil {
			return nil, fmt.Errorf("init-command: %w", err)
		}
	}

	return m, nil
}

func (m *Manager) service(name string) (*Service, error) {
	sv, ok := m.services[name]
	if !ok {
		return nil, orcherr.NewInvalidName(name, "no such service")
	}
	return sv, nil
}

func (m *Manager) script(fq string) (*Service, string, error) {
	svcName, scriptName, err := SplitName(fq)
	if err != nil {
		return nil, "", err
	}
	sv, err := m.service(svcName)
	if err != nil {
		return nil, "", orcherr.NewInvalidName(fq, "no such script")
	}
	if _, ok := sv.scripts[scriptName]; !ok {
		return nil, "", orcherr.NewInvalidName(fq, "no such script")
	}
	return sv, scriptName, nil
}

// Up looks up setName and starts every member Service, non-forced.
func (m *Manager) Up(setName string, dryRun bool, w io.Writer) error {
	set, ok := m.serviceSets[setName]
	if !ok {
		return orcherr.NewInvalidName(setName, "no such service-set")
	}
	for _, svcName := range set.Members {
		sv, err := m.service(svcName)
		if err != nil {
			return err
		}
		sv.Start(false, dryRun, w)
	}
	return nil
}

// StartService starts every script of the named service.
func (m *Manager) StartService(name string, forced, dryRun bool, w io.Writer) error {
	sv, err := m.service(name)
	if err != nil {
		return err
	}
	sv.Start(forced, dryRun, w)
	return nil
}

// StopService stops every script of the named service.
func (m *Manager) StopService(name string, dryRun bool, w io.Writer) error {
	sv, err := m.service(name)
	if err != nil {
		return err
	}
	return sv.Stop(dryRun, w)
}

// StartScript starts a single fully-qualified script.
func (m *Manager) StartScript(fq string, forced, dryRun bool, w io.Writer) error {
	sv, scriptName, err := m.script(fq)
	if err != nil {
		return err
	}
	sv.StartScript(scriptName, forced, dryRun, w)
	return nil
}

// StopScript stops a single fully-qualified script.
func (m *Manager) StopScript(fq string, w io.Writer) error {
	sv, scriptName, err := m.script(fq)
	if err != nil {
		return err
	}
	sv.StopScript(scriptName, w)
	return nil
}

// StopAll stops every Service, aggregating any errors raised by their
// post-stop commands into a single Aggregated error. It never returns
// early: every service is always driven towards termination.
func (m *Manager) StopAll(dryRun bool, w io.Writer) error {
	failed := make(map[string]error)
	for _, name := range m.serviceOrder {
		if err := m.services[name].Stop(dryRun, w); err != nil {
			failed[name] = err
		}
	}
	return orcherr.NewAggregated("stop", m.serviceOrder, failed)
}

// Shutdown stops every service, waits for every script to leave
// {Starting, Running}, then runs ShutdownCommand if configured.
func (m *Manager) Shutdown(dryRun bool, w io.Writer) error {
	stopErr := m.StopAll(dryRun, w)
	for _, name := range m.serviceOrder {
		m.services[name].WaitFinish()
	}
	if m.shutdownCmd != nil {
		if err := m.shutdownCmd.RunSync(dryRun, w); err != nil {
			return fmt.Errorf("shutdown-command: %w", err)
		}
	}
	return stopErr
}

// ReportStatus writes a human multi-line report to w. If serviceNames is
// empty, every service is reported, in declaration order.
func (m *Manager) ReportStatus(w io.Writer, serviceNames ...string) error {
	names := serviceNames
	if len(names) == 0 {
		names = m.serviceOrder
	}
	for _, name := range names {
		sv, err := m.service(name)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, sv.StatusString())
	}
	return nil
}

// WaitForScripts blocks the caller until every named script reports
// Finished, polling at 1s. It fails fast with InvalidName if any name
// does not exist.
func (m *Manager) WaitForScripts(names []string) error {
	scripts := make([]*Script, len(names))
	for i, name := range names {
		sv, scriptName, err := m.script(name)
		if err != nil {
			return err
		}
		scripts[i] = sv.scripts[scriptName]
	}
	for {
		allDone := true
		for _, sc := range scripts {
			if sc.Status() != Finished {
				allDone = false
				break
			}
		}
		if allDone {
			return nil
		}
		time.Sleep(readinessPollInterval)
	}
}

// ServiceNames returns the declared services in declaration order, for
// diagnostics and tests.
func (m *Manager) ServiceNames() []string {
	out := make([]string, len(m.serviceOrder))
	copy(out, m.serviceOrder)
	return out
}
