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
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"cirello.io/runnerd/internal/command"
	"cirello.io/runnerd/internal/orchestrator"
)

func newTestManager(t *testing.T) *orchestrator.Manager {
	t.Helper()
	cmdSpec, err := command.Build("/bin/true", "", "", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	spec := orchestrator.Spec{
		Services: []orchestrator.ServiceConfig{
			{Name: "svc", Scripts: []orchestrator.ScriptConfig{
				{Name: "s1", Command: cmdSpec},
			}},
		},
		ServiceSets: []orchestrator.ServiceSetConfig{
			{Name: "default", Services: []string{"svc"}},
		},
	}
	m, err := orchestrator.New(context.Background(), spec, false, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestDispatchUpAndStatus(t *testing.T) {
	m := newTestManager(t)
	var out bytes.Buffer
	w := NewWriter(&out)

	if exit, err := Dispatch(m, w, "up default", false); exit || err != nil {
		t.Fatalf("up default: exit=%v err=%v", exit, err)
	}
	time.Sleep(300 * time.Millisecond)

	out.Reset()
	if exit, err := Dispatch(m, w, "status", false); exit || err != nil {
		t.Fatalf("status: exit=%v err=%v", exit, err)
	}
	if !strings.Contains(out.String(), "svc.s1") {
		t.Errorf("status output = %q, want it to mention svc.s1", out.String())
	}
}

func TestDispatchUnknownVerb(t *testing.T) {
	m := newTestManager(t)
	var out bytes.Buffer
	w := NewWriter(&out)
	_, err := Dispatch(m, w, "bogus", false)
	if err == nil {
		t.Fatal("expected error for unknown verb")
	}
	if !strings.Contains(out.String(), "error:") {
		t.Errorf("output = %q, want an error line", out.String())
	}
}

func TestDispatchArity(t *testing.T) {
	m := newTestManager(t)
	w := NewWriter(&bytes.Buffer{})
	cases := []string{"up", "up a b", "down x", "start", "stop", "wait_for_scripts", "exit x"}
	for _, c := range cases {
		if _, err := Dispatch(m, w, c, false); err == nil {
			t.Errorf("Dispatch(%q): expected arity error", c)
		}
	}
}

func TestDispatchExit(t *testing.T) {
	m := newTestManager(t)
	w := NewWriter(&bytes.Buffer{})
	exit, err := Dispatch(m, w, "exit", false)
	if err != nil {
		t.Fatal(err)
	}
	if !exit {
		t.Error("exit verb must report exit=true")
	}
}

func TestDispatchStartScriptVsService(t *testing.T) {
	m := newTestManager(t)
	var out bytes.Buffer
	w := NewWriter(&out)
	if _, err := Dispatch(m, w, "start svc.s1", false); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	out.Reset()
	if _, err := Dispatch(m, w, "status svc", false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "finished") {
		t.Errorf("status = %q, want it to mention finished", out.String())
	}
}
