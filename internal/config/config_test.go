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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"cirello.io/runnerd/internal/orcherr"
)

const fullYAML = `
init-command: /bin/true
shutdown-command: /bin/true
log-addr: "127.0.0.1:9200"
services:
  web:
    scripts:
      server:
        command: /bin/sleep 1
        wait_for_ports: ["8080", "redis:6379"]
        delay: 2
      migrate:
        command: /bin/true
        wait_until_scripts_are_done: ["web.server"]
  worker:
    disabled: true
    scripts:
      run:
        command: /bin/true
  cache:
    post-stop-script: /bin/true
    scripts:
      redis:
        command: /bin/true
service-sets:
  base:
    services: ["cache"]
  all:
    includes: ["base"]
    services: ["web"]
`

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LogAddr != "127.0.0.1:9200" {
		t.Errorf("LogAddr = %q, want 127.0.0.1:9200", cfg.LogAddr)
	}
	if cfg.Spec.InitCommand == nil || cfg.Spec.ShutdownCommand == nil {
		t.Fatal("expected init-command and shutdown-command to be set")
	}

	// "worker" is disabled and must not appear.
	var names []string
	for _, sv := range cfg.Spec.Services {
		names = append(names, sv.Name)
	}
	want := []string{"web", "cache"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("service names mismatch (-want +got):\n%s", diff)
	}

	web := cfg.Spec.Services[0]
	if len(web.Scripts) != 2 {
		t.Fatalf("web scripts = %d, want 2", len(web.Scripts))
	}
	server := web.Scripts[0]
	if server.Name != "server" {
		t.Fatalf("first script = %q, want server", server.Name)
	}
	if server.Delay != 2*time.Second {
		t.Errorf("delay = %s, want 2s", server.Delay)
	}
	if len(server.WaitForPorts) != 2 {
		t.Fatalf("wait_for_ports = %v, want 2 entries", server.WaitForPorts)
	}
	if server.WaitForPorts[0].Host != "localhost" || server.WaitForPorts[0].Port != 8080 {
		t.Errorf("first port = %+v, want localhost:8080", server.WaitForPorts[0])
	}
	if server.WaitForPorts[1].Host != "redis" || server.WaitForPorts[1].Port != 6379 {
		t.Errorf("second port = %+v, want redis:6379", server.WaitForPorts[1])
	}

	migrate := web.Scripts[1]
	if len(migrate.WaitForScripts) != 1 || migrate.WaitForScripts[0] != "web.server" {
		t.Errorf("wait_until_scripts_are_done = %v, want [web.server]", migrate.WaitForScripts)
	}

	cache := cfg.Spec.Services[1]
	if cache.PostStop == nil {
		t.Error("cache.PostStop = nil, want set")
	}

	if len(cfg.Spec.ServiceSets) != 2 {
		t.Fatalf("service sets = %d, want 2", len(cfg.Spec.ServiceSets))
	}
	if cfg.Spec.ServiceSets[0].Name != "base" || cfg.Spec.ServiceSets[1].Name != "all" {
		t.Errorf("service-set order = %v", cfg.Spec.ServiceSets)
	}
}

func TestParseMissingCommand(t *testing.T) {
	const bad = `
services:
  web:
    scripts:
      server:
        workdir: /tmp
`
	_, err := Parse([]byte(bad))
	if err == nil {
		t.Fatal("expected error for missing command")
	}
	var cerr *orcherr.ConfigError
	if !errors.As(err, &cerr) {
		t.Errorf("error = %v, want a ConfigError", err)
	}
}

func TestParseInvalidPort(t *testing.T) {
	const bad = `
services:
  web:
    scripts:
      server:
        command: /bin/true
        wait_for_ports: ["a:b:c"]
`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for malformed port spec")
	}
}

func TestParseEmptyScripts(t *testing.T) {
	const bad = `
services:
  web:
    post-stop-script: /bin/true
`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for service with no scripts")
	}
}

func TestParseMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("services: [this is not a mapping")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runnerd.yml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Spec.Services) != 2 {
		t.Fatalf("services = %d, want 2", len(cfg.Spec.Services))
	}
}
