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

// Package config decodes the YAML configuration file into the
// orchestrator's fully-resolved Spec: every env-file loaded, every path
// token expanded, every command tokenized, before a single Service or
// Script object exists.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"cirello.io/runnerd/internal/command"
	"cirello.io/runnerd/internal/envfile"
	"cirello.io/runnerd/internal/orcherr"
	"cirello.io/runnerd/internal/orchestrator"
	"cirello.io/runnerd/internal/pathexpand"
)

// rawScript mirrors one entry under services.<name>.scripts.<name> in the
// YAML document.
type rawScript struct {
	Command                 string   `yaml:"command"`
	Workdir                 string   `yaml:"workdir"`
	EnvFile                 string   `yaml:"env_file"`
	LogFile                 string   `yaml:"log_file"`
	LogFileErr              string   `yaml:"log_file_err"`
	WaitForPorts            []string `yaml:"wait_for_ports"`
	WaitUntilScriptsAreDone []string `yaml:"wait_until_scripts_are_done"`
	Delay                   int      `yaml:"delay"`
}

// rawService mirrors one entry under services.<name>.
type rawService struct {
	Disabled       bool      `yaml:"disabled"`
	PostStopScript string    `yaml:"post-stop-script"`
	Scripts        yaml.Node `yaml:"scripts"`
}

// rawServiceSet mirrors one entry under service-sets.<name>.
type rawServiceSet struct {
	Includes []string `yaml:"includes"`
	Services []string `yaml:"services"`
}

// rawDocument is the top-level YAML shape.
type rawDocument struct {
	InitCommand     string                   `yaml:"init-command"`
	ShutdownCommand string                   `yaml:"shutdown-command"`
	LogAddr         string                   `yaml:"log-addr"`
	Services        map[string]rawService    `yaml:"services"`
	ServiceSets     map[string]rawServiceSet `yaml:"service-sets"`
}

// Config is the fully-resolved result of Load: an orchestrator.Spec ready
// for orchestrator.New, plus the daemon-level settings the orchestrator
// itself doesn't own.
type Config struct {
	Spec    orchestrator.Spec
	LogAddr string
}

// Load reads path, decodes it as YAML, and resolves it into a Config. Every
// referenced env-file path is expanded against its script's workdir and
// then read as given (a relative path resolves against the process working
// directory, not path's directory); every path-valued field is expanded but
// not yet made absolute beyond what pathexpand.Expand does; every command
// string is tokenized. Map
// iteration order is not preserved by YAML itself, so Services and
// ServiceSets are emitted in the order yaml.v3 exposes via their
// underlying *yaml.Node — this package decodes twice, once into the typed
// maps above for validation convenience and once into a *yaml.Node tree
// solely to recover declaration order.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, orcherr.NewConfigError("read %s: %v", path, err)
	}
	return Parse(data)
}

// Parse decodes data the same way Load does, without touching the
// filesystem for the document itself (env-files and command paths are
// still read from disk).
func Parse(data []byte) (*Config, error) {
	var doc rawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, orcherr.NewConfigError("parse yaml: %v", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, orcherr.NewConfigError("parse yaml: %v", err)
	}
	serviceOrder, err := mappingKeyOrder(&node, "services")
	if err != nil {
		return nil, err
	}
	setOrder, err := mappingKeyOrder(&node, "service-sets")
	if err != nil {
		return nil, err
	}

	cfg := &Config{LogAddr: doc.LogAddr}

	if doc.InitCommand != "" {
		spec, err := command.Build(doc.InitCommand, "", "", "", nil)
		if err != nil {
			return nil, fmt.Errorf("init-command: %w", err)
		}
		cfg.Spec.InitCommand = spec
	}
	if doc.ShutdownCommand != "" {
		spec, err := command.Build(doc.ShutdownCommand, "", "", "", nil)
		if err != nil {
			return nil, fmt.Errorf("shutdown-command: %w", err)
		}
		cfg.Spec.ShutdownCommand = spec
	}

	for _, name := range serviceOrder {
		raw, ok := doc.Services[name]
		if !ok {
			continue
		}
		if raw.Disabled {
			continue
		}
		svcCfg, err := buildServiceConfig(name, raw)
		if err != nil {
			return nil, err
		}
		cfg.Spec.Services = append(cfg.Spec.Services, svcCfg)
	}

	for _, name := range setOrder {
		raw, ok := doc.ServiceSets[name]
		if !ok {
			continue
		}
		cfg.Spec.ServiceSets = append(cfg.Spec.ServiceSets, orchestrator.ServiceSetConfig{
			Name:     name,
			Includes: raw.Includes,
			Services: raw.Services,
		})
	}

	return cfg, nil
}

func buildServiceConfig(name string, raw rawService) (orchestrator.ServiceConfig, error) {
	if len(raw.Scripts.Content) == 0 {
		return orchestrator.ServiceConfig{}, orcherr.NewConfigError("service %q: scripts must be non-empty", name)
	}
	if raw.Scripts.Kind != yaml.MappingNode {
		return orchestrator.ServiceConfig{}, orcherr.NewConfigError("service %q: scripts must be a mapping", name)
	}

	var postStop *command.Spec
	if raw.PostStopScript != "" {
		spec, err := command.Build(raw.PostStopScript, "", "", "", nil)
		if err != nil {
			return orchestrator.ServiceConfig{}, fmt.Errorf("service %q: post-stop-script: %w", name, err)
		}
		postStop = spec
	}

	svcCfg := orchestrator.ServiceConfig{Name: name, PostStop: postStop}
	// Scripts are decoded pair by pair from the mapping node so that they
	// keep their declaration order.
	for i := 0; i+1 < len(raw.Scripts.Content); i += 2 {
		scriptName := raw.Scripts.Content[i].Value
		var rs rawScript
		if err := raw.Scripts.Content[i+1].Decode(&rs); err != nil {
			return orchestrator.ServiceConfig{}, orcherr.NewConfigError("script %q: %v", name+"."+scriptName, err)
		}
		scriptCfg, err := buildScriptConfig(name, scriptName, rs)
		if err != nil {
			return orchestrator.ServiceConfig{}, err
		}
		svcCfg.Scripts = append(svcCfg.Scripts, scriptCfg)
	}
	return svcCfg, nil
}

func buildScriptConfig(serviceName, scriptName string, rs rawScript) (orchestrator.ScriptConfig, error) {
	fq := serviceName + "." + scriptName
	if rs.Command == "" {
		return orchestrator.ScriptConfig{}, orcherr.NewConfigError("script %q: command is required", fq)
	}

	env := map[string]string{}
	if rs.EnvFile != "" {
		wd := rs.Workdir
		if wd != "" {
			expanded, err := pathexpand.Expand(wd, "")
			if err != nil {
				return orchestrator.ScriptConfig{}, fmt.Errorf("script %q: %w", fq, err)
			}
			wd = expanded
		}
		envPath, err := pathexpand.Expand(rs.EnvFile, wd)
		if err != nil {
			return orchestrator.ScriptConfig{}, fmt.Errorf("script %q: env_file: %w", fq, err)
		}
		f, err := os.Open(envPath)
		if err != nil {
			return orchestrator.ScriptConfig{}, orcherr.NewConfigError("script %q: open env_file %s: %v", fq, envPath, err)
		}
		defer f.Close()
		parsed, err := envfile.Parse(envPath, f)
		if err != nil {
			return orchestrator.ScriptConfig{}, err
		}
		env = parsed
	}

	cmdSpec, err := command.Build(rs.Command, rs.LogFile, rs.LogFileErr, rs.Workdir, env)
	if err != nil {
		return orchestrator.ScriptConfig{}, fmt.Errorf("script %q: %w", fq, err)
	}

	ports := make([]orchestrator.PortTarget, 0, len(rs.WaitForPorts))
	for _, p := range rs.WaitForPorts {
		target, err := orchestrator.ParsePort(p)
		if err != nil {
			return orchestrator.ScriptConfig{}, fmt.Errorf("script %q: wait_for_ports: %w", fq, err)
		}
		ports = append(ports, target)
	}

	return orchestrator.ScriptConfig{
		Name:           scriptName,
		Command:        cmdSpec,
		WaitForPorts:   ports,
		WaitForScripts: rs.WaitUntilScriptsAreDone,
		Delay:          time.Duration(rs.Delay) * time.Second,
	}, nil
}

// mappingKeyOrder walks a decoded document node and returns the keys of
// the mapping found under root.<key>, in document order. It returns a nil
// slice, not an error, if key is absent.
func mappingKeyOrder(root *yaml.Node, key string) ([]string, error) {
	if len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, orcherr.NewConfigError("top level must be a mapping")
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != key {
			continue
		}
		mapping := doc.Content[i+1]
		if mapping.Kind != yaml.MappingNode {
			return nil, orcherr.NewConfigError("%s must be a mapping", key)
		}
		keys := make([]string, 0, len(mapping.Content)/2)
		for j := 0; j+1 < len(mapping.Content); j += 2 {
			keys = append(keys, mapping.Content[j].Value)
		}
		return keys, nil
	}
	return nil, nil
}
