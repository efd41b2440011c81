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

import "cirello.io/runnerd/internal/orcherr"

// ServiceSet is a named union of service names, the target of `up`.
type ServiceSet struct {
	Name    string
	Members []string // declaration order, deduplicated
}

// ServiceSetConfig is the raw, unexpanded declaration of a service set:
// an optional list of previously-declared sets to include, plus a
// required, non-empty list of this set's own services.
type ServiceSetConfig struct {
	Name     string
	Includes []string
	Services []string
}

// expandServiceSets resolves includes against already-expanded sets, in
// declaration order, validating that every referenced service exists in
// services and every included set was declared earlier.
func expandServiceSets(configs []ServiceSetConfig, services map[string]*Service) (map[string]*ServiceSet, error) {
	expanded := make(map[string]*ServiceSet, len(configs))
	for _, cfg := range configs {
		if len(cfg.Services) == 0 {
			return nil, orcherr.NewConfigError("service-set %q: services must be non-empty", cfg.Name)
		}
		seen := make(map[string]struct{})
		var members []string
		add := func(name string) {
			if _, ok := seen[name]; ok {
				return
			}
			seen[name] = struct{}{}
			members = append(members, name)
		}
		for _, include := range cfg.Includes {
			includedSet, ok := expanded[include]
			if !ok {
				return nil, orcherr.NewConfigError("service-set %q: includes undeclared or forward-declared set %q", cfg.Name, include)
			}
			for _, m := range includedSet.Members {
				add(m)
			}
		}
		for _, svcName := range cfg.Services {
			if _, ok := services[svcName]; !ok {
				return nil, orcherr.NewConfigError("service-set %q: references unknown service %q", cfg.Name, svcName)
			}
			add(svcName)
		}
		expanded[cfg.Name] = &ServiceSet{Name: cfg.Name, Members: members}
	}
	return expanded, nil
}
