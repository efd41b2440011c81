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

// Registry is the capability Scripts require from the surrounding system
// to evaluate their waitForScripts dependencies, without holding direct
// references to their peers. It breaks the cycle "Script needs to look at
// other Scripts": Scripts hold a Registry, never a map of siblings.
type Registry interface {
	// ScriptExists reports whether fq ("service.script") names a script
	// that exists in the current configuration.
	ScriptExists(fq string) bool
	// ScriptStatus reports the current status of fq. Unknown names
	// report NotStarted rather than erroring, so a logic error here
	// cannot manifest as a panic — see the design notes on why this is
	// only reachable when waitForScripts validation has already failed
	// to catch a dangling reference.
	ScriptStatus(fq string) Status
}

// registryView is a read-only view over the Services collection owned by
// a ServiceManager. It never mutates or owns that collection.
type registryView struct {
	services map[string]*Service
}

func newRegistryView() *registryView {
	return &registryView{services: make(map[string]*Service)}
}

func (r *registryView) ScriptExists(fq string) bool {
	svcName, scriptName, err := SplitName(fq)
	if err != nil {
		return false
	}
	sv, ok := r.services[svcName]
	if !ok {
		return false
	}
	_, ok = sv.scripts[scriptName]
	return ok
}

func (r *registryView) ScriptStatus(fq string) Status {
	svcName, scriptName, err := SplitName(fq)
	if err != nil {
		return NotStarted
	}
	sv, ok := r.services[svcName]
	if !ok {
		return NotStarted
	}
	sc, ok := sv.scripts[scriptName]
	if !ok {
		return NotStarted
	}
	return sc.Status()
}
