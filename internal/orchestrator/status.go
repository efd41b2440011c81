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

// Package orchestrator implements the supervision and dependency
// scheduler: Scripts, Services, ServiceSets, the ScriptRegistry
// capability, and the ServiceManager that ties them together.
package orchestrator

// Status is one of the seven states a Script can be in.
type Status int

// Script states.
const (
	NotStarted Status = iota
	Starting
	Running
	Interrupted
	Finished
	Failed
	Killed
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Interrupted:
		return "interrupted"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	case Killed:
		return "killed"
	default:
		return "unknown"
	}
}

// Terminal reports whether this status ends a supervision cycle: a
// Finished, Failed, Killed, or Interrupted script runs nothing further
// until explicitly restarted.
func (s Status) Terminal() bool {
	switch s {
	case Finished, Failed, Killed, Interrupted:
		return true
	default:
		return false
	}
}

// Startable reports whether a new start is permitted from this status:
// every Terminal status, plus NotStarted itself.
func (s Status) Startable() bool {
	return s == NotStarted || s.Terminal()
}

// Cancellable reports whether stop has any effect from this status.
func (s Status) Cancellable() bool {
	return s == Starting || s == Running
}
