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

import "testing"

func TestStatusTerminalAndStartable(t *testing.T) {
	cases := []struct {
		status     Status
		terminal   bool
		startable  bool
		cancelable bool
	}{
		{NotStarted, false, true, false},
		{Starting, false, false, true},
		{Running, false, false, true},
		{Interrupted, true, true, false},
		{Finished, true, true, false},
		{Failed, true, true, false},
		{Killed, true, true, false},
	}
	for _, c := range cases {
		if got := c.status.Terminal(); got != c.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", c.status, got, c.terminal)
		}
		if got := c.status.Startable(); got != c.startable {
			t.Errorf("%s.Startable() = %v, want %v", c.status, got, c.startable)
		}
		if got := c.status.Cancellable(); got != c.cancelable {
			t.Errorf("%s.Cancellable() = %v, want %v", c.status, got, c.cancelable)
		}
	}
}

func TestStatusString(t *testing.T) {
	if Status(99).String() != "unknown" {
		t.Errorf("Status(99).String() = %q, want unknown", Status(99).String())
	}
	if NotStarted.String() != "not started" {
		t.Errorf("NotStarted.String() = %q, want %q", NotStarted.String(), "not started")
	}
}
