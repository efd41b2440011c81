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

func TestSplitName(t *testing.T) {
	cases := []struct {
		in          string
		service     string
		script      string
		expectError bool
	}{
		{"svc.s1", "svc", "s1", false},
		{"svc", "", "", true},
		{"svc.s1.extra", "", "", true},
		{".s1", "", "", true},
		{"svc.", "", "", true},
		{"", "", "", true},
	}
	for _, c := range cases {
		svc, script, err := SplitName(c.in)
		if c.expectError {
			if err == nil {
				t.Errorf("SplitName(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("SplitName(%q): unexpected error: %v", c.in, err)
			continue
		}
		if svc != c.service || script != c.script {
			t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)", c.in, svc, script, c.service, c.script)
		}
	}
}

func TestParsePort(t *testing.T) {
	cases := []struct {
		in          string
		host        string
		port        int
		expectError bool
	}{
		{"8080", "localhost", 8080, false},
		{"redis:6379", "redis", 6379, false},
		{"0", "", 0, true},
		{"65536", "", 0, true},
		{"abc", "", 0, true},
		{"a:b:c", "", 0, true},
		{":9000", "localhost", 9000, false},
		{"65535", "localhost", 65535, false},
		{"1", "localhost", 1, false},
	}
	for _, c := range cases {
		got, err := ParsePort(c.in)
		if c.expectError {
			if err == nil {
				t.Errorf("ParsePort(%q): expected error, got %+v", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePort(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got.Host != c.host || got.Port != c.port {
			t.Errorf("ParsePort(%q) = %+v, want {%s %d}", c.in, got, c.host, c.port)
		}
	}
}
