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

package command

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "/bin/echo hello world", []string{"/bin/echo", "hello", "world"}},
		{"quoted", `/bin/echo "hello world" again`, []string{"/bin/echo", "hello world", "again"}},
		{"extra spaces", "  a   b  ", []string{"a", "b"}},
		{"quoted empty", `a "" b`, []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestBuildAndRunSync(t *testing.T) {
	spec, err := Build(`/bin/echo "hello world"`, "", "", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if spec.Program != "/bin/echo" {
		t.Fatalf("Program = %q, want /bin/echo", spec.Program)
	}
	if diff := cmp.Diff([]string{"hello world"}, spec.Argv); diff != "" {
		t.Errorf("Argv mismatch (-want +got):\n%s", diff)
	}

	var dryRunOut bytes.Buffer
	if err := spec.RunSync(true, &dryRunOut); err != nil {
		t.Fatalf("dry-run RunSync returned error: %v", err)
	}
	if dryRunOut.Len() == 0 {
		t.Error("dry-run RunSync produced no output")
	}
}

func TestRunAsyncAndKill(t *testing.T) {
	spec, err := Build("/bin/sleep 5", "", "", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	h, err := spec.RunAsync(false, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if done, _ := h.TryWait(); done {
		t.Fatal("child reported done immediately after start")
	}
	if err := h.Kill(200 * time.Millisecond); err != nil {
		t.Fatalf("Kill returned error: %v", err)
	}
	done, err := h.TryWait()
	if !done || err != nil {
		t.Fatalf("TryWait after Kill = (%v, %v), want (true, nil)", done, err)
	}
}

func TestBuildEmptyCommand(t *testing.T) {
	if _, err := Build("   ", "", "", "", nil); err == nil {
		t.Error("expected error for empty command")
	}
}
