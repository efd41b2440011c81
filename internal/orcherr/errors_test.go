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

package orcherr

import (
	"errors"
	"strings"
	"testing"
)

func TestAggregatedNilWhenEmpty(t *testing.T) {
	if err := NewAggregated("stop", []string{"a", "b"}, nil); err != nil {
		t.Fatalf("NewAggregated with no failures = %v, want nil", err)
	}
}

func TestAggregatedPartialFailureOmitsSucceeded(t *testing.T) {
	ordered := []string{"web", "worker", "cache"}
	failed := map[string]error{"worker": errors.New("boom")}
	err := NewAggregated("stop", ordered, failed)
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "worker (boom)") {
		t.Errorf("Error() = %q, want it to mention worker's failure", msg)
	}
	if strings.Contains(msg, "web (") || strings.Contains(msg, "cache (") {
		t.Errorf("Error() = %q, should not mention services that did not fail", msg)
	}
}
