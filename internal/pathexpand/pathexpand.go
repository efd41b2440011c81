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

// Package pathexpand expands the small set of tokens ($PWD, ~, $WD) that
// runnerd allows inside user-supplied strings such as commands, workdirs,
// and log file paths. It performs no other shell-like substitution.
package pathexpand

import (
	"os"
	"strings"

	"cirello.io/runnerd/internal/orcherr"
)

// Expand replaces $PWD, ~, and $WD wherever they occur in s. workdir, when
// non-empty, supplies the value substituted for $WD; if workdir is empty,
// $WD is left untouched rather than treated as an error, since callers such
// as init-command and shutdown-command have no workdir of their own to
// offer. $PWD is always the process's current working directory; ~ is
// always the user's home directory. It returns a ConfigError if either of
// those cannot be resolved but is referenced in s.
func Expand(s, workdir string) (string, error) {
	if strings.Contains(s, "$PWD") {
		pwd, err := os.Getwd()
		if err != nil {
			return "", orcherr.NewConfigError("cannot expand $PWD: %v", err)
		}
		s = strings.ReplaceAll(s, "$PWD", pwd)
	}
	if strings.Contains(s, "~") {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return "", orcherr.NewConfigError("cannot expand ~: no home directory available")
		}
		s = strings.ReplaceAll(s, "~", home)
	}
	if workdir != "" && strings.Contains(s, "$WD") {
		s = strings.ReplaceAll(s, "$WD", workdir)
	}
	return s, nil
}
