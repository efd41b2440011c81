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

package control

import (
	"strings"

	"cirello.io/runnerd/internal/orcherr"
	"cirello.io/runnerd/internal/orchestrator"
)

// Dispatch tokenizes line on spaces and runs the verb table from the
// control protocol against m. Every error is written to w and also
// returned (the caller decides whether that's fatal); the one exception is
// a shutdown error under "exit", which is written to w but not returned.
// exit reports whether the caller should terminate the process after this
// call, as required by the "exit" verb.
func Dispatch(m *orchestrator.Manager, w *Writer, line string, dryRun bool) (exit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, report(w, orcherr.NewInvalidCommand("empty command"))
	}
	verb, args := fields[0], fields[1:]

	switch verb {
	case "up":
		if len(args) != 1 {
			return false, report(w, orcherr.NewInvalidCommand("up: wants exactly 1 argument, got %d", len(args)))
		}
		return false, report(w, m.Up(args[0], dryRun, w))

	case "down":
		if len(args) != 0 {
			return false, report(w, orcherr.NewInvalidCommand("down: wants 0 arguments, got %d", len(args)))
		}
		return false, report(w, m.Shutdown(dryRun, w))

	case "start":
		return false, report(w, startOrStop(m, args, false, dryRun, w))

	case "force-start":
		return false, report(w, startOrStop(m, args, true, dryRun, w))

	case "stop":
		if len(args) == 0 {
			return false, report(w, orcherr.NewInvalidCommand("stop: wants at least 1 argument"))
		}
		return false, report(w, stopNames(m, args, dryRun, w))

	case "status":
		return false, report(w, m.ReportStatus(w, args...))

	case "wait_for_scripts":
		if len(args) == 0 {
			return false, report(w, orcherr.NewInvalidCommand("wait_for_scripts: wants at least 1 argument"))
		}
		return false, report(w, m.WaitForScripts(args))

	case "exit":
		if len(args) != 0 {
			return false, report(w, orcherr.NewInvalidCommand("exit: wants 0 arguments, got %d", len(args)))
		}
		shutdownErr := m.Shutdown(dryRun, w)
		report(w, shutdownErr)
		return true, nil

	default:
		return false, report(w, orcherr.NewInvalidCommand("unknown verb %q", verb))
	}
}

// startOrStop implements the shared "start"/"force-start" rule: names
// containing a '.' target a single script, everything else targets a
// whole service.
func startOrStop(m *orchestrator.Manager, names []string, forced, dryRun bool, w *Writer) error {
	if len(names) == 0 {
		return orcherr.NewInvalidCommand("start: wants at least 1 argument")
	}
	for _, name := range names {
		var err error
		if strings.Contains(name, ".") {
			err = m.StartScript(name, forced, dryRun, w)
		} else {
			err = m.StartService(name, forced, dryRun, w)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func stopNames(m *orchestrator.Manager, names []string, dryRun bool, w *Writer) error {
	for _, name := range names {
		var err error
		if strings.Contains(name, ".") {
			err = m.StopScript(name, w)
		} else {
			err = m.StopService(name, dryRun, w)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// report writes err to w if non-nil, and always returns it so callers can
// chain `return false, report(w, err)`.
func report(w *Writer, err error) error {
	if err != nil {
		w.WriteLine("error: " + err.Error())
	}
	return err
}
