// Copyright 2017 Fortio Authors
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

// Package scripted bridges the grol scripting engine into two roles: a
// Generator that lets a user derive a custom comparison from a grol
// expression without recompiling, and a Sink that replays a scripted
// sequence of commands against a wrapped command.Sink for integration
// testing.
package scripted // import "splitcore.dev/splitcore/scripted"

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"grol.io/grol/eval"
	"grol.io/grol/repl"

	"splitcore.dev/splitcore/command"
	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/timespan"
)

// evalOptions runs with ShowEval:true so every top-level expression's value
// is printed to the REPL's output writer — the mechanism both Generator and
// Sink below rely on to get structured results out of an evaluated script.
var evalOptions = repl.Options{ShowEval: true}

// Generator builds a comparison.Generator-shaped function (segments,
// attempts) -> void from a grol script. The script is evaluated once per
// Run application; its printed lines (one per segment, in order) are
// parsed as a number of seconds and written as that segment's comparison
// time for the given timing method. A line that fails to parse leaves the
// corresponding segment's comparison time untouched rather than aborting
// the whole run, since a user-authored script malfunctioning on one
// segment shouldn't corrupt the rest.
func Generator(comparisonName string, method timespan.TimingMethod, script string) func(r *run.Run) {
	return func(r *run.Run) {
		lines, err := evalLines(script)
		if err != nil {
			return
		}
		for i := 0; i < r.SegmentCount() && i < len(lines); i++ {
			seconds, err := parseSeconds(lines[i])
			if err != nil {
				continue
			}
			s := r.Segment(i)
			t, _ := s.Comparison(comparisonName)
			t.Set(method, timespan.FromSeconds(seconds))
			s.SetComparison(comparisonName, t)
		}
	}
}

func parseSeconds(line string) (float64, error) {
	var seconds float64
	_, err := fmt.Sscanf(unquote(line), "%g", &seconds)
	return seconds, err
}

// unquote strips a single layer of surrounding double quotes, since grol
// (like most scripting REPLs) prints string results quoted.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// evalLines runs script through a fresh grol eval.State with ShowEval
// enabled and returns every non-blank line the REPL printed.
func evalLines(script string) ([]string, error) {
	state := eval.NewState()
	var out strings.Builder
	errs := repl.EvalAll(state, strings.NewReader(script), &out, evalOptions)
	if len(errs) > 0 {
		return nil, fmt.Errorf("scripted: evaluating script: %v", errs)
	}
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, unquote(line))
		}
	}
	return lines, nil
}

// Sink wraps a command.Sink, replaying a grol-scripted sequence of
// commands against it. Each printed line from the script (again relying on
// ShowEval) is treated as a command.Name and dispatched in order, letting
// integration tests drive a command.Sink from a textual script instead of
// hand-written Go Dispatch calls.
type Sink struct {
	inner command.Sink
}

// NewSink wraps inner.
func NewSink(inner command.Sink) *Sink {
	return &Sink{inner: inner}
}

// Run evaluates script and dispatches one command per printed line,
// returning every Response in order. Every printed line is dispatched; a
// line that is not a known command name gets the inner Sink's error
// Response and the replay goes on. Evaluation errors do not stop the
// replay either: they are returned, alongside all Responses, once the
// script has finished.
func (s *Sink) Run(script io.Reader) ([]command.Response, error) {
	state := eval.NewState()
	pr, pw := io.Pipe()
	evalErrs := make(chan []error, 1)
	go func() {
		errs := repl.EvalAll(state, script, pw, evalOptions)
		evalErrs <- errs
		_ = pw.Close()
	}()

	var responses []command.Response
	scanner := bufio.NewScanner(pr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		resp := s.inner.Dispatch(command.Request{Command: command.Name(unquote(line))})
		responses = append(responses, resp)
	}
	if errs := <-evalErrs; len(errs) > 0 {
		return responses, fmt.Errorf("scripted: script evaluation errors: %v", errs)
	}
	return responses, nil
}
