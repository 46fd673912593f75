// Copyright 2023 Fortio Authors
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

// Package metrics provides a minimal metrics export package for splitcore,
// counting commands dispatched through a command.Sink.
package metrics // import "splitcore.dev/splitcore/metrics"

import (
	"io"
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"

	"fortio.org/log"
	"fortio.org/scli"
	"splitcore.dev/splitcore/command"
)

// Counters tracks command throughput, one atomic counter per Name plus a
// running total and a failure count.
type Counters struct {
	total atomic.Int64
	failures atomic.Int64
	byName map[command.Name]*atomic.Int64
}

// NewCounters returns a zeroed Counters.
func NewCounters() *Counters {
	return &Counters{byName: make(map[command.Name]*atomic.Int64)}
}

func (c *Counters) counterFor(name command.Name) *atomic.Int64 {
	if ctr, ok := c.byName[name]; ok {
		return ctr
	}
	ctr := &atomic.Int64{}
	c.byName[name] = ctr
	return ctr
}

// record increments the per-name and total counters, and the failure
// counter when resp carries an error.
func (c *Counters) record(name command.Name, resp command.Response) {
	c.counterFor(name).Add(1)
	c.total.Add(1)
	if resp.ErrorText != "" {
		c.failures.Add(1)
	}
}

// CountingSink wraps a command.Sink, recording one Counters entry per
// Dispatch call before forwarding to the underlying sink.
type CountingSink struct {
	Sink command.Sink
	Counters *Counters
}

// NewCountingSink wraps sink with a fresh Counters.
func NewCountingSink(sink command.Sink) *CountingSink {
	return &CountingSink{Sink: sink, Counters: NewCounters()}
}

// Dispatch forwards to the wrapped Sink and records the outcome.
func (c *CountingSink) Dispatch(req command.Request) command.Response {
	resp := c.Sink.Dispatch(req)
	c.Counters.record(req.Command, resp)
	return resp
}

// Exporter writes minimal prometheus style metrics to the
// http.ResponseWriter, reading c's counters and the process' goroutine
// count.
func (c *Counters) Exporter(w http.ResponseWriter, r *http.Request) {
	log.LogRequest(r, "metrics")
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, `# HELP splitcore_open_fds Number of open file descriptors
# TYPE splitcore_open_fds gauge
splitcore_open_fds `)
	_, _ = io.WriteString(w, strconv.Itoa(scli.NumFD()))
	_, _ = io.WriteString(w, `
# HELP splitcore_commands_total Number of commands dispatched
# TYPE splitcore_commands_total counter
splitcore_commands_total `)
	_, _ = io.WriteString(w, strconv.FormatInt(c.total.Load(), 10))
	_, _ = io.WriteString(w, `
# HELP splitcore_command_failures_total Number of commands that returned an error
# TYPE splitcore_command_failures_total counter
splitcore_command_failures_total `)
	_, _ = io.WriteString(w, strconv.FormatInt(c.failures.Load(), 10))
	_, _ = io.WriteString(w, `
# HELP splitcore_goroutines Current number of goroutines
# TYPE splitcore_goroutines gauge
splitcore_goroutines `)
	_, _ = io.WriteString(w, strconv.FormatInt(int64(runtime.NumGoroutine()), 10))
	for name, ctr := range c.byName {
		_, _ = io.WriteString(w, "\n# TYPE splitcore_command_total counter\nsplitcore_command_total{command=\""+string(name)+"\"} ")
		_, _ = io.WriteString(w, strconv.FormatInt(ctr.Load(), 10))
	}
	_, _ = io.WriteString(w, "\n")
}
