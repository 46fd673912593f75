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

// Package cli is the splitcore binary's command dispatcher, mirroring
// fortio_main.go's flag-registration-then-switch-on-cli.Command shape but
// trimmed to this engine's three subcommands: serve, replay and inspect.
package cli // import "splitcore.dev/splitcore/cli"

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"fortio.org/cli"
	"fortio.org/log"

	"splitcore.dev/splitcore/command"
	"splitcore.dev/splitcore/config"
	"splitcore.dev/splitcore/imagecache"
	"splitcore.dev/splitcore/metrics"
	"splitcore.dev/splitcore/persist"
	"splitcore.dev/splitcore/protocol"
	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/scripted"
	"splitcore.dev/splitcore/timer"
	"splitcore.dev/splitcore/timespan"
	"splitcore.dev/splitcore/util"
	"splitcore.dev/splitcore/version"
)

func helpArgsString() string {
	return "command\n" +
		"where command is one of: serve (run the command/event HTTP server),\n" +
		" replay (dispatch a scripted sequence of commands against a save file),\n" +
		" inspect (print a save file's segments and times),\n" +
		" or version (print version details)."
}

var (
	dataDirFlag = flag.String("data-dir", ".", "`directory` holding the save file and settings sidecar")
	saveFlag = flag.String("save-file", "run.lss", "save file `name` inside -data-dir")
	settingsFlag = flag.String("settings-file", "settings.toml", "settings sidecar `name` inside -data-dir")
	listenFlag = flag.String("listen", "8765", "address or `port` the command server listens on")
	scriptFlag = flag.String("script", "", "`path` to a grol script replayed through the command sink")

	tunables = config.NewTunables()
)

// registerTunables wires the Tunables bundle to real command line flags,
// generalizing bincommon.SharedMain's dflag.Flag registration calls to
// splitcore's own Config[T] adapter (flag.Func needs only the Set half).
func registerTunables() {
	flag.Func("decay-weight", tunables.DecayWeight.Usage(), tunables.DecayWeight.Set)
	flag.Func("balanced-pb-iterations", tunables.BalancedPBIterationBudget.Usage(), tunables.BalancedPBIterationBudget.Set)
	flag.Func("cleaner-iterations", tunables.CleanerIterationBudget.Usage(), tunables.CleanerIterationBudget.Set)
	flag.Func("histogram-resolution", tunables.HistogramResolution.Usage(), tunables.HistogramResolution.Set)
}

func saveFilePath() string {
	return joinDataDir(*saveFlag)
}

func settingsFilePath() string {
	return joinDataDir(*settingsFlag)
}

func joinDataDir(name string) string {
	dir := strings.TrimRight(*dataDirFlag, "/")
	if dir == "" || dir == "." {
		return name
	}
	return dir + "/" + name
}

// Main is the splitcore binary's entry point: parses flags through
// fortio.org/cli's bootstrap and dispatches to the requested subcommand.
func Main() {
	registerTunables()
	cli.ProgramName = "splitcore"
	cli.ArgsHelp = helpArgsString
	cli.CommandBeforeFlags = true
	cli.MinArgs = 0
	cli.MaxArgs = 0
	cli.Main()

	tunables.Apply()

	switch cli.Command {
	case "serve":
		serveCmd()
	case "replay":
		replayCmd()
	case "inspect":
		inspectCmd()
	case "version":
		fmt.Println(version.Long())
	default:
		cli.ErrUsage("Error: unknown command %q", cli.Command)
	}
}

func loadOrCreateRun(cache *imagecache.Cache) *run.Run {
	f, err := os.Open(saveFilePath())
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("opening %s: %v", saveFilePath(), err)
		}
		log.Infof("no save file at %s, starting a fresh run", saveFilePath())
		return run.New("Segment 1")
	}
	defer f.Close()
	r, err := persist.Parse(f, saveFilePath(), cache)
	if err != nil {
		log.Fatalf("parsing %s: %v", saveFilePath(), err)
	}
	return r
}

func saveRun(r *run.Run, cache *imagecache.Cache) {
	f, err := os.Create(saveFilePath())
	if err != nil {
		log.Errf("creating %s: %v", saveFilePath(), err)
		return
	}
	defer f.Close()
	if err := persist.Save(r, f, cache); err != nil {
		log.Errf("saving %s: %v", saveFilePath(), err)
		return
	}
	r.MarkUnmodified()
}

// serveCmd starts the HTTP command/event server over a Timer driving the
// run loaded from -data-dir, logging external changes to the settings and
// save files reported by a persist.Watcher (the files are not re-read while
// serving), and exporting command counters at /metrics.
func serveCmd() {
	settings, err := persist.LoadSettings(settingsFilePath())
	if err != nil {
		log.Fatalf("loading settings: %v", err)
	}
	settings.Apply()

	cache := imagecache.New()
	r := loadOrCreateRun(cache)
	tm := timer.New(r)

	local := command.NewLocal(tm)
	counted := metrics.NewCountingSink(local)
	server := protocol.NewServer(counted, tm)

	tm.AddListener(func(timer.Event) {
		saveRun(r, cache)
	})

	watcher, err := persist.NewWatcher(settingsFilePath(), saveFilePath(), reloadSink{})
	if err != nil {
		log.Fatalf("creating watcher: %v", err)
	}
	if err := watcher.Start(); err != nil {
		log.Fatalf("starting watcher: %v", err)
	}
	defer watcher.Stop()

	addr, err := util.NormalizePort(*listenFlag)
	if err != nil {
		log.Fatalf("invalid -listen %q: %v", *listenFlag, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", server.Handler())
	mux.HandleFunc("/metrics", counted.Counters.Exporter)

	log.Infof("splitcore %s listening on %s", version.Short(), addr)
	if err := http.ListenAndServe(addr, mux); err != nil { //nolint:gosec // timeouts aren't load bearing for a local tool
		log.Fatalf("serve: %v", err)
	}
}

// reloadSink logs the reload notification a Watcher emits. It does not
// re-read either file: settings and the run are loaded from disk once, at
// serve startup.
type reloadSink struct{}

func (reloadSink) OnEvent(e timer.Event) {
	log.Infof("splitcore: reload notification: %v", e)
}

// replayCmd dispatches a scripted sequence of commands (per -script) against
// the run at -data-dir, saving the result afterward.
func replayCmd() {
	if *scriptFlag == "" {
		cli.ErrUsage("Error: replay requires -script")
	}
	f, err := os.Open(*scriptFlag)
	if err != nil {
		log.Fatalf("opening %s: %v", *scriptFlag, err)
	}
	defer f.Close()

	cache := imagecache.New()
	r := loadOrCreateRun(cache)
	tm := timer.New(r)
	sink := scripted.NewSink(command.NewLocal(tm))

	responses, err := sink.Run(f)
	if err != nil {
		log.Errf("replay: %v", err)
	}
	for i, resp := range responses {
		if resp.ErrorText != "" {
			fmt.Printf("%d: error: %s\n", i, resp.ErrorText)
			continue
		}
		fmt.Printf("%d: %v\n", i, resp.Event)
	}
	saveRun(r, cache)
}

// inspectCmd prints a human-readable summary of the run at -data-dir.
func inspectCmd() {
	cache := imagecache.New()
	r := loadOrCreateRun(cache)
	fmt.Printf("%s - %s\n", r.GameName(), r.CategoryName())
	fmt.Printf("%d segments, %d attempts recorded\n", r.SegmentCount(), len(r.AttemptHistory()))
	for i := 0; i < r.SegmentCount(); i++ {
		s := r.Segment(i)
		fmt.Printf(" %2d. %-24s pb=%s best-segment=%s\n",
			i+1, s.Name(), formatTime(s.PersonalBestSplitTime()), formatTime(s.BestSegmentTime()))
	}
}

// formatTime renders a Time's real-time side, falling back to game time,
// since the inspect summary has one column per segment, not one per method.
func formatTime(t timespan.Time) string {
	if v, ok := t.Get(timespan.RealTime); ok {
		return v.String()
	}
	if v, ok := t.Get(timespan.GameTime); ok {
		return v.String() + " (game)"
	}
	return "-"
}
