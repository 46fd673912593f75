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

package persist

import (
	"fmt"
	"path/filepath"

	"fortio.org/log"
	"github.com/fsnotify/fsnotify"
	"splitcore.dev/splitcore/command"
	"splitcore.dev/splitcore/timer"
)

// Watcher watches the TOML settings sidecar and the native XML save file
// for external edits (e.g. a foreign tool rewriting the splits file on
// disk) and republishes a timer.EventReloaded through an EventSink, a
// watch-and-reload loop adapted from watching a directory of flag files to
// watching a pair of individual files.
type Watcher struct {
	settingsPath string
	savePath string
	sink command.EventSink
	watcher *fsnotify.Watcher
	started bool
	done chan struct{}
}

// NewWatcher creates a Watcher over settingsPath and savePath, reporting
// reload notifications to sink. Either path may be empty to skip watching
// it.
func NewWatcher(settingsPath, savePath string, sink command.EventSink) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("persist: initializing fsnotify watcher: %w", err)
	}
	return &Watcher{settingsPath: settingsPath, savePath: savePath, sink: sink, watcher: fw}, nil
}

// Start begins watching the parent directories of both paths (fsnotify
// watches directories, not individual files, so renames/atomic
// replace-on-save are still observed) and launches the background
// watchForUpdates goroutine.
func (w *Watcher) Start() error {
	if w.started {
		return fmt.Errorf("persist: watcher already started")
	}
	dirs := map[string]bool{}
	if w.settingsPath != "" {
		dirs[filepath.Dir(w.settingsPath)] = true
	}
	if w.savePath != "" {
		dirs[filepath.Dir(w.savePath)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("persist: watching %q: %w", dir, err)
		}
	}
	w.started = true
	w.done = make(chan struct{})
	go w.watchForUpdates()
	return nil
}

// Stop ends the background watch goroutine.
func (w *Watcher) Stop() error {
	if !w.started {
		return fmt.Errorf("persist: watcher not started")
	}
	close(w.done)
	_ = w.watcher.Close()
	w.started = false
	return nil
}

func (w *Watcher) watchForUpdates() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.matches(event.Name) {
				continue
			}
			switch event.Op {
			case fsnotify.Write, fsnotify.Create, fsnotify.Rename:
				log.LogVf("persist: detected external change to %v (%v), notifying", event.Name, event.Op)
				w.sink.OnEvent(timer.EventReloaded)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errf("persist: watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) matches(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		abs = name
	}
	return samePath(abs, w.settingsPath) || samePath(abs, w.savePath)
}

func samePath(candidate, target string) bool {
	if target == "" {
		return false
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		absTarget = target
	}
	return candidate == absTarget
}
