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

// Package editor implements structural and per-field mutation of a Run
// between attempts: segment insert/move/remove, split- and
// best-segment-time edits with their segment-history rewrite rules,
// comparison management, and Goal Comparison generation via skillcurve.
package editor // import "splitcore.dev/splitcore/editor"

import (
	"errors"

	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/segment"
	"splitcore.dev/splitcore/skillcurve"
	"splitcore.dev/splitcore/timespan"
)

// Errors returned by Editor operations beyond those already defined on Run.
var (
	ErrNoActiveSegment = errors.New("editor: no active segment selected")
	ErrIndexOutOfRange = errors.New("editor: segment index out of range")
)

// Editor owns a Run exclusively while open and tracks the current selection:
// a set of segment indices plus a distinguished active one. Selection and
// timing-method changes never mark the Run modified; every other mutation
// does.
type Editor struct {
	r *run.Run
	selected run.SelectionSet
	active int // -1 when nothing is selected
}

// Open returns an Editor taking exclusive ownership of r.
func Open(r *run.Run) *Editor {
	return &Editor{r: r, selected: run.NewSelectionSet(), active: -1}
}

// Run returns the Run being edited.
func (e *Editor) Run() *run.Run { return e.r }

// Close releases the Editor's hold on the Run. It performs no I/O; callers
// persist separately.
func (e *Editor) Close() {
	e.r = nil
}

// Selection returns the current selection set and the active index (-1 if none).
func (e *Editor) Selection() (run.SelectionSet, int) {
	return e.selected, e.active
}

// Select replaces the selection, making active the distinguished index.
// Selection changes never mark the Run modified.
func (e *Editor) Select(active int, others...int) error {
	if active < 0 || active >= e.r.SegmentCount() {
		return ErrIndexOutOfRange
	}
	e.selected = run.NewSelectionSet(others...)
	e.selected.Add(active)
	e.active = active
	return nil
}

// ActiveSegment returns the segment at the active selection index.
func (e *Editor) ActiveSegment() (*segment.Segment, error) {
	if e.active < 0 {
		return nil, ErrNoActiveSegment
	}
	return e.r.Segment(e.active), nil
}

// --- Structural edits ---

// InsertAbove inserts a new segment named name above idx.
func (e *Editor) InsertAbove(idx int, name string) error {
	return e.r.InsertSegment(idx, segment.New(name))
}

// InsertBelow inserts a new segment named name below idx.
func (e *Editor) InsertBelow(idx int, name string) error {
	return e.r.InsertSegment(idx+1, segment.New(name))
}

// Remove deletes the segment at idx, failing if it would leave zero segments.
func (e *Editor) Remove(idx int) error {
	if err := e.r.RemoveSegment(idx); err != nil {
		return err
	}
	e.clampSelectionAfterRemoval(idx)
	return nil
}

func (e *Editor) clampSelectionAfterRemoval(removedIdx int) {
	if e.active == removedIdx {
		e.active = -1
	} else if e.active > removedIdx {
		e.active--
	}
}

// MoveUp swaps idx with idx-1, failing at the top boundary.
func (e *Editor) MoveUp(idx int) error {
	if idx <= 0 {
		return run.ErrIndexOutOfRange
	}
	return e.r.MoveSegment(idx, idx-1)
}

// MoveDown swaps idx with idx+1, failing at the bottom boundary.
func (e *Editor) MoveDown(idx int) error {
	if idx >= e.r.SegmentCount()-1 {
		return run.ErrIndexOutOfRange
	}
	return e.r.MoveSegment(idx, idx+1)
}

// --- Time edits ---

// SetSplitTime sets segment idx's split_time, an accumulated value, and
// leaves other segments' split times untouched.
func (e *Editor) SetSplitTime(idx int, t timespan.Time) error {
	if idx < 0 || idx >= e.r.SegmentCount() {
		return ErrIndexOutOfRange
	}
	e.r.Segment(idx).SetSplitTime(t)
	e.r.MarkModified()
	return nil
}

// ClearSplitTime empties segment idx's split_time.
func (e *Editor) ClearSplitTime(idx int) error {
	if idx < 0 || idx >= e.r.SegmentCount() {
		return ErrIndexOutOfRange
	}
	e.r.Segment(idx).ClearSplitTime()
	e.r.MarkModified()
	return nil
}

// SetSegmentTime sets the segment time (the per-leg, non-cumulative value)
// at idx by adjusting split_time relative to the previous segment's
// split_time, keeping accumulated split times consistent (
// 2 "recompute adjacent times as needed").
func (e *Editor) SetSegmentTime(idx int, method timespan.TimingMethod, segTime timespan.TimeSpan) error {
	if idx < 0 || idx >= e.r.SegmentCount() {
		return ErrIndexOutOfRange
	}
	var base timespan.TimeSpan
	if idx > 0 {
		v, ok := e.r.Segment(idx - 1).SplitTime().Get(method)
		if !ok {
			return errInconsistentChain
		}
		base = v
	}
	cur := e.r.Segment(idx).SplitTime()
	cur.Set(method, base.Add(segTime))
	e.r.Segment(idx).SetSplitTime(cur)
	e.r.MarkModified()
	return nil
}

var errInconsistentChain = errors.New("editor: preceding segment has no split time on that timing method")

// SetBestSegmentTime sets segment idx's best_segment_time, and rewrites the
// segment's history: the most recent history entry is overwritten to match
// the new best (every stored segment time was, by construction, >= the old
// best, so nothing else changes).
func (e *Editor) SetBestSegmentTime(idx int, t timespan.Time) error {
	if idx < 0 || idx >= e.r.SegmentCount() {
		return ErrIndexOutOfRange
	}
	s := e.r.Segment(idx)
	s.SetBestSegmentTime(t)
	if mostRecent, ok := mostRecentHistoryIndex(s); ok {
		s.History().Set(mostRecent, t)
	}
	e.r.MarkModified()
	return nil
}

// ClearBestSegmentTime clears segment idx's best_segment_time for method and,
//'s entire history: every
// stored segment time was by construction >= the old best, so the best's
// absence invalidates the whole record.
func (e *Editor) ClearBestSegmentTime(idx int, method timespan.TimingMethod) error {
	if idx < 0 || idx >= e.r.SegmentCount() {
		return ErrIndexOutOfRange
	}
	s := e.r.Segment(idx)
	s.ClearBestSegmentTime(method)
	s.ClearHistory()
	e.r.MarkModified()
	return nil
}

func mostRecentHistoryIndex(s *segment.Segment) (int32, bool) {
	var best int32
	found := false
	s.History().IterIndexOrder(func(idx int32, _ timespan.Time) {
		if !found || idx > best {
			best = idx
			found = true
		}
	})
	return best, found
}

// SetComparisonTime sets an arbitrary comparison entry on segment idx.
func (e *Editor) SetComparisonTime(idx int, name string, t timespan.Time) error {
	if idx < 0 || idx >= e.r.SegmentCount() {
		return ErrIndexOutOfRange
	}
	if !e.r.HasComparison(name) {
		return run.ErrComparisonNotFound
	}
	e.r.Segment(idx).SetComparison(name, t)
	e.r.MarkModified()
	return nil
}

// --- Comparisons ---

// AddComparison registers a new comparison, failing on name collision or a
// reserved name.
func (e *Editor) AddComparison(name string) error { return e.r.AddComparison(name) }

// RemoveComparison deletes a comparison.
func (e *Editor) RemoveComparison(name string) error { return e.r.RemoveComparison(name) }

// RenameComparison renames a comparison, failing likewise on collision.
func (e *Editor) RenameComparison(oldName, newName string) error {
	return e.r.RenameComparison(oldName, newName)
}

// ImportComparison copies a comparison's per-segment times from other, a
// structurally identical Run.
func (e *Editor) ImportComparison(name string, other *run.Run) error {
	return e.r.ImportComparison(name, other)
}

// The Editor has no operation that reorders comparisons; comparisons in this
// data model are keyed by name, not by a display order the Editor owns.

// GenerateGoalComparison runs the Balanced-PB percentile solver against
// target and writes the result into a comparison named name (creating it if
// absent)
func (e *Editor) GenerateGoalComparison(name string, method timespan.TimingMethod, target timespan.TimeSpan) error {
	if !e.r.HasComparison(name) {
		if err := e.r.AddComparison(name); err != nil {
			return err
		}
	}
	curves := skillcurve.BuildAll(e.r, method)
	splits, _ := skillcurve.Solve(curves, target)
	for i, cum := range splits {
		t, _ := e.r.Segment(i).Comparison(name)
		t.Set(method, cum)
		e.r.Segment(i).SetComparison(name, t)
	}
	e.r.MarkModified()
	return nil
}

// --- Metadata ---

// SetGameName/SetCategoryName/SetOffset/SetAttemptCount/SetLinkedLayout
// forward directly to the Run; each already marks the Run modified only on
// an actual value change.
func (e *Editor) SetGameName(name string) { e.r.SetGameName(name) }
func (e *Editor) SetCategoryName(name string) { e.r.SetCategoryName(name) }
func (e *Editor) SetOffset(o timespan.TimeSpan) { e.r.SetOffset(o) }
func (e *Editor) SetAttemptCount(c uint64) { e.r.SetAttemptCount(c) }
func (e *Editor) SetLinkedLayout(path string) { e.r.SetLinkedLayout(path) }

// SetRegion/SetPlatform/SetEmulator/SetVariable/SetCustomVariable mutate the
// Run's free-form Metadata block.
func (e *Editor) SetRegion(region string) {
	e.r.Metadata().Region = region
	e.r.MarkModified()
}

func (e *Editor) SetPlatform(platform string) {
	e.r.Metadata().Platform = platform
	e.r.MarkModified()
}

func (e *Editor) SetEmulator(emulator bool) {
	e.r.Metadata().Emulator = emulator
	e.r.MarkModified()
}

func (e *Editor) SetVariable(key, value string) {
	e.r.Metadata().Variables[key] = value
	e.r.MarkModified()
}

func (e *Editor) SetCustomVariable(key, value string) {
	e.r.Metadata().CustomVariables[key] = value
	e.r.MarkModified()
}

// --- Bulk clears ---

// ClearHistory empties every segment's history.
func (e *Editor) ClearHistory() {
	for i := 0; i < e.r.SegmentCount(); i++ {
		e.r.Segment(i).ClearHistory()
	}
	e.r.MarkModified()
}

// ClearTimes empties every split time, best-segment time, and comparison
// time except Personal Best
func (e *Editor) ClearTimes() {
	for i := 0; i < e.r.SegmentCount(); i++ {
		s := e.r.Segment(i)
		s.ClearSplitTime()
		s.ClearBestSegmentTime(timespan.RealTime)
		s.ClearBestSegmentTime(timespan.GameTime)
		var toReset []string
		s.Comparisons(func(name string, _ timespan.Time) {
			if name != segment.PersonalBestComparisonName {
				toReset = append(toReset, name)
			}
		})
		for _, name := range toReset {
			s.SetComparison(name, timespan.Time{})
		}
	}
	e.r.MarkModified()
}
