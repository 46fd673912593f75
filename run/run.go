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

// Package run holds the Run aggregate: ordered segments, attempt history,
// custom comparisons and metadata. Run is the unit a Timer
// exclusively owns while an attempt is active and an Editor exclusively
// owns between attempts.
package run // import "splitcore.dev/splitcore/run"

import (
	"errors"
	"time"

	"fortio.org/sets"
	"splitcore.dev/splitcore/segment"
	"splitcore.dev/splitcore/timespan"
)

// Errors returned by Run mutations"Failure modes".
var (
	ErrWouldLeaveZeroSegments = errors.New("run: operation would leave zero segments")
	ErrReservedComparisonName = errors.New("run: comparison name is reserved")
	ErrComparisonExists = errors.New("run: comparison already exists")
	ErrComparisonNotFound = errors.New("run: comparison not found")
	ErrSegmentCountMismatch = errors.New("run: segment count mismatch on import")
	ErrIndexOutOfRange = errors.New("run: segment index out of range")
)

// Attempt records one completed (or abandoned) pass through the Run.
type Attempt struct {
	Index int32
	Time timespan.Time
	Started *time.Time
	Ended *time.Time
	PauseTime *timespan.TimeSpan
}

// Metadata carries the descriptive, non-timing facts about a Run.
type Metadata struct {
	Platform string
	Region string
	Emulator bool
	Variables map[string]string // speedrun.com variables
	CustomVariables map[string]string
}

// NewMetadata returns an empty, initialized Metadata.
func NewMetadata() Metadata {
	return Metadata{
		Variables: make(map[string]string),
		CustomVariables: make(map[string]string),
	}
}

// Run is the full data model for one game/category's splits.
type Run struct {
	segments []*segment.Segment
	attemptHistory []Attempt
	customComparisons []string // superset of segment comparison keys; PB first
	attemptCount uint64
	offset timespan.TimeSpan
	gameName string
	categoryName string
	metadata Metadata
	linkedLayout string
	hasBeenModified bool
}

// New creates a Run with the given segment names (at least one is required
// by callers that intend to drive it with a Timer, but an empty Run is
// still constructible for incremental building by a parser).
func New(segmentNames...string) *Run {
	r := &Run{
		customComparisons: []string{segment.PersonalBestComparisonName},
		metadata: NewMetadata(),
	}
	for _, n := range segmentNames {
		r.segments = append(r.segments, segment.New(n))
	}
	return r
}

// SegmentCount returns the number of segments.
func (r *Run) SegmentCount() int { return len(r.segments) }

// Segment returns the segment at idx.
func (r *Run) Segment(idx int) *segment.Segment { return r.segments[idx] }

// Segments returns the underlying segment slice (callers must not retain a
// mutable alias across structural edits; use the Editor for those).
func (r *Run) Segments() []*segment.Segment { return r.segments }

// AttemptHistory returns the recorded attempts in chronological order.
func (r *Run) AttemptHistory() []Attempt { return r.attemptHistory }

// AttemptCount returns the running attempt counter (incremented on every
// Timer Start, independent of how many attempts were actually saved).
func (r *Run) AttemptCount() uint64 { return r.attemptCount }

// IncrementAttemptCount bumps the attempt counter (called by Timer.Start).
func (r *Run) IncrementAttemptCount() { r.attemptCount++ }

// SetAttemptCount overrides the attempt counter directly (Editor use) and
// marks the run modified if it changed.
func (r *Run) SetAttemptCount(c uint64) {
	if c == r.attemptCount {
		return
	}
	r.attemptCount = c
	r.MarkModified()
}

// Offset returns the configured negative-start offset.
func (r *Run) Offset() timespan.TimeSpan { return r.offset }

// SetOffset sets the start offset and marks the run modified if it changed.
func (r *Run) SetOffset(o timespan.TimeSpan) {
	if o == r.offset {
		return
	}
	r.offset = o
	r.MarkModified()
}

// GameName/CategoryName accessors.
func (r *Run) GameName() string { return r.gameName }
func (r *Run) CategoryName() string { return r.categoryName }

// SetGameName/SetCategoryName mutate metadata-ish top level fields.
func (r *Run) SetGameName(name string) {
	if name == r.gameName {
		return
	}
	r.gameName = name
	r.MarkModified()
}

func (r *Run) SetCategoryName(name string) {
	if name == r.categoryName {
		return
	}
	r.categoryName = name
	r.MarkModified()
}

// Metadata returns the Run's metadata.
func (r *Run) Metadata() *Metadata { return &r.metadata }

// LinkedLayout returns the advisory layout hint (spec invariant 6: a Run
// must render correctly with any layout, so this is never load-bearing).
func (r *Run) LinkedLayout() string { return r.linkedLayout }

// SetLinkedLayout sets the layout hint.
func (r *Run) SetLinkedLayout(path string) {
	if path == r.linkedLayout {
		return
	}
	r.linkedLayout = path
	r.MarkModified()
}

// HasBeenModified reports whether any mutation has changed persisted state
// since the last MarkUnmodified call.
func (r *Run) HasBeenModified() bool { return r.hasBeenModified }

// MarkModified flags the run as dirty.
func (r *Run) MarkModified() { r.hasBeenModified = true }

// MarkUnmodified clears the dirty flag (called after a successful save).
func (r *Run) MarkUnmodified() { r.hasBeenModified = false }

// CustomComparisons returns the ordered comparison names, "Personal Best" first.
func (r *Run) CustomComparisons() []string {
	out := make([]string, len(r.customComparisons))
	copy(out, r.customComparisons)
	return out
}

// HasComparison reports whether name is a known comparison.
func (r *Run) HasComparison(name string) bool {
	for _, n := range r.customComparisons {
		if n == name {
			return true
		}
	}
	return false
}

// AddComparison registers a new comparison name across every segment (with
// an empty Time), failing on collision or a reserved name.
func (r *Run) AddComparison(name string) error {
	if name == segment.PersonalBestComparisonName {
		return ErrReservedComparisonName
	}
	if r.HasComparison(name) {
		return ErrComparisonExists
	}
	r.customComparisons = append(r.customComparisons, name)
	for _, s := range r.segments {
		s.SetComparison(name, timespan.Time{})
	}
	r.MarkModified()
	return nil
}

// RemoveComparison deletes a comparison from the run and every segment.
func (r *Run) RemoveComparison(name string) error {
	if name == segment.PersonalBestComparisonName {
		return ErrReservedComparisonName
	}
	if !r.HasComparison(name) {
		return ErrComparisonNotFound
	}
	for i, n := range r.customComparisons {
		if n == name {
			r.customComparisons = append(r.customComparisons[:i], r.customComparisons[i+1:]...)
			break
		}
	}
	for _, s := range r.segments {
		s.RemoveComparison(name)
	}
	r.MarkModified()
	return nil
}

// RenameComparison renames a comparison across the run and every segment.
func (r *Run) RenameComparison(oldName, newName string) error {
	if oldName == segment.PersonalBestComparisonName {
		return ErrReservedComparisonName
	}
	if newName == segment.PersonalBestComparisonName {
		return ErrReservedComparisonName
	}
	if !r.HasComparison(oldName) {
		return ErrComparisonNotFound
	}
	if r.HasComparison(newName) {
		return ErrComparisonExists
	}
	for i, n := range r.customComparisons {
		if n == oldName {
			r.customComparisons[i] = newName
			break
		}
	}
	for _, s := range r.segments {
		s.RenameComparison(oldName, newName)
	}
	r.MarkModified()
	return nil
}

// ImportComparison copies a comparison's per-segment times from another Run
// of identical segment count.
func (r *Run) ImportComparison(name string, other *Run) error {
	if other.SegmentCount() != r.SegmentCount() {
		return ErrSegmentCountMismatch
	}
	if !r.HasComparison(name) {
		if err := r.AddComparison(name); err != nil {
			return err
		}
	}
	for i, s := range r.segments {
		t, _ := other.Segment(i).Comparison(name)
		s.SetComparison(name, t)
	}
	r.MarkModified()
	return nil
}

// InsertSegment inserts seg at idx (0 <= idx <= SegmentCount), shifting
// later segments right. Every existing custom comparison gets an empty
// entry on the new segment so ranges stay in lockstep across segments.
func (r *Run) InsertSegment(idx int, seg *segment.Segment) error {
	if idx < 0 || idx > len(r.segments) {
		return ErrIndexOutOfRange
	}
	for _, name := range r.customComparisons {
		if _, ok := seg.Comparison(name); !ok {
			seg.SetComparison(name, timespan.Time{})
		}
	}
	r.segments = append(r.segments, nil)
	copy(r.segments[idx+1:], r.segments[idx:])
	r.segments[idx] = seg
	r.MarkModified()
	return nil
}

// RemoveSegment removes the segment at idx, failing if that would leave
// zero segments.
func (r *Run) RemoveSegment(idx int) error {
	if idx < 0 || idx >= len(r.segments) {
		return ErrIndexOutOfRange
	}
	if len(r.segments) <= 1 {
		return ErrWouldLeaveZeroSegments
	}
	r.segments = append(r.segments[:idx], r.segments[idx+1:]...)
	r.MarkModified()
	return nil
}

// MoveSegment moves the segment at idx to newIdx (clamped bounds are the
// caller's responsibility via the Editor; here an out-of-range index fails).
func (r *Run) MoveSegment(idx, newIdx int) error {
	if idx < 0 || idx >= len(r.segments) || newIdx < 0 || newIdx >= len(r.segments) {
		return ErrIndexOutOfRange
	}
	if idx == newIdx {
		return nil
	}
	s := r.segments[idx]
	r.segments = append(r.segments[:idx], r.segments[idx+1:]...)
	r.segments = append(r.segments, nil)
	copy(r.segments[newIdx+1:], r.segments[newIdx:])
	r.segments[newIdx] = s
	r.MarkModified()
	return nil
}

// AddAttempt appends a completed attempt to the history.
func (r *Run) AddAttempt(a Attempt) {
	r.attemptHistory = append(r.attemptHistory, a)
	r.MarkModified()
}

// UpdateSegmentHistory records, for every segment in [0, upToIndex), the
// current-attempt segment time (difference of consecutive split times) at
// attemptIndex_time has both sides
// absent is recorded as a gap (no entry), letting a later segment carry a
// combined time across it.
func (r *Run) UpdateSegmentHistory(upToIndex int, attemptIndex int32) {
	var prevReal, prevGame *timespan.TimeSpan
	for i := 0; i < upToIndex && i < len(r.segments); i++ {
		s := r.segments[i]
		cur := s.SplitTime()
		if cur.IsEmpty() {
			// Gap: don't record, don't advance prev* (so the next segment's
			// combined time correctly spans back further).
			continue
		}
		var segTime timespan.Time
		if cur.RealTimeSpan != nil {
			v := *cur.RealTimeSpan
			if prevReal != nil {
				v = v.Sub(*prevReal)
			}
			segTime.RealTimeSpan = &v
		}
		if cur.GameTimeSpan != nil {
			v := *cur.GameTimeSpan
			if prevGame != nil {
				v = v.Sub(*prevGame)
			}
			segTime.GameTimeSpan = &v
		}
		s.History().Set(attemptIndex, segTime)
		prevReal = cur.RealTimeSpan
		prevGame = cur.GameTimeSpan
	}
}

// ImportPersonalBestIntoHistory seeds negative-index "imported" history
// entries from the segments' pre-existing personal_best_split_time, so a
// run that already has a PB (e.g. from a parsed file) contributes that PB
// to sum-of-best and balanced-PB predictions even before any attempt has
// been recorded against it. It only ever runs once: the caller passes
// attemptIndex straight from saveAttemptLocked, and this is a no-op unless
// that index is 1 (the very first attempt this Run has ever saved).
//
// A segment whose PB-derived time matches the real entry just written at
// attemptIndex on every timing method the PB records is skipped: an
// imported entry identical to the real one adds no predictive information,
// only a redundant -1 record.
func (r *Run) ImportPersonalBestIntoHistory(upToIndex int, attemptIndex int32) {
	if attemptIndex != 1 || len(r.attemptHistory) != 1 {
		return
	}
	var prevReal, prevGame *timespan.TimeSpan
	for i := 0; i < upToIndex && i < len(r.segments); i++ {
		s := r.segments[i]
		pb := s.PersonalBestSplitTime()
		if pb.IsEmpty() {
			// Gap: nothing to import, and don't advance prev* so a later
			// segment's imported time can still span back across it.
			continue
		}
		var segTime timespan.Time
		if pb.RealTimeSpan != nil {
			v := *pb.RealTimeSpan
			if prevReal != nil {
				v = v.Sub(*prevReal)
			}
			segTime.RealTimeSpan = &v
		}
		if pb.GameTimeSpan != nil {
			v := *pb.GameTimeSpan
			if prevGame != nil {
				v = v.Sub(*prevGame)
			}
			segTime.GameTimeSpan = &v
		}
		real, same := s.History().Get(attemptIndex)
		for _, m := range []timespan.TimingMethod{timespan.RealTime, timespan.GameTime} {
			if v, has := segTime.Get(m); has {
				if rv, rok := real.Get(m); !rok || rv != v {
					same = false
				}
			}
		}
		if !same {
			s.History().Set(-1, segTime)
		}
		prevReal = pb.RealTimeSpan
		prevGame = pb.GameTimeSpan
	}
}

// SelectionSet is a convenience alias used by the Editor for its multi-
// segment selection, built on fortio.org/sets the way the Editor needs a
// small ordered-agnostic set of indices.
type SelectionSet = sets.Set[int]

// NewSelectionSet returns an empty SelectionSet.
func NewSelectionSet(indices...int) SelectionSet {
	return sets.New(indices...)
}
