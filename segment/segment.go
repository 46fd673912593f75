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

// Package segment holds the per-segment data model: the Segment itself
// (name, icon, current/PB/best times, comparisons) and SegmentHistory, the
// sparse attempt-index -> Time map with the signed-index convention from
//(positive = real attempt, negative = imported/synthetic).
package segment // import "splitcore.dev/splitcore/segment"

import (
	"sort"

	"splitcore.dev/splitcore/imagecache"
	"splitcore.dev/splitcore/timespan"
)

// PersonalBestComparisonName is the always-present comparison key.
const PersonalBestComparisonName = "Personal Best"

// SegmentHistory is an ordered-by-insertion, sparse map from attempt index
// to the Time recorded for that attempt at this segment. Positive indices
// are stable identifiers into a Run's attempt_history; negative indices are
// reserved for imported/synthetic entries (e.g. merging a pre-existing PB).
type SegmentHistory struct {
	order []int32 // insertion order of indices, kept parallel to the map
	entries map[int32]timespan.Time
}

// NewSegmentHistory returns an empty history.
func NewSegmentHistory() *SegmentHistory {
	return &SegmentHistory{entries: make(map[int32]timespan.Time)}
}

// Set records (or overwrites) the Time for attemptIndex, appending to
// insertion order only the first time the index is seen.
func (h *SegmentHistory) Set(attemptIndex int32, t timespan.Time) {
	if _, ok := h.entries[attemptIndex]; !ok {
		h.order = append(h.order, attemptIndex)
	}
	h.entries[attemptIndex] = t
}

// Get returns the Time recorded for attemptIndex, if any.
func (h *SegmentHistory) Get(attemptIndex int32) (timespan.Time, bool) {
	t, ok := h.entries[attemptIndex]
	return t, ok
}

// Remove deletes the entry for attemptIndex, if present. O(n) to keep the
// insertion-order slice compact; history is tiny relative to a single
// attempt count so this isn't a hot path.
func (h *SegmentHistory) Remove(attemptIndex int32) {
	if _, ok := h.entries[attemptIndex]; !ok {
		return
	}
	delete(h.entries, attemptIndex)
	for i, idx := range h.order {
		if idx == attemptIndex {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of recorded entries.
func (h *SegmentHistory) Len() int {
	return len(h.entries)
}

// Clear empties the history.
func (h *SegmentHistory) Clear() {
	h.order = nil
	h.entries = make(map[int32]timespan.Time)
}

// IterInsertionOrder calls fn for every entry in the order it was inserted.
func (h *SegmentHistory) IterInsertionOrder(fn func(attemptIndex int32, t timespan.Time)) {
	for _, idx := range h.order {
		fn(idx, h.entries[idx])
	}
}

// IterIndexOrder calls fn for every entry sorted by attempt index ascending.
func (h *SegmentHistory) IterIndexOrder(fn func(attemptIndex int32, t timespan.Time)) {
	idxs := make([]int32, 0, len(h.entries))
	for idx := range h.entries {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })
	for _, idx := range idxs {
		fn(idx, h.entries[idx])
	}
}

// Segment is one leg of a Run.
type Segment struct {
	name string
	icon imagecache.ImageId
	splitTime timespan.Time
	personalBestSplitTime timespan.Time
	bestSegmentTime timespan.Time
	comparisonOrder []string
	comparisons map[string]timespan.Time
	history *SegmentHistory
}

// New creates a Segment with the given name and an always-present, empty
// Personal Best comparison entry.
func New(name string) *Segment {
	s := &Segment{
		name: name,
		comparisons: make(map[string]timespan.Time),
		history: NewSegmentHistory(),
	}
	s.comparisonOrder = append(s.comparisonOrder, PersonalBestComparisonName)
	s.comparisons[PersonalBestComparisonName] = timespan.Time{}
	return s
}

// Name returns the segment's display name.
func (s *Segment) Name() string { return s.name }

// SetName renames the segment.
func (s *Segment) SetName(name string) { s.name = name }

// Icon returns the segment's icon handle.
func (s *Segment) Icon() imagecache.ImageId { return s.icon }

// SetIcon sets the segment's icon handle.
func (s *Segment) SetIcon(id imagecache.ImageId) { s.icon = id }

// SplitTime returns the accumulated split time for the current attempt.
func (s *Segment) SplitTime() timespan.Time { return s.splitTime }

// SetSplitTime sets the current-attempt split time.
func (s *Segment) SetSplitTime(t timespan.Time) { s.splitTime = t }

// ClearSplitTime clears the current-attempt split time (e.g. on reset).
func (s *Segment) ClearSplitTime() { s.splitTime = timespan.Time{} }

// PersonalBestSplitTime returns the PB attempt's split time for this segment.
func (s *Segment) PersonalBestSplitTime() timespan.Time { return s.personalBestSplitTime }

// SetPersonalBestSplitTime sets the PB split time and mirrors it into the
// "Personal Best" comparison entry, keeping invariant 3 consistent.
func (s *Segment) SetPersonalBestSplitTime(t timespan.Time) {
	s.personalBestSplitTime = t
	s.comparisons[PersonalBestComparisonName] = t
}

// BestSegmentTime returns the shortest segment time ever recorded.
func (s *Segment) BestSegmentTime() timespan.Time { return s.bestSegmentTime }

// SetBestSegmentTime sets the best-segment time directly (used by the
// Editor; the Timer updates it opportunistically after every split).
func (s *Segment) SetBestSegmentTime(t timespan.Time) { s.bestSegmentTime = t }

// ClearBestSegmentTime clears the best-segment time for one timing method.
func (s *Segment) ClearBestSegmentTime(method timespan.TimingMethod) {
	s.bestSegmentTime.Clear(method)
}

// History returns the segment's history map.
func (s *Segment) History() *SegmentHistory { return s.history }

// Comparison returns the Time recorded for the named comparison.
func (s *Segment) Comparison(name string) (timespan.Time, bool) {
	t, ok := s.comparisons[name]
	return t, ok
}

// SetComparison writes (or creates) a comparison entry, appending to the
// comparison order only on first use.
func (s *Segment) SetComparison(name string, t timespan.Time) {
	if _, ok := s.comparisons[name]; !ok {
		s.comparisonOrder = append(s.comparisonOrder, name)
	}
	s.comparisons[name] = t
}

// RemoveComparison deletes a comparison entry (never removes "Personal Best").
func (s *Segment) RemoveComparison(name string) {
	if name == PersonalBestComparisonName {
		return
	}
	if _, ok := s.comparisons[name]; !ok {
		return
	}
	delete(s.comparisons, name)
	for i, n := range s.comparisonOrder {
		if n == name {
			s.comparisonOrder = append(s.comparisonOrder[:i], s.comparisonOrder[i+1:]...)
			break
		}
	}
}

// RenameComparison renames a comparison in place, preserving its position
// and value.
func (s *Segment) RenameComparison(oldName, newName string) {
	if oldName == newName {
		return
	}
	v, ok := s.comparisons[oldName]
	if !ok {
		return
	}
	delete(s.comparisons, oldName)
	s.comparisons[newName] = v
	for i, n := range s.comparisonOrder {
		if n == oldName {
			s.comparisonOrder[i] = newName
			break
		}
	}
}

// Comparisons calls fn for every comparison in insertion order ("Personal
// Best" first, always present).
func (s *Segment) Comparisons(fn func(name string, t timespan.Time)) {
	for _, name := range s.comparisonOrder {
		fn(name, s.comparisons[name])
	}
}

// ClearHistory empties the segment's history.
func (s *Segment) ClearHistory() { s.history.Clear() }

// Clone returns a deep copy of the segment, including its comparisons and
// history.
func (s *Segment) Clone() *Segment {
	out := &Segment{
		name: s.name,
		icon: s.icon,
		splitTime: s.splitTime.Clone(),
		personalBestSplitTime: s.personalBestSplitTime.Clone(),
		bestSegmentTime: s.bestSegmentTime.Clone(),
		comparisons: make(map[string]timespan.Time, len(s.comparisons)),
		history: NewSegmentHistory(),
	}
	out.comparisonOrder = append(out.comparisonOrder, s.comparisonOrder...)
	for k, v := range s.comparisons {
		out.comparisons[k] = v.Clone()
	}
	s.history.IterInsertionOrder(func(idx int32, t timespan.Time) {
		out.history.Set(idx, t.Clone())
	})
	return out
}
