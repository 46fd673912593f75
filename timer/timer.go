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

// Package timer implements the state machine that drives an active
// attempt: phase transitions, pause accounting, dual real/game timing and
// split recording. It generalizes periodic.Aborter's
// start/stop-channel bookkeeping from "abort a load test" to "drive a
// competitive-run attempt through its phases".
package timer // import "splitcore.dev/splitcore/timer"

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"fortio.org/log"
	"splitcore.dev/splitcore/clock"
	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/timespan"
)

// Phase is one of the four states an attempt moves through.
type Phase int

const (
	NotRunning Phase = iota
	Running
	Paused
	Ended
)

func (p Phase) String() string {
	switch p {
	case NotRunning:
		return "NotRunning"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Ended:
		return "Ended"
	default:
		return "Unknown"
	}
}

// Error is the closed set of command failures from
type Error int

const (
	ErrNone Error = iota
	ErrRunAlreadyInProgress
	ErrNoRunInProgress
	ErrRunFinished
	ErrNegativeTime
	ErrAlreadyPaused
	ErrNotPaused
	ErrCantSkipLastSplit
	ErrCantUndoFirstSplit
	ErrGameTimeAlreadyInitialized
	ErrGameTimeNotInitialized
	ErrGameTimeAlreadyPaused
	ErrGameTimeNotPaused
	ErrNotStartable
	ErrUnsupported
	ErrUnknown
)

var errorNames = map[Error]string{
	ErrRunAlreadyInProgress: "RunAlreadyInProgress",
	ErrNoRunInProgress: "NoRunInProgress",
	ErrRunFinished: "RunFinished",
	ErrNegativeTime: "NegativeTime",
	ErrAlreadyPaused: "AlreadyPaused",
	ErrNotPaused: "NotPaused",
	ErrCantSkipLastSplit: "CantSkipLastSplit",
	ErrCantUndoFirstSplit: "CantUndoFirstSplit",
	ErrGameTimeAlreadyInitialized: "GameTimeAlreadyInitialized",
	ErrGameTimeNotInitialized: "GameTimeNotInitialized",
	ErrGameTimeAlreadyPaused: "GameTimeAlreadyPaused",
	ErrGameTimeNotPaused: "GameTimeNotPaused",
	ErrNotStartable: "NotStartable",
	ErrUnsupported: "Unsupported",
	ErrUnknown: "Unknown",
}

// Error implements the error interface.
func (e Error) Error() string {
	if n, ok := errorNames[e]; ok {
		return n
	}
	return "Unknown"
}

// Event is emitted after every successful phase-changing command, per
//("a command that causes a phase transition MUST emit the
// corresponding event before its future resolves").
type Event int

const (
	EventNone Event = iota
	EventStarted
	EventSplitted
	EventSplitSkipped
	EventSplitUndone
	EventPaused
	EventResumed
	EventReset
	EventComparisonChanged
	EventTimingMethodChanged
	EventGameTimeInitialized
	EventGameTimeSet
	EventGameTimePaused
	EventGameTimeResumed
	EventLoadingTimesSet
	EventCustomVariableSet
	// EventReloaded is emitted by the persist package, not the Timer, when a
	// watched save file or settings sidecar changes on disk out from under
	// the running process; it reuses EventSink so a UI hooked up for Timer
	// events also learns about external reloads without a second channel.
	EventReloaded
	EventUnknown
)

var eventNames = map[Event]string{
	EventStarted: "Started",
	EventSplitted: "Splitted",
	EventSplitSkipped: "SplitSkipped",
	EventSplitUndone: "SplitUndone",
	EventPaused: "Paused",
	EventResumed: "Resumed",
	EventReset: "Reset",
	EventComparisonChanged: "ComparisonChanged",
	EventTimingMethodChanged: "TimingMethodChanged",
	EventGameTimeInitialized: "GameTimeInitialized",
	EventGameTimeSet: "GameTimeSet",
	EventGameTimePaused: "GameTimePaused",
	EventGameTimeResumed: "GameTimeResumed",
	EventLoadingTimesSet: "LoadingTimesSet",
	EventCustomVariableSet: "CustomVariableSet",
	EventReloaded: "Reloaded",
	EventUnknown: "Unknown",
}

func (e Event) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return "Unknown"
}

// MarshalJSON renders the Event by name, matching rapi's StateEnum-style
// wire representation.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// UnmarshalJSON parses an Event from its name.
func (e *Event) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for ev, n := range eventNames {
		if n == s {
			*e = ev
			return nil
		}
	}
	if s == "None" || s == "" {
		*e = EventNone
		return nil
	}
	return fmt.Errorf("timer: unknown event %q", s)
}

// notEndedState holds the NotEnded variant of ActiveAttempt.state.
type notEndedState struct {
	currentSplitIndex int
	timePausedAt *timespan.TimeSpan
}

// ActiveAttempt is present only while the Timer's phase is not NotRunning.
type ActiveAttempt struct {
	attemptStarted time.Time
	startTimeWithOffset clock.Instant
	adjustedStartTime clock.Instant
	gameTimePausedAt *timespan.TimeSpan
	loadingTimes *timespan.TimeSpan
	notEnded *notEndedState // nil once ended
	attemptEnded *time.Time
}

// CurrentSplitIndex returns the in-progress split index, or segment count
// if the attempt already Ended.
func (a *ActiveAttempt) CurrentSplitIndex(segmentCount int) int {
	if a.notEnded != nil {
		return a.notEnded.currentSplitIndex
	}
	return segmentCount
}

// Timer drives a Run through one attempt at a time. It owns the Run
// exclusively for the duration of an attempt.
type Timer struct {
	mu sync.Mutex
	r *run.Run
	phase Phase
	active *ActiveAttempt
	currentMethod timespan.TimingMethod
	listeners []func(Event)
}

// New creates a Timer over r, initially NotRunning.
func New(r *run.Run) *Timer {
	return &Timer{r: r, phase: NotRunning}
}

// Run returns the underlying Run. Only safe to mutate through the Editor
// while the Timer is NotRunning.
func (t *Timer) Run() *run.Run {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r
}

// Phase returns the current phase.
func (t *Timer) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// CurrentTimingMethod returns the active timing method used for PB/comparison
// decisions.
func (t *Timer) CurrentTimingMethod() timespan.TimingMethod {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentMethod
}

// SetCurrentTimingMethod switches the active timing method. Pure selection
// change: never marks the run modified.
func (t *Timer) SetCurrentTimingMethod(m timespan.TimingMethod) Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m == t.currentMethod {
		return EventNone
	}
	t.currentMethod = m
	t.emitLocked(EventTimingMethodChanged)
	return EventTimingMethodChanged
}

// ToggleTimingMethod flips between RealTime and GameTime.
func (t *Timer) ToggleTimingMethod() Event {
	return t.SetCurrentTimingMethod(t.CurrentTimingMethod().Other())
}

// AddListener registers fn to be called (synchronously, in emission order)
// for every event the Timer emits
func (t *Timer) AddListener(fn func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

func (t *Timer) emitLocked(e Event) {
	log.LogVf("timer: emit %v (phase now %v)", e, t.phase)
	for _, l := range t.listeners {
		l(e)
	}
}

// Start begins a new attempt. Fails with ErrRunAlreadyInProgress unless
// NotRunning
func (t *Timer) Start() (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != NotRunning {
		return EventNone, ErrRunAlreadyInProgress
	}
	now := clock.Now()
	offset := t.r.Offset()
	startWithOffset := now.Add(offset.Neg())
	t.active = &ActiveAttempt{
		attemptStarted: time.Now(),
		startTimeWithOffset: startWithOffset,
		adjustedStartTime: startWithOffset,
		notEnded: &notEndedState{currentSplitIndex: 0},
	}
	t.phase = Running
	t.r.IncrementAttemptCount()
	t.emitLocked(EventStarted)
	return EventStarted, nil
}

// Split records the current time into the active split and advances, or
// ends the attempt if this was the last segment.
func (t *Timer) Split() (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.phase {
	case NotRunning:
		return EventNone, ErrNoRunInProgress
	case Ended:
		return EventNone, nil // no-op per transition table
	case Paused:
		return EventNone, ErrNotPaused // can't split while paused; must resume first
	}
	a := t.active
	ns := a.notEnded
	now := clock.Now()
	realTime := now.Sub(a.adjustedStartTime)
	if realTime < 0 {
		return EventNone, nil // no-op, negative time per transition table
	}
	gameTime := t.computeGameTime(now, realTime)

	var tv timespan.Time
	tv.Set(timespan.RealTime, realTime)
	if gameTime != nil {
		tv.Set(timespan.GameTime, *gameTime)
	}
	seg := t.r.Segment(ns.currentSplitIndex)
	seg.SetSplitTime(tv)
	ns.currentSplitIndex++

	if ns.currentSplitIndex == t.r.SegmentCount() {
		ended := time.Now()
		a.attemptEnded = &ended
		a.notEnded = nil
		t.phase = Ended
	}
	t.emitLocked(EventSplitted)
	return EventSplitted, nil
}

// SkipSplit clears the current segment's split and advances, refused on
// the last segment.
func (t *Timer) SkipSplit() (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != Running && t.phase != Paused {
		return EventNone, ErrNoRunInProgress
	}
	ns := t.active.notEnded
	if ns == nil || ns.currentSplitIndex >= t.r.SegmentCount()-1 {
		return EventNone, ErrCantSkipLastSplit
	}
	t.r.Segment(ns.currentSplitIndex).ClearSplitTime()
	ns.currentSplitIndex++
	t.emitLocked(EventSplitSkipped)
	return EventSplitSkipped, nil
}

// UndoSplit decrements the split index and clears the (new) current
// segment's split time, refused at index 0. Allowed from Ended (undoes the
// final split, per spec's transition table).
func (t *Timer) UndoSplit() (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == NotRunning {
		return EventNone, ErrNoRunInProgress
	}
	if t.phase == Ended {
		t.active.notEnded = &notEndedState{currentSplitIndex: t.r.SegmentCount()}
		t.active.attemptEnded = nil
		t.phase = Running
	}
	ns := t.active.notEnded
	if ns.currentSplitIndex == 0 {
		return EventNone, ErrCantUndoFirstSplit
	}
	ns.currentSplitIndex--
	t.r.Segment(ns.currentSplitIndex).ClearSplitTime()
	t.emitLocked(EventSplitUndone)
	return EventSplitUndone, nil
}

// Pause freezes the clock, recording the elapsed-at-pause real time.
func (t *Timer) Pause() (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != Running {
		if t.phase == Paused {
			return EventNone, ErrAlreadyPaused
		}
		return EventNone, ErrNoRunInProgress
	}
	now := clock.Now()
	pausedAt := now.Sub(t.active.adjustedStartTime)
	t.active.notEnded.timePausedAt = &pausedAt
	t.phase = Paused
	t.emitLocked(EventPaused)
	return EventPaused, nil
}

// Resume un-freezes the clock, absorbing the paused duration into
// adjustedStartTime so elapsed real time doesn't include the pause.
func (t *Timer) Resume() (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != Paused {
		return EventNone, ErrNotPaused
	}
	now := clock.Now()
	ns := t.active.notEnded
	pauseDuration := now.Sub(t.active.adjustedStartTime).Sub(*ns.timePausedAt)
	t.active.adjustedStartTime = t.active.adjustedStartTime.Add(pauseDuration)
	ns.timePausedAt = nil
	t.phase = Running
	t.emitLocked(EventResumed)
	return EventResumed, nil
}

// TogglePauseOrStart is the convenience command from
func (t *Timer) TogglePauseOrStart() (Event, error) {
	switch t.Phase() {
	case NotRunning:
		return t.Start()
	case Running:
		return t.Pause()
	case Paused:
		return t.Resume()
	default:
		return EventNone, ErrNotStartable
	}
}

// GetPauseTime returns the cumulative pause duration observed so far, or
// nil if there is no active attempt / no pause has occurred.
func (t *Timer) GetPauseTime() *timespan.TimeSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pauseTimeLocked()
}

// pauseTimeLocked computes cumulative pause duration: completed pauses are
// already folded into adjustedStartTime's drift away from
// startTimeWithOffset (every Resume shifts it forward by that pause's
// length); an in-progress pause adds the time since it began.
func (t *Timer) pauseTimeLocked() *timespan.TimeSpan {
	if t.active == nil {
		return nil
	}
	completed := t.active.adjustedStartTime.Sub(t.active.startTimeWithOffset)
	total := completed
	if t.phase == Paused {
		now := clock.Now()
		ongoing := now.Sub(t.active.adjustedStartTime).Sub(*t.active.notEnded.timePausedAt)
		total = total.Add(ongoing)
	}
	if total == 0 {
		return nil
	}
	return &total
}

// Reset ends the current attempt. If saveAttempt is nil, the decision is
// derived from whether the final cumulative time improved the PB on the
// active timing method. Saving triggers the attempt-history
// update, best-segment refresh, UpdateSegmentHistory, the one-time import
// of the existing PB into history and the possible PB-split update, in that
// order.
func (t *Timer) Reset(saveAttempt *bool) (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == NotRunning {
		return EventNone, ErrNoRunInProgress
	}
	save := false
	if saveAttempt != nil {
		save = *saveAttempt
	} else {
		save = t.improvedPBLocked()
	}
	if save {
		t.saveAttemptLocked()
	}
	for i := 0; i < t.r.SegmentCount(); i++ {
		t.r.Segment(i).ClearSplitTime()
	}
	t.active = nil
	t.phase = NotRunning
	t.emitLocked(EventReset)
	return EventReset, nil
}

// finalCumulativeTimeLocked returns the last recorded split time (the
// attempt's total) under the active timing method, if any.
func (t *Timer) finalCumulativeTimeLocked() (timespan.TimeSpan, bool) {
	n := t.r.SegmentCount()
	for i := n - 1; i >= 0; i-- {
		if v, ok := t.r.Segment(i).SplitTime().Get(t.currentMethod); ok {
			return v, true
		}
	}
	return 0, false
}

func (t *Timer) improvedPBLocked() bool {
	final, ok := t.finalCumulativeTimeLocked()
	if !ok {
		return false
	}
	n := t.r.SegmentCount()
	if n == 0 {
		return false
	}
	pb, ok := t.r.Segment(n - 1).PersonalBestSplitTime().Get(t.currentMethod)
	if !ok {
		return true // no PB yet: any completed attempt is a new PB
	}
	return final < pb
}

func (t *Timer) saveAttemptLocked() {
	idx := int32(len(t.r.AttemptHistory())) + 1
	final, _ := t.finalCumulativeTimeLocked()
	started := t.active.attemptStarted
	var ended *time.Time
	if t.active.attemptEnded != nil {
		ended = t.active.attemptEnded
	} else {
		now := time.Now()
		ended = &now
	}
	pauseTime := t.pauseTimeLocked()
	t.r.AddAttempt(run.Attempt{
		Index: idx,
		Time: timespan.Single(t.currentMethod, final),
		Started: &started,
		Ended: ended,
		PauseTime: pauseTime,
	})

	n := t.r.SegmentCount()
	for i := 0; i < n; i++ {
		seg := t.r.Segment(i)
		cur := seg.SplitTime()
		if cur.IsEmpty() {
			continue
		}
		// Opportunistically refresh best-segment time (invariant 2).
		segTime := t.segmentTimeLocked(i)
		best := seg.BestSegmentTime()
		updated := best
		for _, m := range []timespan.TimingMethod{timespan.RealTime, timespan.GameTime} {
			sv, ok := segTime.Get(m)
			if !ok {
				continue
			}
			bv, bok := best.Get(m)
			if !bok || sv < bv {
				updated.Set(m, sv)
			}
		}
		seg.SetBestSegmentTime(updated)
	}

	t.r.UpdateSegmentHistory(n, idx)
	// Import whatever PB existed coming into this attempt before it is
	// potentially overwritten below, so the imported -1 entries reflect the
	// run's history as of the start of this attempt, not its outcome.
	t.r.ImportPersonalBestIntoHistory(n, idx)

	if v, ok := t.finalCumulativeTimeLocked(); ok {
		pbLast, pbOk := t.r.Segment(n - 1).PersonalBestSplitTime().Get(t.currentMethod)
		if !pbOk || v < pbLast {
			clamped := monotonicSplits(t.r, n)
			for i := 0; i < n; i++ {
				t.r.Segment(i).SetPersonalBestSplitTime(clamped[i])
			}
		}
	}
}

// monotonicSplits returns the new PB split times for all n segments, each
// clamped to be no less than the previous segment's new PB split per timing
// method: split_time is cumulative, so a later split recording a smaller
// value than an earlier one (e.g. an autosplitter mis-trigger) must not
// reduce the accumulated PB at that point.
func monotonicSplits(r *run.Run, n int) []timespan.Time {
	out := make([]timespan.Time, n)
	var prev timespan.Time
	for i := 0; i < n; i++ {
		cur := r.Segment(i).SplitTime()
		var next timespan.Time
		for _, m := range []timespan.TimingMethod{timespan.RealTime, timespan.GameTime} {
			cv, cok := cur.Get(m)
			pv, pok := prev.Get(m)
			switch {
			case cok && pok:
				if pv > cv {
					next.Set(m, pv)
				} else {
					next.Set(m, cv)
				}
			case cok:
				next.Set(m, cv)
			case pok:
				next.Set(m, pv)
			}
		}
		out[i] = next
		prev = next
	}
	return out
}

// segmentTimeLocked computes the segment time at i from current split
// times (difference from the most recent earlier non-empty split).
func (t *Timer) segmentTimeLocked(i int) timespan.Time {
	var prev timespan.Time
	for j := i - 1; j >= 0; j-- {
		c := t.r.Segment(j).SplitTime()
		if !c.IsEmpty() {
			prev = c
			break
		}
	}
	return t.r.Segment(i).SplitTime().Sub(prev)
}

// CurrentTime samples the clock once and returns the running (real, game)
// time under the current phase. Returns the zero Time when NotRunning.
func (t *Timer) CurrentTime() timespan.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return timespan.Time{}
	}
	now := clock.Now()
	var realTime timespan.TimeSpan
	if t.phase == Paused {
		realTime = *t.active.notEnded.timePausedAt
	} else if t.phase == Ended {
		realTime, _ = t.finalCumulativeTimeLocked()
		// Ended real time should reflect real_time method specifically
		// regardless of currentMethod for display purposes; if no split
		// recorded real time, keep the last split on currentMethod.
		if v, ok := t.lastSplitRealTimeLocked(); ok {
			realTime = v
		}
	} else {
		realTime = now.Sub(t.active.adjustedStartTime)
	}
	gameTime := t.computeGameTime(now, realTime)
	var out timespan.Time
	out.Set(timespan.RealTime, realTime)
	if gameTime != nil {
		out.Set(timespan.GameTime, *gameTime)
	}
	return out
}

func (t *Timer) lastSplitRealTimeLocked() (timespan.TimeSpan, bool) {
	for i := t.r.SegmentCount() - 1; i >= 0; i-- {
		if v, ok := t.r.Segment(i).SplitTime().Get(timespan.RealTime); ok {
			return v, true
		}
	}
	return 0, false
}

// CurrentSplitIndex returns the 0-based index of the segment currently in
// progress, or SegmentCount once Ended.
func (t *Timer) CurrentSplitIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return 0
	}
	return t.active.CurrentSplitIndex(t.r.SegmentCount())
}

// --- Game time sub-state machine ---

// InitializeGameTime starts game time tracking real time (loading_times=0)
// if not already initialized.
func (t *Timer) InitializeGameTime() (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return EventNone, ErrNoRunInProgress
	}
	if t.active.loadingTimes != nil {
		return EventNone, ErrGameTimeAlreadyInitialized
	}
	zero := timespan.Zero
	t.active.loadingTimes = &zero
	t.emitLocked(EventGameTimeInitialized)
	return EventGameTimeInitialized, nil
}

// computeGameTime derives the running game time from real time and the
// loading-time deduction, or returns the frozen value if game time is
// paused. Returns nil if game time was never initialized and never
// explicitly set.
func (t *Timer) computeGameTime(now clock.Instant, realTime timespan.TimeSpan) *timespan.TimeSpan {
	if t.active == nil {
		return nil
	}
	if t.active.gameTimePausedAt != nil {
		v := *t.active.gameTimePausedAt
		return &v
	}
	if t.active.loadingTimes == nil {
		return nil
	}
	v := realTime.Sub(*t.active.loadingTimes)
	return &v
}

// SetGameTime forces the current game time to t, adjusting loading_times
// (or the frozen value, if currently paused) so the next CurrentTime read
// returns exactly t
func (t *Timer) SetGameTime(target timespan.TimeSpan) (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return EventNone, ErrNoRunInProgress
	}
	if t.active.gameTimePausedAt != nil {
		t.active.gameTimePausedAt = &target
		t.emitLocked(EventGameTimeSet)
		return EventGameTimeSet, nil
	}
	now := clock.Now()
	realTime := now.Sub(t.active.adjustedStartTime)
	newLoading := realTime.Sub(target)
	t.active.loadingTimes = &newLoading
	t.emitLocked(EventGameTimeSet)
	return EventGameTimeSet, nil
}

// PauseGameTime freezes game time at its current derived value.
func (t *Timer) PauseGameTime() (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return EventNone, ErrNoRunInProgress
	}
	if t.active.gameTimePausedAt != nil {
		return EventNone, ErrGameTimeAlreadyPaused
	}
	now := clock.Now()
	realTime := now.Sub(t.active.adjustedStartTime)
	gt := t.computeGameTime(now, realTime)
	if gt == nil {
		return EventNone, ErrGameTimeNotInitialized
	}
	frozen := *gt
	t.active.gameTimePausedAt = &frozen
	t.emitLocked(EventGameTimePaused)
	return EventGameTimePaused, nil
}

// ResumeGameTime un-freezes game time, adjusting loading_times so the
// derived value continues smoothly from the frozen one.
func (t *Timer) ResumeGameTime() (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return EventNone, ErrNoRunInProgress
	}
	if t.active.gameTimePausedAt == nil {
		return EventNone, ErrGameTimeNotPaused
	}
	now := clock.Now()
	realTime := now.Sub(t.active.adjustedStartTime)
	newLoading := realTime.Sub(*t.active.gameTimePausedAt)
	t.active.loadingTimes = &newLoading
	t.active.gameTimePausedAt = nil
	t.emitLocked(EventGameTimeResumed)
	return EventGameTimeResumed, nil
}

// SetLoadingTimes sets the total loading-time deduction, adjusting a
// currently-frozen game time value so the observed game time stays
// consistent.
func (t *Timer) SetLoadingTimes(v timespan.TimeSpan) (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return EventNone, ErrNoRunInProgress
	}
	if t.active.gameTimePausedAt != nil && t.active.loadingTimes != nil {
		delta := v.Sub(*t.active.loadingTimes)
		adjusted := t.active.gameTimePausedAt.Sub(delta)
		t.active.gameTimePausedAt = &adjusted
	}
	t.active.loadingTimes = &v
	t.emitLocked(EventLoadingTimesSet)
	return EventLoadingTimesSet, nil
}
