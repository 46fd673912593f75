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

// Package command gives the Timer state machine a uniform, serializable
// request/reply surface: a CommandSink dispatches a Request and returns the
// resulting (Event, error), the same generic shape as jrpc's Call[Q,T] but
// dispatched in-process instead of over HTTP. protocol builds the wire
// server on top of this package instead of talking to *timer.Timer directly.
package command // import "splitcore.dev/splitcore/command"

import (
	"encoding/json"
	"fmt"

	"splitcore.dev/splitcore/timer"
	"splitcore.dev/splitcore/timespan"
)

// Name identifies one of the Timer's commands.
type Name string

const (
	Start Name = "start"
	Split Name = "split"
	SkipSplit Name = "skip_split"
	UndoSplit Name = "undo_split"
	Pause Name = "pause"
	Resume Name = "resume"
	TogglePauseOrStart Name = "toggle_pause_or_start"
	Reset Name = "reset"
	InitializeGameTime Name = "initialize_game_time"
	SetGameTime Name = "set_game_time"
	PauseGameTime Name = "pause_game_time"
	ResumeGameTime Name = "resume_game_time"
	SetLoadingTimes Name = "set_loading_times"
	SetCurrentTimingMethod Name = "set_current_timing_method"
	ToggleTimingMethod Name = "toggle_timing_method"
)

// Request is the serializable payload for one command invocation. Only the
// fields relevant to Command are populated; the rest are zero/nil.
type Request struct {
	Command Name `json:"command"`
	SaveAttempt *bool `json:"save_attempt,omitempty"`
	GameTime *timespan.TimeSpan `json:"game_time,omitempty"`
	LoadingTimes *timespan.TimeSpan `json:"loading_times,omitempty"`
	Method *timespan.TimingMethod `json:"timing_method,omitempty"`
}

// Response is the serializable reply: exactly one of Event/ErrorText is
// meaningful (ErrorText empty on success).
type Response struct {
	Event timer.Event `json:"event"`
	ErrorText string `json:"error,omitempty"`
}

// Sink dispatches Requests against an underlying Timer.
type Sink interface {
	Dispatch(Request) Response
}

// EventSink receives every Event a Sink's underlying Timer emits,
// independent of which command caused it (e.g. a UI repaint hook).
type EventSink interface {
	OnEvent(timer.Event)
}

// Local is the in-process Sink: a thin synchronous switch over
// *timer.Timer's methods, returning their (Event, error) as a Response.
type Local struct {
	tm *timer.Timer
}

// NewLocal wraps tm as a Sink.
func NewLocal(tm *timer.Timer) *Local {
	return &Local{tm: tm}
}

// Dispatch executes req against the Timer and packages the result.
func (s *Local) Dispatch(req Request) Response {
	var ev timer.Event
	var err error
	switch req.Command {
	case Start:
		ev, err = s.tm.Start()
	case Split:
		ev, err = s.tm.Split()
	case SkipSplit:
		ev, err = s.tm.SkipSplit()
	case UndoSplit:
		ev, err = s.tm.UndoSplit()
	case Pause:
		ev, err = s.tm.Pause()
	case Resume:
		ev, err = s.tm.Resume()
	case TogglePauseOrStart:
		ev, err = s.tm.TogglePauseOrStart()
	case Reset:
		ev, err = s.tm.Reset(req.SaveAttempt)
	case InitializeGameTime:
		ev, err = s.tm.InitializeGameTime()
	case SetGameTime:
		if req.GameTime == nil {
			return Response{ErrorText: "set_game_time requires game_time"}
		}
		ev, err = s.tm.SetGameTime(*req.GameTime)
	case PauseGameTime:
		ev, err = s.tm.PauseGameTime()
	case ResumeGameTime:
		ev, err = s.tm.ResumeGameTime()
	case SetLoadingTimes:
		if req.LoadingTimes == nil {
			return Response{ErrorText: "set_loading_times requires loading_times"}
		}
		ev, err = s.tm.SetLoadingTimes(*req.LoadingTimes)
	case SetCurrentTimingMethod:
		if req.Method == nil {
			return Response{ErrorText: "set_current_timing_method requires timing_method"}
		}
		ev = s.tm.SetCurrentTimingMethod(*req.Method)
	case ToggleTimingMethod:
		ev = s.tm.ToggleTimingMethod()
	default:
		return Response{ErrorText: fmt.Sprintf("unknown command %q", req.Command)}
	}
	if err != nil {
		return Response{ErrorText: err.Error()}
	}
	return Response{Event: ev}
}

// Serialize is Request/Response marshaling shared with the protocol package,
// mirroring jrpc's generic Serialize/Deserialize[Q] helpers.
func Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Deserialize parses bytes into a Q, the same shape as jrpc.Deserialize[Q].
func Deserialize[Q any](data []byte) (*Q, error) {
	var out Q
	err := json.Unmarshal(data, &out)
	return &out, err
}
