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

// Package protocol exposes a command.Sink over HTTP using a small JSON
// request/reply helper modeled on jrpc's Call[Q,T]/Reply[T] shape, plus a
// server-sent-event stream for the Timer's EventSink side. RemoteSink is the
// client half, letting a remote process drive the same command.Sink
// interface the in-process command.Local implements.
package protocol // import "splitcore.dev/splitcore/protocol"

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"fortio.org/log"
	"splitcore.dev/splitcore/command"
	"splitcore.dev/splitcore/timer"
)

const (
	// CommandURI is the POST endpoint for command.Request/command.Response.
	CommandURI = "/command"
	// EventsURI is the GET endpoint for the server-sent-event stream.
	EventsURI = "/events"
	// RequestIDHeader correlates a command request with its reply. Events
	// on the EventsURI stream carry no request id.
	RequestIDHeader = "X-Request-Id"
)

// envelope wraps a command.Response (or a standalone Event push) with the
// correlation id from the request that produced it.
type envelope struct {
	RequestID string `json:"request_id,omitempty"`
	Response *command.Response `json:"response,omitempty"`
	Event *timer.Event `json:"event,omitempty"`
}

// Server serves CommandURI and EventsURI over HTTP for one Sink/Timer pair.
type Server struct {
	sink command.Sink
	tm *timer.Timer

	mu sync.Mutex
	listeners map[string]chan timer.Event
}

// NewServer wraps sink (normally a *command.Local) and tm (for the event
// stream) as an HTTP handler.
func NewServer(sink command.Sink, tm *timer.Timer) *Server {
	s := &Server{sink: sink, tm: tm, listeners: make(map[string]chan timer.Event)}
	tm.AddListener(s.broadcast)
	return s
}

func (s *Server) broadcast(e timer.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.listeners {
		select {
		case ch <- e:
		default:
			log.Warnf("protocol: event listener channel full, dropping %v", e)
		}
	}
}

// Handler returns an http.Handler serving CommandURI and EventsURI, suitable
// for mounting under any mux (mirrors rapi's "register onto caller's mux"
// convention rather than owning its own *http.Server).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(CommandURI, s.handleCommand)
	mux.HandleFunc(EventsURI, s.handleEvents)
	return mux
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req, err := command.Deserialize[command.Request](data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := s.sink.Dispatch(*req)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(RequestIDHeader, reqID)
	code := http.StatusOK
	if resp.ErrorText != "" {
		code = http.StatusBadRequest
	}
	w.WriteHeader(code)
	body, err := command.Serialize(envelope{RequestID: reqID, Response: &resp})
	if err != nil {
		log.Errf("protocol: serializing response: %v", err)
		return
	}
	_, _ = w.Write(body)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	id := uuid.NewString()
	ch := make(chan timer.Event, 32)
	s.mu.Lock()
	s.listeners[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-ch:
			body, err := json.Marshal(envelope{Event: &e})
			if err != nil {
				log.Errf("protocol: marshaling event: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", body)
			flusher.Flush()
		}
	}
}

// RemoteSink implements command.Sink by POSTing to a Server's CommandURI,
// the client-side analogue of jrpc.Call[Q,T] (fixed to command's Request
// and Response types instead of being fully generic, since a Sink has one
// shape).
type RemoteSink struct {
	BaseURL string
	Client *http.Client
	Timeout time.Duration
}

// NewRemoteSink returns a RemoteSink pointed at baseURL (e.g.
// "http://localhost:8765").
func NewRemoteSink(baseURL string) *RemoteSink {
	return &RemoteSink{BaseURL: baseURL, Client: http.DefaultClient, Timeout: 10 * time.Second}
}

// Dispatch serializes req, POSTs it to CommandURI and deserializes the
// envelope's Response. A transport failure is reported as an error-carrying
// Response rather than returned separately, keeping Dispatch's contract
// identical across command.Local and RemoteSink.
func (rs *RemoteSink) Dispatch(req command.Request) command.Response {
	payload, err := command.Serialize(req)
	if err != nil {
		return command.Response{ErrorText: err.Error()}
	}
	ctx, cancel := context.WithTimeout(context.Background(), rs.Timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, rs.BaseURL+CommandURI, bytes.NewReader(payload))
	if err != nil {
		return command.Response{ErrorText: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(RequestIDHeader, uuid.NewString())
	client := rs.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return command.Response{ErrorText: err.Error()}
	}
	defer httpResp.Body.Close()
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return command.Response{ErrorText: err.Error()}
	}
	env, err := command.Deserialize[envelope](body)
	if err != nil {
		return command.Response{ErrorText: err.Error()}
	}
	if env.Response == nil {
		return command.Response{ErrorText: "protocol: empty response envelope"}
	}
	return *env.Response
}
