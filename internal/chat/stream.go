// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// EventType is the "type" of a streamed event.
type EventType string

const (
	EventStart               EventType = "start"
	EventReasoningDelta      EventType = "reasoning-delta"
	EventTextDelta           EventType = "text-delta"
	EventToolInputAvailable  EventType = "tool-input-available"
	EventToolOutputAvailable EventType = "tool-output-available"
	EventFinish              EventType = "finish"
	EventError               EventType = "error"
)

// FinishReason explains why a turn ended.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishToolCalls     FinishReason = "tool-calls"
	FinishMaxIterations FinishReason = "max-iterations"
)

// Event is one Server-Sent Event payload.
type Event struct {
	Type         EventType       `json:"type"`
	MessageID    string          `json:"messageId,omitempty"`
	ID           string          `json:"id,omitempty"`
	Delta        string          `json:"delta,omitempty"`
	ToolCallID   string          `json:"toolCallId,omitempty"`
	ToolName     string          `json:"toolName,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	FinishReason FinishReason    `json:"finishReason,omitempty"`
	ErrorText    string          `json:"errorText,omitempty"`
}

// Sink receives the events of a turn.
type Sink interface {
	Emit(event Event) error
}

// doneMarker terminates every stream.
const doneMarker = "data: [DONE]\n\n"

// Stream writes events to an HTTP response as Server-Sent Events.
//
// Nothing is written until the first event, so a turn that fails early can
// still answer with a regular status code. The first write sends the headers
// and a start event.
type Stream struct {
	writer     http.ResponseWriter
	controller *http.ResponseController
	messageID  string
	started    bool
}

// NewStream prepares a stream for the assistant message messageID.
func NewStream(writer http.ResponseWriter, messageID string) *Stream {
	return &Stream{
		writer:     writer,
		controller: http.NewResponseController(writer),
		messageID:  messageID,
	}
}

// Started reports whether any byte of the response was written.
func (stream *Stream) Started() bool {
	return stream.started
}

// Emit writes one event and flushes it.
func (stream *Stream) Emit(event Event) error {
	if err := stream.start(); err != nil {
		return err
	}
	return stream.send(event)
}

// Fail reports a failure after streaming has begun.
func (stream *Stream) Fail(message string) error {
	return stream.Emit(Event{Type: EventError, ErrorText: message})
}

// Close writes the terminating [DONE] marker.
func (stream *Stream) Close() error {
	if err := stream.start(); err != nil {
		return err
	}
	if _, err := fmt.Fprint(stream.writer, doneMarker); err != nil {
		return err
	}
	return stream.controller.Flush()
}

func (stream *Stream) start() error {
	if stream.started {
		return nil
	}
	stream.started = true

	header := stream.writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	stream.writer.WriteHeader(http.StatusOK)

	return stream.send(Event{Type: EventStart, MessageID: stream.messageID})
}

func (stream *Stream) send(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(stream.writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	return stream.controller.Flush()
}
