// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/taibuivan/todos/internal/platform/apperr"
	"github.com/taibuivan/todos/internal/platform/ctxutil"
	"github.com/taibuivan/todos/pkg/uuid"
)

// MaxIterations caps the model calls of a single turn.
const MaxIterations = 5

// SystemPrompt introduces the assistant and its tools to the model.
const SystemPrompt = `You are a helpful assistant that manages the user's todo list.

Tools:
1. get_todos_count: how many todos exist.
2. show_todos: one page (ten items) of todos, optionally filtered and sorted.
3. add_todo: create a todo. Titles need at least 5 characters.
4. save_to_local_storage: store a key and value in the user's browser.

When a tool already answers the question, reply with one short sentence.
Never invent todos that a tool did not return.`

// Tool call outcomes, as recorded in metrics.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
	outcomeClient   = "client"
)

// Recorder receives chat events for metrics.
type Recorder interface {
	RecordToolCall(tool, outcome string)
	RecordChatTurn(reason string)
}

// NopRecorder discards chat events.
type NopRecorder struct{}

func (NopRecorder) RecordToolCall(string, string) {}
func (NopRecorder) RecordChatTurn(string)         {}

// Turn is the outcome of [Relay.Run].
type Turn struct {
	History    []Message
	Finish     FinishReason
	Iterations int
}

// turnState is threaded through the pipeline. Stages receive a copy and
// return a new value; the history slice is only ever appended to via
// [appendMessage].
type turnState struct {
	history   []Message
	iteration int
	calls     []ToolCall
	finish    FinishReason
}

// stage is one step of an iteration.
type stage func(ctx context.Context, state turnState) (turnState, error)

// Relay runs the agent loop between a [Provider] and a [Toolbox].
type Relay struct {
	provider      Provider
	toolbox       *Toolbox
	recorder      Recorder
	tracer        trace.Tracer
	system        string
	maxIterations int
}

// NewRelay constructs a new [Relay] using [SystemPrompt] and [MaxIterations].
func NewRelay(provider Provider, toolbox *Toolbox, recorder Recorder) *Relay {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Relay{
		provider:      provider,
		toolbox:       toolbox,
		recorder:      recorder,
		tracer:        otel.Tracer("github.com/taibuivan/todos/internal/chat"),
		system:        SystemPrompt,
		maxIterations: MaxIterations,
	}
}

/*
Run answers the last message of history, streaming progress to sink.

Description: Each iteration runs the generate stage and, when the model
asked for tools, the dispatch stage. The loop ends when the model answers
without tool calls, when it calls a client-side tool, or after
[MaxIterations] model calls.

Cancellation of ctx aborts the in-flight model or tool call and no further
iteration starts.

Returns:
  - *Turn: The extended history and the finish reason
  - error: ClientClosed on cancellation, UPSTREAM_ERROR on provider or tool failure
*/
func (relay *Relay) Run(ctx context.Context, history []Message, sink Sink) (*Turn, error) {
	ctx, span := relay.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.Int("chat.history_length", len(history)),
	))
	defer span.End()

	pipeline := []stage{relay.generate(sink), relay.dispatch(sink)}
	state := turnState{history: slices.Clip(history)}

	for state.finish == "" && state.iteration < relay.maxIterations {
		for _, run := range pipeline {
			next, err := run(ctx, state)
			if err != nil {
				return nil, relay.fail(ctx, span, err)
			}
			state = next
			if state.finish != "" {
				break
			}
		}
	}
	if state.finish == "" {
		state.finish = FinishMaxIterations
	}

	if err := sink.Emit(Event{Type: EventFinish, FinishReason: state.finish}); err != nil {
		return nil, relay.fail(ctx, span, err)
	}

	span.SetAttributes(
		attribute.Int("chat.iterations", state.iteration),
		attribute.String("chat.finish_reason", string(state.finish)),
	)
	relay.recorder.RecordChatTurn(string(state.finish))
	ctxutil.GetLogger(ctx).InfoContext(ctx, "chat_turn_finished",
		slog.Int("iterations", state.iteration),
		slog.String("finish_reason", string(state.finish)),
	)

	return &Turn{History: state.history, Finish: state.finish, Iterations: state.iteration}, nil
}

// # Stages

// generate makes one model call and records the assistant message.
func (relay *Relay) generate(sink Sink) stage {
	return func(ctx context.Context, state turnState) (turnState, error) {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		iteration := state.iteration + 1
		reply, err := relay.provider.Generate(ctx, Generation{
			System:  relay.system,
			History: state.history,
			Tools:   relay.toolbox.Tools(),
		}, func(delta Delta) error {
			eventType := EventTextDelta
			if delta.Kind == PartReasoning {
				eventType = EventReasoningDelta
			}
			return sink.Emit(Event{
				Type:  eventType,
				ID:    fmt.Sprintf("%s-%d", delta.Kind, iteration),
				Delta: delta.Text,
			})
		})
		if err != nil {
			return state, err
		}

		message := Message{ID: uuid.New(), Role: RoleAssistant}
		if reply.Reasoning != "" {
			message.Parts = append(message.Parts, Part{Type: PartReasoning, Text: reply.Reasoning})
		}
		if reply.Text != "" {
			message.Parts = append(message.Parts, Part{Type: PartText, Text: reply.Text})
		}
		for _, call := range reply.Calls {
			message.Parts = append(message.Parts, Part{
				Type:       PartToolCall,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Input:      normalizeInput(call.Input),
			})
		}

		next := state
		next.iteration = iteration
		next.calls = reply.Calls
		if len(message.Parts) > 0 {
			next.history = appendMessage(state.history, message)
		}
		if len(reply.Calls) == 0 {
			next.finish = FinishStop
		}
		return next, nil
	}
}

// dispatch runs the pending tool calls and records their results.
//
// Client-side calls are streamed but not executed. They end the turn once
// the server-side calls of the same reply have run.
func (relay *Relay) dispatch(sink Sink) stage {
	return func(ctx context.Context, state turnState) (turnState, error) {
		results := Message{ID: uuid.New(), Role: RoleTool}
		awaitingClient := false

		for _, call := range state.calls {
			if err := ctx.Err(); err != nil {
				return state, err
			}

			input := normalizeInput(call.Input)
			if err := sink.Emit(Event{
				Type:       EventToolInputAvailable,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Input:      input,
			}); err != nil {
				return state, err
			}

			output, client, err := relay.invoke(ctx, call, input)
			if err != nil {
				return state, err
			}
			if client {
				awaitingClient = true
				continue
			}

			if err := sink.Emit(Event{
				Type:       EventToolOutputAvailable,
				ToolCallID: call.ID,
				Output:     output,
			}); err != nil {
				return state, err
			}
			results.Parts = append(results.Parts, Part{
				Type:       PartToolResult,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Output:     output,
			})
		}

		next := state
		next.calls = nil
		if len(results.Parts) > 0 {
			next.history = appendMessage(state.history, results)
		}
		if awaitingClient {
			next.finish = FinishToolCalls
		}
		return next, nil
	}
}

// invoke runs one tool call. Expected failures become an {"error": ...}
// output the model can read; anything else fails the turn.
func (relay *Relay) invoke(ctx context.Context, call ToolCall, input json.RawMessage) (json.RawMessage, bool, error) {
	ctx, span := relay.tracer.Start(ctx, "chat.tool", trace.WithAttributes(
		attribute.String("chat.tool.name", call.Name),
	))
	defer span.End()

	tool, ok := relay.toolbox.Lookup(call.Name)
	if !ok {
		relay.recorder.RecordToolCall(call.Name, outcomeRejected)
		return errorOutput("Unknown tool: " + call.Name), false, nil
	}

	if tool.ClientSide() {
		if err := tool.parse(input); err != nil {
			relay.recorder.RecordToolCall(tool.Name, outcomeRejected)
			return errorOutput(err.Error()), false, nil
		}
		relay.recorder.RecordToolCall(tool.Name, outcomeClient)
		return nil, true, nil
	}

	value, err := tool.execute(ctx, input)
	if err != nil {
		if recoverable(err) {
			relay.recorder.RecordToolCall(tool.Name, outcomeRejected)
			return errorOutput(err.Error()), false, nil
		}
		relay.recorder.RecordToolCall(tool.Name, outcomeFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "tool failed")
		return nil, false, apperr.Upstream(fmt.Sprintf("Tool %s failed", tool.Name), err)
	}

	output, err := json.Marshal(value)
	if err != nil {
		relay.recorder.RecordToolCall(tool.Name, outcomeFailed)
		return nil, false, apperr.Internal(err)
	}

	relay.recorder.RecordToolCall(tool.Name, outcomeOK)
	return output, false, nil
}

// fail classifies a turn error. Cancellation wins over whatever error the
// aborted call produced.
func (relay *Relay) fail(ctx context.Context, span trace.Span, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		relay.recorder.RecordChatTurn("cancelled")
		span.SetAttributes(attribute.Bool("chat.cancelled", true))
		return apperr.ClientClosed(err)
	}

	relay.recorder.RecordChatTurn("error")
	span.RecordError(err)
	span.SetStatus(codes.Error, "chat turn failed")

	if apperr.IsAppError(err) {
		return err
	}
	return apperr.Upstream("The assistant failed to respond", err)
}

func normalizeInput(input json.RawMessage) json.RawMessage {
	if len(input) == 0 || string(input) == "null" {
		return json.RawMessage("{}")
	}
	return input
}

func errorOutput(message string) json.RawMessage {
	output, _ := json.Marshal(map[string]string{"error": message})
	return output
}
