// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/todos/internal/chat"
	"github.com/taibuivan/todos/internal/platform/apperr"
	"github.com/taibuivan/todos/internal/todo"
	"github.com/taibuivan/todos/internal/todo/todotest"
)

// # Fakes

// step answers one model call.
type step func(ctx context.Context, generation chat.Generation, onDelta func(chat.Delta) error) (*chat.Reply, error)

// scriptedProvider plays steps in order and repeats the last one.
type scriptedProvider struct {
	mu          sync.Mutex
	steps       []step
	generations []chat.Generation
}

func (provider *scriptedProvider) Generate(ctx context.Context, generation chat.Generation, onDelta func(chat.Delta) error) (*chat.Reply, error) {
	provider.mu.Lock()
	index := min(len(provider.generations), len(provider.steps)-1)
	provider.generations = append(provider.generations, generation)
	provider.mu.Unlock()

	return provider.steps[index](ctx, generation, onDelta)
}

func (provider *scriptedProvider) calls() int {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	return len(provider.generations)
}

func answer(text string) step {
	return func(_ context.Context, _ chat.Generation, onDelta func(chat.Delta) error) (*chat.Reply, error) {
		if err := onDelta(chat.Delta{Kind: chat.PartText, Text: text}); err != nil {
			return nil, err
		}
		return &chat.Reply{Text: text}, nil
	}
}

func callTools(calls ...chat.ToolCall) step {
	return func(context.Context, chat.Generation, func(chat.Delta) error) (*chat.Reply, error) {
		return &chat.Reply{Calls: calls}, nil
	}
}

func call(id, name, input string) chat.ToolCall {
	return chat.ToolCall{ID: id, Name: name, Input: json.RawMessage(input)}
}

type recordingSink struct {
	events []chat.Event
}

func (sink *recordingSink) Emit(event chat.Event) error {
	sink.events = append(sink.events, event)
	return nil
}

func (sink *recordingSink) ofType(eventType chat.EventType) []chat.Event {
	var matched []chat.Event
	for _, event := range sink.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type turnRecorder struct {
	mu    sync.Mutex
	tools map[string]int
	turns []string
}

func (recorder *turnRecorder) RecordToolCall(tool, outcome string) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.tools == nil {
		recorder.tools = make(map[string]int)
	}
	recorder.tools[tool+"/"+outcome]++
}

func (recorder *turnRecorder) RecordChatTurn(reason string) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.turns = append(recorder.turns, reason)
}

// # Helpers

type relayFixture struct {
	relay      *chat.Relay
	provider   *scriptedProvider
	todos      *todo.Service
	repository *todotest.Repository
	recorder   *turnRecorder
}

func newRelay(t *testing.T, steps ...step) *relayFixture {
	t.Helper()
	repository := todotest.NewRepository()
	todos := todo.NewService(repository, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	provider := &scriptedProvider{steps: steps}
	recorder := &turnRecorder{}

	return &relayFixture{
		relay:      chat.NewRelay(provider, chat.NewToolbox(todos), recorder),
		provider:   provider,
		todos:      todos,
		repository: repository,
		recorder:   recorder,
	}
}

func (fixture *relayFixture) seed(t *testing.T, count int) {
	t.Helper()
	for index := range count {
		_, err := fixture.todos.Create(context.Background(), todo.CreateInput{Title: fmt.Sprintf("Todo number %02d", index)})
		require.NoError(t, err)
	}
}

func userSays(text string) []chat.Message {
	return []chat.Message{{Role: chat.RoleUser, Parts: []chat.Part{{Type: chat.PartText, Text: text}}}}
}

// # Tests

/*
TestRelay_CountToolMatchesService checks that get_todos_count reports the
unfiltered count and that its result reaches the next model call.
*/
func TestRelay_CountToolMatchesService(t *testing.T) {
	fixture := newRelay(t,
		callTools(call("call-1", chat.ToolGetTodosCount, `{}`)),
		answer("You have 3 todos."),
	)
	fixture.seed(t, 3)
	sink := &recordingSink{}

	turn, err := fixture.relay.Run(context.Background(), userSays("How many todos do I have?"), sink)
	require.NoError(t, err)

	expected, err := fixture.todos.Count(context.Background(), todo.Filter{})
	require.NoError(t, err)

	outputs := sink.ofType(chat.EventToolOutputAvailable)
	require.Len(t, outputs, 1)
	assert.JSONEq(t, fmt.Sprint(expected), string(outputs[0].Output))

	assert.Equal(t, chat.FinishStop, turn.Finish)
	assert.Equal(t, 2, turn.Iterations)
	assert.Equal(t, 2, fixture.provider.calls())

	// user, assistant(tool-call), tool(result), assistant(text)
	require.Len(t, turn.History, 4)
	assert.Equal(t, chat.RoleTool, turn.History[2].Role)
	assert.Equal(t, "call-1", turn.History[2].Parts[0].ToolCallID)
	assert.Len(t, fixture.provider.generations[1].History, 3)

	finish := sink.ofType(chat.EventFinish)
	require.Len(t, finish, 1)
	assert.Equal(t, chat.FinishStop, finish[0].FinishReason)
	assert.Equal(t, []string{"stop"}, fixture.recorder.turns)
	assert.Equal(t, 1, fixture.recorder.tools["get_todos_count/ok"])
}

/*
TestRelay_IterationCap stops a model that keeps calling tools.
*/
func TestRelay_IterationCap(t *testing.T) {
	fixture := newRelay(t, callTools(call("call", chat.ToolGetTodosCount, `{}`)))
	sink := &recordingSink{}

	turn, err := fixture.relay.Run(context.Background(), userSays("count forever"), sink)
	require.NoError(t, err)

	assert.Equal(t, chat.MaxIterations, fixture.provider.calls())
	assert.Equal(t, chat.MaxIterations, turn.Iterations)
	assert.Equal(t, chat.FinishMaxIterations, turn.Finish)
	assert.Len(t, sink.ofType(chat.EventToolInputAvailable), chat.MaxIterations)
	assert.Equal(t, []string{"max-iterations"}, fixture.recorder.turns)
}

/*
TestRelay_ClientToolEndsTurn runs server tools but hands client tools back.
*/
func TestRelay_ClientToolEndsTurn(t *testing.T) {
	fixture := newRelay(t,
		callTools(
			call("call-1", chat.ToolShowTodos, `{}`),
			call("call-2", chat.ToolSaveToLocalStorage, `{"key":"todos","value":"12"}`),
		),
		answer("unreachable"),
	)
	fixture.seed(t, 12)
	sink := &recordingSink{}

	turn, err := fixture.relay.Run(context.Background(), userSays("save my todos"), sink)
	require.NoError(t, err)

	assert.Equal(t, chat.FinishToolCalls, turn.Finish)
	assert.Equal(t, 1, fixture.provider.calls())
	assert.Len(t, sink.ofType(chat.EventToolInputAvailable), 2)

	outputs := sink.ofType(chat.EventToolOutputAvailable)
	require.Len(t, outputs, 1)
	assert.Equal(t, "call-1", outputs[0].ToolCallID)

	var shown []map[string]any
	require.NoError(t, json.Unmarshal(outputs[0].Output, &shown))
	assert.Len(t, shown, todo.PageSize)
	assert.NotContains(t, shown[0], "createdAt")
	assert.Contains(t, shown[0], "isCompleted")

	assert.Equal(t, 1, fixture.recorder.tools["save_to_local_storage/client"])
}

/*
TestRelay_RejectedToolInput feeds expected failures back to the model.
*/
func TestRelay_RejectedToolInput(t *testing.T) {
	tests := []struct {
		name    string
		call    chat.ToolCall
		message string
	}{
		{"short_title", call("call-1", chat.ToolAddTodo, `{"title":"abc"}`), "post title must be at least 5 characters"},
		{"unknown_field", call("call-1", chat.ToolAddTodo, `{"title":"Buy milk","done":true}`), "Invalid tool input"},
		{"bad_status", call("call-1", chat.ToolShowTodos, `{"status":"archived"}`), "Must be one of"},
		{"unknown_tool", call("call-1", "delete_everything", `{}`), "Unknown tool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := newRelay(t, callTools(tt.call), answer("Sorry about that."))
			sink := &recordingSink{}

			turn, err := fixture.relay.Run(context.Background(), userSays("do something"), sink)
			require.NoError(t, err)

			outputs := sink.ofType(chat.EventToolOutputAvailable)
			require.Len(t, outputs, 1)
			var output map[string]string
			require.NoError(t, json.Unmarshal(outputs[0].Output, &output))
			assert.Contains(t, output["error"], tt.message)

			assert.Equal(t, chat.FinishStop, turn.Finish)
			assert.Zero(t, fixture.repository.Calls("Insert"))
		})
	}
}

/*
TestRelay_AddTodo creates through the mutation service.
*/
func TestRelay_AddTodo(t *testing.T) {
	fixture := newRelay(t, callTools(call("call-1", chat.ToolAddTodo, `{"title":"Buy milk"}`)), answer("Done."))
	sink := &recordingSink{}

	_, err := fixture.relay.Run(context.Background(), userSays("add buy milk"), sink)
	require.NoError(t, err)

	outputs := sink.ofType(chat.EventToolOutputAvailable)
	require.Len(t, outputs, 1)
	assert.JSONEq(t, `"Created todo with title: Buy milk"`, string(outputs[0].Output))
	assert.Equal(t, 1, fixture.repository.Len())
}

/*
TestRelay_ToolFailure ends the turn with an upstream error.
*/
func TestRelay_ToolFailure(t *testing.T) {
	fixture := newRelay(t, callTools(call("call-1", chat.ToolGetTodosCount, `{}`)), answer("unreachable"))
	fixture.repository.Fail = errors.New("connection refused")

	_, err := fixture.relay.Run(context.Background(), userSays("how many?"), &recordingSink{})

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, apperr.CodeUpstream, appError.Code)
	assert.Equal(t, "Tool get_todos_count failed", appError.Message)
	assert.Equal(t, 1, fixture.provider.calls())
	assert.Equal(t, []string{"error"}, fixture.recorder.turns)
}

/*
TestRelay_ProviderFailure wraps unexpected provider errors.
*/
func TestRelay_ProviderFailure(t *testing.T) {
	fixture := newRelay(t, func(context.Context, chat.Generation, func(chat.Delta) error) (*chat.Reply, error) {
		return nil, errors.New("quota exceeded")
	})

	_, err := fixture.relay.Run(context.Background(), userSays("hello"), &recordingSink{})

	assert.True(t, apperr.HasCode(err, apperr.CodeUpstream))
}

/*
TestRelay_Cancellation stops at the in-flight call and reports ClientClosed.
*/
func TestRelay_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fixture := newRelay(t, func(ctx context.Context, _ chat.Generation, _ func(chat.Delta) error) (*chat.Reply, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})
	sink := &recordingSink{}

	_, err := fixture.relay.Run(ctx, userSays("hello"), sink)

	assert.True(t, apperr.HasCode(err, apperr.CodeClientClosed))
	assert.Equal(t, 1, fixture.provider.calls())
	assert.Empty(t, sink.ofType(chat.EventFinish))
	assert.Equal(t, []string{"cancelled"}, fixture.recorder.turns)
}
