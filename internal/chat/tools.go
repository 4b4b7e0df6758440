// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/taibuivan/todos/internal/platform/apperr"
	"github.com/taibuivan/todos/internal/todo"
)

// # Schemas

// Schema is the subset of JSON Schema needed to describe tool inputs and outputs.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
}

func object(properties map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "object", Properties: properties, Required: required}
}

func text(description string, enum ...string) *Schema {
	return &Schema{Type: "string", Description: description, Enum: enum}
}

// # Tools

// Tool names.
const (
	ToolGetTodosCount      = "get_todos_count"
	ToolShowTodos          = "show_todos"
	ToolAddTodo            = "add_todo"
	ToolSaveToLocalStorage = "save_to_local_storage"
)

// Tool is a function the model may call.
//
// A tool without an executor is client-side: the relay forwards the call to
// the browser and ends the turn so the client can post the result back.
type Tool struct {
	Name        string
	Description string
	Input       *Schema
	Output      *Schema
	execute     func(ctx context.Context, input json.RawMessage) (any, error)
	parse       func(input json.RawMessage) error
}

// ClientSide reports whether the browser runs the tool.
func (tool *Tool) ClientSide() bool {
	return tool.execute == nil
}

// Toolbox holds the declared tools in a stable order.
type Toolbox struct {
	tools []*Tool
	index map[string]*Tool
}

// todoSummary is a todo as shown to the model, without timestamps.
type todoSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
}

type countInput struct{}

type showInput struct {
	Query     string `json:"query" validate:"max=200"`
	Status    string `json:"status" validate:"omitempty,oneof=all completed pending"`
	OrderBy   string `json:"orderBy" validate:"omitempty,oneof=title createdAt updatedAt"`
	Direction string `json:"direction" validate:"omitempty,oneof=asc desc"`
	Page      int    `json:"page" validate:"omitempty,min=1"`
}

type addInput struct {
	Title string `json:"title" validate:"required"`
}

type saveInput struct {
	Key   string `json:"key" validate:"required,max=256"`
	Value string `json:"value" validate:"max=10000"`
}

// NewToolbox declares the todo tools on top of the use cases.
func NewToolbox(todos todo.UseCases) *Toolbox {
	minimumPage := 1.0

	toolbox := &Toolbox{index: make(map[string]*Tool)}
	toolbox.register(&Tool{
		Name:        ToolGetTodosCount,
		Description: "Get the number of todos",
		Input:       object(nil),
		Output:      &Schema{Type: "integer"},
		execute: serverTool(func(ctx context.Context, _ countInput) (any, error) {
			return todos.Count(ctx, todo.Filter{})
		}),
	})
	toolbox.register(&Tool{
		Name:        ToolShowTodos,
		Description: "List the user todos, ten per page",
		Input: object(map[string]*Schema{
			"query":     text("Case-insensitive substring of the title"),
			"status":    text("Completion filter", string(todo.StatusAll), string(todo.StatusCompleted), string(todo.StatusPending)),
			"orderBy":   text("Sort column", string(todo.OrderByTitle), string(todo.OrderByCreatedAt), string(todo.OrderByUpdatedAt)),
			"direction": text("Sort direction", string(todo.DirectionAsc), string(todo.DirectionDesc)),
			"page":      {Type: "integer", Description: "1-based page number", Minimum: &minimumPage},
		}),
		Output: &Schema{Type: "array", Items: object(map[string]*Schema{
			"id":          {Type: "string"},
			"title":       {Type: "string"},
			"isCompleted": {Type: "boolean"},
		}, "id", "title", "isCompleted")},
		execute: serverTool(func(ctx context.Context, input showInput) (any, error) {
			if input.Page == 0 {
				input.Page = 1
			}
			page, err := todos.List(ctx, todo.Query(input))
			if err != nil {
				return nil, err
			}
			summaries := make([]todoSummary, 0, len(page.Items))
			for _, item := range page.Items {
				summaries = append(summaries, todoSummary{ID: item.ID, Title: item.Title, IsCompleted: item.IsCompleted})
			}
			return summaries, nil
		}),
	})
	toolbox.register(&Tool{
		Name:        ToolAddTodo,
		Description: "Add a new todo with the given title (at least 5 characters)",
		Input:       object(map[string]*Schema{"title": text("Title of the todo")}, "title"),
		Output:      &Schema{Type: "string", Description: "Confirmation message"},
		execute: serverTool(func(ctx context.Context, input addInput) (any, error) {
			result, err := todos.Create(ctx, todo.CreateInput{Title: input.Title})
			if err != nil {
				return nil, err
			}
			return result.Message, nil
		}),
	})
	toolbox.register(&Tool{
		Name:        ToolSaveToLocalStorage,
		Description: "Save data to browser local storage",
		Input: object(map[string]*Schema{
			"key":   text("Storage key"),
			"value": text("Value to store"),
		}, "key", "value"),
		Output: object(map[string]*Schema{"saved": {Type: "boolean"}}, "saved"),
		parse: func(raw json.RawMessage) error {
			var input saveInput
			return decodeInput(raw, &input)
		},
	})

	return toolbox
}

func (toolbox *Toolbox) register(tool *Tool) {
	toolbox.tools = append(toolbox.tools, tool)
	toolbox.index[tool.Name] = tool
}

// Tools returns the declared tools in declaration order.
func (toolbox *Toolbox) Tools() []*Tool {
	return toolbox.tools
}

// Lookup finds a tool by name.
func (toolbox *Toolbox) Lookup(name string) (*Tool, bool) {
	tool, ok := toolbox.index[name]
	return tool, ok
}

// serverTool adapts a typed function into an executor that decodes and
// validates its input first.
func serverTool[T any](run func(ctx context.Context, input T) (any, error)) func(context.Context, json.RawMessage) (any, error) {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var input T
		if err := decodeInput(raw, &input); err != nil {
			return nil, err
		}
		return run(ctx, input)
	}
}

// decodeInput strictly decodes a tool input. A missing input is an empty object.
func decodeInput(raw json.RawMessage, target any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return apperr.ValidationError(fmt.Sprintf("Invalid tool input: %v", err))
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return apperr.ValidationError("Invalid tool input: trailing data")
	}

	return check(target)
}

// recoverable reports whether a tool error is an expected outcome the model
// can react to, rather than a failure that ends the turn.
func recoverable(err error) bool {
	return apperr.HasCode(err, apperr.CodeValidation) || apperr.HasCode(err, apperr.CodeNotFound)
}
