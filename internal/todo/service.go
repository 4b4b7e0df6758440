// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/todos/internal/platform/apperr"
	"github.com/taibuivan/todos/internal/platform/dberr"
	"github.com/taibuivan/todos/internal/platform/validate"
	"github.com/taibuivan/todos/pkg/pagination"
	"github.com/taibuivan/todos/pkg/pointer"
	"github.com/taibuivan/todos/pkg/textutil"
	"github.com/taibuivan/todos/pkg/uuid"
)

// # Use Case Contracts

// Queries is the read side of the todo list.
type Queries interface {
	List(ctx context.Context, query Query) (*Page, error)
	Get(ctx context.Context, id string) (*Todo, error)
	Count(ctx context.Context, filter Filter) (int, error)
}

// Mutations is the write side of the todo list.
type Mutations interface {
	Create(ctx context.Context, input CreateInput) (*Result, error)
	Update(ctx context.Context, id string, input UpdateInput) (*Result, error)
	Delete(ctx context.Context, id string) (*Result, error)
}

// UseCases is everything the transport layers need.
type UseCases interface {
	Queries
	Mutations
}

// Recorder receives one event per successful mutation.
type Recorder interface {
	RecordTodoMutation(operation string)
}

// NopRecorder discards mutation events.
type NopRecorder struct{}

func (NopRecorder) RecordTodoMutation(string) {}

// # Inputs & Outputs

// Query holds the raw listing parameters. Empty strings select the defaults.
type Query struct {
	Query     string `json:"query,omitempty"`
	Status    string `json:"status,omitempty"`
	OrderBy   string `json:"orderBy,omitempty"`
	Direction string `json:"direction,omitempty"`
	Page      int    `json:"page,omitempty"`
}

// Page is one window of a listing plus its pagination metadata.
type Page struct {
	Items []*Todo         `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

// CreateInput is the payload of [Service.Create].
type CreateInput struct {
	Title string `json:"title"`
}

// UpdateInput is the payload of [Service.Update]. Nil fields are left untouched.
type UpdateInput struct {
	Title       *string `json:"title,omitempty"`
	IsCompleted *bool   `json:"isCompleted,omitempty"`
}

// Result is the confirmation returned by every mutation.
type Result struct {
	Message string `json:"message"`
	Todo    *Todo  `json:"todo,omitempty"`
}

// # Service Layer

// Service validates todo operations and delegates persistence to a [Repository].
//
// It keeps no cache of its own; see [CachedService].
type Service struct {
	repository Repository
	recorder   Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs a new [Service].
func NewService(repository Repository, recorder Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Service{
		repository: repository,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
}

// # Queries

/*
List returns one page of todos matching the query.

Description: Validates every parameter before touching storage. An
out-of-range page is rejected, never clamped. An empty page is a valid
result.

Parameters:
  - context: context.Context
  - query: Query

Returns:
  - *Page: Items and metadata
  - error: ValidationError or storage failures
*/
func (service *Service) List(context context.Context, query Query) (*Page, error) {
	filter, order, err := query.compile()
	if err != nil {
		return nil, err
	}

	total, err := service.repository.Count(context, filter)
	if err != nil {
		return nil, err
	}

	params := pagination.Params{Page: query.Page, Limit: PageSize}
	items, err := service.repository.List(context, filter, order, params.Offset(), params.Limit)
	if err != nil {
		return nil, err
	}

	return &Page{
		Items: items,
		Meta:  pagination.NewMeta(params.Page, params.Limit, total),
	}, nil
}

// Get fetches a single todo by ID.
func (service *Service) Get(context context.Context, id string) (*Todo, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	todo, err := service.repository.Get(context, id)
	if err != nil {
		return nil, notFound(id, err)
	}
	return todo, nil
}

// Count returns the number of todos matching filter.
func (service *Service) Count(context context.Context, filter Filter) (int, error) {
	return service.repository.Count(context, filter)
}

// # Mutations

/*
Create validates and persists a new todo.

Description: The ID is a fresh UUIDv7. Both timestamps are taken from the
same clock reading, so a new todo always has CreatedAt == UpdatedAt.

Parameters:
  - context: context.Context
  - input: CreateInput

Returns:
  - *Result: Confirmation message and the created todo
  - error: ValidationError or persistence failures
*/
func (service *Service) Create(context context.Context, input CreateInput) (*Result, error) {
	title := textutil.NormalizeTitle(input.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	currentTime := service.clock()
	todo := &Todo{
		ID:          uuid.New(),
		Title:       title,
		IsCompleted: false,
		CreatedAt:   currentTime,
		UpdatedAt:   currentTime,
	}

	if err := service.repository.Insert(context, todo); err != nil {
		return nil, err
	}

	service.recorder.RecordTodoMutation("create")
	service.logger.Info("todo_created",
		slog.String("todo_id", todo.ID),
		slog.String("title", todo.Title),
	)

	return &Result{
		Message: fmt.Sprintf("Created todo with title: %s", todo.Title),
		Todo:    todo,
	}, nil
}

// Update applies the provided fields to an existing todo and refreshes its update time.
func (service *Service) Update(context context.Context, id string, input UpdateInput) (*Result, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	patch := Patch{IsCompleted: input.IsCompleted}
	if input.Title != nil {
		title := textutil.NormalizeTitle(*input.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		patch.Title = pointer.To(title)
	}

	if _, err := service.repository.Get(context, id); err != nil {
		return nil, notFound(id, err)
	}

	patch.UpdatedAt = service.clock()
	todo, err := service.repository.Update(context, id, patch)
	if err != nil {
		return nil, notFound(id, err)
	}

	service.recorder.RecordTodoMutation("update")
	service.logger.Info("todo_updated", slog.String("todo_id", id))

	return &Result{
		Message: fmt.Sprintf("Updated todo with id: %s", id),
		Todo:    todo,
	}, nil
}

// Delete removes an existing todo. The removal is unconditional and irreversible.
func (service *Service) Delete(context context.Context, id string) (*Result, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	if _, err := service.repository.Get(context, id); err != nil {
		return nil, notFound(id, err)
	}

	if err := service.repository.Delete(context, id); err != nil {
		return nil, notFound(id, err)
	}

	service.recorder.RecordTodoMutation("delete")
	service.logger.Warn("todo_deleted", slog.String("todo_id", id))

	return &Result{Message: fmt.Sprintf("Deleted todo with id: %s", id)}, nil
}

// clock returns the current time at the precision PostgreSQL stores.
func (service *Service) clock() time.Time {
	return service.now().UTC().Truncate(time.Microsecond)
}

// # Validation

// NewFilter validates the raw substring and status parameters.
func NewFilter(query, status string) (Filter, error) {
	filter, _, err := Query{Query: query, Status: status, Page: pagination.DefaultPage}.compile()
	return filter, err
}

// compile validates the query and turns it into storage arguments.
func (query Query) compile() (Filter, Order, error) {
	status := Status(query.Status)
	if status == "" {
		status = StatusAll
	}
	order := Order{By: OrderBy(query.OrderBy), Direction: Direction(query.Direction)}
	if order.By == "" {
		order.By = OrderByCreatedAt
	}
	if order.Direction == "" {
		order.Direction = DirectionDesc
	}

	validator := &validate.Validator{}
	validator.
		MaxLen(FieldQuery, query.Query, TitleMaxLength).
		OneOf(FieldStatus, string(status), string(StatusAll), string(StatusCompleted), string(StatusPending)).
		OneOf(FieldOrderBy, string(order.By), string(OrderByTitle), string(OrderByCreatedAt), string(OrderByUpdatedAt)).
		OneOf(FieldDirection, string(order.Direction), string(DirectionAsc), string(DirectionDesc)).
		Min(FieldPage, query.Page, 1, msgInvalidPage)

	if err := validator.Err(); err != nil {
		return Filter{}, Order{}, err
	}

	filter := Filter{Query: textutil.NormalizeTitle(query.Query)}
	switch status {
	case StatusCompleted:
		completed := true
		filter.Completed = &completed
	case StatusPending:
		completed := false
		filter.Completed = &completed
	}

	return filter, order, nil
}

func validateTitle(title string) error {
	validator := &validate.Validator{}
	validator.
		MinLen(FieldTitle, title, TitleMinLength, msgTitleTooShort).
		MaxLen(FieldTitle, title, TitleMaxLength, msgTitleTooLong)
	return validator.Err()
}

func validateID(id string) error {
	validator := &validate.Validator{}
	validator.UUID(FieldID, id, msgInvalidID)
	return validator.Err()
}

// notFound rewrites the generic storage outcome with the todo's own message.
func notFound(id string, err error) error {
	if dberr.IsNotFound(err) {
		return apperr.NotFoundf("todo with id %q not found!", id)
	}
	return err
}
