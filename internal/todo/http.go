// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/todos/internal/platform/request"
	"github.com/taibuivan/todos/internal/platform/respond"
	"github.com/taibuivan/todos/internal/platform/validate"
	"github.com/taibuivan/todos/pkg/pagination"
)

// Handler implements the todo HTTP endpoints.
//
// Authentication is enforced by the router before requests reach it.
type Handler struct {
	todos UseCases
}

// NewHandler constructs a new [Handler].
func NewHandler(todos UseCases) *Handler {
	return &Handler{todos: todos}
}

// Routes returns a [chi.Router] mounted at /api/todos.
//
// # Endpoints
//   - GET    /       : Paginated listing (query, status, orderBy, direction, page).
//   - GET    /count  : Number of matching todos (query, status).
//   - POST   /       : Creates a todo.
//   - GET    /{id}   : Fetches one todo.
//   - PATCH  /{id}   : Updates title and/or completion.
//   - DELETE /{id}   : Removes a todo.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/count", handler.count)
	router.Post("/", handler.create)
	router.Get("/{id}", handler.get)
	router.Patch("/{id}", handler.update)
	router.Delete("/{id}", handler.delete)

	return router
}

/*
list handles GET /api/todos.

A non-numeric page is a validation failure, not a silent default.
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	values := request.URL.Query()

	page, ok := pagination.ParsePage(values.Get(FieldPage))
	if !ok {
		respond.Error(writer, request, validate.FieldErr(FieldPage, msgInvalidPage))
		return
	}

	result, err := handler.todos.List(request.Context(), Query{
		Query:     values.Get(FieldQuery),
		Status:    values.Get(FieldStatus),
		OrderBy:   values.Get(FieldOrderBy),
		Direction: values.Get(FieldDirection),
		Page:      page,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, result.Items, result.Meta)
}

func (handler *Handler) count(writer http.ResponseWriter, request *http.Request) {
	values := request.URL.Query()

	filter, err := NewFilter(values.Get(FieldQuery), values.Get(FieldStatus))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	total, err := handler.todos.Count(request.Context(), filter)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int{"count": total})
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	todo, err := handler.todos.Get(request.Context(), requestutil.ID(request, FieldID))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, todo)
}

func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	var input CreateInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.todos.Create(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, result)
}

func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	var input UpdateInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.todos.Update(request.Context(), requestutil.ID(request, FieldID), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, result)
}

func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	result, err := handler.todos.Delete(request.Context(), requestutil.ID(request, FieldID))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, result)
}
