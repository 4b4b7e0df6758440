// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package todo implements the todo list: its record store, the query and
mutation services, an optional Redis-backed read cache and the HTTP handlers.

# Architecture

  - Repository: durable storage of [Todo] rows (PostgreSQL).
  - Service: validates input, composes filters, enforces existence checks.
  - CachedService: the calling-layer cache that serves listings from Redis and
    drops them whenever a mutation succeeds.
  - Handler: JSON transport under /api/todos.
*/
package todo

import "time"

// # Domain Entities

// Todo is a titled task with a completion flag.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Status selects todos by completion.
type Status string

const (
	StatusAll       Status = "all"
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// OrderBy names a sortable attribute.
type OrderBy string

const (
	OrderByTitle     OrderBy = "title"
	OrderByCreatedAt OrderBy = "createdAt"
	OrderByUpdatedAt OrderBy = "updatedAt"
)

// Direction is the sort direction.
type Direction string

const (
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// Filter is the conjunctive predicate applied to listings and counts.
// Zero values mean "match all".
type Filter struct {
	// Query is a case-insensitive substring of the title.
	Query string
	// Completed restricts by completion when non-nil.
	Completed *bool
}

// Order is a validated sort field and direction.
type Order struct {
	By        OrderBy
	Direction Direction
}

// Patch carries the fields of an update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	IsCompleted *bool
	UpdatedAt   time.Time
}

// # Constraints

const (
	// PageSize is the fixed number of todos per listing page.
	PageSize = 10

	// TitleMinLength is the minimum title length, in characters.
	TitleMinLength = 5

	// TitleMaxLength caps the title length, in characters.
	TitleMaxLength = 500
)

// # Field Identifiers

const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldIsCompleted = "isCompleted"
	FieldQuery       = "query"
	FieldStatus      = "status"
	FieldOrderBy     = "orderBy"
	FieldDirection   = "direction"
	FieldPage        = "page"
)

// # Messages

const (
	msgTitleTooShort = "post title must be at least 5 characters"
	msgTitleTooLong  = "post title must be at most 500 characters"
	msgInvalidID     = "Invalid UUID format for todo ID"
	msgInvalidPage   = "page must be a positive integer"
)
