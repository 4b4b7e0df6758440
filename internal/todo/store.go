// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo

import "context"

// # Todo Data Access

// Repository defines the data access contract for todo records.
//
// Implementations return [apperr.AppError] values: NOT_FOUND for missing ids and
// INTERNAL_ERROR for storage failures. They never retry.
type Repository interface {

	/*
		Get returns the todo with the given ID.

		Parameters:
		  - ctx: context.Context
		  - id: string

		Returns:
		  - *Todo: Hydrated entity
		  - error: NotFound or storage failures
	*/
	Get(ctx context.Context, id string) (*Todo, error)

	/*
		Insert persists a new todo. ID and timestamps are assigned by the caller.

		Parameters:
		  - ctx: context.Context
		  - todo: *Todo

		Returns:
		  - error: Persistence failures
	*/
	Insert(ctx context.Context, todo *Todo) error

	/*
		Update applies the non-nil fields of patch and refreshes the update time.

		Parameters:
		  - ctx: context.Context
		  - id: string
		  - patch: Patch

		Returns:
		  - *Todo: The row after the update
		  - error: NotFound or persistence failures
	*/
	Update(ctx context.Context, id string, patch Patch) (*Todo, error)

	/*
		Delete physically removes the todo.

		Parameters:
		  - ctx: context.Context
		  - id: string

		Returns:
		  - error: NotFound or persistence failures
	*/
	Delete(ctx context.Context, id string) error

	/*
		Count returns the number of todos matching filter.

		Parameters:
		  - ctx: context.Context
		  - filter: Filter

		Returns:
		  - int: Matching rows
		  - error: Storage failures
	*/
	Count(ctx context.Context, filter Filter) (int, error)

	/*
		List returns one ordered window of todos matching filter.

		Parameters:
		  - ctx: context.Context
		  - filter: Filter
		  - order: Order
		  - offset: int
		  - limit: int

		Returns:
		  - []*Todo: Possibly empty page
		  - error: Storage failures
	*/
	List(ctx context.Context, filter Filter, order Order, offset, limit int) ([]*Todo, error)
}
