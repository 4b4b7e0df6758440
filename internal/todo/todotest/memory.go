// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package todotest provides an in-memory [todo.Repository] for tests.
package todotest

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/todos/internal/platform/dberr"
	"github.com/taibuivan/todos/internal/todo"
	"github.com/taibuivan/todos/pkg/pointer"
	"github.com/taibuivan/todos/pkg/textutil"
)

// Repository is a concurrency-safe in-memory [todo.Repository].
//
// Fail, when set, is returned by every method.
type Repository struct {
	mu    sync.Mutex
	rows  map[string]todo.Todo
	calls map[string]int
	Fail  error
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{rows: make(map[string]todo.Todo), calls: make(map[string]int)}
}

// Calls returns how many times method was invoked.
func (repository *Repository) Calls(method string) int {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	return repository.calls[method]
}

// Len returns the number of stored rows.
func (repository *Repository) Len() int {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	return len(repository.rows)
}

func (repository *Repository) enter(method string) error {
	repository.mu.Lock()
	repository.calls[method]++
	return repository.Fail
}

func (repository *Repository) Get(_ context.Context, id string) (*todo.Todo, error) {
	if err := repository.enter("Get"); err != nil {
		repository.mu.Unlock()
		return nil, err
	}
	defer repository.mu.Unlock()

	row, ok := repository.rows[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return &row, nil
}

func (repository *Repository) Insert(_ context.Context, item *todo.Todo) error {
	if err := repository.enter("Insert"); err != nil {
		repository.mu.Unlock()
		return err
	}
	defer repository.mu.Unlock()

	repository.rows[item.ID] = *item
	return nil
}

func (repository *Repository) Update(_ context.Context, id string, patch todo.Patch) (*todo.Todo, error) {
	if err := repository.enter("Update"); err != nil {
		repository.mu.Unlock()
		return nil, err
	}
	defer repository.mu.Unlock()

	row, ok := repository.rows[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	row.Title = pointer.Fallback(patch.Title, row.Title)
	row.IsCompleted = pointer.Fallback(patch.IsCompleted, row.IsCompleted)
	row.UpdatedAt = patch.UpdatedAt
	if !row.UpdatedAt.After(row.CreatedAt) {
		row.UpdatedAt = row.CreatedAt.Add(time.Microsecond)
	}
	repository.rows[id] = row
	return &row, nil
}

func (repository *Repository) Delete(_ context.Context, id string) error {
	if err := repository.enter("Delete"); err != nil {
		repository.mu.Unlock()
		return err
	}
	defer repository.mu.Unlock()

	if _, ok := repository.rows[id]; !ok {
		return dberr.ErrNotFound
	}
	delete(repository.rows, id)
	return nil
}

func (repository *Repository) Count(_ context.Context, filter todo.Filter) (int, error) {
	if err := repository.enter("Count"); err != nil {
		repository.mu.Unlock()
		return 0, err
	}
	defer repository.mu.Unlock()

	return len(repository.match(filter)), nil
}

func (repository *Repository) List(_ context.Context, filter todo.Filter, order todo.Order, offset, limit int) ([]*todo.Todo, error) {
	if err := repository.enter("List"); err != nil {
		repository.mu.Unlock()
		return nil, err
	}
	defer repository.mu.Unlock()

	rows := repository.match(filter)
	slices.SortFunc(rows, func(a, b *todo.Todo) int {
		var result int
		switch order.By {
		case todo.OrderByTitle:
			result = strings.Compare(a.Title, b.Title)
		case todo.OrderByUpdatedAt:
			result = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			result = a.CreatedAt.Compare(b.CreatedAt)
		}
		if result == 0 {
			result = cmp.Compare(a.ID, b.ID)
		}
		if order.Direction == todo.DirectionAsc {
			return result
		}
		return -result
	})

	if offset >= len(rows) {
		return []*todo.Todo{}, nil
	}
	end := min(offset+limit, len(rows))
	return rows[offset:end], nil
}

func (repository *Repository) match(filter todo.Filter) []*todo.Todo {
	needle := textutil.Lower(filter.Query)
	matches := make([]*todo.Todo, 0, len(repository.rows))
	for _, row := range repository.rows {
		if needle != "" && !strings.Contains(textutil.Lower(row.Title), needle) {
			continue
		}
		if filter.Completed != nil && row.IsCompleted != *filter.Completed {
			continue
		}
		copied := row
		matches = append(matches, &copied)
	}
	return matches
}
