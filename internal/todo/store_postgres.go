// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/todos/internal/platform/database/schema"
	"github.com/taibuivan/todos/internal/platform/dberr"
	"github.com/taibuivan/todos/pkg/textutil"
)

// PostgresRepository implements [Repository] on the core.todos table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a new [PostgresRepository].
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var todoColumns = strings.Join(schema.CoreTodo.Columns(), ", ")

// sortColumns maps the public sort keys to their columns.
var sortColumns = map[OrderBy]string{
	OrderByTitle:     schema.CoreTodo.Title,
	OrderByCreatedAt: schema.CoreTodo.CreatedAt,
	OrderByUpdatedAt: schema.CoreTodo.UpdatedAt,
}

func scanTodo(row pgx.Row) (*Todo, error) {
	todo := &Todo{}
	err := row.Scan(&todo.ID, &todo.Title, &todo.IsCompleted, &todo.CreatedAt, &todo.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return todo, nil
}

func (repository *PostgresRepository) Get(context context.Context, id string) (*Todo, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		todoColumns, schema.CoreTodo.Table, schema.CoreTodo.ID)

	todo, err := scanTodo(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "get_todo")
	}
	return todo, nil
}

func (repository *PostgresRepository) Insert(context context.Context, todo *Todo) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5)`,
		schema.CoreTodo.Table, todoColumns)

	_, err := repository.db.Exec(context, query,
		todo.ID, todo.Title, todo.IsCompleted, todo.CreatedAt, todo.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "insert_todo")
	}
	return nil
}

func (repository *PostgresRepository) Update(context context.Context, id string, patch Patch) (*Todo, error) {
	query, args := buildUpdate(id, patch)

	todo, err := scanTodo(repository.db.QueryRow(context, query, args...))
	if err != nil {
		return nil, dberr.Wrap(err, "update_todo")
	}
	return todo, nil
}

func (repository *PostgresRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.CoreTodo.Table, schema.CoreTodo.ID)

	tag, err := repository.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete_todo")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) Count(context context.Context, filter Filter) (int, error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, schema.CoreTodo.Table, where)

	var total int
	if err := repository.db.QueryRow(context, query, args...).Scan(&total); err != nil {
		return 0, dberr.Wrap(err, "count_todos")
	}
	return total, nil
}

func (repository *PostgresRepository) List(context context.Context, filter Filter, order Order, offset, limit int) ([]*Todo, error) {
	query, args := buildList(filter, order, offset, limit)

	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "list_todos")
	}
	defer rows.Close()

	todos := make([]*Todo, 0, limit)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_todo")
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_todos")
	}

	return todos, nil
}

// buildWhere renders the filter as a WHERE clause (with a leading space) and its arguments.
func buildWhere(filter Filter) (string, []any) {
	var conditions []string
	var args []any
	argID := 1

	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf(`%s ILIKE '%%' || $%d || '%%' ESCAPE '\'`, schema.CoreTodo.Title, argID))
		args = append(args, textutil.EscapeLike(filter.Query))
		argID++
	}

	if filter.Completed != nil {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.CoreTodo.IsCompleted, argID))
		args = append(args, *filter.Completed)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

/*
buildUpdate builds the SET clause from the provided patch fields.

The new update time never falls to or below the creation time, even when the
application clock lags behind the one that stamped the row.
*/
func buildUpdate(id string, patch Patch) (string, []any) {
	var queryBuilder strings.Builder
	args := []any{patch.UpdatedAt}
	argID := 2

	queryBuilder.WriteString(fmt.Sprintf(
		"UPDATE %s SET %s = GREATEST($1, %s + INTERVAL '1 microsecond')",
		schema.CoreTodo.Table, schema.CoreTodo.UpdatedAt, schema.CoreTodo.CreatedAt,
	))

	if patch.Title != nil {
		queryBuilder.WriteString(fmt.Sprintf(", %s = $%d", schema.CoreTodo.Title, argID))
		args = append(args, *patch.Title)
		argID++
	}

	if patch.IsCompleted != nil {
		queryBuilder.WriteString(fmt.Sprintf(", %s = $%d", schema.CoreTodo.IsCompleted, argID))
		args = append(args, *patch.IsCompleted)
		argID++
	}

	queryBuilder.WriteString(fmt.Sprintf(" WHERE %s = $%d RETURNING %s", schema.CoreTodo.ID, argID, todoColumns))
	args = append(args, id)

	return queryBuilder.String(), args
}

// buildList renders one listing page. Ties on the sort column are broken by id
// in the same direction, so pages never overlap.
func buildList(filter Filter, order Order, offset, limit int) (string, []any) {
	where, args := buildWhere(filter)

	column, ok := sortColumns[order.By]
	if !ok {
		column = schema.CoreTodo.CreatedAt
	}
	direction := "DESC"
	if order.Direction == DirectionAsc {
		direction = "ASC"
	}

	argID := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s %s, %s %s LIMIT $%d OFFSET $%d`,
		todoColumns, schema.CoreTodo.Table, where,
		column, direction, schema.CoreTodo.ID, direction,
		argID, argID+1,
	)
	return query, append(args, limit, offset)
}
