package schema

// CoreTodoTable represents the 'core.todos' table
type CoreTodoTable struct {
	Table       string
	ID          string
	Title       string
	IsCompleted string
	CreatedAt   string
	UpdatedAt   string
}

// CoreTodo is the schema definition for core.todos
var CoreTodo = CoreTodoTable{
	Table:       "core.todos",
	ID:          "id",
	Title:       "title",
	IsCompleted: "iscompleted",
	CreatedAt:   "createdat",
	UpdatedAt:   "updatedat",
}

// Columns returns all standard column names
func (t CoreTodoTable) Columns() []string {
	return []string{t.ID, t.Title, t.IsCompleted, t.CreatedAt, t.UpdatedAt}
}
