package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table         string
	ID            string
	Name          string
	Email         string
	EmailVerified string
	CreatedAt     string
	UpdatedAt     string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:         "users.account",
	ID:            "id",
	Name:          "name",
	Email:         "email",
	EmailVerified: "emailverified",
	CreatedAt:     "createdat",
	UpdatedAt:     "updatedat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{t.ID, t.Name, t.Email, t.EmailVerified, t.CreatedAt, t.UpdatedAt}
}
