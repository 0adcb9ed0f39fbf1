package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/frahmantamala/staff-management/internal/user"
	"github.com/jmoiron/sqlx"
)

// Directory is the read side of the staff listing: users joined with their role
// and department in a single query.
type Directory struct {
	db *sqlx.DB
}

func NewDirectory(db *sqlx.DB) *Directory {
	return &Directory{db: db}
}

const directoryQuery = `
SELECT u.id, u.email, u.first_name, u.last_name, u.status, u.is_active,
       u.role_id, r.name AS role_name, r.level AS role_level,
       u.department_id, d.code AS department_code, d.name AS department_name,
       u.created_at
FROM users u
LEFT JOIN roles r ON r.id = u.role_id
LEFT JOIN departments d ON d.id = u.department_id`

func (d *Directory) List(ctx context.Context, filter user.ListFilter) ([]*user.DirectoryEntry, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		where = append(where, "u.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.RoleID != 0 {
		where = append(where, "u.role_id = ?")
		args = append(args, filter.RoleID)
	}
	if filter.DepartmentID != 0 {
		where = append(where, "u.department_id = ?")
		args = append(args, filter.DepartmentID)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		like := "%" + q + "%"
		where = append(where, "(LOWER(u.email) LIKE ? OR LOWER(u.first_name) LIKE ? OR LOWER(u.last_name) LIKE ?)")
		args = append(args, like, like, like)
	}

	query := directoryQuery
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY u.id"

	entries := make([]*user.DirectoryEntry, 0)
	if err := d.db.SelectContext(ctx, &entries, d.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list staff directory: %w", err)
	}
	return entries, nil
}
