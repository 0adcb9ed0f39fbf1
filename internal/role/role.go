package role

import (
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/staff-management/internal/capability"
	roleDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/role"
)

const (
	MinLevel = 10
	MaxLevel = 120
)

type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Level       int       `json:"level"`
	Permissions []string  `json:"permissions"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *Role) PermissionSet() capability.Set {
	return capability.Parse(r.Permissions)
}

func (r *Role) Capabilities() capability.Profile {
	return capability.Resolve(r.Permissions)
}

// NormalizePermissions trims, de-duplicates and sorts permission strings.
// Unknown strings are kept so roles survive vocabulary changes.
func NormalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func ToDataModel(r *Role) *roleDatamodel.Role {
	return &roleDatamodel.Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Level:       r.Level,
		Permissions: r.Permissions,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func FromDataModel(r *roleDatamodel.Role) *Role {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return &Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Level:       r.Level,
		Permissions: perms,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
