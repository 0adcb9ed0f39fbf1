package role

import (
	"strings"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/capability"
	"github.com/frahmantamala/staff-management/internal/core/common/validation"
)

type CreateRoleDTO struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Level       int      `json:"level"`
	Permissions []string `json:"permissions"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

func (d *CreateRoleDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)

	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("description", d.Description).MaxLength(500)
	v.Field("level", d.Level).IntRange(MinLevel, MaxLevel, internal.ErrCodeInvalidLevel)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateRoleDTO struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Level       *int      `json:"level,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
	IsActive    *bool     `json:"is_active,omitempty"`
}

func (d *UpdateRoleDTO) Validate() error {
	v := validation.NewValidator()
	if d.Name != nil {
		trimmed := strings.TrimSpace(*d.Name)
		d.Name = &trimmed
		v.Field("name", trimmed).Required().MaxLength(100)
	}
	if d.Description != nil {
		v.Field("description", *d.Description).MaxLength(500)
	}
	if d.Level != nil {
		v.Field("level", *d.Level).IntRange(MinLevel, MaxLevel, internal.ErrCodeInvalidLevel)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RoleResponse struct {
	*Role
	Capabilities capability.Profile `json:"capabilities"`
}

func NewRoleResponse(r *Role) RoleResponse {
	return RoleResponse{Role: r, Capabilities: r.Capabilities()}
}

type RolesResponse struct {
	Roles []RoleResponse `json:"roles"`
}
