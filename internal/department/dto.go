package department

import (
	"strings"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/approval"
	"github.com/frahmantamala/staff-management/internal/core/common/validation"
)

const (
	MinTier = 1
	MaxTier = 120
)

type CreateDepartmentDTO struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Level       int    `json:"level"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

func (d *CreateDepartmentDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.Code = NormalizeCode(d.Code)

	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("code", d.Code).
		Required().
		MaxLength(MaxCodeLength).
		Matches(codePattern, "code may contain only A-Z, 0-9, '_' and '-'", internal.ErrCodeInvalidCode)
	v.Field("description", d.Description).MaxLength(500)
	v.Field("level", d.Level).IntRange(MinTier, MaxTier, internal.ErrCodeInvalidLevel)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateDepartmentDTO struct {
	Name        *string `json:"name,omitempty"`
	Code        *string `json:"code,omitempty"`
	Description *string `json:"description,omitempty"`
	Level       *int    `json:"level,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (d *UpdateDepartmentDTO) Validate() error {
	v := validation.NewValidator()
	if d.Name != nil {
		trimmed := strings.TrimSpace(*d.Name)
		d.Name = &trimmed
		v.Field("name", trimmed).Required().MaxLength(100)
	}
	if d.Code != nil {
		code := NormalizeCode(*d.Code)
		d.Code = &code
		v.Field("code", code).
			Required().
			MaxLength(MaxCodeLength).
			Matches(codePattern, "code may contain only A-Z, 0-9, '_' and '-'", internal.ErrCodeInvalidCode)
	}
	if d.Description != nil {
		v.Field("description", *d.Description).MaxLength(500)
	}
	if d.Level != nil {
		v.Field("level", *d.Level).IntRange(MinTier, MaxTier, internal.ErrCodeInvalidLevel)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type DepartmentsResponse struct {
	Departments []*Department `json:"departments"`
}

// ApproversResponse carries the matcher result; Warning is set instead of an
// error status when the tier has no band.
type ApproversResponse struct {
	DepartmentID int64              `json:"department_id"`
	Result       approval.Result    `json:"result"`
	Warning      *internal.AppError `json:"warning,omitempty"`
}
