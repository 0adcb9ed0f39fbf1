// Package capability turns raw role permission strings into typed sets and
// human-readable capability descriptors.
package capability

type Category string

const (
	CategoryDocument Category = "document"
	CategoryUser     Category = "user"
	CategoryWorkflow Category = "workflow"
	CategorySystem   Category = "system"
)

const (
	DocumentView    = "document.view"
	DocumentCreate  = "document.create"
	DocumentEdit    = "document.edit"
	DocumentDelete  = "document.delete"
	DocumentApprove = "document.approve"
	DocumentShare   = "document.share"

	UserView   = "user.view"
	UserCreate = "user.create"
	UserEdit   = "user.edit"
	UserDelete = "user.delete"

	WorkflowView    = "workflow.view"
	WorkflowCreate  = "workflow.create"
	WorkflowApprove = "workflow.approve"
	WorkflowManage  = "workflow.manage"

	RoleManage       = "role.manage"
	DepartmentManage = "department.manage"
	SystemSettings   = "system.settings"
	SystemAudit      = "system.audit"
	SystemAdmin      = "system.admin"
)

type Capability struct {
	Permission  string   `json:"permission"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
}

// canonical is the display order; a permission's position is also its bit in Set.
var canonical = []Capability{
	{DocumentView, CategoryDocument, "View documents"},
	{DocumentCreate, CategoryDocument, "Create and upload documents"},
	{DocumentEdit, CategoryDocument, "Edit documents"},
	{DocumentDelete, CategoryDocument, "Delete documents"},
	{DocumentApprove, CategoryDocument, "Approve documents"},
	{DocumentShare, CategoryDocument, "Share documents with other staff"},

	{UserView, CategoryUser, "View staff members"},
	{UserCreate, CategoryUser, "Create and invite staff members"},
	{UserEdit, CategoryUser, "Edit staff members and their status"},
	{UserDelete, CategoryUser, "Delete staff members"},

	{WorkflowView, CategoryWorkflow, "View workflows"},
	{WorkflowCreate, CategoryWorkflow, "Start workflows"},
	{WorkflowApprove, CategoryWorkflow, "Approve workflow steps"},
	{WorkflowManage, CategoryWorkflow, "Configure workflow definitions"},

	{RoleManage, CategorySystem, "Manage roles and permissions"},
	{DepartmentManage, CategorySystem, "Manage departments"},
	{SystemSettings, CategorySystem, "Change system settings"},
	{SystemAudit, CategorySystem, "Read the audit trail"},
	{SystemAdmin, CategorySystem, "Full system administration"},
}

var bitOf = func() map[string]uint {
	m := make(map[string]uint, len(canonical))
	for i, c := range canonical {
		m[c.Permission] = uint(i)
	}
	return m
}()

// Set is a bitset over the canonical permission table.
type Set uint64

// Parse builds a Set, silently dropping permissions it does not recognise.
func Parse(permissions []string) Set {
	var s Set
	for _, p := range permissions {
		if bit, ok := bitOf[p]; ok {
			s |= 1 << bit
		}
	}
	return s
}

func (s Set) has(p string) bool {
	bit, ok := bitOf[p]
	return ok && s&(1<<bit) != 0
}

// Has reports whether the set grants p. system.admin grants every permission.
func (s Set) Has(p string) bool {
	return s.has(SystemAdmin) || s.has(p)
}

func (s Set) HasAny(permissions ...string) bool {
	for _, p := range permissions {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// Permissions returns the members in canonical order.
func (s Set) Permissions() []string {
	out := make([]string, 0, len(canonical))
	for _, c := range canonical {
		if s.has(c.Permission) {
			out = append(out, c.Permission)
		}
	}
	return out
}

func Known(permission string) bool {
	_, ok := bitOf[permission]
	return ok
}

func All() []string {
	return Set(1<<uint(len(canonical)) - 1).Permissions()
}
