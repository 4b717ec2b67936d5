package models

import "time"

// TenantStatus represents the lifecycle state of a tenant
type TenantStatus string

const (
	TenantStatusActive  TenantStatus = "active"
	TenantStatusBlocked TenantStatus = "blocked"
	TenantStatusPending TenantStatus = "pending"
)

// Tenant is the top-level ownership boundary. Immutable once created
// except for Status.
type Tenant struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// Workspace belongs to exactly one tenant
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TenantID  *string   `json:"tenant_id"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is a customer record scoped to a workspace
type Client struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	TenantID    *string `json:"tenant_id"`
	WorkspaceID *string `json:"workspace_id"`
}

// Project may be assigned to a client directly or only to a workspace
type Project struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	TenantID    *string `json:"tenant_id"`
	ClientID    *string `json:"client_id"`
	WorkspaceID *string `json:"workspace_id"`
}

// Task belongs to a project, except personal tasks which belong only
// to the user that created them
type Task struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	TenantID   *string `json:"tenant_id"`
	ProjectID  *string `json:"project_id"`
	CreatedBy  *string `json:"created_by"`
	IsPersonal bool    `json:"is_personal"`
}

// Team is a group of users inside a workspace
type Team struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	TenantID    *string `json:"tenant_id"`
	WorkspaceID *string `json:"workspace_id"`
}

// TimeEntry records time against a project, user or workspace
type TimeEntry struct {
	ID          string  `json:"id"`
	TenantID    *string `json:"tenant_id"`
	ProjectID   *string `json:"project_id"`
	UserID      *string `json:"user_id"`
	WorkspaceID *string `json:"workspace_id"`
	Minutes     int     `json:"minutes"`
}

// User accounts carry a role; super-admin accounts are intentionally
// tenant-less and excluded from ownership scans
type User struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	TenantID *string `json:"tenant_id"`
}

// RoleSuperAdmin marks system accounts that legitimately have no tenant
const RoleSuperAdmin = "super_admin"
