package services

import (
	"fmt"

	"tenant-integrity-service/models"
)

// tableRegistry declares, per entity table, where the ownership column
// lives and the ordered derivation chain. Rule order encodes trust: a
// direct, narrowly-scoped relationship (an explicit client assignment)
// outranks a broader one (workspace membership), which is more likely to
// be stale or shared.
var tableRegistry = []models.TableSpec{
	{
		Table:           "workspaces",
		IDColumn:        "id",
		OwnershipColumn: "tenant_id",
	},
	{
		Table:           "clients",
		IDColumn:        "id",
		OwnershipColumn: "tenant_id",
		Rules: []models.DerivationRule{
			{Column: "workspace_id", ParentTable: "workspaces", ParentIDColumn: "id", Description: "workspace_id -> workspaces.tenant_id"},
		},
	},
	{
		Table:           "projects",
		IDColumn:        "id",
		OwnershipColumn: "tenant_id",
		Rules: []models.DerivationRule{
			{Column: "client_id", ParentTable: "clients", ParentIDColumn: "id", Description: "clientId -> clients.tenant_id"},
			{Column: "workspace_id", ParentTable: "workspaces", ParentIDColumn: "id", Description: "workspace_id -> workspaces.tenant_id"},
		},
	},
	{
		Table:           "tasks",
		IDColumn:        "id",
		OwnershipColumn: "tenant_id",
		PersonalColumn:  "is_personal",
		Rules: []models.DerivationRule{
			{Column: "project_id", ParentTable: "projects", ParentIDColumn: "id", Description: "project_id -> projects.tenant_id"},
			{Column: "created_by", ParentTable: "users", ParentIDColumn: "id", PersonalOnly: true, Description: "created_by -> users.tenant_id (personal task)"},
		},
	},
	{
		Table:           "teams",
		IDColumn:        "id",
		OwnershipColumn: "tenant_id",
		Rules: []models.DerivationRule{
			{Column: "workspace_id", ParentTable: "workspaces", ParentIDColumn: "id", Description: "workspace_id -> workspaces.tenant_id"},
		},
	},
	{
		Table:           "time_entries",
		IDColumn:        "id",
		OwnershipColumn: "tenant_id",
		Rules: []models.DerivationRule{
			{Column: "project_id", ParentTable: "projects", ParentIDColumn: "id", Description: "project_id -> projects.tenant_id"},
			{Column: "user_id", ParentTable: "users", ParentIDColumn: "id", Description: "user_id -> users.tenant_id"},
			{Column: "workspace_id", ParentTable: "workspaces", ParentIDColumn: "id", Description: "workspace_id -> workspaces.tenant_id"},
		},
	},
	{
		Table:           "users",
		IDColumn:        "id",
		OwnershipColumn: "tenant_id",
		// Super-admin accounts are intentionally tenant-less
		ScanExclude: fmt.Sprintf("role = '%s'", models.RoleSuperAdmin),
	},
}

// ScannableTables returns every table the missing-ownership scanner covers
func ScannableTables() []models.TableSpec {
	specs := make([]models.TableSpec, len(tableRegistry))
	copy(specs, tableRegistry)
	return specs
}

// DerivableTables returns the tables the derivation engine can repair
func DerivableTables() []models.TableSpec {
	var specs []models.TableSpec
	for _, spec := range tableRegistry {
		if spec.Derivable() {
			specs = append(specs, spec)
		}
	}
	return specs
}

// LookupTable resolves a table name to its spec
func LookupTable(name string) (models.TableSpec, bool) {
	for _, spec := range tableRegistry {
		if spec.Table == name {
			return spec, true
		}
	}
	return models.TableSpec{}, false
}
