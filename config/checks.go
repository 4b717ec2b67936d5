package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"tenant-integrity-service/models"
)

// ChecksFile is the YAML shape for overriding the built-in mismatch and
// orphan descriptors. Exclusion predicates are deliberately config-only:
// inferring which rows legitimately lack a parent would invite false
// positives, so operators spell the predicate out here.
type ChecksFile struct {
	Mismatches []models.MismatchDescriptor `yaml:"mismatches"`
	Orphans    []models.OrphanDescriptor   `yaml:"orphans"`
}

// DefaultMismatchDescriptors covers every parent/child pair in the
// derivation chain where both sides carry an ownership column
func DefaultMismatchDescriptors() []models.MismatchDescriptor {
	return []models.MismatchDescriptor{
		{
			Name:        "tasks_vs_projects",
			ChildTable:  "tasks",
			ParentTable: "projects",
			JoinColumn:  "project_id",
			Description: "Tasks whose tenant disagrees with their project's tenant",
		},
		{
			Name:        "projects_vs_clients",
			ChildTable:  "projects",
			ParentTable: "clients",
			JoinColumn:  "client_id",
			Description: "Projects whose tenant disagrees with their client's tenant",
		},
		{
			Name:        "projects_vs_workspaces",
			ChildTable:  "projects",
			ParentTable: "workspaces",
			JoinColumn:  "workspace_id",
			Description: "Projects whose tenant disagrees with their workspace's tenant",
		},
		{
			Name:        "time_entries_vs_projects",
			ChildTable:  "time_entries",
			ParentTable: "projects",
			JoinColumn:  "project_id",
			Description: "Time entries whose tenant disagrees with their project's tenant",
		},
		{
			Name:        "clients_vs_workspaces",
			ChildTable:  "clients",
			ParentTable: "workspaces",
			JoinColumn:  "workspace_id",
			Description: "Clients whose tenant disagrees with their workspace's tenant",
		},
		{
			Name:        "teams_vs_workspaces",
			ChildTable:  "teams",
			ParentTable: "workspaces",
			JoinColumn:  "workspace_id",
			Description: "Teams whose tenant disagrees with their workspace's tenant",
		},
	}
}

// DefaultOrphanDescriptors covers every foreign key the derivation engine
// walks. Personal tasks carry no project on purpose, hence the exclusion.
func DefaultOrphanDescriptors() []models.OrphanDescriptor {
	return []models.OrphanDescriptor{
		{
			Name:           "tasks_missing_project",
			Table:          "tasks",
			RefColumn:      "project_id",
			ParentTable:    "projects",
			ParentIDColumn: "id",
			Exclude:        "is_personal = TRUE",
			Description:    "Tasks referencing a project that no longer exists",
		},
		{
			Name:           "projects_missing_client",
			Table:          "projects",
			RefColumn:      "client_id",
			ParentTable:    "clients",
			ParentIDColumn: "id",
			Description:    "Projects referencing a client that no longer exists",
		},
		{
			Name:           "time_entries_missing_project",
			Table:          "time_entries",
			RefColumn:      "project_id",
			ParentTable:    "projects",
			ParentIDColumn: "id",
			Description:    "Time entries referencing a project that no longer exists",
		},
		{
			Name:           "clients_missing_workspace",
			Table:          "clients",
			RefColumn:      "workspace_id",
			ParentTable:    "workspaces",
			ParentIDColumn: "id",
			Description:    "Clients referencing a workspace that no longer exists",
		},
		{
			Name:           "teams_missing_workspace",
			Table:          "teams",
			RefColumn:      "workspace_id",
			ParentTable:    "workspaces",
			ParentIDColumn: "id",
			Description:    "Teams referencing a workspace that no longer exists",
		},
		{
			Name:           "workspaces_missing_tenant",
			Table:          "workspaces",
			RefColumn:      "tenant_id",
			ParentTable:    "tenants",
			ParentIDColumn: "id",
			Description:    "Workspaces referencing a tenant that no longer exists",
		},
	}
}

// LoadChecks returns the descriptor set, reading the YAML override file
// when one is configured and falling back to the built-in defaults
func LoadChecks(path string) (*ChecksFile, error) {
	checks := &ChecksFile{
		Mismatches: DefaultMismatchDescriptors(),
		Orphans:    DefaultOrphanDescriptors(),
	}

	if path == "" {
		return checks, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checks file %s: %w", path, err)
	}

	var loaded ChecksFile
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse checks file %s: %w", path, err)
	}

	if len(loaded.Mismatches) > 0 {
		checks.Mismatches = loaded.Mismatches
	}
	if len(loaded.Orphans) > 0 {
		checks.Orphans = loaded.Orphans
	}

	if err := checks.validate(); err != nil {
		return nil, err
	}
	return checks, nil
}

func (c *ChecksFile) validate() error {
	for _, m := range c.Mismatches {
		if m.Name == "" || m.ChildTable == "" || m.ParentTable == "" || m.JoinColumn == "" {
			return &ConfigError{Field: "mismatches", Message: fmt.Sprintf("incomplete mismatch descriptor %q", m.Name)}
		}
	}
	for _, o := range c.Orphans {
		if o.Name == "" || o.Table == "" || o.RefColumn == "" || o.ParentTable == "" {
			return &ConfigError{Field: "orphans", Message: fmt.Sprintf("incomplete orphan descriptor %q", o.Name)}
		}
		if o.ParentIDColumn == "" {
			return &ConfigError{Field: "orphans", Message: fmt.Sprintf("orphan descriptor %q missing parent id column", o.Name)}
		}
	}
	return nil
}
