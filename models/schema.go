package models

// DerivationRule names one candidate parent relationship for deriving a
// missing ownership value. Rules are evaluated in the order they appear in
// a TableSpec; the ordering encodes trust, with narrow direct assignments
// ahead of broader workspace membership.
type DerivationRule struct {
	// Column is the foreign-key column on the child table
	Column string
	// ParentTable holds the rows the column points at
	ParentTable string
	// ParentIDColumn is the referenced column, normally "id"
	ParentIDColumn string
	// PersonalOnly restricts the rule to rows flagged personal
	PersonalOnly bool
	// Description is the human-readable trace used in derivation paths
	Description string
}

// TableSpec describes one tenant-scoped entity table as the integrity
// engine sees it: where the ownership column lives and, for derivable
// tables, the ordered relationship chain.
type TableSpec struct {
	Table           string
	IDColumn        string
	OwnershipColumn string
	// PersonalColumn, when set, names a boolean column distinguishing
	// rows that legitimately lack a parent (personal tasks)
	PersonalColumn string
	// ScanExclude is a SQL predicate for rows that are intentionally
	// tenant-less and must not count as missing (super-admin users)
	ScanExclude string
	Rules       []DerivationRule
}

// Derivable reports whether the table has any derivation rules configured
func (s TableSpec) Derivable() bool {
	return len(s.Rules) > 0
}

// ParentRef is the prefetched state of one candidate parent for an
// unresolved row, aligned by index with the TableSpec rule order.
type ParentRef struct {
	// ID is the foreign-key value on the child row, nil when unset
	ID *string
	// Exists is true when the referenced parent row was found
	Exists bool
	// TenantID is the parent's ownership value, nil when the parent is
	// missing or itself unowned
	TenantID *string
}

// UnresolvedRow is a row with null ownership plus everything the
// derivation engine needs, fetched in one joined query per table
type UnresolvedRow struct {
	ID       string
	Personal bool
	Parents  []ParentRef
}

// MismatchDescriptor names a parent/child pair whose ownership columns
// must agree when both are set
type MismatchDescriptor struct {
	Name        string `yaml:"name"`
	ChildTable  string `yaml:"child_table"`
	ParentTable string `yaml:"parent_table"`
	JoinColumn  string `yaml:"join_column"`
	Description string `yaml:"description"`
}

// OrphanDescriptor names a foreign key whose referenced parent must exist.
// Exclude is a SQL predicate for rows that legitimately lack a parent; it
// is only ever supplied through configuration, never inferred.
type OrphanDescriptor struct {
	Name           string `yaml:"name"`
	Table          string `yaml:"table"`
	RefColumn      string `yaml:"ref_column"`
	ParentTable    string `yaml:"parent_table"`
	ParentIDColumn string `yaml:"parent_id_column"`
	Exclude        string `yaml:"exclude,omitempty"`
	Description    string `yaml:"description"`
}
