package models

// RoleAssignment binds a principal to a role definition at a scope.
type RoleAssignment struct {
	// ID is the fully qualified assignment ID, assigned by the service.
	ID string `json:"id,omitempty"`

	// Name is the assignment name (a UUID chosen by the caller).
	Name string `json:"name,omitempty"`

	Type string `json:"type,omitempty"`

	Properties RoleAssignmentProperties `json:"properties"`
}

// RoleAssignmentProperties holds the assignment binding.
type RoleAssignmentProperties struct {
	Scope            string `json:"scope,omitempty"`
	RoleDefinitionID string `json:"roleDefinitionId,omitempty"`
	PrincipalID      string `json:"principalId,omitempty"`
	PrincipalType    string `json:"principalType,omitempty"`
}

// RoleAssignmentCreateParameters is the PUT body for a role assignment.
type RoleAssignmentCreateParameters struct {
	Properties RoleAssignmentProperties `json:"properties"`
}

// RoleDefinition describes a set of permitted actions.
type RoleDefinition struct {
	ID         string                   `json:"id,omitempty"`
	Name       string                   `json:"name,omitempty"`
	Type       string                   `json:"type,omitempty"`
	Properties RoleDefinitionProperties `json:"properties"`
}

// RoleDefinitionProperties holds the role name and permissions.
type RoleDefinitionProperties struct {
	// RoleName is the display name, e.g. "Contributor".
	RoleName string `json:"roleName,omitempty"`

	Description string `json:"description,omitempty"`

	// RoleType is "BuiltInRole" or "CustomRole".
	RoleType string `json:"type,omitempty"`

	Permissions      []Permission `json:"permissions,omitempty"`
	AssignableScopes []string     `json:"assignableScopes,omitempty"`
}

// Permission lists allowed and denied actions of a role definition.
type Permission struct {
	Actions        []string `json:"actions,omitempty"`
	NotActions     []string `json:"notActions,omitempty"`
	DataActions    []string `json:"dataActions,omitempty"`
	NotDataActions []string `json:"notDataActions,omitempty"`
}
