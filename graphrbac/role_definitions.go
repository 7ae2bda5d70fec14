package graphrbac

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/sdk"
)

// BuiltInRole is the name of a role definition Azure ships in every subscription.
type BuiltInRole string

// Built-in roles commonly assigned to service principals.
const (
	Owner                      BuiltInRole = "Owner"
	Contributor                BuiltInRole = "Contributor"
	Reader                     BuiltInRole = "Reader"
	UserAccessAdministrator    BuiltInRole = "User Access Administrator"
	NetworkContributor         BuiltInRole = "Network Contributor"
	VirtualMachineContributor  BuiltInRole = "Virtual Machine Contributor"
	StorageAccountContributor  BuiltInRole = "Storage Account Contributor"
	StorageBlobDataContributor BuiltInRole = "Storage Blob Data Contributor"
	KeyVaultContributor        BuiltInRole = "Key Vault Contributor"
	MonitoringReader           BuiltInRole = "Monitoring Reader"
	AcrPull                    BuiltInRole = "AcrPull"
)

// String returns the role name.
func (r BuiltInRole) String() string { return string(r) }

// RoleDefinitions is the read-only collection of role definitions.
type RoleDefinitions struct {
	manager *Manager
}

// RoleDefinition is a named set of permissions.
type RoleDefinition struct {
	inner models.RoleDefinition
}

// ID returns the fully qualified role definition ID.
func (d *RoleDefinition) ID() string { return d.inner.ID }

// Name returns the role definition name (a UUID).
func (d *RoleDefinition) Name() string { return d.inner.Name }

// RoleName returns the display name, e.g. "Contributor".
func (d *RoleDefinition) RoleName() string { return d.inner.Properties.RoleName }

// Description returns the role description.
func (d *RoleDefinition) Description() string { return d.inner.Properties.Description }

// Permissions returns the allowed and denied actions.
func (d *RoleDefinition) Permissions() []models.Permission { return d.inner.Properties.Permissions }

// AssignableScopes returns the scopes the role can be assigned at.
func (d *RoleDefinition) AssignableScopes() []string { return d.inner.Properties.AssignableScopes }

// Inner returns the wire representation.
func (d *RoleDefinition) Inner() models.RoleDefinition { return d.inner }

func wrapRoleDefinition(inner models.RoleDefinition) *RoleDefinition {
	return &RoleDefinition{inner: inner}
}

func roleDefinitionsPath(scope string) string {
	return strings.TrimSuffix(scope, "/") + "/providers/Microsoft.Authorization/roleDefinitions"
}

func withRoleDefinitionAPIVersion(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "api-version=" + RoleDefinitionAPIVersion
}

// GetByID fetches a role definition by its fully qualified ID.
func (c *RoleDefinitions) GetByID(ctx context.Context, id string) (*RoleDefinition, error) {
	var inner models.RoleDefinition
	if err := c.manager.authz.DoJSON(ctx, http.MethodGet, withRoleDefinitionAPIVersion(id), nil, &inner); err != nil {
		return nil, err
	}
	return wrapRoleDefinition(inner), nil
}

// GetByScope fetches a role definition by scope and name (UUID).
func (c *RoleDefinitions) GetByScope(ctx context.Context, scope, name string) (*RoleDefinition, error) {
	return c.GetByID(ctx, roleDefinitionsPath(scope)+"/"+url.PathEscape(name))
}

// GetByScopeAndRoleName finds the role definition with the given display name at scope.
func (c *RoleDefinitions) GetByScopeAndRoleName(ctx context.Context, scope, roleName string) (*RoleDefinition, error) {
	path := withRoleDefinitionAPIVersion(withFilter(roleDefinitionsPath(scope), "roleName eq "+odataQuote(roleName)))
	definitions, err := sdk.NewPager(c.manager.authz, path, wrapRoleDefinition).NextPage(ctx)
	if err != nil {
		return nil, err
	}
	if len(definitions) == 0 {
		return nil, fmt.Errorf("role %q at scope %q: %w", roleName, scope, models.ErrNotFound)
	}
	return definitions[0], nil
}

// ListByScope returns a pager over the role definitions available at scope.
func (c *RoleDefinitions) ListByScope(scope string) *sdk.Pager[models.RoleDefinition, *RoleDefinition] {
	return sdk.NewPager(c.manager.authz, withRoleDefinitionAPIVersion(roleDefinitionsPath(scope)), wrapRoleDefinition)
}
