package graphrbac

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/internal/metrics"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/retry"
	"github.com/yaroslav/azfluent/sdk"
)

const resourceTypeRoleAssignment = "role_assignment"

// RoleAssignments is the collection of role assignments.
type RoleAssignments struct {
	manager *Manager
}

// RoleAssignment binds a principal to a role at a scope.
type RoleAssignment struct {
	inner models.RoleAssignment
}

// ID returns the fully qualified assignment ID.
func (r *RoleAssignment) ID() string { return r.inner.ID }

// Name returns the assignment name.
func (r *RoleAssignment) Name() string { return r.inner.Name }

// Scope returns the scope the role applies to.
func (r *RoleAssignment) Scope() string { return r.inner.Properties.Scope }

// RoleDefinitionID returns the ID of the assigned role definition.
func (r *RoleAssignment) RoleDefinitionID() string { return r.inner.Properties.RoleDefinitionID }

// PrincipalID returns the object ID of the assignee.
func (r *RoleAssignment) PrincipalID() string { return r.inner.Properties.PrincipalID }

// Inner returns the wire representation.
func (r *RoleAssignment) Inner() models.RoleAssignment { return r.inner }

func wrapRoleAssignment(inner models.RoleAssignment) *RoleAssignment {
	return &RoleAssignment{inner: inner}
}

func roleAssignmentsPath(scope string) string {
	return strings.TrimSuffix(scope, "/") + "/providers/Microsoft.Authorization/roleAssignments"
}

// Define starts the definition of a role assignment with the given name (a UUID).
func (c *RoleAssignments) Define(name string) RoleAssignmentBlank {
	return RoleAssignmentBlank{draft: &roleAssignmentDraft{manager: c.manager, name: name}}
}

// GetByID fetches a role assignment by its fully qualified ID.
func (c *RoleAssignments) GetByID(ctx context.Context, id string) (*RoleAssignment, error) {
	var inner models.RoleAssignment
	if err := c.manager.authz.DoJSON(ctx, http.MethodGet, id, nil, &inner); err != nil {
		return nil, err
	}
	return wrapRoleAssignment(inner), nil
}

// GetByScope fetches a role assignment by scope and name.
func (c *RoleAssignments) GetByScope(ctx context.Context, scope, name string) (*RoleAssignment, error) {
	return c.GetByID(ctx, roleAssignmentsPath(scope)+"/"+url.PathEscape(name))
}

// ListByScope returns a pager over the role assignments at and above scope.
func (c *RoleAssignments) ListByScope(scope string) *sdk.Pager[models.RoleAssignment, *RoleAssignment] {
	return sdk.NewPager(c.manager.authz, roleAssignmentsPath(scope), wrapRoleAssignment)
}

// ListByPrincipal returns a pager over the role assignments of a principal visible at scope.
func (c *RoleAssignments) ListByPrincipal(scope, principalID string) *sdk.Pager[models.RoleAssignment, *RoleAssignment] {
	path := withFilter(roleAssignmentsPath(scope), "principalId eq "+odataQuote(principalID))
	return sdk.NewPager(c.manager.authz, path, wrapRoleAssignment)
}

// DeleteByID deletes a role assignment.
func (c *RoleAssignments) DeleteByID(ctx context.Context, id string) error {
	return c.manager.authz.DoJSON(ctx, http.MethodDelete, id, nil, nil)
}

// roleAssignmentDraft accumulates the inputs of a new role assignment.
type roleAssignmentDraft struct {
	manager *Manager
	name    string

	objectID             string
	userName             string
	servicePrincipalName string

	roleName         string
	roleDefinitionID string

	scope string
}

// validate checks that every input is present, before any request is sent.
func (d *roleAssignmentDraft) validate() error {
	if d.name == "" {
		return models.Validationf("role assignment name is required")
	}
	if d.objectID == "" && d.userName == "" && d.servicePrincipalName == "" {
		return models.Validationf("object ID, user, group, or service principal is required")
	}
	if d.roleName == "" && d.roleDefinitionID == "" {
		return models.Validationf("role name or role definition ID is required")
	}
	if d.scope == "" {
		return models.Validationf("scope is required")
	}
	return nil
}

func (d *roleAssignmentDraft) resolvePrincipal(ctx context.Context) (string, error) {
	switch {
	case d.objectID != "":
		return d.objectID, nil
	case d.userName != "":
		user, err := d.manager.users.GetByName(ctx, d.userName)
		if err != nil {
			return "", err
		}
		return user.ID(), nil
	default:
		sp, err := d.manager.servicePrincipals.GetByName(ctx, d.servicePrincipalName)
		if err != nil {
			return "", err
		}
		return sp.ID(), nil
	}
}

func (d *roleAssignmentDraft) resolveRoleDefinition(ctx context.Context) (string, error) {
	if d.roleDefinitionID != "" {
		return d.roleDefinitionID, nil
	}
	definition, err := d.manager.roleDefinitions.GetByScopeAndRoleName(ctx, d.scope, d.roleName)
	if err != nil {
		return "", err
	}
	return definition.ID(), nil
}

// create resolves the principal and role, then PUTs the assignment, retrying while the
// principal has not replicated to the authorization service.
func (d *roleAssignmentDraft) create(ctx context.Context) (*RoleAssignment, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	principalID, err := d.resolvePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	roleDefinitionID, err := d.resolveRoleDefinition(ctx)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx, d.manager.logger)
	path := roleAssignmentsPath(d.scope) + "/" + url.PathEscape(d.name)
	params := models.RoleAssignmentCreateParameters{
		Properties: models.RoleAssignmentProperties{
			RoleDefinitionID: roleDefinitionID,
			PrincipalID:      principalID,
		},
	}

	start := time.Now()
	inner, err := retry.Do(ctx, d.manager.principalRetry, func(ctx context.Context) (models.RoleAssignment, error) {
		var created models.RoleAssignment
		err := d.manager.authz.DoJSON(ctx, http.MethodPut, path, params, &created)
		return created, err
	})
	observeRetryOutcome(operationRoleAssignmentCreate, err)
	if err != nil {
		metrics.ResourceOperations.WithLabelValues(resourceTypeRoleAssignment, "create", "error").Inc()
		logger.Error("Role assignment failed",
			zap.String(logging.FieldResourceName, d.name),
			zap.String(logging.FieldScope, d.scope),
			zap.String(logging.FieldPrincipalID, principalID),
			zap.Bool("attempts_exhausted", errors.Is(err, retry.ErrAttemptsExhausted)),
			zap.Error(err))
		return nil, err
	}

	metrics.ResourceOperations.WithLabelValues(resourceTypeRoleAssignment, "create", "success").Inc()
	logger.Info("Role assigned",
		zap.String(logging.FieldResourceID, inner.ID),
		zap.String(logging.FieldScope, d.scope),
		zap.String(logging.FieldPrincipalID, principalID),
		zap.Duration(logging.FieldDuration, time.Since(start)))

	return wrapRoleAssignment(inner), nil
}

// RoleAssignmentBlank is the first definition stage: the assignee.
type RoleAssignmentBlank struct {
	draft *roleAssignmentDraft
}

// ForObjectID assigns the role to the principal with the given object ID.
func (s RoleAssignmentBlank) ForObjectID(objectID string) RoleAssignmentWithRole {
	s.draft.objectID = objectID
	return RoleAssignmentWithRole(s)
}

// ForUser assigns the role to a user.
func (s RoleAssignmentBlank) ForUser(user *User) RoleAssignmentWithRole {
	return s.ForObjectID(user.ID())
}

// ForUserName assigns the role to the user with the given sign-in name.
func (s RoleAssignmentBlank) ForUserName(userName string) RoleAssignmentWithRole {
	s.draft.userName = userName
	return RoleAssignmentWithRole(s)
}

// ForGroup assigns the role to a group.
func (s RoleAssignmentBlank) ForGroup(group *Group) RoleAssignmentWithRole {
	return s.ForObjectID(group.ID())
}

// ForServicePrincipal assigns the role to a service principal.
func (s RoleAssignmentBlank) ForServicePrincipal(sp *ServicePrincipal) RoleAssignmentWithRole {
	return s.ForObjectID(sp.ID())
}

// ForServicePrincipalName assigns the role to the service principal with the given name.
func (s RoleAssignmentBlank) ForServicePrincipalName(name string) RoleAssignmentWithRole {
	s.draft.servicePrincipalName = name
	return RoleAssignmentWithRole(s)
}

// RoleAssignmentWithRole is the role stage.
type RoleAssignmentWithRole struct {
	draft *roleAssignmentDraft
}

// WithBuiltInRole assigns a built-in role, resolved by name at the scope.
func (s RoleAssignmentWithRole) WithBuiltInRole(role BuiltInRole) RoleAssignmentWithScope {
	s.draft.roleName = string(role)
	return RoleAssignmentWithScope(s)
}

// WithRoleDefinition assigns the role definition with the given ID.
func (s RoleAssignmentWithRole) WithRoleDefinition(roleDefinitionID string) RoleAssignmentWithScope {
	s.draft.roleDefinitionID = roleDefinitionID
	return RoleAssignmentWithScope(s)
}

// RoleAssignmentWithScope is the scope stage.
type RoleAssignmentWithScope struct {
	draft *roleAssignmentDraft
}

// WithScope sets the scope.
func (s RoleAssignmentWithScope) WithScope(scope string) RoleAssignmentWithCreate {
	s.draft.scope = scope
	return RoleAssignmentWithCreate(s)
}

// WithSubscriptionScope scopes the assignment to a subscription.
func (s RoleAssignmentWithScope) WithSubscriptionScope(subscriptionID string) RoleAssignmentWithCreate {
	return s.WithScope(SubscriptionScope(subscriptionID))
}

// WithResourceGroupScope scopes the assignment to a resource group of the manager's subscription.
func (s RoleAssignmentWithScope) WithResourceGroupScope(resourceGroup string) RoleAssignmentWithCreate {
	return s.WithScope(ResourceGroupScope(s.draft.manager.subscriptionID, resourceGroup))
}

// WithResourceScope scopes the assignment to a single resource.
func (s RoleAssignmentWithScope) WithResourceScope(resourceID string) RoleAssignmentWithCreate {
	return s.WithScope(resourceID)
}

// RoleAssignmentWithCreate is the final stage.
type RoleAssignmentWithCreate struct {
	draft *roleAssignmentDraft
}

// Create creates the role assignment.
func (s RoleAssignmentWithCreate) Create(ctx context.Context) (*RoleAssignment, error) {
	return s.draft.create(ctx)
}
