package graphrbac

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/internal/metrics"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/fluent"
	"github.com/yaroslav/azfluent/sdk"
)

const resourceTypeServicePrincipal = "service_principal"

// ServicePrincipals is the collection of service principals in the tenant.
type ServicePrincipals struct {
	manager *Manager
}

// Define starts the definition of a service principal. name becomes the display name of
// the application when one is created along with it.
func (c *ServicePrincipals) Define(name string) ServicePrincipalBlank {
	return ServicePrincipalBlank{sp: newServicePrincipalDraft(c.manager, name)}
}

// GetByID fetches a service principal by object ID and loads its credentials.
func (c *ServicePrincipals) GetByID(ctx context.Context, objectID string) (*ServicePrincipal, error) {
	var inner models.ServicePrincipal
	if err := c.manager.graph.DoJSON(ctx, http.MethodGet, servicePrincipalPath(objectID), nil, &inner); err != nil {
		return nil, err
	}

	sp := c.wrap(inner)
	if err := sp.credentials.refresh(ctx, c.manager.graph, sp.path()); err != nil {
		return nil, err
	}
	return sp, nil
}

// GetByName finds a service principal by one of its service principal names (such as
// the application ID) or by display name.
func (c *ServicePrincipals) GetByName(ctx context.Context, name string) (*ServicePrincipal, error) {
	for _, filter := range []string{
		"servicePrincipalNames/any(c:c eq " + odataQuote(name) + ")",
		"displayName eq " + odataQuote(name),
	} {
		sps, err := sdk.NewPager(c.manager.graph, withFilter("servicePrincipals", filter), c.wrap).NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if len(sps) > 0 {
			return c.GetByID(ctx, sps[0].ID())
		}
	}
	return nil, fmt.Errorf("service principal %q: %w", name, models.ErrNotFound)
}

// List returns every service principal in the tenant.
func (c *ServicePrincipals) List(ctx context.Context) ([]*ServicePrincipal, error) {
	return c.ListPager().All(ctx)
}

// ListPager returns a pager over every service principal in the tenant.
func (c *ServicePrincipals) ListPager() *sdk.Pager[models.ServicePrincipal, *ServicePrincipal] {
	return sdk.NewPager(c.manager.graph, "servicePrincipals", c.wrap)
}

// DeleteByID deletes a service principal.
func (c *ServicePrincipals) DeleteByID(ctx context.Context, objectID string) error {
	return c.manager.graph.DoJSON(ctx, http.MethodDelete, servicePrincipalPath(objectID), nil, nil)
}

func (c *ServicePrincipals) wrap(inner models.ServicePrincipal) *ServicePrincipal {
	return &ServicePrincipal{
		manager:         c.manager,
		state:           fluent.Saved(inner.ObjectID, inner),
		credentials:     newCredentialSet(),
		roleAssignments: make(map[string]*RoleAssignment),
	}
}

func servicePrincipalPath(objectID string) string {
	return "servicePrincipals/" + url.PathEscape(objectID)
}

// pendingRole is a role to assign once the service principal exists.
type pendingRole struct {
	role  BuiltInRole
	scope string
}

// ServicePrincipal is the tenant-local identity of an application.
type ServicePrincipal struct {
	manager *Manager
	name    string
	state   fluent.State[models.ServicePrincipal]

	newApplication *Application

	credentials credentialSet

	rolesToCreate   []pendingRole
	rolesToDelete   []string
	roleAssignments map[string]*RoleAssignment

	assignedSubscription string
}

func newServicePrincipalDraft(m *Manager, name string) *ServicePrincipal {
	enabled := true
	return &ServicePrincipal{
		manager:         m,
		name:            name,
		state:           fluent.Unsaved(models.ServicePrincipal{DisplayName: name, AccountEnabled: &enabled}),
		credentials:     newCredentialSet(),
		roleAssignments: make(map[string]*RoleAssignment),
	}
}

// ID returns the object ID, or "" before creation.
func (sp *ServicePrincipal) ID() string { return sp.state.ID() }

// Name returns the display name.
func (sp *ServicePrincipal) Name() string {
	if name := sp.state.Inner().DisplayName; name != "" {
		return name
	}
	return sp.name
}

// ApplicationID returns the application ID the service principal represents.
func (sp *ServicePrincipal) ApplicationID() string { return sp.state.Inner().AppID }

// ServicePrincipalNames returns the names the service principal can be found by.
func (sp *ServicePrincipal) ServicePrincipalNames() []string {
	return sp.state.Inner().ServicePrincipalNames
}

// PasswordCredentials returns the password credentials by name.
func (sp *ServicePrincipal) PasswordCredentials() map[string]*PasswordCredential {
	return sp.credentials.passwordCredentials()
}

// CertificateCredentials returns the certificate credentials by name.
func (sp *ServicePrincipal) CertificateCredentials() map[string]*CertificateCredential {
	return sp.credentials.certificateCredentials()
}

// RoleAssignments returns the role assignments created through this object, by ID.
func (sp *ServicePrincipal) RoleAssignments() map[string]*RoleAssignment {
	out := make(map[string]*RoleAssignment, len(sp.roleAssignments))
	for k, v := range sp.roleAssignments {
		out[k] = v
	}
	return out
}

// Inner returns the last known wire representation.
func (sp *ServicePrincipal) Inner() models.ServicePrincipal { return sp.state.Inner() }

// IsInCreateMode reports whether the service principal has not been created yet.
func (sp *ServicePrincipal) IsInCreateMode() bool { return sp.state.IsInCreateMode() }

// Refresh reloads the service principal and its credentials.
func (sp *ServicePrincipal) Refresh(ctx context.Context) error {
	fresh, err := sp.manager.servicePrincipals.GetByID(ctx, sp.ID())
	if err != nil {
		return err
	}
	sp.state = fresh.state
	sp.credentials = fresh.credentials
	return nil
}

// LoadRoleAssignments fetches the role assignments of the service principal in the
// manager's subscription into the cache returned by RoleAssignments.
func (sp *ServicePrincipal) LoadRoleAssignments(ctx context.Context) error {
	assignments, err := sp.manager.roleAssignments.ListByPrincipal(sp.manager.subscriptionScope(), sp.ID()).All(ctx)
	if err != nil {
		return err
	}
	sp.roleAssignments = make(map[string]*RoleAssignment, len(assignments))
	for _, a := range assignments {
		sp.roleAssignments[a.ID()] = a
	}
	return nil
}

// Update starts a batch of changes to the service principal.
func (sp *ServicePrincipal) Update() *ServicePrincipalUpdate {
	return &ServicePrincipalUpdate{sp: sp}
}

func (sp *ServicePrincipal) path() string {
	return servicePrincipalPath(sp.ID())
}

func (sp *ServicePrincipal) addRole(role BuiltInRole, scope string) {
	sp.rolesToCreate = append(sp.rolesToCreate, pendingRole{role: role, scope: scope})
	if sp.assignedSubscription == "" {
		sp.assignedSubscription = subscriptionOfScope(scope)
	}
}

func (sp *ServicePrincipal) reconciler() fluent.Reconciler[models.ServicePrincipal] {
	return fluent.Reconciler[models.ServicePrincipal]{
		Create: func(ctx context.Context, draft models.ServicePrincipal) (models.ServicePrincipal, error) {
			if sp.newApplication != nil {
				if err := sp.newApplication.submit(ctx); err != nil {
					return models.ServicePrincipal{}, fmt.Errorf("failed to create application: %w", err)
				}
				draft.AppID = sp.newApplication.ApplicationID()
			}

			params := models.ServicePrincipalCreateParameters{AppID: draft.AppID, AccountEnabled: draft.AccountEnabled}
			var created models.ServicePrincipal
			err := sp.manager.graph.DoJSON(ctx, http.MethodPost, "servicePrincipals", params, &created)
			return created, err
		},
		// Graph has no patchable service principal properties in use here; changes are
		// applied to credentials and roles after submission.
		Update: func(ctx context.Context, id string, current models.ServicePrincipal) (models.ServicePrincipal, error) {
			return current, nil
		},
		IDOf: func(s models.ServicePrincipal) string { return s.ObjectID },
	}
}

func (sp *ServicePrincipal) validate() error {
	if sp.IsInCreateMode() && sp.newApplication == nil && sp.state.Inner().AppID == "" {
		return models.Validationf("service principal %q needs an application", sp.name)
	}
	if sp.newApplication != nil && sp.newApplication.Name() == "" {
		return models.Validationf("application name is required")
	}
	for _, r := range sp.rolesToCreate {
		if r.role == "" {
			return models.Validationf("role name or role definition ID is required")
		}
		if r.scope == "" {
			return models.Validationf("scope is required for role %q", r.role)
		}
	}
	return sp.credentials.validate()
}

// submit creates or updates the service principal, then replaces its credential lists,
// assigns and removes roles, and finally writes any requested auth files.
func (sp *ServicePrincipal) submit(ctx context.Context) error {
	if err := sp.validate(); err != nil {
		return err
	}

	operation := "update"
	if sp.IsInCreateMode() {
		operation = "create"
	}

	logger := logging.FromContext(ctx, sp.manager.logger)
	start := time.Now()

	err := sp.submitSteps(ctx)
	if err != nil {
		metrics.ResourceOperations.WithLabelValues(resourceTypeServicePrincipal, operation, "error").Inc()
		logger.Error("Service principal submission failed",
			zap.String(logging.FieldOperation, operation),
			zap.String(logging.FieldResourceName, sp.Name()),
			zap.String(logging.FieldResourceID, sp.ID()),
			zap.Error(err))
		return err
	}

	metrics.ResourceOperations.WithLabelValues(resourceTypeServicePrincipal, operation, "success").Inc()
	logger.Info("Service principal submitted",
		zap.String(logging.FieldOperation, operation),
		zap.String(logging.FieldResourceName, sp.Name()),
		zap.String(logging.FieldResourceID, sp.ID()),
		zap.Duration(logging.FieldDuration, time.Since(start)))
	return nil
}

func (sp *ServicePrincipal) submitSteps(ctx context.Context) error {
	if _, err := sp.reconciler().Submit(ctx, &sp.state); err != nil {
		return err
	}
	sp.newApplication = nil

	if err := sp.credentials.submit(ctx, sp.manager.graph, sp.path()); err != nil {
		return err
	}
	if err := sp.credentials.refresh(ctx, sp.manager.graph, sp.path()); err != nil {
		return err
	}

	subscriptionID := sp.assignedSubscription
	if subscriptionID == "" {
		subscriptionID = sp.manager.subscriptionID
	}
	file := newAuthFile(sp.manager.environment, sp.ApplicationID(), sp.manager.tenantID, subscriptionID)
	if err := sp.credentials.export(file); err != nil {
		return err
	}

	return sp.submitRoles(ctx)
}

// submitRoles assigns the pending roles and deletes the ones marked for removal.
// An assignment that already exists counts as assigned.
func (sp *ServicePrincipal) submitRoles(ctx context.Context) error {
	for len(sp.rolesToCreate) > 0 {
		role := sp.rolesToCreate[0]
		assignment, err := sp.manager.roleAssignments.Define(uuid.NewString()).
			ForServicePrincipal(sp).
			WithBuiltInRole(role.role).
			WithScope(role.scope).
			Create(ctx)
		switch {
		case err == nil:
			sp.roleAssignments[assignment.ID()] = assignment
		case IsRoleAssignmentExists(err):
			logging.FromContext(ctx, sp.manager.logger).Debug("Role already assigned",
				zap.String(logging.FieldScope, role.scope),
				zap.String(logging.FieldRole, role.role.String()))
		default:
			return fmt.Errorf("failed to assign role %q at %q: %w", role.role, role.scope, err)
		}
		sp.rolesToCreate = sp.rolesToCreate[1:]
	}

	for len(sp.rolesToDelete) > 0 {
		id := sp.rolesToDelete[0]
		if err := sp.manager.roleAssignments.DeleteByID(ctx, id); err != nil {
			return fmt.Errorf("failed to delete role assignment %q: %w", id, err)
		}
		delete(sp.roleAssignments, id)
		sp.rolesToDelete = sp.rolesToDelete[1:]
	}

	return nil
}

// ServicePrincipalBlank is the first definition stage: the application.
type ServicePrincipalBlank struct {
	sp *ServicePrincipal
}

// WithExistingApplication binds the service principal to an existing application ID.
func (s ServicePrincipalBlank) WithExistingApplication(applicationID string) ServicePrincipalWithCreate {
	s.sp.state.Mutate(func(inner *models.ServicePrincipal) {
		inner.AppID = applicationID
	})
	return ServicePrincipalWithCreate(s)
}

// WithExistingApplicationObject binds the service principal to an application.
func (s ServicePrincipalBlank) WithExistingApplicationObject(app *Application) ServicePrincipalWithCreate {
	return s.WithExistingApplication(app.ApplicationID())
}

// WithNewApplication creates an application named after the service principal, with the
// given sign-on URL, before the service principal.
func (s ServicePrincipalBlank) WithNewApplication(signOnURL string) ServicePrincipalWithCreate {
	app := s.sp.manager.applications.Define(s.sp.name).WithSignOnURL(signOnURL)
	return s.WithNewApplicationDefinition(app)
}

// WithNewApplicationDefinition creates the given application definition before the
// service principal.
func (s ServicePrincipalBlank) WithNewApplicationDefinition(app ApplicationWithCreate) ServicePrincipalWithCreate {
	s.sp.newApplication = app.app
	return ServicePrincipalWithCreate(s)
}

// ServicePrincipalWithCreate is the final definition stage.
type ServicePrincipalWithCreate struct {
	sp *ServicePrincipal
}

// WithNewRole assigns a built-in role at scope once the service principal exists.
func (s ServicePrincipalWithCreate) WithNewRole(role BuiltInRole, scope string) ServicePrincipalWithCreate {
	s.sp.addRole(role, scope)
	return s
}

// WithNewRoleInSubscription assigns a built-in role at subscription scope.
func (s ServicePrincipalWithCreate) WithNewRoleInSubscription(role BuiltInRole, subscriptionID string) ServicePrincipalWithCreate {
	return s.WithNewRole(role, SubscriptionScope(subscriptionID))
}

// WithNewRoleInResourceGroup assigns a built-in role at resource group scope.
func (s ServicePrincipalWithCreate) WithNewRoleInResourceGroup(role BuiltInRole, resourceGroupID string) ServicePrincipalWithCreate {
	return s.WithNewRole(role, resourceGroupID)
}

// DefinePasswordCredential starts a password credential for the service principal.
func (s ServicePrincipalWithCreate) DefinePasswordCredential(name string) *PasswordCredentialDefinition[ServicePrincipalWithCreate] {
	return definePassword(name, func(c *PasswordCredential) ServicePrincipalWithCreate {
		s.sp.credentials.addPassword(c)
		return s
	})
}

// DefineCertificateCredential starts a certificate credential for the service principal.
func (s ServicePrincipalWithCreate) DefineCertificateCredential(name string) CertificateCredentialBlank[ServicePrincipalWithCreate] {
	return defineCertificate(name, func(c *CertificateCredential) ServicePrincipalWithCreate {
		s.sp.credentials.addCertificate(c)
		return s
	})
}

// Create creates the service principal, its application when requested, credentials
// and role assignments.
func (s ServicePrincipalWithCreate) Create(ctx context.Context) (*ServicePrincipal, error) {
	if err := s.sp.submit(ctx); err != nil {
		return nil, err
	}
	return s.sp, nil
}

// ServicePrincipalUpdate stages changes to an existing service principal.
type ServicePrincipalUpdate struct {
	sp *ServicePrincipal
}

// WithNewRole assigns a built-in role at scope.
func (u *ServicePrincipalUpdate) WithNewRole(role BuiltInRole, scope string) *ServicePrincipalUpdate {
	u.sp.addRole(role, scope)
	return u
}

// WithNewRoleInSubscription assigns a built-in role at subscription scope.
func (u *ServicePrincipalUpdate) WithNewRoleInSubscription(role BuiltInRole, subscriptionID string) *ServicePrincipalUpdate {
	return u.WithNewRole(role, SubscriptionScope(subscriptionID))
}

// WithoutRole removes a role assignment.
func (u *ServicePrincipalUpdate) WithoutRole(assignment *RoleAssignment) *ServicePrincipalUpdate {
	return u.WithoutRoleByID(assignment.ID())
}

// WithoutRoleByID removes the role assignment with the given ID.
func (u *ServicePrincipalUpdate) WithoutRoleByID(roleAssignmentID string) *ServicePrincipalUpdate {
	u.sp.rolesToDelete = append(u.sp.rolesToDelete, roleAssignmentID)
	return u
}

// DefinePasswordCredential starts a new password credential.
func (u *ServicePrincipalUpdate) DefinePasswordCredential(name string) *PasswordCredentialDefinition[*ServicePrincipalUpdate] {
	return definePassword(name, func(c *PasswordCredential) *ServicePrincipalUpdate {
		u.sp.credentials.addPassword(c)
		return u
	})
}

// DefineCertificateCredential starts a new certificate credential.
func (u *ServicePrincipalUpdate) DefineCertificateCredential(name string) CertificateCredentialBlank[*ServicePrincipalUpdate] {
	return defineCertificate(name, func(c *CertificateCredential) *ServicePrincipalUpdate {
		u.sp.credentials.addCertificate(c)
		return u
	})
}

// WithoutCredential removes the password or certificate credential with the given name.
func (u *ServicePrincipalUpdate) WithoutCredential(name string) *ServicePrincipalUpdate {
	u.sp.credentials.remove(name)
	return u
}

// Apply sends the staged changes.
func (u *ServicePrincipalUpdate) Apply(ctx context.Context) (*ServicePrincipal, error) {
	if err := u.sp.submit(ctx); err != nil {
		return nil, err
	}
	return u.sp, nil
}
