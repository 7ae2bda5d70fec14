// Package graphrbac manages Azure AD applications, service principals, users and groups
// through the Azure AD Graph API, and role-based access control through the
// Microsoft.Authorization provider.
package graphrbac

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/pkg/retry"
	"github.com/yaroslav/azfluent/sdk"
)

const (
	// GraphAPIVersion is the Azure AD Graph api-version.
	GraphAPIVersion = "1.6"

	// RoleAssignmentAPIVersion is the api-version of role assignment requests.
	RoleAssignmentAPIVersion = "2018-09-01-preview"

	// RoleDefinitionAPIVersion is the api-version of role definition requests.
	RoleDefinitionAPIVersion = "2018-01-01-preview"
)

// Manager is the entry point to the Graph RBAC collections.
// All collections are built when the manager is and share its clients.
type Manager struct {
	tenantID       string
	subscriptionID string
	environment    sdk.Environment

	graph  *sdk.Client
	authz  *sdk.Client
	logger *zap.Logger

	principalRetry retry.Policy

	applications      *Applications
	servicePrincipals *ServicePrincipals
	users             *Users
	groups            *Groups
	roleAssignments   *RoleAssignments
	roleDefinitions   *RoleDefinitions
}

// Configure returns a Configurable whose Authenticate builds a Manager.
func Configure() *sdk.Configurable[*Manager] {
	return sdk.NewConfigurable[*Manager](build)
}

// Authenticate builds a Manager with default client settings.
func Authenticate(cred azcore.TokenCredential, profile sdk.Profile) (*Manager, error) {
	return Configure().Authenticate(cred, profile)
}

func build(cred azcore.TokenCredential, profile sdk.Profile, template sdk.ClientConfig) (*Manager, error) {
	if err := profile.RequireTenant(); err != nil {
		return nil, err
	}

	graph, err := sdk.NewGraphClient(cred, profile, template, GraphAPIVersion)
	if err != nil {
		return nil, err
	}

	authz, err := sdk.NewARMClient(cred, profile, template, RoleAssignmentAPIVersion)
	if err != nil {
		return nil, err
	}

	return NewManager(graph, authz, profile), nil
}

// NewManager assembles a Manager from already configured clients: graph rooted at the
// tenant's Graph endpoint and authz at the Resource Manager endpoint.
func NewManager(graph, authz *sdk.Client, profile sdk.Profile) *Manager {
	logger := logging.OrNop(graph.Logger).With(
		zap.String(logging.FieldComponent, "graphrbac"),
		zap.String(logging.FieldTenantID, profile.TenantID),
	)

	m := &Manager{
		tenantID:       profile.TenantID,
		subscriptionID: profile.SubscriptionID,
		environment:    profile.Env(),
		graph:          graph,
		authz:          authz,
		logger:         logger,
	}
	m.principalRetry = m.defaultPrincipalRetry()

	m.applications = &Applications{manager: m}
	m.servicePrincipals = &ServicePrincipals{manager: m}
	m.users = &Users{manager: m}
	m.groups = &Groups{manager: m}
	m.roleAssignments = &RoleAssignments{manager: m}
	m.roleDefinitions = &RoleDefinitions{manager: m}

	return m
}

// TenantID returns the tenant the manager operates in.
func (m *Manager) TenantID() string { return m.tenantID }

// SubscriptionID returns the default subscription for role scopes and auth files.
func (m *Manager) SubscriptionID() string { return m.subscriptionID }

// Environment returns the cloud the manager talks to.
func (m *Manager) Environment() sdk.Environment { return m.environment }

// GraphClient returns the Azure AD Graph client.
func (m *Manager) GraphClient() *sdk.Client { return m.graph }

// AuthorizationClient returns the Microsoft.Authorization client.
func (m *Manager) AuthorizationClient() *sdk.Client { return m.authz }

// Applications returns the application collection.
func (m *Manager) Applications() *Applications { return m.applications }

// ServicePrincipals returns the service principal collection.
func (m *Manager) ServicePrincipals() *ServicePrincipals { return m.servicePrincipals }

// Users returns the user collection.
func (m *Manager) Users() *Users { return m.users }

// Groups returns the group collection.
func (m *Manager) Groups() *Groups { return m.groups }

// RoleAssignments returns the role assignment collection.
func (m *Manager) RoleAssignments() *RoleAssignments { return m.roleAssignments }

// RoleDefinitions returns the role definition collection.
func (m *Manager) RoleDefinitions() *RoleDefinitions { return m.roleDefinitions }

// subscriptionScope returns the scope of the manager's subscription.
func (m *Manager) subscriptionScope() string {
	return SubscriptionScope(m.subscriptionID)
}
