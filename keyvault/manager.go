// Package keyvault manages Azure Key Vaults through the Microsoft.KeyVault provider and
// the keys stored in them through the vault data plane.
package keyvault

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/graphrbac"
	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/sdk"
)

// APIVersion is the Microsoft.KeyVault api-version.
const APIVersion = "2018-02-14"

// KeyClientFactory opens a data-plane key client for the vault at vaultURL.
type KeyClientFactory func(vaultURL string) (KeyClient, error)

// Manager is the entry point to the vault collection.
type Manager struct {
	client     *sdk.Client
	graph      *graphrbac.Manager
	keyClients KeyClientFactory
	logger     *zap.Logger

	vaults *Vaults
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
	if err := profile.RequireSubscription(); err != nil {
		return nil, err
	}
	if err := profile.RequireTenant(); err != nil {
		return nil, err
	}

	client, err := sdk.NewARMClient(cred, profile, template, APIVersion)
	if err != nil {
		return nil, err
	}
	graph, err := sdk.NewGraphClient(cred, profile, template, graphrbac.GraphAPIVersion)
	if err != nil {
		return nil, err
	}
	authz, err := sdk.NewARMClient(cred, profile, template, graphrbac.RoleAssignmentAPIVersion)
	if err != nil {
		return nil, err
	}

	return NewManager(client, graphrbac.NewManager(graph, authz, profile), AzureKeyClients(cred, template)), nil
}

// AzureKeyClients returns a factory of azkeys clients authenticated with cred and sending
// through the template's HTTP client, if any.
func AzureKeyClients(cred azcore.TokenCredential, template sdk.ClientConfig) KeyClientFactory {
	return func(vaultURL string) (KeyClient, error) {
		options := &azkeys.ClientOptions{}
		if template.HTTPClient != nil {
			options.Transport = template.HTTPClient
		}
		return azkeys.NewClient(vaultURL, cred, options)
	}
}

// NewManager assembles a Manager from a Resource Manager client, a Graph RBAC manager
// used to resolve access policy principals, and a key client factory.
func NewManager(client *sdk.Client, graph *graphrbac.Manager, keyClients KeyClientFactory) *Manager {
	m := &Manager{
		client:     client,
		graph:      graph,
		keyClients: keyClients,
		logger: logging.OrNop(client.Logger).With(
			zap.String(logging.FieldComponent, "keyvault"),
			zap.String(logging.FieldSubscriptionID, client.SubscriptionID),
		),
	}

	m.vaults = &Vaults{
		ResourceCollection: sdk.ResourceCollection[models.Vault, *Vault]{
			Client:       client,
			ResourceType: vaultType,
		},
		manager: m,
	}
	m.vaults.Wrap = m.vaults.wrap

	return m
}

// Client returns the Resource Manager client.
func (m *Manager) Client() *sdk.Client { return m.client }

// TenantID returns the tenant vaults authenticate against.
func (m *Manager) TenantID() string { return m.graph.TenantID() }

// SubscriptionID returns the subscription the manager operates in.
func (m *Manager) SubscriptionID() string { return m.client.SubscriptionID }

// Graph returns the manager used to look up access policy principals.
func (m *Manager) Graph() *graphrbac.Manager { return m.graph }

// Vaults returns the vault collection.
func (m *Manager) Vaults() *Vaults { return m.vaults }
