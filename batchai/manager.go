// Package batchai manages Batch AI workspaces and the clusters, file servers,
// experiments and jobs inside them.
package batchai

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/sdk"
)

// APIVersion is the Microsoft.BatchAI api-version.
const APIVersion = "2018-05-01"

// Manager is the entry point to Batch AI.
type Manager struct {
	client *sdk.Client
	logger *zap.Logger

	workspaces *Workspaces
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
	client, err := sdk.NewARMClient(cred, profile, template, APIVersion)
	if err != nil {
		return nil, err
	}
	return NewManager(client), nil
}

// NewManager assembles a Manager around a Resource Manager client.
func NewManager(client *sdk.Client) *Manager {
	m := &Manager{
		client: client,
		logger: logging.OrNop(client.Logger).With(
			zap.String(logging.FieldComponent, "batchai"),
			zap.String(logging.FieldSubscriptionID, client.SubscriptionID),
		),
	}
	m.workspaces = &Workspaces{
		ResourceCollection: sdk.ResourceCollection[models.Workspace, *Workspace]{
			Client:       client,
			ResourceType: workspaceType,
		},
		manager: m,
	}
	m.workspaces.Wrap = m.workspaces.wrap
	return m
}

// Client returns the Resource Manager client.
func (m *Manager) Client() *sdk.Client { return m.client }

// SubscriptionID returns the subscription the manager operates in.
func (m *Manager) SubscriptionID() string { return m.client.SubscriptionID }

// Workspaces returns the workspace collection.
func (m *Manager) Workspaces() *Workspaces { return m.workspaces }
