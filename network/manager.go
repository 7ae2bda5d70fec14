// Package network manages network security groups and public IP addresses through the
// Microsoft.Network provider.
package network

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/sdk"
)

// APIVersion is the Microsoft.Network api-version.
const APIVersion = "2019-06-01"

// Manager is the entry point to the network collections.
type Manager struct {
	client *sdk.Client
	logger *zap.Logger

	securityGroups    *NetworkSecurityGroups
	publicIPAddresses *PublicIPAddresses
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
			zap.String(logging.FieldComponent, "network"),
			zap.String(logging.FieldSubscriptionID, client.SubscriptionID),
		),
	}

	m.securityGroups = &NetworkSecurityGroups{
		ResourceCollection: sdk.ResourceCollection[models.NetworkSecurityGroup, *NetworkSecurityGroup]{
			Client:       client,
			ResourceType: securityGroupType,
		},
		manager: m,
	}
	m.securityGroups.Wrap = m.securityGroups.wrap

	m.publicIPAddresses = &PublicIPAddresses{
		ResourceCollection: sdk.ResourceCollection[models.PublicIPAddress, *PublicIPAddress]{
			Client:       client,
			ResourceType: publicIPAddressType,
		},
		manager: m,
	}
	m.publicIPAddresses.Wrap = m.publicIPAddresses.wrap

	return m
}

// Client returns the Resource Manager client.
func (m *Manager) Client() *sdk.Client { return m.client }

// SubscriptionID returns the subscription the manager operates in.
func (m *Manager) SubscriptionID() string { return m.client.SubscriptionID }

// NetworkSecurityGroups returns the network security group collection.
func (m *Manager) NetworkSecurityGroups() *NetworkSecurityGroups { return m.securityGroups }

// PublicIPAddresses returns the public IP address collection.
func (m *Manager) PublicIPAddresses() *PublicIPAddresses { return m.publicIPAddresses }
