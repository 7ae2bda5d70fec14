// Package compute manages managed-disk snapshots, custom images and the power state of
// virtual machines through the Microsoft.Compute provider.
package compute

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/sdk"
)

// APIVersion is the Microsoft.Compute api-version.
const APIVersion = "2019-07-01"

// Manager is the entry point to the compute collections.
type Manager struct {
	client *sdk.Client
	logger *zap.Logger

	snapshots       *Snapshots
	images          *Images
	virtualMachines *VirtualMachines
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
			zap.String(logging.FieldComponent, "compute"),
			zap.String(logging.FieldSubscriptionID, client.SubscriptionID),
		),
	}

	m.snapshots = &Snapshots{
		ResourceCollection: sdk.ResourceCollection[models.Snapshot, *Snapshot]{
			Client:       client,
			ResourceType: snapshotType,
		},
		manager: m,
	}
	m.snapshots.Wrap = m.snapshots.wrap

	m.images = &Images{
		ResourceCollection: sdk.ResourceCollection[models.Image, *Image]{
			Client:       client,
			ResourceType: imageType,
		},
		manager: m,
	}
	m.images.Wrap = m.images.wrap

	m.virtualMachines = &VirtualMachines{
		ResourceCollection: sdk.ResourceCollection[models.VirtualMachine, *VirtualMachine]{
			Client:       client,
			ResourceType: virtualMachineType,
		},
		manager: m,
	}
	m.virtualMachines.Wrap = m.virtualMachines.wrap

	return m
}

// Client returns the Resource Manager client.
func (m *Manager) Client() *sdk.Client { return m.client }

// SubscriptionID returns the subscription the manager operates in.
func (m *Manager) SubscriptionID() string { return m.client.SubscriptionID }

// Snapshots returns the snapshot collection.
func (m *Manager) Snapshots() *Snapshots { return m.snapshots }

// Images returns the custom image collection.
func (m *Manager) Images() *Images { return m.images }

// VirtualMachines returns the virtual machine collection.
func (m *Manager) VirtualMachines() *VirtualMachines { return m.virtualMachines }
