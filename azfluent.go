// Package azfluent is the entry point to every azfluent service manager.
//
// Authenticate once and reach each service through the returned Azure:
//
//	azure, err := azfluent.Configure().
//		WithLogger(logger).
//		Authenticate(cred, sdk.Profile{TenantID: tenant, SubscriptionID: subscription})
//	vaults, err := azure.KeyVaults().Vaults().ListByResourceGroup(ctx, "rg1")
//
// The service packages can also be used on their own through their Configure and
// Authenticate functions.
package azfluent

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/yaroslav/azfluent/batchai"
	"github.com/yaroslav/azfluent/compute"
	"github.com/yaroslav/azfluent/graphrbac"
	"github.com/yaroslav/azfluent/keyvault"
	"github.com/yaroslav/azfluent/network"
	"github.com/yaroslav/azfluent/sdk"
)

// Azure holds one manager per service, all authenticated with the same credential
// against the same tenant and subscription.
type Azure struct {
	profile sdk.Profile

	graphRBAC *graphrbac.Manager
	batchAI   *batchai.Manager
	compute   *compute.Manager
	network   *network.Manager
	keyVault  *keyvault.Manager
}

// Configure returns a Configurable whose Authenticate builds every manager.
func Configure() *sdk.Configurable[*Azure] {
	return sdk.NewConfigurable[*Azure](build)
}

// Authenticate builds every manager with default client settings.
func Authenticate(cred azcore.TokenCredential, profile sdk.Profile) (*Azure, error) {
	return Configure().Authenticate(cred, profile)
}

func build(cred azcore.TokenCredential, profile sdk.Profile, template sdk.ClientConfig) (*Azure, error) {
	if err := profile.RequireTenant(); err != nil {
		return nil, err
	}
	if err := profile.RequireSubscription(); err != nil {
		return nil, err
	}

	arm := func(apiVersion string) (*sdk.Client, error) {
		return sdk.NewARMClient(cred, profile, template, apiVersion)
	}

	graph, err := sdk.NewGraphClient(cred, profile, template, graphrbac.GraphAPIVersion)
	if err != nil {
		return nil, err
	}
	authz, err := arm(graphrbac.RoleAssignmentAPIVersion)
	if err != nil {
		return nil, err
	}
	batchAIClient, err := arm(batchai.APIVersion)
	if err != nil {
		return nil, err
	}
	computeClient, err := arm(compute.APIVersion)
	if err != nil {
		return nil, err
	}
	networkClient, err := arm(network.APIVersion)
	if err != nil {
		return nil, err
	}
	keyVaultClient, err := arm(keyvault.APIVersion)
	if err != nil {
		return nil, err
	}

	graphRBAC := graphrbac.NewManager(graph, authz, profile)
	return &Azure{
		profile:   profile,
		graphRBAC: graphRBAC,
		batchAI:   batchai.NewManager(batchAIClient),
		compute:   compute.NewManager(computeClient),
		network:   network.NewManager(networkClient),
		keyVault:  keyvault.NewManager(keyVaultClient, graphRBAC, keyvault.AzureKeyClients(cred, template)),
	}, nil
}

// TenantID returns the tenant every manager operates in.
func (a *Azure) TenantID() string { return a.profile.TenantID }

// SubscriptionID returns the subscription every Resource Manager call is made in.
func (a *Azure) SubscriptionID() string { return a.profile.SubscriptionID }

// GraphRBAC returns the Azure AD and role assignment manager.
func (a *Azure) GraphRBAC() *graphrbac.Manager { return a.graphRBAC }

// BatchAI returns the Batch AI manager.
func (a *Azure) BatchAI() *batchai.Manager { return a.batchAI }

// Compute returns the compute manager.
func (a *Azure) Compute() *compute.Manager { return a.compute }

// Network returns the network manager.
func (a *Azure) Network() *network.Manager { return a.network }

// KeyVaults returns the Key Vault manager.
func (a *Azure) KeyVaults() *keyvault.Manager { return a.keyVault }
