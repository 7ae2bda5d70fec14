package sdk

import (
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
)

// Environment holds the endpoints of one Azure cloud.
type Environment struct {
	// Name identifies the cloud, e.g. "AzureCloud".
	Name string

	ActiveDirectoryEndpoint string
	ResourceManagerEndpoint string
	GraphEndpoint           string
	ManagementEndpoint      string

	// KeyVaultDNSSuffix is appended to a vault name to form its data-plane host.
	KeyVaultDNSSuffix string
}

var (
	// AzureCloud is the global public Azure cloud.
	AzureCloud = Environment{
		Name:                    "AzureCloud",
		ActiveDirectoryEndpoint: "https://login.microsoftonline.com/",
		ResourceManagerEndpoint: "https://management.azure.com/",
		GraphEndpoint:           "https://graph.windows.net/",
		ManagementEndpoint:      "https://management.core.windows.net/",
		KeyVaultDNSSuffix:       ".vault.azure.net",
	}

	// AzureChinaCloud is Azure operated by 21Vianet.
	AzureChinaCloud = Environment{
		Name:                    "AzureChinaCloud",
		ActiveDirectoryEndpoint: "https://login.chinacloudapi.cn/",
		ResourceManagerEndpoint: "https://management.chinacloudapi.cn/",
		GraphEndpoint:           "https://graph.chinacloudapi.cn/",
		ManagementEndpoint:      "https://management.core.chinacloudapi.cn/",
		KeyVaultDNSSuffix:       ".vault.azure.cn",
	}

	// AzureUSGovernment is the Azure US Government cloud.
	AzureUSGovernment = Environment{
		Name:                    "AzureUSGovernment",
		ActiveDirectoryEndpoint: "https://login.microsoftonline.us/",
		ResourceManagerEndpoint: "https://management.usgovcloudapi.net/",
		GraphEndpoint:           "https://graph.windows.net/",
		ManagementEndpoint:      "https://management.core.usgovcloudapi.net/",
		KeyVaultDNSSuffix:       ".vault.usgovcloudapi.net",
	}
)

// LookupEnvironment returns the environment with the given name (case-insensitive).
// An empty name yields AzureCloud.
func LookupEnvironment(name string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "azurecloud", "public":
		return AzureCloud, nil
	case "azurechinacloud", "china":
		return AzureChinaCloud, nil
	case "azureusgovernment", "usgovernment":
		return AzureUSGovernment, nil
	}
	return Environment{}, fmt.Errorf("%w: unknown environment %q", ErrInvalidConfig, name)
}

// Cloud returns the azcore cloud configuration of the environment, for credential options.
func (e Environment) Cloud() cloud.Configuration {
	return cloud.Configuration{
		ActiveDirectoryAuthorityHost: e.ActiveDirectoryEndpoint,
		Services: map[cloud.ServiceName]cloud.ServiceConfiguration{
			cloud.ResourceManager: {
				Audience: strings.TrimSuffix(e.ResourceManagerEndpoint, "/"),
				Endpoint: e.ResourceManagerEndpoint,
			},
		},
	}
}

// VaultURL returns the data-plane URL of a vault in this environment.
func (e Environment) VaultURL(vaultName string) string {
	return "https://" + vaultName + e.KeyVaultDNSSuffix
}
