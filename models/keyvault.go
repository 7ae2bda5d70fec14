package models

import "time"

// Vault is an Azure Key Vault.
type Vault struct {
	Resource
	Properties VaultProperties `json:"properties"`
}

// VaultProperties is the full vault configuration.
type VaultProperties struct {
	// TenantID is the Azure AD tenant used to authenticate requests to the vault.
	TenantID string `json:"tenantId"`

	Sku            VaultSku            `json:"sku"`
	AccessPolicies []AccessPolicyEntry `json:"accessPolicies"`

	// VaultURI is the data-plane endpoint, assigned by the service.
	VaultURI string `json:"vaultUri,omitempty"`

	EnabledForDeployment         *bool `json:"enabledForDeployment,omitempty"`
	EnabledForDiskEncryption     *bool `json:"enabledForDiskEncryption,omitempty"`
	EnabledForTemplateDeployment *bool `json:"enabledForTemplateDeployment,omitempty"`
	EnableSoftDelete             *bool `json:"enableSoftDelete,omitempty"`
	EnablePurgeProtection        *bool `json:"enablePurgeProtection,omitempty"`

	// CreateMode is "default" or "recover".
	CreateMode  string          `json:"createMode,omitempty"`
	NetworkACLs *NetworkRuleSet `json:"networkAcls,omitempty"`
}

// VaultSku selects the vault pricing tier.
type VaultSku struct {
	// Family is always "A".
	Family string `json:"family"`

	// Name is "standard" or "premium".
	Name string `json:"name"`
}

// AccessPolicyEntry grants a principal permissions on vault contents.
type AccessPolicyEntry struct {
	TenantID      string      `json:"tenantId"`
	ObjectID      string      `json:"objectId"`
	ApplicationID string      `json:"applicationId,omitempty"`
	Permissions   Permissions `json:"permissions"`
}

// Permissions lists allowed operations per vault object kind.
type Permissions struct {
	Keys         []string `json:"keys,omitempty"`
	Secrets      []string `json:"secrets,omitempty"`
	Certificates []string `json:"certificates,omitempty"`
	Storage      []string `json:"storage,omitempty"`
}

// NetworkRuleSet restricts which networks can reach the vault.
type NetworkRuleSet struct {
	// Bypass is "AzureServices" or "None".
	Bypass string `json:"bypass,omitempty"`

	// DefaultAction is "Allow" or "Deny".
	DefaultAction       string               `json:"defaultAction,omitempty"`
	IPRules             []IPRule             `json:"ipRules,omitempty"`
	VirtualNetworkRules []VirtualNetworkRule `json:"virtualNetworkRules,omitempty"`
}

// IPRule allows an address or CIDR range.
type IPRule struct {
	Value string `json:"value"`
}

// VirtualNetworkRule allows a subnet.
type VirtualNetworkRule struct {
	ID string `json:"id"`
}

// VaultCreateOrUpdateParameters is the PUT body for a vault.
type VaultCreateOrUpdateParameters struct {
	Location   string            `json:"location"`
	Tags       map[string]string `json:"tags,omitempty"`
	Properties VaultProperties   `json:"properties"`
}

// VaultPatchParameters is the PATCH body for a vault.
type VaultPatchParameters struct {
	Tags       map[string]string     `json:"tags,omitempty"`
	Properties *VaultPatchProperties `json:"properties,omitempty"`
}

// VaultPatchProperties are the vault properties that can be patched.
type VaultPatchProperties struct {
	TenantID                     string              `json:"tenantId,omitempty"`
	Sku                          *VaultSku           `json:"sku,omitempty"`
	AccessPolicies               []AccessPolicyEntry `json:"accessPolicies,omitempty"`
	EnabledForDeployment         *bool               `json:"enabledForDeployment,omitempty"`
	EnabledForDiskEncryption     *bool               `json:"enabledForDiskEncryption,omitempty"`
	EnabledForTemplateDeployment *bool               `json:"enabledForTemplateDeployment,omitempty"`
	EnableSoftDelete             *bool               `json:"enableSoftDelete,omitempty"`
	EnablePurgeProtection        *bool               `json:"enablePurgeProtection,omitempty"`
	CreateMode                   string              `json:"createMode,omitempty"`
	NetworkACLs                  *NetworkRuleSet     `json:"networkAcls,omitempty"`
}

// DeletedVault is a soft-deleted vault awaiting purge.
type DeletedVault struct {
	ID         string                 `json:"id,omitempty"`
	Name       string                 `json:"name,omitempty"`
	Type       string                 `json:"type,omitempty"`
	Properties DeletedVaultProperties `json:"properties"`
}

// DeletedVaultProperties describes when the vault was deleted and will be purged.
type DeletedVaultProperties struct {
	VaultID            string            `json:"vaultId,omitempty"`
	Location           string            `json:"location,omitempty"`
	DeletionDate       *time.Time        `json:"deletionDate,omitempty"`
	ScheduledPurgeDate *time.Time        `json:"scheduledPurgeDate,omitempty"`
	Tags               map[string]string `json:"tags,omitempty"`
}
