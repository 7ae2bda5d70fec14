package keyvault

import (
	"context"
	"maps"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/fluent"
	"github.com/yaroslav/azfluent/sdk"
)

const vaultType = "Microsoft.KeyVault/vaults"

// Vault SKUs.
const (
	SkuStandard = "standard"
	SkuPremium  = "premium"
)

// Network rule set values.
const (
	NetworkActionAllow = "Allow"
	NetworkActionDeny  = "Deny"

	BypassAzureServices = "AzureServices"
	BypassNone          = "None"
)

// Vaults is the collection of key vaults in the subscription.
type Vaults struct {
	sdk.ResourceCollection[models.Vault, *Vault]
	manager *Manager
}

// Define starts the definition of a new vault.
func (c *Vaults) Define(name string) VaultBlank {
	v := &Vault{
		manager: c.manager,
		state: fluent.Unsaved(models.Vault{
			Resource: models.Resource{Name: name},
			Properties: models.VaultProperties{
				TenantID: c.manager.TenantID(),
				Sku:      models.VaultSku{Family: "A", Name: SkuStandard},
			},
		}),
	}
	return VaultBlank{vault: v}
}

func (c *Vaults) wrap(inner models.Vault) *Vault {
	v := &Vault{
		manager:       c.manager,
		state:         fluent.Saved(inner.ID, inner),
		resourceGroup: sdk.ResourceGroupOf(inner.ID),
	}
	v.loadPolicies()
	return v
}

func (c *Vaults) deletedPath() string {
	return c.Client.SubscriptionScope() + "/providers/Microsoft.KeyVault/deletedVaults"
}

func (c *Vaults) deletedVaultPath(location, name string) string {
	return c.Client.SubscriptionScope() + "/providers/Microsoft.KeyVault/locations/" +
		url.PathEscape(location) + "/deletedVaults/" + url.PathEscape(name)
}

// ListDeleted returns the soft-deleted vaults of the subscription.
func (c *Vaults) ListDeleted(ctx context.Context) ([]models.DeletedVault, error) {
	return c.ListDeletedPager().All(ctx)
}

// ListDeletedPager returns a pager over the soft-deleted vaults of the subscription.
func (c *Vaults) ListDeletedPager() *sdk.Pager[models.DeletedVault, models.DeletedVault] {
	return sdk.NewPager(c.Client, c.deletedPath(), func(d models.DeletedVault) models.DeletedVault { return d })
}

// GetDeleted fetches a soft-deleted vault.
func (c *Vaults) GetDeleted(ctx context.Context, location, name string) (models.DeletedVault, error) {
	var deleted models.DeletedVault
	err := c.Client.DoJSON(ctx, http.MethodGet, c.deletedVaultPath(location, name), nil, &deleted)
	return deleted, err
}

// BeginPurge starts permanently deleting a soft-deleted vault.
func (c *Vaults) BeginPurge(ctx context.Context, location, name string) (*runtime.Poller[struct{}], error) {
	return sdk.Begin[struct{}](ctx, c.Client, http.MethodPost, c.deletedVaultPath(location, name)+"/purge", nil)
}

// Purge permanently deletes a soft-deleted vault and waits for completion.
func (c *Vaults) Purge(ctx context.Context, location, name string) error {
	path := c.deletedVaultPath(location, name) + "/purge"
	if _, err := sdk.BeginAndWait[struct{}](ctx, c.Client, http.MethodPost, path, nil); err != nil {
		return err
	}
	logging.FromContext(ctx, c.manager.logger).Info("Key vault purged",
		zap.String(logging.FieldResourceName, name),
		zap.String("location", location))
	return nil
}

// Vault is an Azure Key Vault.
type Vault struct {
	manager       *Manager
	state         fluent.State[models.Vault]
	resourceGroup string
	policies      []*AccessPolicy

	keys *Keys
}

// ID returns the resource ID, or "" before creation.
func (v *Vault) ID() string { return v.state.ID() }

// Name returns the vault name.
func (v *Vault) Name() string { return v.state.Inner().Name }

// ResourceGroupName returns the resource group holding the vault.
func (v *Vault) ResourceGroupName() string { return v.resourceGroup }

// Region returns the vault location.
func (v *Vault) Region() string { return v.state.Inner().Location }

// Tags returns the resource tags.
func (v *Vault) Tags() map[string]string { return v.state.Inner().Tags }

// VaultURI returns the data-plane endpoint of the vault.
func (v *Vault) VaultURI() string { return v.state.Inner().Properties.VaultURI }

// TenantID returns the tenant requests to the vault authenticate against.
func (v *Vault) TenantID() string { return v.state.Inner().Properties.TenantID }

// Sku returns the pricing tier.
func (v *Vault) Sku() string { return v.state.Inner().Properties.Sku.Name }

// AccessPolicies returns the access policies of the vault.
func (v *Vault) AccessPolicies() []*AccessPolicy { return v.policies }

// EnabledForDeployment reports whether VMs may retrieve certificates stored as secrets.
func (v *Vault) EnabledForDeployment() bool {
	return isTrue(v.state.Inner().Properties.EnabledForDeployment)
}

// EnabledForDiskEncryption reports whether Azure Disk Encryption may use the vault.
func (v *Vault) EnabledForDiskEncryption() bool {
	return isTrue(v.state.Inner().Properties.EnabledForDiskEncryption)
}

// EnabledForTemplateDeployment reports whether Resource Manager may retrieve secrets.
func (v *Vault) EnabledForTemplateDeployment() bool {
	return isTrue(v.state.Inner().Properties.EnabledForTemplateDeployment)
}

// SoftDeleteEnabled reports whether deleted vaults and objects are retained.
func (v *Vault) SoftDeleteEnabled() bool {
	return isTrue(v.state.Inner().Properties.EnableSoftDelete)
}

// PurgeProtectionEnabled reports whether purging is blocked during the retention period.
func (v *Vault) PurgeProtectionEnabled() bool {
	return isTrue(v.state.Inner().Properties.EnablePurgeProtection)
}

// NetworkRuleSet returns the network ACLs, or nil when the vault is open to all networks.
func (v *Vault) NetworkRuleSet() *models.NetworkRuleSet { return v.state.Inner().Properties.NetworkACLs }

// Inner returns the last known wire representation.
func (v *Vault) Inner() models.Vault { return v.state.Inner() }

// IsInCreateMode reports whether the vault has not been created yet.
func (v *Vault) IsInCreateMode() bool { return v.state.IsInCreateMode() }

// Keys returns the keys stored in the vault.
func (v *Vault) Keys() *Keys {
	if v.keys == nil {
		v.keys = &Keys{vault: v}
	}
	return v.keys
}

// Refresh reloads the vault.
func (v *Vault) Refresh(ctx context.Context) error {
	var inner models.Vault
	if err := v.manager.client.DoJSON(ctx, http.MethodGet, v.ID(), nil, &inner); err != nil {
		return err
	}
	v.state = v.state.Refreshed(inner)
	v.loadPolicies()
	return nil
}

// Update starts a batch of changes to the vault.
func (v *Vault) Update() VaultUpdate {
	v.state.Mutate(func(inner *models.Vault) {
		inner.Tags = maps.Clone(inner.Tags)
	})
	return VaultUpdate{vault: v}
}

func isTrue(b *bool) bool { return b != nil && *b }

func (v *Vault) loadPolicies() {
	entries := v.state.Inner().Properties.AccessPolicies
	v.policies = make([]*AccessPolicy, 0, len(entries))
	for _, entry := range entries {
		v.policies = append(v.policies, &AccessPolicy{entry: entry})
	}
}

func (v *Vault) defineAccessPolicy() *AccessPolicy {
	return &AccessPolicy{entry: models.AccessPolicyEntry{TenantID: v.manager.TenantID()}}
}

func (v *Vault) mutate(fn func(p *models.VaultProperties)) {
	v.state.Mutate(func(inner *models.Vault) {
		fn(&inner.Properties)
	})
}

func (v *Vault) withTag(key, value string) {
	v.state.Mutate(func(inner *models.Vault) {
		if inner.Tags == nil {
			inner.Tags = map[string]string{}
		}
		inner.Tags[key] = value
	})
}

func (v *Vault) networkACLs(fn func(acls *models.NetworkRuleSet)) {
	v.mutate(func(p *models.VaultProperties) {
		if p.NetworkACLs == nil {
			p.NetworkACLs = &models.NetworkRuleSet{DefaultAction: NetworkActionAllow, Bypass: BypassAzureServices}
		}
		fn(p.NetworkACLs)
	})
}

func (v *Vault) validate() error {
	inner := v.state.Inner()
	if v.IsInCreateMode() {
		switch {
		case inner.Name == "":
			return models.Validationf("vault name is required")
		case inner.Location == "":
			return models.Validationf("vault region is required")
		case v.resourceGroup == "":
			return models.Validationf("vault resource group is required")
		}
	}
	for _, policy := range v.policies {
		if !policy.hasPrincipal() {
			return models.Validationf("access policy needs an object ID, user or service principal")
		}
	}
	return nil
}

// resolvePolicies looks up the object IDs of policies defined by principal name and
// copies every policy into the wire document.
func (v *Vault) resolvePolicies(ctx context.Context) error {
	entries := make([]models.AccessPolicyEntry, 0, len(v.policies))
	for _, policy := range v.policies {
		if err := policy.resolve(ctx, v.manager.graph); err != nil {
			return err
		}
		entries = append(entries, policy.entry)
	}
	v.mutate(func(p *models.VaultProperties) {
		p.AccessPolicies = entries
	})
	return nil
}

func (v *Vault) submit(ctx context.Context) (*Vault, error) {
	if err := v.validate(); err != nil {
		return nil, err
	}
	if err := v.resolvePolicies(ctx); err != nil {
		return nil, err
	}

	client := v.manager.client
	reconciler := fluent.Reconciler[models.Vault]{
		Create: func(ctx context.Context, draft models.Vault) (models.Vault, error) {
			params := models.VaultCreateOrUpdateParameters{
				Location:   draft.Location,
				Tags:       draft.Tags,
				Properties: draft.Properties,
			}
			var created models.Vault
			err := client.DoJSON(ctx, http.MethodPut, v.manager.vaults.Path(v.resourceGroup, draft.Name), params, &created)
			return created, err
		},
		Update: func(ctx context.Context, id string, current models.Vault) (models.Vault, error) {
			p := current.Properties
			params := models.VaultPatchParameters{
				Tags: current.Tags,
				Properties: &models.VaultPatchProperties{
					TenantID:                     p.TenantID,
					Sku:                          &p.Sku,
					AccessPolicies:               p.AccessPolicies,
					EnabledForDeployment:         p.EnabledForDeployment,
					EnabledForDiskEncryption:     p.EnabledForDiskEncryption,
					EnabledForTemplateDeployment: p.EnabledForTemplateDeployment,
					EnableSoftDelete:             p.EnableSoftDelete,
					EnablePurgeProtection:        p.EnablePurgeProtection,
					NetworkACLs:                  p.NetworkACLs,
				},
			}
			var updated models.Vault
			err := client.DoJSON(ctx, http.MethodPatch, id, params, &updated)
			return updated, err
		},
		IDOf: func(inner models.Vault) string { return inner.ID },
	}
	if _, err := sdk.Submit(ctx, client, vaultType, v.Name(), reconciler, &v.state); err != nil {
		return nil, err
	}
	v.loadPolicies()
	return v, nil
}

// VaultBlank is the first definition stage: the region.
type VaultBlank struct {
	vault *Vault
}

// WithRegion sets the location of the vault.
func (d VaultBlank) WithRegion(region string) VaultWithGroup {
	d.vault.state.Mutate(func(inner *models.Vault) {
		inner.Location = region
	})
	return VaultWithGroup(d)
}

// VaultWithGroup selects the resource group.
type VaultWithGroup struct {
	vault *Vault
}

// WithExistingResourceGroup places the vault in an existing resource group.
func (d VaultWithGroup) WithExistingResourceGroup(resourceGroup string) VaultWithCreate {
	d.vault.resourceGroup = resourceGroup
	return VaultWithCreate(d)
}

// VaultWithCreate is the final definition stage.
type VaultWithCreate struct {
	vault *Vault
}

// DefineAccessPolicy starts an access policy to attach to the new vault.
func (d VaultWithCreate) DefineAccessPolicy() AccessPolicyBlank[VaultWithCreate] {
	return AccessPolicyBlank[VaultWithCreate]{
		policy: d.vault.defineAccessPolicy(),
		attach: func(p *AccessPolicy) VaultWithCreate {
			d.vault.policies = append(d.vault.policies, p)
			return d
		},
	}
}

// WithSku sets the pricing tier.
func (d VaultWithCreate) WithSku(sku string) VaultWithCreate {
	d.vault.mutate(func(p *models.VaultProperties) { p.Sku.Name = sku })
	return d
}

// WithDeploymentEnabled lets VMs retrieve certificates stored as secrets.
func (d VaultWithCreate) WithDeploymentEnabled() VaultWithCreate {
	d.vault.mutate(func(p *models.VaultProperties) { p.EnabledForDeployment = to.Ptr(true) })
	return d
}

// WithDiskEncryptionEnabled lets Azure Disk Encryption use the vault.
func (d VaultWithCreate) WithDiskEncryptionEnabled() VaultWithCreate {
	d.vault.mutate(func(p *models.VaultProperties) { p.EnabledForDiskEncryption = to.Ptr(true) })
	return d
}

// WithTemplateDeploymentEnabled lets Resource Manager retrieve secrets during deployments.
func (d VaultWithCreate) WithTemplateDeploymentEnabled() VaultWithCreate {
	d.vault.mutate(func(p *models.VaultProperties) { p.EnabledForTemplateDeployment = to.Ptr(true) })
	return d
}

// WithSoftDeleteEnabled retains the vault and its objects after deletion.
func (d VaultWithCreate) WithSoftDeleteEnabled() VaultWithCreate {
	d.vault.mutate(func(p *models.VaultProperties) { p.EnableSoftDelete = to.Ptr(true) })
	return d
}

// WithPurgeProtectionEnabled blocks purging during the retention period.
func (d VaultWithCreate) WithPurgeProtectionEnabled() VaultWithCreate {
	d.vault.mutate(func(p *models.VaultProperties) { p.EnablePurgeProtection = to.Ptr(true) })
	return d
}

// WithAccessFromAllNetworks opens the vault to every network.
func (d VaultWithCreate) WithAccessFromAllNetworks() VaultWithCreate {
	d.vault.networkACLs(func(acls *models.NetworkRuleSet) { acls.DefaultAction = NetworkActionAllow })
	return d
}

// WithAccessFromSelectedNetworks denies every network not explicitly allowed.
func (d VaultWithCreate) WithAccessFromSelectedNetworks() VaultWithCreate {
	d.vault.networkACLs(func(acls *models.NetworkRuleSet) { acls.DefaultAction = NetworkActionDeny })
	return d
}

// WithAccessFromIPAddress allows a single address.
func (d VaultWithCreate) WithAccessFromIPAddress(ip string) VaultWithCreate {
	return d.WithAccessFromIPAddressRange(ip)
}

// WithAccessFromIPAddressRange allows a CIDR range.
func (d VaultWithCreate) WithAccessFromIPAddressRange(cidr string) VaultWithCreate {
	d.vault.networkACLs(func(acls *models.NetworkRuleSet) {
		acls.IPRules = append(acls.IPRules, models.IPRule{Value: cidr})
	})
	return d
}

// WithAccessFromVirtualNetwork allows a subnet, by resource ID.
func (d VaultWithCreate) WithAccessFromVirtualNetwork(subnetID string) VaultWithCreate {
	d.vault.networkACLs(func(acls *models.NetworkRuleSet) {
		acls.VirtualNetworkRules = append(acls.VirtualNetworkRules, models.VirtualNetworkRule{ID: subnetID})
	})
	return d
}

// WithAccessFromAzureServices lets trusted Azure services bypass the network rules.
func (d VaultWithCreate) WithAccessFromAzureServices() VaultWithCreate {
	d.vault.networkACLs(func(acls *models.NetworkRuleSet) { acls.Bypass = BypassAzureServices })
	return d
}

// WithTag adds a resource tag.
func (d VaultWithCreate) WithTag(key, value string) VaultWithCreate {
	d.vault.withTag(key, value)
	return d
}

// Create resolves the access policy principals and creates the vault.
func (d VaultWithCreate) Create(ctx context.Context) (*Vault, error) {
	return d.vault.submit(ctx)
}

// VaultUpdate collects changes to an existing vault.
type VaultUpdate struct {
	vault *Vault
}

// DefineAccessPolicy starts an access policy to add to the vault.
func (u VaultUpdate) DefineAccessPolicy() AccessPolicyBlank[VaultUpdate] {
	return AccessPolicyBlank[VaultUpdate]{
		policy: u.vault.defineAccessPolicy(),
		attach: func(p *AccessPolicy) VaultUpdate {
			u.vault.policies = append(u.vault.policies, p)
			return u
		},
	}
}

// UpdateAccessPolicy edits the policy granted to objectID. It returns nil when the vault
// has no such policy.
func (u VaultUpdate) UpdateAccessPolicy(objectID string) *AccessPolicyUpdate {
	for _, policy := range u.vault.policies {
		if policy.ObjectID() == objectID {
			return &AccessPolicyUpdate{policy: policy, parent: u}
		}
	}
	return nil
}

// WithoutAccessPolicy removes the policy granted to objectID.
func (u VaultUpdate) WithoutAccessPolicy(objectID string) VaultUpdate {
	kept := u.vault.policies[:0]
	for _, policy := range u.vault.policies {
		if policy.ObjectID() != objectID {
			kept = append(kept, policy)
		}
	}
	u.vault.policies = kept
	return u
}

// WithSku sets the pricing tier.
func (u VaultUpdate) WithSku(sku string) VaultUpdate {
	u.vault.mutate(func(p *models.VaultProperties) { p.Sku.Name = sku })
	return u
}

// WithDeploymentEnabled lets VMs retrieve certificates stored as secrets.
func (u VaultUpdate) WithDeploymentEnabled() VaultUpdate {
	u.vault.mutate(func(p *models.VaultProperties) { p.EnabledForDeployment = to.Ptr(true) })
	return u
}

// WithDeploymentDisabled stops VMs from retrieving certificates.
func (u VaultUpdate) WithDeploymentDisabled() VaultUpdate {
	u.vault.mutate(func(p *models.VaultProperties) { p.EnabledForDeployment = to.Ptr(false) })
	return u
}

// WithDiskEncryptionEnabled lets Azure Disk Encryption use the vault.
func (u VaultUpdate) WithDiskEncryptionEnabled() VaultUpdate {
	u.vault.mutate(func(p *models.VaultProperties) { p.EnabledForDiskEncryption = to.Ptr(true) })
	return u
}

// WithDiskEncryptionDisabled stops Azure Disk Encryption from using the vault.
func (u VaultUpdate) WithDiskEncryptionDisabled() VaultUpdate {
	u.vault.mutate(func(p *models.VaultProperties) { p.EnabledForDiskEncryption = to.Ptr(false) })
	return u
}

// WithTemplateDeploymentEnabled lets Resource Manager retrieve secrets during deployments.
func (u VaultUpdate) WithTemplateDeploymentEnabled() VaultUpdate {
	u.vault.mutate(func(p *models.VaultProperties) { p.EnabledForTemplateDeployment = to.Ptr(true) })
	return u
}

// WithTemplateDeploymentDisabled stops Resource Manager from retrieving secrets.
func (u VaultUpdate) WithTemplateDeploymentDisabled() VaultUpdate {
	u.vault.mutate(func(p *models.VaultProperties) { p.EnabledForTemplateDeployment = to.Ptr(false) })
	return u
}

// WithSoftDeleteEnabled retains the vault and its objects after deletion. Soft delete
// cannot be turned off again.
func (u VaultUpdate) WithSoftDeleteEnabled() VaultUpdate {
	u.vault.mutate(func(p *models.VaultProperties) { p.EnableSoftDelete = to.Ptr(true) })
	return u
}

// WithPurgeProtectionEnabled blocks purging during the retention period.
func (u VaultUpdate) WithPurgeProtectionEnabled() VaultUpdate {
	u.vault.mutate(func(p *models.VaultProperties) { p.EnablePurgeProtection = to.Ptr(true) })
	return u
}

// WithAccessFromAllNetworks opens the vault to every network.
func (u VaultUpdate) WithAccessFromAllNetworks() VaultUpdate {
	u.vault.networkACLs(func(acls *models.NetworkRuleSet) { acls.DefaultAction = NetworkActionAllow })
	return u
}

// WithAccessFromSelectedNetworks denies every network not explicitly allowed.
func (u VaultUpdate) WithAccessFromSelectedNetworks() VaultUpdate {
	u.vault.networkACLs(func(acls *models.NetworkRuleSet) { acls.DefaultAction = NetworkActionDeny })
	return u
}

// WithAccessFromIPAddressRange allows a CIDR range.
func (u VaultUpdate) WithAccessFromIPAddressRange(cidr string) VaultUpdate {
	u.vault.networkACLs(func(acls *models.NetworkRuleSet) {
		acls.IPRules = append(acls.IPRules, models.IPRule{Value: cidr})
	})
	return u
}

// WithAccessFromAzureServices lets trusted Azure services bypass the network rules.
func (u VaultUpdate) WithAccessFromAzureServices() VaultUpdate {
	u.vault.networkACLs(func(acls *models.NetworkRuleSet) { acls.Bypass = BypassAzureServices })
	return u
}

// WithTag sets a tag.
func (u VaultUpdate) WithTag(key, value string) VaultUpdate {
	u.vault.withTag(key, value)
	return u
}

// WithoutTag removes a tag.
func (u VaultUpdate) WithoutTag(key string) VaultUpdate {
	u.vault.state.Mutate(func(inner *models.Vault) {
		delete(inner.Tags, key)
	})
	return u
}

// Apply resolves any new access policy principals and patches the vault.
func (u VaultUpdate) Apply(ctx context.Context) (*Vault, error) {
	return u.vault.submit(ctx)
}
