package network

import (
	"context"
	"net/http"

	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/fluent"
	"github.com/yaroslav/azfluent/sdk"
)

const publicIPAddressType = "Microsoft.Network/publicIPAddresses"

// Public IP allocation methods and SKUs.
const (
	AllocationStatic  = "Static"
	AllocationDynamic = "Dynamic"

	PublicIPSkuBasic    = "Basic"
	PublicIPSkuStandard = "Standard"
)

// PublicIPAddresses is the collection of public IP addresses.
type PublicIPAddresses struct {
	sdk.ResourceCollection[models.PublicIPAddress, *PublicIPAddress]
	manager *Manager
}

// Define starts the definition of a new public IP address. It is dynamically
// allocated on the Basic SKU unless changed.
func (c *PublicIPAddresses) Define(name string) PublicIPBlank {
	return PublicIPBlank{ip: &PublicIPAddress{
		manager: c.manager,
		state: fluent.Unsaved(models.PublicIPAddress{
			Resource: models.Resource{Name: name},
			Properties: models.PublicIPAddressProperties{
				PublicIPAllocationMethod: AllocationDynamic,
			},
		}),
	}}
}

func (c *PublicIPAddresses) wrap(inner models.PublicIPAddress) *PublicIPAddress {
	return &PublicIPAddress{
		manager:       c.manager,
		state:         fluent.Saved(inner.ID, inner),
		resourceGroup: sdk.ResourceGroupOf(inner.ID),
	}
}

// PublicIPAddress is a public IP address resource.
type PublicIPAddress struct {
	manager       *Manager
	state         fluent.State[models.PublicIPAddress]
	resourceGroup string
}

// ID returns the resource ID, or "" before creation.
func (ip *PublicIPAddress) ID() string { return ip.state.ID() }

// Name returns the resource name.
func (ip *PublicIPAddress) Name() string { return ip.state.Inner().Name }

// ResourceGroupName returns the resource group holding the address.
func (ip *PublicIPAddress) ResourceGroupName() string { return ip.resourceGroup }

// Region returns the location of the address.
func (ip *PublicIPAddress) Region() string { return ip.state.Inner().Location }

// IPAddress returns the assigned address, or "" while unallocated.
func (ip *PublicIPAddress) IPAddress() string { return ip.state.Inner().Properties.IPAddress }

// AllocationMethod returns AllocationStatic or AllocationDynamic.
func (ip *PublicIPAddress) AllocationMethod() string {
	return ip.state.Inner().Properties.PublicIPAllocationMethod
}

// LeafDomainLabel returns the DNS label, or "".
func (ip *PublicIPAddress) LeafDomainLabel() string {
	if dns := ip.state.Inner().Properties.DNSSettings; dns != nil {
		return dns.DomainNameLabel
	}
	return ""
}

// Fqdn returns the fully qualified DNS name, or "".
func (ip *PublicIPAddress) Fqdn() string {
	if dns := ip.state.Inner().Properties.DNSSettings; dns != nil {
		return dns.Fqdn
	}
	return ""
}

// IdleTimeoutInMinutes returns the TCP idle timeout, or 0 when unset.
func (ip *PublicIPAddress) IdleTimeoutInMinutes() int32 {
	if timeout := ip.state.Inner().Properties.IdleTimeoutInMinutes; timeout != nil {
		return *timeout
	}
	return 0
}

// Sku returns the SKU name, PublicIPSkuBasic when the service reports none.
func (ip *PublicIPAddress) Sku() string {
	if sku := ip.state.Inner().Sku; sku != nil {
		return sku.Name
	}
	return PublicIPSkuBasic
}

// Inner returns the last known wire representation.
func (ip *PublicIPAddress) Inner() models.PublicIPAddress { return ip.state.Inner() }

// IsInCreateMode reports whether the address has not been created yet.
func (ip *PublicIPAddress) IsInCreateMode() bool { return ip.state.IsInCreateMode() }

// Update starts a batch of changes. Apply sends the whole document.
func (ip *PublicIPAddress) Update() PublicIPUpdate {
	return PublicIPUpdate{publicIPSettings{ip: ip}}
}

func (ip *PublicIPAddress) validate() error {
	inner := ip.state.Inner()
	switch {
	case inner.Name == "":
		return models.Validationf("public IP address name is required")
	case inner.Location == "":
		return models.Validationf("public IP address region is required")
	case ip.resourceGroup == "":
		return models.Validationf("public IP address resource group is required")
	case inner.Sku != nil && inner.Sku.Name == PublicIPSkuStandard &&
		inner.Properties.PublicIPAllocationMethod != AllocationStatic:
		return models.Validationf("standard SKU public IP addresses must be statically allocated")
	}
	return nil
}

func (ip *PublicIPAddress) submit(ctx context.Context) (*PublicIPAddress, error) {
	if err := ip.validate(); err != nil {
		return nil, err
	}

	put := func(ctx context.Context, path string, doc models.PublicIPAddress) (models.PublicIPAddress, error) {
		doc.Properties.ProvisioningState = ""
		return sdk.BeginAndWait[models.PublicIPAddress](ctx, ip.manager.client, http.MethodPut, path, doc)
	}
	reconciler := fluent.Reconciler[models.PublicIPAddress]{
		Create: func(ctx context.Context, draft models.PublicIPAddress) (models.PublicIPAddress, error) {
			return put(ctx, ip.manager.publicIPAddresses.Path(ip.resourceGroup, draft.Name), draft)
		},
		Update: func(ctx context.Context, id string, current models.PublicIPAddress) (models.PublicIPAddress, error) {
			return put(ctx, id, current)
		},
		IDOf: func(inner models.PublicIPAddress) string { return inner.ID },
	}
	if _, err := sdk.Submit(ctx, ip.manager.client, publicIPAddressType, ip.Name(), reconciler, &ip.state); err != nil {
		return nil, err
	}
	return ip, nil
}

// publicIPSettings holds the setters shared by the create and update stages.
type publicIPSettings struct {
	ip *PublicIPAddress
}

func (s publicIPSettings) mutate(fn func(inner *models.PublicIPAddress)) {
	s.ip.state.Mutate(fn)
}

func (s publicIPSettings) allocation(method string) {
	s.mutate(func(inner *models.PublicIPAddress) {
		inner.Properties.PublicIPAllocationMethod = method
	})
}

func (s publicIPSettings) leafDomainLabel(label string) {
	s.mutate(func(inner *models.PublicIPAddress) {
		if label == "" {
			inner.Properties.DNSSettings = nil
			return
		}
		if inner.Properties.DNSSettings == nil {
			inner.Properties.DNSSettings = &models.PublicIPAddressDNSSettings{}
		}
		inner.Properties.DNSSettings.DomainNameLabel = label
		inner.Properties.DNSSettings.Fqdn = ""
	})
}

func (s publicIPSettings) idleTimeout(minutes int32) {
	s.mutate(func(inner *models.PublicIPAddress) {
		inner.Properties.IdleTimeoutInMinutes = &minutes
	})
}

func (s publicIPSettings) tag(key, value string) {
	s.mutate(func(inner *models.PublicIPAddress) {
		inner.Tags = withTag(inner.Tags, key, value)
	})
}

// PublicIPBlank is the first definition stage: the region.
type PublicIPBlank struct {
	ip *PublicIPAddress
}

// WithRegion sets the location of the address.
func (d PublicIPBlank) WithRegion(region string) PublicIPWithGroup {
	d.ip.state.Mutate(func(inner *models.PublicIPAddress) {
		inner.Location = region
	})
	return PublicIPWithGroup(d)
}

// PublicIPWithGroup selects the resource group.
type PublicIPWithGroup struct {
	ip *PublicIPAddress
}

// WithExistingResourceGroup places the address in an existing resource group.
func (d PublicIPWithGroup) WithExistingResourceGroup(resourceGroup string) PublicIPWithCreate {
	d.ip.resourceGroup = resourceGroup
	return PublicIPWithCreate{publicIPSettings{ip: d.ip}}
}

// PublicIPWithCreate is the final definition stage; optional settings and Create.
type PublicIPWithCreate struct {
	settings publicIPSettings
}

// WithStaticIP allocates the address when the resource is created.
func (d PublicIPWithCreate) WithStaticIP() PublicIPWithCreate {
	d.settings.allocation(AllocationStatic)
	return d
}

// WithDynamicIP allocates the address when it is associated with a running resource.
func (d PublicIPWithCreate) WithDynamicIP() PublicIPWithCreate {
	d.settings.allocation(AllocationDynamic)
	return d
}

// WithLeafDomainLabel sets the DNS label under the regional cloudapp domain.
func (d PublicIPWithCreate) WithLeafDomainLabel(label string) PublicIPWithCreate {
	d.settings.leafDomainLabel(label)
	return d
}

// WithIdleTimeoutInMinutes sets the TCP idle timeout.
func (d PublicIPWithCreate) WithIdleTimeoutInMinutes(minutes int32) PublicIPWithCreate {
	d.settings.idleTimeout(minutes)
	return d
}

// WithSku sets the SKU. PublicIPSkuStandard also switches to static allocation.
func (d PublicIPWithCreate) WithSku(sku string) PublicIPWithCreate {
	d.settings.mutate(func(inner *models.PublicIPAddress) {
		inner.Sku = &models.PublicIPAddressSku{Name: sku}
		if sku == PublicIPSkuStandard {
			inner.Properties.PublicIPAllocationMethod = AllocationStatic
		}
	})
	return d
}

// WithTag adds a resource tag.
func (d PublicIPWithCreate) WithTag(key, value string) PublicIPWithCreate {
	d.settings.tag(key, value)
	return d
}

// Create creates the address and waits for provisioning to finish.
func (d PublicIPWithCreate) Create(ctx context.Context) (*PublicIPAddress, error) {
	return d.settings.ip.submit(ctx)
}

// PublicIPUpdate collects changes to an existing address.
type PublicIPUpdate struct {
	settings publicIPSettings
}

// WithStaticIP switches to static allocation.
func (u PublicIPUpdate) WithStaticIP() PublicIPUpdate {
	u.settings.allocation(AllocationStatic)
	return u
}

// WithDynamicIP switches to dynamic allocation.
func (u PublicIPUpdate) WithDynamicIP() PublicIPUpdate {
	u.settings.allocation(AllocationDynamic)
	return u
}

// WithLeafDomainLabel sets the DNS label.
func (u PublicIPUpdate) WithLeafDomainLabel(label string) PublicIPUpdate {
	u.settings.leafDomainLabel(label)
	return u
}

// WithoutLeafDomainLabel removes the DNS label.
func (u PublicIPUpdate) WithoutLeafDomainLabel() PublicIPUpdate {
	u.settings.leafDomainLabel("")
	return u
}

// WithIdleTimeoutInMinutes sets the TCP idle timeout.
func (u PublicIPUpdate) WithIdleTimeoutInMinutes(minutes int32) PublicIPUpdate {
	u.settings.idleTimeout(minutes)
	return u
}

// WithTag sets a resource tag.
func (u PublicIPUpdate) WithTag(key, value string) PublicIPUpdate {
	u.settings.tag(key, value)
	return u
}

// Apply sends the updated address and waits for the update to finish.
func (u PublicIPUpdate) Apply(ctx context.Context) (*PublicIPAddress, error) {
	return u.settings.ip.submit(ctx)
}
