package models

// NetworkSecurityGroup filters traffic to and from subnets and NICs.
type NetworkSecurityGroup struct {
	Resource

	Etag       string                         `json:"etag,omitempty"`
	Properties NetworkSecurityGroupProperties `json:"properties"`
}

// NetworkSecurityGroupProperties holds the rule sets.
type NetworkSecurityGroupProperties struct {
	SecurityRules        []SecurityRule `json:"securityRules"`
	DefaultSecurityRules []SecurityRule `json:"defaultSecurityRules,omitempty"`
	ProvisioningState    string         `json:"provisioningState,omitempty"`
}

// SecurityRule is a single allow/deny rule.
type SecurityRule struct {
	ID         string                 `json:"id,omitempty"`
	Name       string                 `json:"name"`
	Etag       string                 `json:"etag,omitempty"`
	Properties SecurityRuleProperties `json:"properties"`
}

// SecurityRuleProperties is the match and action of a rule.
type SecurityRuleProperties struct {
	Description string `json:"description,omitempty"`

	// Protocol is "Tcp", "Udp", "Icmp" or "*".
	Protocol string `json:"protocol"`

	SourcePortRange          string `json:"sourcePortRange"`
	DestinationPortRange     string `json:"destinationPortRange"`
	SourceAddressPrefix      string `json:"sourceAddressPrefix"`
	DestinationAddressPrefix string `json:"destinationAddressPrefix"`

	// Access is "Allow" or "Deny".
	Access string `json:"access"`

	// Priority orders rules; lower wins. Valid range is 100-4096.
	Priority int32 `json:"priority"`

	// Direction is "Inbound" or "Outbound".
	Direction string `json:"direction"`

	ProvisioningState string `json:"provisioningState,omitempty"`
}

// PublicIPAddress is a routable IP address resource.
type PublicIPAddress struct {
	Resource

	Sku        *PublicIPAddressSku       `json:"sku,omitempty"`
	Properties PublicIPAddressProperties `json:"properties"`
}

// PublicIPAddressSku is "Basic" or "Standard".
type PublicIPAddressSku struct {
	Name string `json:"name"`
}

// PublicIPAddressProperties describes the address allocation.
type PublicIPAddressProperties struct {
	// PublicIPAllocationMethod is "Static" or "Dynamic".
	PublicIPAllocationMethod string `json:"publicIPAllocationMethod,omitempty"`

	// PublicIPAddressVersion is "IPv4" or "IPv6".
	PublicIPAddressVersion string `json:"publicIPAddressVersion,omitempty"`

	DNSSettings          *PublicIPAddressDNSSettings `json:"dnsSettings,omitempty"`
	IPAddress            string                      `json:"ipAddress,omitempty"`
	IdleTimeoutInMinutes *int32                      `json:"idleTimeoutInMinutes,omitempty"`
	ProvisioningState    string                      `json:"provisioningState,omitempty"`
}

// PublicIPAddressDNSSettings assigns a DNS label under the regional cloudapp domain.
type PublicIPAddressDNSSettings struct {
	DomainNameLabel string `json:"domainNameLabel,omitempty"`
	Fqdn            string `json:"fqdn,omitempty"`
	ReverseFqdn     string `json:"reverseFqdn,omitempty"`
}
