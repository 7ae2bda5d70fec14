package network

import (
	"strconv"

	"github.com/yaroslav/azfluent/models"
)

// Rule access, direction and protocol values.
const (
	AccessAllow = "Allow"
	AccessDeny  = "Deny"

	DirectionInbound  = "Inbound"
	DirectionOutbound = "Outbound"

	ProtocolTCP  = "Tcp"
	ProtocolUDP  = "Udp"
	ProtocolICMP = "Icmp"
	ProtocolAny  = "*"
)

// Any matches every address or port.
const Any = "*"

type ruleDraft[P any] struct {
	rule   models.SecurityRule
	attach func(models.SecurityRule) P
}

func defineRule[P any](name string, attach func(models.SecurityRule) P) SecurityRuleBlank[P] {
	return SecurityRuleBlank[P]{draft: &ruleDraft[P]{
		rule:   models.SecurityRule{Name: name},
		attach: attach,
	}}
}

func portRange(from, to int) string {
	return strconv.Itoa(from) + "-" + strconv.Itoa(to)
}

// SecurityRuleBlank is the first rule stage: access and direction.
type SecurityRuleBlank[P any] struct {
	draft *ruleDraft[P]
}

// AllowInbound allows matching inbound traffic.
func (s SecurityRuleBlank[P]) AllowInbound() SecurityRuleWithSourceAddress[P] {
	return s.with(AccessAllow, DirectionInbound)
}

// AllowOutbound allows matching outbound traffic.
func (s SecurityRuleBlank[P]) AllowOutbound() SecurityRuleWithSourceAddress[P] {
	return s.with(AccessAllow, DirectionOutbound)
}

// DenyInbound denies matching inbound traffic.
func (s SecurityRuleBlank[P]) DenyInbound() SecurityRuleWithSourceAddress[P] {
	return s.with(AccessDeny, DirectionInbound)
}

// DenyOutbound denies matching outbound traffic.
func (s SecurityRuleBlank[P]) DenyOutbound() SecurityRuleWithSourceAddress[P] {
	return s.with(AccessDeny, DirectionOutbound)
}

func (s SecurityRuleBlank[P]) with(access, direction string) SecurityRuleWithSourceAddress[P] {
	s.draft.rule.Properties.Access = access
	s.draft.rule.Properties.Direction = direction
	return SecurityRuleWithSourceAddress[P](s)
}

// SecurityRuleWithSourceAddress selects the source address.
type SecurityRuleWithSourceAddress[P any] struct {
	draft *ruleDraft[P]
}

// FromAddress matches traffic from an address, CIDR range or service tag.
func (s SecurityRuleWithSourceAddress[P]) FromAddress(cidr string) SecurityRuleWithSourcePort[P] {
	s.draft.rule.Properties.SourceAddressPrefix = cidr
	return SecurityRuleWithSourcePort[P](s)
}

// FromAnyAddress matches traffic from every address.
func (s SecurityRuleWithSourceAddress[P]) FromAnyAddress() SecurityRuleWithSourcePort[P] {
	return s.FromAddress(Any)
}

// SecurityRuleWithSourcePort selects the source port.
type SecurityRuleWithSourcePort[P any] struct {
	draft *ruleDraft[P]
}

// FromPort matches traffic from a single port.
func (s SecurityRuleWithSourcePort[P]) FromPort(port int) SecurityRuleWithDestinationAddress[P] {
	return s.from(strconv.Itoa(port))
}

// FromPortRange matches traffic from an inclusive port range.
func (s SecurityRuleWithSourcePort[P]) FromPortRange(from, to int) SecurityRuleWithDestinationAddress[P] {
	return s.from(portRange(from, to))
}

// FromAnyPort matches traffic from every port.
func (s SecurityRuleWithSourcePort[P]) FromAnyPort() SecurityRuleWithDestinationAddress[P] {
	return s.from(Any)
}

func (s SecurityRuleWithSourcePort[P]) from(ports string) SecurityRuleWithDestinationAddress[P] {
	s.draft.rule.Properties.SourcePortRange = ports
	return SecurityRuleWithDestinationAddress[P](s)
}

// SecurityRuleWithDestinationAddress selects the destination address.
type SecurityRuleWithDestinationAddress[P any] struct {
	draft *ruleDraft[P]
}

// ToAddress matches traffic to an address, CIDR range or service tag.
func (s SecurityRuleWithDestinationAddress[P]) ToAddress(cidr string) SecurityRuleWithDestinationPort[P] {
	s.draft.rule.Properties.DestinationAddressPrefix = cidr
	return SecurityRuleWithDestinationPort[P](s)
}

// ToAnyAddress matches traffic to every address.
func (s SecurityRuleWithDestinationAddress[P]) ToAnyAddress() SecurityRuleWithDestinationPort[P] {
	return s.ToAddress(Any)
}

// SecurityRuleWithDestinationPort selects the destination port.
type SecurityRuleWithDestinationPort[P any] struct {
	draft *ruleDraft[P]
}

// ToPort matches traffic to a single port.
func (s SecurityRuleWithDestinationPort[P]) ToPort(port int) SecurityRuleWithProtocol[P] {
	return s.to(strconv.Itoa(port))
}

// ToPortRange matches traffic to an inclusive port range.
func (s SecurityRuleWithDestinationPort[P]) ToPortRange(from, to int) SecurityRuleWithProtocol[P] {
	return s.to(portRange(from, to))
}

// ToAnyPort matches traffic to every port.
func (s SecurityRuleWithDestinationPort[P]) ToAnyPort() SecurityRuleWithProtocol[P] {
	return s.to(Any)
}

func (s SecurityRuleWithDestinationPort[P]) to(ports string) SecurityRuleWithProtocol[P] {
	s.draft.rule.Properties.DestinationPortRange = ports
	return SecurityRuleWithProtocol[P](s)
}

// SecurityRuleWithProtocol selects the protocol.
type SecurityRuleWithProtocol[P any] struct {
	draft *ruleDraft[P]
}

// WithProtocol matches one protocol: ProtocolTCP, ProtocolUDP or ProtocolICMP.
func (s SecurityRuleWithProtocol[P]) WithProtocol(protocol string) SecurityRuleAttach[P] {
	s.draft.rule.Properties.Protocol = protocol
	return SecurityRuleAttach[P](s)
}

// WithAnyProtocol matches every protocol.
func (s SecurityRuleWithProtocol[P]) WithAnyProtocol() SecurityRuleAttach[P] {
	return s.WithProtocol(ProtocolAny)
}

// SecurityRuleAttach is the final rule stage; optional settings and Attach.
type SecurityRuleAttach[P any] struct {
	draft *ruleDraft[P]
}

// WithPriority sets the rule priority. Without it the next free priority is used.
func (s SecurityRuleAttach[P]) WithPriority(priority int32) SecurityRuleAttach[P] {
	s.draft.rule.Properties.Priority = priority
	return s
}

// WithDescription sets the rule description.
func (s SecurityRuleAttach[P]) WithDescription(description string) SecurityRuleAttach[P] {
	s.draft.rule.Properties.Description = description
	return s
}

// Attach adds the rule to the parent group and returns to the parent stage.
func (s SecurityRuleAttach[P]) Attach() P {
	return s.draft.attach(s.draft.rule)
}

// SecurityRuleUpdate changes an existing rule of a group being updated.
type SecurityRuleUpdate struct {
	parent NSGUpdate
	rule   models.SecurityRule
}

// AllowInbound makes the rule allow inbound traffic.
func (u *SecurityRuleUpdate) AllowInbound() *SecurityRuleUpdate {
	return u.with(AccessAllow, DirectionInbound)
}

// AllowOutbound makes the rule allow outbound traffic.
func (u *SecurityRuleUpdate) AllowOutbound() *SecurityRuleUpdate {
	return u.with(AccessAllow, DirectionOutbound)
}

// DenyInbound makes the rule deny inbound traffic.
func (u *SecurityRuleUpdate) DenyInbound() *SecurityRuleUpdate {
	return u.with(AccessDeny, DirectionInbound)
}

// DenyOutbound makes the rule deny outbound traffic.
func (u *SecurityRuleUpdate) DenyOutbound() *SecurityRuleUpdate {
	return u.with(AccessDeny, DirectionOutbound)
}

func (u *SecurityRuleUpdate) with(access, direction string) *SecurityRuleUpdate {
	u.rule.Properties.Access = access
	u.rule.Properties.Direction = direction
	return u
}

// FromAddress sets the source address.
func (u *SecurityRuleUpdate) FromAddress(cidr string) *SecurityRuleUpdate {
	u.rule.Properties.SourceAddressPrefix = cidr
	return u
}

// FromAnyAddress matches every source address.
func (u *SecurityRuleUpdate) FromAnyAddress() *SecurityRuleUpdate { return u.FromAddress(Any) }

// FromPort sets a single source port.
func (u *SecurityRuleUpdate) FromPort(port int) *SecurityRuleUpdate {
	u.rule.Properties.SourcePortRange = strconv.Itoa(port)
	return u
}

// FromPortRange sets an inclusive source port range.
func (u *SecurityRuleUpdate) FromPortRange(from, to int) *SecurityRuleUpdate {
	u.rule.Properties.SourcePortRange = portRange(from, to)
	return u
}

// FromAnyPort matches every source port.
func (u *SecurityRuleUpdate) FromAnyPort() *SecurityRuleUpdate {
	u.rule.Properties.SourcePortRange = Any
	return u
}

// ToAddress sets the destination address.
func (u *SecurityRuleUpdate) ToAddress(cidr string) *SecurityRuleUpdate {
	u.rule.Properties.DestinationAddressPrefix = cidr
	return u
}

// ToAnyAddress matches every destination address.
func (u *SecurityRuleUpdate) ToAnyAddress() *SecurityRuleUpdate { return u.ToAddress(Any) }

// ToPort sets a single destination port.
func (u *SecurityRuleUpdate) ToPort(port int) *SecurityRuleUpdate {
	u.rule.Properties.DestinationPortRange = strconv.Itoa(port)
	return u
}

// ToPortRange sets an inclusive destination port range.
func (u *SecurityRuleUpdate) ToPortRange(from, to int) *SecurityRuleUpdate {
	u.rule.Properties.DestinationPortRange = portRange(from, to)
	return u
}

// ToAnyPort matches every destination port.
func (u *SecurityRuleUpdate) ToAnyPort() *SecurityRuleUpdate {
	u.rule.Properties.DestinationPortRange = Any
	return u
}

// WithProtocol sets the protocol.
func (u *SecurityRuleUpdate) WithProtocol(protocol string) *SecurityRuleUpdate {
	u.rule.Properties.Protocol = protocol
	return u
}

// WithAnyProtocol matches every protocol.
func (u *SecurityRuleUpdate) WithAnyProtocol() *SecurityRuleUpdate { return u.WithProtocol(ProtocolAny) }

// WithPriority sets the rule priority.
func (u *SecurityRuleUpdate) WithPriority(priority int32) *SecurityRuleUpdate {
	u.rule.Properties.Priority = priority
	return u
}

// WithDescription sets the rule description.
func (u *SecurityRuleUpdate) WithDescription(description string) *SecurityRuleUpdate {
	u.rule.Properties.Description = description
	return u
}

// Parent stores the changed rule and returns to the group update.
func (u *SecurityRuleUpdate) Parent() NSGUpdate {
	u.parent.nsg.putRule(u.rule)
	return u.parent
}
