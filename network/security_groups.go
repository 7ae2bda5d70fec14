package network

import (
	"context"
	"net/http"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/fluent"
	"github.com/yaroslav/azfluent/sdk"
)

const securityGroupType = "Microsoft.Network/networkSecurityGroups"

// Rule priorities. Lower numbers are evaluated first.
const (
	MinRulePriority  = 100
	MaxRulePriority  = 4096
	RulePriorityStep = 10
)

// NetworkSecurityGroups is the collection of network security groups.
type NetworkSecurityGroups struct {
	sdk.ResourceCollection[models.NetworkSecurityGroup, *NetworkSecurityGroup]
	manager *Manager
}

// Define starts the definition of a new network security group.
func (c *NetworkSecurityGroups) Define(name string) NSGBlank {
	return NSGBlank{nsg: &NetworkSecurityGroup{
		manager: c.manager,
		state: fluent.Unsaved(models.NetworkSecurityGroup{
			Resource:   models.Resource{Name: name},
			Properties: models.NetworkSecurityGroupProperties{SecurityRules: []models.SecurityRule{}},
		}),
	}}
}

func (c *NetworkSecurityGroups) wrap(inner models.NetworkSecurityGroup) *NetworkSecurityGroup {
	return &NetworkSecurityGroup{
		manager:       c.manager,
		state:         fluent.Saved(inner.ID, inner),
		resourceGroup: sdk.ResourceGroupOf(inner.ID),
	}
}

// NetworkSecurityGroup is a set of allow and deny rules for subnets and NICs.
type NetworkSecurityGroup struct {
	manager       *Manager
	state         fluent.State[models.NetworkSecurityGroup]
	resourceGroup string
}

// ID returns the resource ID, or "" before creation.
func (g *NetworkSecurityGroup) ID() string { return g.state.ID() }

// Name returns the group name.
func (g *NetworkSecurityGroup) Name() string { return g.state.Inner().Name }

// ResourceGroupName returns the resource group holding the group.
func (g *NetworkSecurityGroup) ResourceGroupName() string { return g.resourceGroup }

// Region returns the location of the group.
func (g *NetworkSecurityGroup) Region() string { return g.state.Inner().Location }

// Tags returns the resource tags.
func (g *NetworkSecurityGroup) Tags() map[string]string { return g.state.Inner().Tags }

// SecurityRules returns the user-defined rules by name.
func (g *NetworkSecurityGroup) SecurityRules() map[string]models.SecurityRule {
	return rulesByName(g.state.Inner().Properties.SecurityRules)
}

// DefaultSecurityRules returns the platform default rules by name.
func (g *NetworkSecurityGroup) DefaultSecurityRules() map[string]models.SecurityRule {
	return rulesByName(g.state.Inner().Properties.DefaultSecurityRules)
}

// Inner returns the last known wire representation.
func (g *NetworkSecurityGroup) Inner() models.NetworkSecurityGroup { return g.state.Inner() }

// IsInCreateMode reports whether the group has not been created yet.
func (g *NetworkSecurityGroup) IsInCreateMode() bool { return g.state.IsInCreateMode() }

// Refresh reloads the group.
func (g *NetworkSecurityGroup) Refresh(ctx context.Context) error {
	var inner models.NetworkSecurityGroup
	if err := g.manager.client.DoJSON(ctx, http.MethodGet, g.ID(), nil, &inner); err != nil {
		return err
	}
	g.state = g.state.Refreshed(inner)
	return nil
}

// Update starts a batch of changes. Apply sends the whole document.
func (g *NetworkSecurityGroup) Update() NSGUpdate {
	return NSGUpdate{nsg: g}
}

func rulesByName(rules []models.SecurityRule) map[string]models.SecurityRule {
	out := make(map[string]models.SecurityRule, len(rules))
	for _, rule := range rules {
		out[rule.Name] = rule
	}
	return out
}

func (g *NetworkSecurityGroup) ruleIndex(name string) int {
	for i, rule := range g.state.Inner().Properties.SecurityRules {
		if rule.Name == name {
			return i
		}
	}
	return -1
}

// putRule adds rule, replacing an existing rule of the same name.
func (g *NetworkSecurityGroup) putRule(rule models.SecurityRule) {
	i := g.ruleIndex(rule.Name)
	g.state.Mutate(func(inner *models.NetworkSecurityGroup) {
		if i >= 0 {
			inner.Properties.SecurityRules[i] = rule
			return
		}
		inner.Properties.SecurityRules = append(inner.Properties.SecurityRules, rule)
	})
}

func (g *NetworkSecurityGroup) removeRule(name string) {
	i := g.ruleIndex(name)
	if i < 0 {
		return
	}
	g.state.Mutate(func(inner *models.NetworkSecurityGroup) {
		rules := inner.Properties.SecurityRules
		inner.Properties.SecurityRules = append(rules[:i:i], rules[i+1:]...)
	})
}

// prioritized returns a copy of rules in which every rule without a priority has the
// next free value from MinRulePriority in steps of RulePriorityStep, in definition order.
func prioritized(rules []models.SecurityRule) []models.SecurityRule {
	out := slices.Clone(rules)
	taken := make(map[int32]bool, len(out))
	for _, rule := range out {
		if rule.Properties.Priority != 0 {
			taken[rule.Properties.Priority] = true
		}
	}

	next := int32(MinRulePriority)
	for i := range out {
		if out[i].Properties.Priority != 0 {
			continue
		}
		for taken[next] {
			next += RulePriorityStep
		}
		out[i].Properties.Priority = next
		taken[next] = true
	}
	return out
}

// assignPriorities stores the priorities of rules in the draft once it validated.
func (g *NetworkSecurityGroup) assignPriorities(ctx context.Context, rules []models.SecurityRule) {
	logger := logging.FromContext(ctx, g.manager.logger)
	g.state.Mutate(func(inner *models.NetworkSecurityGroup) {
		for i, rule := range inner.Properties.SecurityRules {
			if rule.Properties.Priority == 0 {
				logger.Debug("Assigned rule priority",
					zap.String(logging.FieldResourceName, rule.Name),
					zap.Int32("priority", rules[i].Properties.Priority))
			}
		}
		inner.Properties.SecurityRules = rules
	})
}

func (g *NetworkSecurityGroup) validate(inner models.NetworkSecurityGroup) error {
	switch {
	case inner.Name == "":
		return models.Validationf("network security group name is required")
	case inner.Location == "":
		return models.Validationf("network security group region is required")
	case g.resourceGroup == "":
		return models.Validationf("network security group resource group is required")
	}

	seen := map[int32]string{}
	for _, rule := range inner.Properties.SecurityRules {
		p := rule.Properties
		if p.Priority < MinRulePriority || p.Priority > MaxRulePriority {
			return models.Validationf("rule %q priority %d is outside %d-%d", rule.Name, p.Priority,
				MinRulePriority, MaxRulePriority)
		}
		key := p.Priority
		if p.Direction == DirectionOutbound {
			key = -key
		}
		if other, ok := seen[key]; ok {
			return models.Validationf("rules %q and %q share priority %d", other, rule.Name, p.Priority)
		}
		seen[key] = rule.Name
	}
	return nil
}

func (g *NetworkSecurityGroup) submit(ctx context.Context) (*NetworkSecurityGroup, error) {
	candidate := g.state.Inner()
	candidate.Properties.SecurityRules = prioritized(candidate.Properties.SecurityRules)
	if err := g.validate(candidate); err != nil {
		return nil, err
	}
	g.assignPriorities(ctx, candidate.Properties.SecurityRules)

	put := func(ctx context.Context, path string, doc models.NetworkSecurityGroup) (models.NetworkSecurityGroup, error) {
		// Read-only collections are not accepted back.
		doc.Properties.DefaultSecurityRules = nil
		doc.Properties.ProvisioningState = ""
		return sdk.BeginAndWait[models.NetworkSecurityGroup](ctx, g.manager.client, http.MethodPut, path, doc)
	}
	reconciler := fluent.Reconciler[models.NetworkSecurityGroup]{
		Create: func(ctx context.Context, draft models.NetworkSecurityGroup) (models.NetworkSecurityGroup, error) {
			return put(ctx, g.manager.securityGroups.Path(g.resourceGroup, draft.Name), draft)
		},
		Update: func(ctx context.Context, id string, current models.NetworkSecurityGroup) (models.NetworkSecurityGroup, error) {
			return put(ctx, id, current)
		},
		IDOf: func(inner models.NetworkSecurityGroup) string { return inner.ID },
	}
	if _, err := sdk.Submit(ctx, g.manager.client, securityGroupType, g.Name(), reconciler, &g.state); err != nil {
		return nil, err
	}
	return g, nil
}

// NSGBlank is the first definition stage: the region.
type NSGBlank struct {
	nsg *NetworkSecurityGroup
}

// WithRegion sets the location of the group.
func (d NSGBlank) WithRegion(region string) NSGWithGroup {
	d.nsg.state.Mutate(func(inner *models.NetworkSecurityGroup) {
		inner.Location = region
	})
	return NSGWithGroup(d)
}

// NSGWithGroup selects the resource group.
type NSGWithGroup struct {
	nsg *NetworkSecurityGroup
}

// WithExistingResourceGroup places the group in an existing resource group.
func (d NSGWithGroup) WithExistingResourceGroup(resourceGroup string) NSGWithCreate {
	d.nsg.resourceGroup = resourceGroup
	return NSGWithCreate(d)
}

// NSGWithCreate is the final definition stage; rules, tags and Create.
type NSGWithCreate struct {
	nsg *NetworkSecurityGroup
}

// DefineRule starts a new security rule.
func (d NSGWithCreate) DefineRule(name string) SecurityRuleBlank[NSGWithCreate] {
	return defineRule(name, func(rule models.SecurityRule) NSGWithCreate {
		d.nsg.putRule(rule)
		return d
	})
}

// WithTag adds a resource tag.
func (d NSGWithCreate) WithTag(key, value string) NSGWithCreate {
	d.nsg.state.Mutate(func(inner *models.NetworkSecurityGroup) {
		inner.Tags = withTag(inner.Tags, key, value)
	})
	return d
}

// Create creates the group and waits for provisioning to finish.
func (d NSGWithCreate) Create(ctx context.Context) (*NetworkSecurityGroup, error) {
	return d.nsg.submit(ctx)
}

// NSGUpdate collects changes to an existing group.
type NSGUpdate struct {
	nsg *NetworkSecurityGroup
}

// DefineRule starts a new security rule.
func (u NSGUpdate) DefineRule(name string) SecurityRuleBlank[NSGUpdate] {
	return defineRule(name, func(rule models.SecurityRule) NSGUpdate {
		u.nsg.putRule(rule)
		return u
	})
}

// UpdateRule starts changes to an existing rule. Unknown names start from an empty rule.
func (u NSGUpdate) UpdateRule(name string) *SecurityRuleUpdate {
	rule, ok := u.nsg.SecurityRules()[name]
	if !ok {
		rule = models.SecurityRule{Name: name}
	}
	return &SecurityRuleUpdate{parent: u, rule: rule}
}

// WithoutRule removes a rule.
func (u NSGUpdate) WithoutRule(name string) NSGUpdate {
	u.nsg.removeRule(name)
	return u
}

// WithTag sets a resource tag.
func (u NSGUpdate) WithTag(key, value string) NSGUpdate {
	u.nsg.state.Mutate(func(inner *models.NetworkSecurityGroup) {
		inner.Tags = withTag(inner.Tags, key, value)
	})
	return u
}

// WithoutTag removes a resource tag.
func (u NSGUpdate) WithoutTag(key string) NSGUpdate {
	u.nsg.state.Mutate(func(inner *models.NetworkSecurityGroup) {
		delete(inner.Tags, key)
	})
	return u
}

// Apply sends the updated group and waits for the update to finish.
func (u NSGUpdate) Apply(ctx context.Context) (*NetworkSecurityGroup, error) {
	return u.nsg.submit(ctx)
}

func withTag(tags map[string]string, key, value string) map[string]string {
	if tags == nil {
		tags = map[string]string{}
	}
	tags[key] = value
	return tags
}

// RuleNamesByPriority returns the user-defined rule names in evaluation order.
func (g *NetworkSecurityGroup) RuleNamesByPriority() []string {
	rules := append([]models.SecurityRule(nil), g.state.Inner().Properties.SecurityRules...)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Properties.Priority < rules[j].Properties.Priority
	})
	names := make([]string, len(rules))
	for i, rule := range rules {
		names[i] = rule.Name
	}
	return names
}
