package network

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroslav/azfluent/internal/testutil"
	"github.com/yaroslav/azfluent/models"
)

const rgPath = "/subscriptions/" + testutil.SubscriptionID + "/resourceGroups/rg1"

func startFake(t *testing.T) (*testutil.ARM, *Manager) {
	fake := testutil.NewARM(t)
	server := fake.Start()
	return fake, testutil.Authenticate(t, Configure(), server.URL)
}

func TestNSGCreate_AssignsPriorities(t *testing.T) {
	fake, manager := startFake(t)

	nsg, err := manager.NetworkSecurityGroups().Define("web-nsg").
		WithRegion("westus").
		WithExistingResourceGroup("rg1").
		DefineRule("allow-ssh").
		AllowInbound().
		FromAnyAddress().
		FromAnyPort().
		ToAnyAddress().
		ToPort(22).
		WithProtocol(ProtocolTCP).
		Attach().
		DefineRule("pinned").
		AllowInbound().
		FromAddress("10.0.0.0/8").
		FromAnyPort().
		ToAnyAddress().
		ToPortRange(8000, 8080).
		WithAnyProtocol().
		WithPriority(110).
		WithDescription("internal apps").
		Attach().
		DefineRule("allow-https").
		AllowInbound().
		FromAnyAddress().
		FromAnyPort().
		ToAnyAddress().
		ToPort(443).
		WithProtocol(ProtocolTCP).
		Attach().
		DefineRule("deny-out").
		DenyOutbound().
		FromAnyAddress().
		FromAnyPort().
		ToAddress("Internet").
		ToAnyPort().
		WithAnyProtocol().
		Attach().
		WithTag("team", "web").
		Create(context.Background())
	require.NoError(t, err)

	path := rgPath + "/providers/Microsoft.Network/networkSecurityGroups/web-nsg"
	assert.Equal(t, path, nsg.ID())

	var sent models.NetworkSecurityGroup
	require.True(t, fake.LastBody("PUT "+path, &sent))
	rules := map[string]models.SecurityRuleProperties{}
	for _, rule := range sent.Properties.SecurityRules {
		rules[rule.Name] = rule.Properties
	}
	require.Len(t, rules, 4)

	assert.Equal(t, int32(100), rules["allow-ssh"].Priority)
	assert.Equal(t, int32(110), rules["pinned"].Priority)
	assert.Equal(t, int32(120), rules["allow-https"].Priority)
	assert.Equal(t, int32(130), rules["deny-out"].Priority)

	assert.Equal(t, "22", rules["allow-ssh"].DestinationPortRange)
	assert.Equal(t, "8000-8080", rules["pinned"].DestinationPortRange)
	assert.Equal(t, "10.0.0.0/8", rules["pinned"].SourceAddressPrefix)
	assert.Equal(t, AccessDeny, rules["deny-out"].Access)
	assert.Equal(t, DirectionOutbound, rules["deny-out"].Direction)
	assert.Equal(t, "Internet", rules["deny-out"].DestinationAddressPrefix)

	assert.Equal(t, []string{"allow-ssh", "pinned", "allow-https", "deny-out"}, nsg.RuleNamesByPriority())
}

func TestNSGCreate_RejectsBadPriority(t *testing.T) {
	fake, manager := startFake(t)

	_, err := manager.NetworkSecurityGroups().Define("nsg").
		WithRegion("westus").
		WithExistingResourceGroup("rg1").
		DefineRule("r1").
		AllowInbound().
		FromAnyAddress().
		FromAnyPort().
		ToAnyAddress().
		ToAnyPort().
		WithAnyProtocol().
		WithPriority(5000).
		Attach().
		Create(context.Background())
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, fake.Rec.Requests())
}

func TestNSGCreate_RejectedSubmitLeavesDraftUnassigned(t *testing.T) {
	fake, manager := startFake(t)

	draft := manager.NetworkSecurityGroups().Define("nsg").
		WithRegion("westus").
		WithExistingResourceGroup("rg1").
		DefineRule("auto").
		AllowInbound().
		FromAnyAddress().
		FromAnyPort().
		ToAnyAddress().
		ToPort(22).
		WithProtocol(ProtocolTCP).
		Attach().
		DefineRule("bad").
		AllowInbound().
		FromAnyAddress().
		FromAnyPort().
		ToAnyAddress().
		ToAnyPort().
		WithAnyProtocol().
		WithPriority(5000).
		Attach()

	_, err := draft.Create(context.Background())
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, fake.Rec.Requests())

	rules := draft.nsg.SecurityRules()
	require.Contains(t, rules, "auto")
	assert.Zero(t, rules["auto"].Properties.Priority, "a rejected submit must not assign priorities")
	assert.Equal(t, int32(5000), rules["bad"].Properties.Priority)
}

func TestNSGUpdate_SendsFullDocument(t *testing.T) {
	fake, manager := startFake(t)
	path := rgPath + "/providers/Microsoft.Network/networkSecurityGroups/nsg"
	fake.Put(path, models.NetworkSecurityGroup{
		Resource: models.Resource{Location: "westus"},
		Properties: models.NetworkSecurityGroupProperties{
			SecurityRules: []models.SecurityRule{
				{Name: "ssh", Properties: models.SecurityRuleProperties{
					Protocol: ProtocolTCP, Access: AccessAllow, Direction: DirectionInbound,
					SourceAddressPrefix: Any, SourcePortRange: Any,
					DestinationAddressPrefix: Any, DestinationPortRange: "22", Priority: 100,
				}},
				{Name: "rdp", Properties: models.SecurityRuleProperties{
					Protocol: ProtocolTCP, Access: AccessAllow, Direction: DirectionInbound,
					SourceAddressPrefix: Any, SourcePortRange: Any,
					DestinationAddressPrefix: Any, DestinationPortRange: "3389", Priority: 110,
				}},
			},
			DefaultSecurityRules: []models.SecurityRule{{Name: "AllowVnetInBound"}},
		},
	})

	nsg, err := manager.NetworkSecurityGroups().GetByResourceGroup(context.Background(), "rg1", "nsg")
	require.NoError(t, err)
	assert.Len(t, nsg.DefaultSecurityRules(), 1)

	_, err = nsg.Update().
		WithoutRule("rdp").
		UpdateRule("ssh").FromAddress("192.168.0.0/16").Parent().
		DefineRule("http").
		AllowInbound().
		FromAnyAddress().
		FromAnyPort().
		ToAnyAddress().
		ToPort(80).
		WithProtocol(ProtocolTCP).
		Attach().
		Apply(context.Background())
	require.NoError(t, err)

	var sent models.NetworkSecurityGroup
	require.True(t, fake.LastBody("PUT "+path, &sent))
	assert.Nil(t, sent.Properties.DefaultSecurityRules)
	require.Len(t, sent.Properties.SecurityRules, 2)
	assert.Equal(t, "ssh", sent.Properties.SecurityRules[0].Name)
	assert.Equal(t, "192.168.0.0/16", sent.Properties.SecurityRules[0].Properties.SourceAddressPrefix)
	assert.Equal(t, int32(100), sent.Properties.SecurityRules[0].Properties.Priority)
	assert.Equal(t, "http", sent.Properties.SecurityRules[1].Name)
	assert.Equal(t, int32(110), sent.Properties.SecurityRules[1].Properties.Priority)
	assert.Equal(t, 0, fake.Rec.Count("PATCH "+path))
}

func TestPublicIPCreateAndUpdate(t *testing.T) {
	fake, manager := startFake(t)

	ip, err := manager.PublicIPAddresses().Define("pip1").
		WithRegion("westus").
		WithExistingResourceGroup("rg1").
		WithSku(PublicIPSkuStandard).
		WithLeafDomainLabel("myapp").
		WithIdleTimeoutInMinutes(10).
		Create(context.Background())
	require.NoError(t, err)

	path := rgPath + "/providers/Microsoft.Network/publicIPAddresses/pip1"
	assert.Equal(t, path, ip.ID())
	assert.Equal(t, AllocationStatic, ip.AllocationMethod())
	assert.Equal(t, PublicIPSkuStandard, ip.Sku())
	assert.Equal(t, "myapp", ip.LeafDomainLabel())
	assert.Equal(t, int32(10), ip.IdleTimeoutInMinutes())

	_, err = ip.Update().WithoutLeafDomainLabel().WithIdleTimeoutInMinutes(4).Apply(context.Background())
	require.NoError(t, err)

	var sent models.PublicIPAddress
	require.True(t, fake.LastBody("PUT "+path, &sent))
	assert.Nil(t, sent.Properties.DNSSettings)
	assert.Equal(t, int32(4), *sent.Properties.IdleTimeoutInMinutes)
	assert.Equal(t, 2, fake.Rec.Count("PUT "+path))
}

func TestPublicIPCreate_DefaultsToDynamic(t *testing.T) {
	_, manager := startFake(t)

	ip, err := manager.PublicIPAddresses().Define("pip2").
		WithRegion("westus").
		WithExistingResourceGroup("rg1").
		Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AllocationDynamic, ip.AllocationMethod())
	assert.Equal(t, PublicIPSkuBasic, ip.Sku())
}

func TestPublicIPsListByResourceGroup(t *testing.T) {
	fake, manager := startFake(t)
	fake.Put(rgPath+"/providers/Microsoft.Network/publicIPAddresses/a", models.PublicIPAddress{
		Properties: models.PublicIPAddressProperties{IPAddress: "20.1.2.3"},
	})

	ips, err := manager.PublicIPAddresses().ListByResourceGroup(context.Background(), "rg1")
	require.NoError(t, err)
	require.Len(t, ips, 1)
	assert.Equal(t, "20.1.2.3", ips[0].IPAddress())
	assert.Equal(t, "rg1", ips[0].ResourceGroupName())
}
