package compute

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroslav/azfluent/internal/testutil"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/sdk"
)

const rgPath = "/subscriptions/" + testutil.SubscriptionID + "/resourceGroups/rg1"

func startFake(t *testing.T) (*testutil.ARM, *Manager) {
	fake := testutil.NewARM(t)
	server := fake.Start()
	return fake, testutil.Authenticate(t, Configure(), server.URL)
}

func TestSnapshotCreate_FromVHD(t *testing.T) {
	fake, manager := startFake(t)

	snapshot, err := manager.Snapshots().Define("snap1").
		WithRegion("westus").
		WithExistingResourceGroup("rg1").
		WithLinuxFromVHD("https://store.blob.core.windows.net/vhds/os.vhd").
		WithSizeInGB(64).
		WithSku(SkuPremiumLRS).
		Create(context.Background())
	require.NoError(t, err)

	path := rgPath + "/providers/Microsoft.Compute/snapshots/snap1"
	assert.Equal(t, path, snapshot.ID())
	assert.Equal(t, "rg1", snapshot.ResourceGroupName())
	assert.False(t, snapshot.IsInCreateMode())
	assert.Equal(t, "Succeeded", snapshot.ProvisioningState())
	assert.Equal(t, OSTypeLinux, snapshot.OSType())
	assert.Equal(t, int32(64), snapshot.SizeInGB())
	assert.Equal(t, SkuPremiumLRS, snapshot.SkuName())

	var sent models.Snapshot
	require.True(t, fake.LastBody("PUT "+path, &sent))
	assert.Equal(t, "westus", sent.Location)
	assert.Equal(t, CreateOptionImport, sent.Properties.CreationData.CreateOption)
	assert.Equal(t, "https://store.blob.core.windows.net/vhds/os.vhd", sent.Properties.CreationData.SourceURI)
}

func TestSnapshotCreate_CopyOfDisk(t *testing.T) {
	fake, manager := startFake(t)
	diskID := rgPath + "/providers/Microsoft.Compute/disks/disk1"

	_, err := manager.Snapshots().Define("snap2").
		WithRegion("westus").
		WithExistingResourceGroup("rg1").
		WithDataFromDisk(diskID).
		WithIncremental(true).
		Create(context.Background())
	require.NoError(t, err)

	var sent models.Snapshot
	require.True(t, fake.LastBody("PUT "+rgPath+"/providers/Microsoft.Compute/snapshots/snap2", &sent))
	assert.Equal(t, CreateOptionCopy, sent.Properties.CreationData.CreateOption)
	assert.Equal(t, diskID, sent.Properties.CreationData.SourceResourceID)
	assert.Empty(t, sent.Properties.OSType)
	require.NotNil(t, sent.Properties.Incremental)
	assert.True(t, *sent.Properties.Incremental)
}

func TestSnapshotCreate_Validation(t *testing.T) {
	fake, manager := startFake(t)

	_, err := manager.Snapshots().Define("").
		WithRegion("westus").
		WithExistingResourceGroup("rg1").
		WithDataFromSnapshot("/x").
		Create(context.Background())
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = manager.Snapshots().Define("snap").
		WithRegion("").
		WithExistingResourceGroup("rg1").
		WithDataFromSnapshot("/x").
		Create(context.Background())
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Empty(t, fake.Rec.Requests())
}

func TestSnapshotUpdate_PatchesOnlyChanges(t *testing.T) {
	fake, manager := startFake(t)
	path := rgPath + "/providers/Microsoft.Compute/snapshots/snap1"
	size := int32(32)
	fake.Put(path, models.Snapshot{
		Resource: models.Resource{Location: "westus", Tags: map[string]string{"env": "dev"}},
		Sku:      &models.DiskSku{Name: SkuStandardLRS},
		Properties: models.SnapshotProperties{
			DiskSizeGB:   &size,
			CreationData: models.CreationData{CreateOption: CreateOptionCopy},
		},
	})

	snapshot, err := manager.Snapshots().GetByResourceGroup(context.Background(), "rg1", "snap1")
	require.NoError(t, err)
	assert.Equal(t, int32(32), snapshot.SizeInGB())

	updated, err := snapshot.Update().
		WithSizeInGB(128).
		WithTag("owner", "ops").
		Apply(context.Background())
	require.NoError(t, err)

	var patch models.SnapshotUpdate
	require.True(t, fake.LastBody("PATCH "+path, &patch))
	assert.Nil(t, patch.Sku)
	require.NotNil(t, patch.Properties)
	assert.Equal(t, int32(128), *patch.Properties.DiskSizeGB)
	assert.Equal(t, map[string]string{"env": "dev", "owner": "ops"}, patch.Tags)

	assert.Equal(t, int32(128), updated.SizeInGB())
	assert.Equal(t, SkuStandardLRS, updated.SkuName())
	assert.Equal(t, 0, fake.Rec.Count("PUT "+path))
}

func TestSnapshotGrantAndRevokeAccess(t *testing.T) {
	fake, manager := startFake(t)
	path := rgPath + "/providers/Microsoft.Compute/snapshots/snap1"
	fake.Put(path, models.Snapshot{Resource: models.Resource{Location: "westus"}})

	var grant models.GrantAccessData
	fake.Actions["/beginGetAccess"] = func(w http.ResponseWriter, r *http.Request) {
		testutil.DecodeJSON(t, r, &grant)
		testutil.WriteJSON(w, http.StatusOK, models.AccessURI{AccessSAS: "https://sas.example/snap1?sig=abc"})
	}

	snapshot, err := manager.Snapshots().GetByID(context.Background(), path)
	require.NoError(t, err)

	sas, err := snapshot.GrantAccess(context.Background(), 3600)
	require.NoError(t, err)
	assert.Equal(t, "https://sas.example/snap1?sig=abc", sas)
	assert.Equal(t, models.GrantAccessData{Access: "Read", DurationInSeconds: 3600}, grant)

	require.NoError(t, snapshot.RevokeAccess(context.Background()))
	assert.Equal(t, 1, fake.Rec.Count("POST "+path+"/endGetAccess"))

	_, err = snapshot.GrantAccess(context.Background(), 0)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSnapshotsListAndDelete(t *testing.T) {
	fake, manager := startFake(t)
	for _, name := range []string{"a", "b"} {
		fake.Put(rgPath+"/providers/Microsoft.Compute/snapshots/"+name, models.Snapshot{})
	}
	fake.Put("/subscriptions/"+testutil.SubscriptionID+"/resourceGroups/rg2/providers/Microsoft.Compute/snapshots/c",
		models.Snapshot{})

	all, err := manager.Snapshots().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	inGroup, err := manager.Snapshots().ListByResourceGroup(context.Background(), "rg1")
	require.NoError(t, err)
	require.Len(t, inGroup, 2)
	assert.Equal(t, "a", inGroup[0].Name())

	require.NoError(t, manager.Snapshots().DeleteByID(context.Background(), inGroup[0].ID()))
	assert.False(t, fake.Has(inGroup[0].ID()))

	_, err = manager.Snapshots().GetByResourceGroup(context.Background(), "rg1", "a")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestImageCreate_FromSnapshotWithDataDisks(t *testing.T) {
	fake, manager := startFake(t)
	osSnapshot := rgPath + "/providers/Microsoft.Compute/snapshots/os"

	image, err := manager.Images().Define("img1").
		WithRegion("eastus").
		WithExistingResourceGroup("rg1").
		FromSnapshot(OSTypeLinux, OSStateGeneralized, osSnapshot).
		WithDataDiskFromVHD("https://store.blob.core.windows.net/vhds/d0.vhd").
		WithDataDiskFromSnapshot(rgPath + "/providers/Microsoft.Compute/snapshots/d1").
		WithZoneResilient().
		Create(context.Background())
	require.NoError(t, err)

	path := rgPath + "/providers/Microsoft.Compute/images/img1"
	assert.Equal(t, path, image.ID())

	var sent models.Image
	require.True(t, fake.LastBody("PUT "+path, &sent))
	require.NotNil(t, sent.Properties.StorageProfile)
	require.NotNil(t, sent.Properties.StorageProfile.OSDisk)
	assert.Equal(t, osSnapshot, sent.Properties.StorageProfile.OSDisk.Snapshot.ID)
	require.Len(t, sent.Properties.StorageProfile.DataDisks, 2)
	assert.Equal(t, int32(0), sent.Properties.StorageProfile.DataDisks[0].Lun)
	assert.Equal(t, int32(1), sent.Properties.StorageProfile.DataDisks[1].Lun)
	assert.True(t, *sent.Properties.StorageProfile.ZoneResilient)
}

func TestImageCreate_FromVirtualMachine(t *testing.T) {
	_, manager := startFake(t)
	vmID := rgPath + "/providers/Microsoft.Compute/virtualMachines/vm1"

	image, err := manager.Images().Define("img2").
		WithRegion("eastus").
		WithExistingResourceGroup("rg1").
		FromVirtualMachine(vmID).
		Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, vmID, image.SourceVirtualMachineID())
	assert.Nil(t, image.OSDisk())
}

func TestVirtualMachinePowerOperations(t *testing.T) {
	fake, manager := startFake(t)
	path := rgPath + "/providers/Microsoft.Compute/virtualMachines/vm1"
	fake.Put(path, models.VirtualMachine{
		Resource: models.Resource{Location: "westus"},
		Properties: models.VirtualMachineProperties{
			HardwareProfile: &models.HardwareProfile{VMSize: "Standard_D2s_v3"},
		},
	})
	fake.Intercept = func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method == http.MethodGet && r.URL.Path == path+"/instanceView" {
			testutil.WriteJSON(w, http.StatusOK, models.VirtualMachineInstanceView{
				Statuses: []models.InstanceViewStatus{
					{Code: "ProvisioningState/succeeded"},
					{Code: "PowerState/deallocated"},
				},
			})
			return true
		}
		return false
	}

	vm, err := manager.VirtualMachines().GetByResourceGroup(context.Background(), "rg1", "vm1")
	require.NoError(t, err)
	assert.Equal(t, "Standard_D2s_v3", vm.Size())
	assert.Equal(t, "rg1", vm.ResourceGroupName())

	ctx := context.Background()
	require.NoError(t, vm.Start(ctx))
	require.NoError(t, vm.PowerOff(ctx))
	require.NoError(t, vm.Restart(ctx))
	require.NoError(t, vm.Deallocate(ctx))

	for _, action := range []string{"start", "powerOff", "restart", "deallocate"} {
		assert.Equal(t, 1, fake.Rec.Count("POST "+path+"/"+action), action)
	}

	state, err := vm.PowerState(ctx)
	require.NoError(t, err)
	assert.Equal(t, PowerStateDeallocated, state)
}

func TestVirtualMachinePowerOperation_Failure(t *testing.T) {
	fake, manager := startFake(t)
	fake.Intercept = func(w http.ResponseWriter, r *http.Request) bool {
		testutil.WriteError(w, http.StatusConflict, "OperationNotAllowed", "Operation 'start' is not allowed on VM 'vm1'.")
		return true
	}

	err := manager.VirtualMachines().Start(context.Background(), "rg1", "vm1")
	require.Error(t, err)

	cloudErr, ok := sdk.AsCloudError(err)
	require.True(t, ok)
	assert.Equal(t, "OperationNotAllowed", cloudErr.Code)
	assert.Equal(t, "Operation 'start' is not allowed on VM 'vm1'.", cloudErr.Message)
}

func TestAuthenticate_RequiresSubscription(t *testing.T) {
	profile := testutil.Profile("http://127.0.0.1:1")
	profile.SubscriptionID = ""

	_, err := Configure().Authenticate(testutil.Credential{}, profile)
	assert.ErrorIs(t, err, sdk.ErrInvalidConfig)
}
