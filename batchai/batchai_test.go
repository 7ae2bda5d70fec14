package batchai

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroslav/azfluent/internal/testutil"
	"github.com/yaroslav/azfluent/models"
)

const workspacePath = "/subscriptions/" + testutil.SubscriptionID +
	"/resourceGroups/rg1/providers/Microsoft.BatchAI/workspaces/ws1"

func startFake(t *testing.T) (*testutil.ARM, *Manager) {
	fake := testutil.NewARM(t)
	server := fake.Start()
	return fake, testutil.Authenticate(t, Configure(), server.URL)
}

func createWorkspace(t *testing.T, manager *Manager) *Workspace {
	t.Helper()
	ws, err := manager.Workspaces().Define("ws1").
		WithRegion("eastus").
		WithExistingResourceGroup("rg1").
		WithTag("project", "vision").
		Create(context.Background())
	require.NoError(t, err)
	return ws
}

func TestWorkspaceCreateAndUpdate(t *testing.T) {
	fake, manager := startFake(t)

	ws := createWorkspace(t, manager)
	assert.Equal(t, workspacePath, ws.ID())
	assert.Equal(t, "rg1", ws.ResourceGroupName())
	assert.Equal(t, "Succeeded", ws.ProvisioningState())

	var created models.WorkspaceCreateParameters
	require.True(t, fake.LastBody("PUT "+workspacePath, &created))
	assert.Equal(t, models.WorkspaceCreateParameters{Location: "eastus", Tags: map[string]string{"project": "vision"}}, created)

	_, err := ws.Update().WithTag("owner", "ml").WithoutTag("project").Apply(context.Background())
	require.NoError(t, err)

	var patch models.WorkspaceUpdateParameters
	require.True(t, fake.LastBody("PATCH "+workspacePath, &patch))
	assert.Equal(t, map[string]string{"owner": "ml"}, patch.Tags)
}

func TestClusterCreate(t *testing.T) {
	fake, manager := startFake(t)
	ws := createWorkspace(t, manager)

	cluster, err := ws.Clusters().Define("gpu").
		WithVMSize("STANDARD_NC6").
		WithUserName("admin").
		WithSSHPublicKey("ssh-rsa AAAA").
		WithAutoScale(0, 4).
		WithLowPriority().
		WithSetupTaskCommandLine("apt-get install -y nfs-common", "$AZ_BATCHAI_MOUNT_ROOT/logs").
		Create(context.Background())
	require.NoError(t, err)

	path := workspacePath + "/clusters/gpu"
	assert.Equal(t, path, cluster.ID())
	assert.Equal(t, "admin", cluster.AdminUserName())

	var sent models.BatchAICluster
	require.True(t, fake.LastBody("PUT "+path, &sent))
	assert.Equal(t, "STANDARD_NC6", sent.Properties.VMSize)
	assert.Equal(t, PriorityLowPriority, sent.Properties.VMPriority)
	require.NotNil(t, sent.Properties.ScaleSettings.AutoScale)
	assert.Equal(t, int32(4), sent.Properties.ScaleSettings.AutoScale.MaximumNodeCount)
	assert.Nil(t, sent.Properties.ScaleSettings.Manual)
	assert.Equal(t, "ssh-rsa AAAA", sent.Properties.UserAccountSettings.AdminUserSSHPublicKey)
	assert.Equal(t, "apt-get install -y nfs-common", sent.Properties.NodeSetup.SetupTask.CommandLine)
}

func TestClusterCreate_Validation(t *testing.T) {
	fake, manager := startFake(t)
	ws := createWorkspace(t, manager)
	before := len(fake.Rec.Requests())

	_, err := ws.Clusters().Define("bad").
		WithVMSize("STANDARD_NC6").
		WithUserName("admin").
		WithPassword("p@ss").
		WithAutoScale(3, 1).
		Create(context.Background())
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Len(t, fake.Rec.Requests(), before)
}

func TestClusterUpdate_PatchesScaleSettings(t *testing.T) {
	fake, manager := startFake(t)
	path := workspacePath + "/clusters/cpu"
	fake.Put(workspacePath, models.Workspace{Resource: models.Resource{Location: "eastus"}})
	fake.Put(path, models.BatchAICluster{Properties: models.ClusterProperties{
		VMSize:        "STANDARD_D1",
		ScaleSettings: &models.ScaleSettings{AutoScale: &models.AutoScaleSettings{MinimumNodeCount: 0, MaximumNodeCount: 2}},
	}})

	ws, err := manager.Workspaces().GetByResourceGroup(context.Background(), "rg1", "ws1")
	require.NoError(t, err)
	cluster, err := ws.Clusters().Get(context.Background(), "cpu")
	require.NoError(t, err)

	_, err = cluster.Update().WithManualScale(3).Apply(context.Background())
	require.NoError(t, err)

	var patch models.ClusterUpdateParameters
	require.True(t, fake.LastBody("PATCH "+path, &patch))
	require.NotNil(t, patch.Properties.ScaleSettings.Manual)
	assert.Equal(t, int32(3), patch.Properties.ScaleSettings.Manual.TargetNodeCount)
	assert.Equal(t, DeallocationRequeue, patch.Properties.ScaleSettings.Manual.NodeDeallocationOption)
	assert.Nil(t, patch.Properties.ScaleSettings.AutoScale)
	assert.Equal(t, 0, fake.Rec.Count("PUT "+path))
}

func TestClusterListRemoteLoginInformation_FollowsNextLink(t *testing.T) {
	fake, manager := startFake(t)
	path := workspacePath + "/clusters/cpu"
	fake.Put(workspacePath, models.Workspace{})
	fake.Put(path, models.BatchAICluster{})

	calls := 0
	fake.Actions["/listRemoteLoginInformation"] = func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("page") == "" {
			testutil.WriteJSON(w, http.StatusOK, models.Page[models.RemoteLoginInformation]{
				Value:    []models.RemoteLoginInformation{{NodeID: "n1", IPAddress: "10.0.0.4", Port: 50000}},
				NextLink: "http://" + r.Host + r.URL.Path + "?page=2",
			})
			return
		}
		testutil.WriteJSON(w, http.StatusOK, models.Page[models.RemoteLoginInformation]{
			Value: []models.RemoteLoginInformation{{NodeID: "n2", IPAddress: "10.0.0.4", Port: 50001}},
		})
	}

	ws, err := manager.Workspaces().GetByID(context.Background(), workspacePath)
	require.NoError(t, err)
	cluster, err := ws.Clusters().Get(context.Background(), "cpu")
	require.NoError(t, err)

	logins, err := cluster.ListRemoteLoginInformation(context.Background())
	require.NoError(t, err)
	require.Len(t, logins, 2)
	assert.Equal(t, "n1", logins[0].NodeID)
	assert.Equal(t, int32(50001), logins[1].Port)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, fake.Rec.Count("POST "+path+"/listRemoteLoginInformation"))
}

func TestJobLifecycle(t *testing.T) {
	fake, manager := startFake(t)
	ws := createWorkspace(t, manager)
	clusterID := workspacePath + "/clusters/gpu"

	experiment, err := ws.Experiments().Define("exp1").Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, workspacePath+"/experiments/exp1", experiment.ID())

	job, err := experiment.Jobs().Define("train").
		WithExistingCluster(clusterID).
		WithNodeCount(2).
		WithStdOutErrPathPrefix("$AZ_BATCHAI_MOUNT_ROOT/afs").
		WithTensorFlow("$AZ_BATCHAI_INPUT_SCRIPT/train.py", "--epochs 10", 2).
		WithContainerImage("tensorflow/tensorflow:1.8.0-gpu").
		WithInputDirectory("SCRIPT", "$AZ_BATCHAI_MOUNT_ROOT/afs/scripts").
		WithOutputDirectory("MODEL", "$AZ_BATCHAI_MOUNT_ROOT/afs/models").
		WithEnvironmentVariable("LOG_LEVEL", "debug").
		Create(context.Background())
	require.NoError(t, err)

	jobPath := workspacePath + "/experiments/exp1/jobs/train"
	assert.Equal(t, jobPath, job.ID())
	assert.Equal(t, clusterID, job.ClusterID())

	var sent models.Job
	require.True(t, fake.LastBody("PUT "+jobPath, &sent))
	assert.Equal(t, int32(2), sent.Properties.NodeCount)
	require.NotNil(t, sent.Properties.TensorFlowSettings)
	assert.Equal(t, "tensorflow/tensorflow:1.8.0-gpu", sent.Properties.ContainerSettings.ImageSourceRegistry.Image)
	assert.Equal(t, []models.InputDirectory{{ID: "SCRIPT", Path: "$AZ_BATCHAI_MOUNT_ROOT/afs/scripts"}}, sent.Properties.InputDirectories)
	assert.Equal(t, []models.EnvironmentVariable{{Name: "LOG_LEVEL", Value: "debug"}}, sent.Properties.EnvironmentVariables)

	var directory string
	fake.Actions["/listOutputFiles"] = func(w http.ResponseWriter, r *http.Request) {
		directory = r.URL.Query().Get("outputdirectoryid")
		testutil.WriteJSON(w, http.StatusOK, models.Page[models.File]{Value: []models.File{
			{Name: "stdout.txt", FileType: "file", DownloadURL: "https://files.example/stdout.txt"},
		}})
	}
	files, err := job.ListOutputFiles(context.Background(), StdOutErrDirectoryID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "stdout.txt", files[0].Name)
	assert.Equal(t, StdOutErrDirectoryID, directory)

	require.NoError(t, job.Terminate(context.Background()))
	assert.Equal(t, 1, fake.Rec.Count("POST "+jobPath+"/terminate"))

	jobs, err := experiment.Jobs().List(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	require.NoError(t, job.Delete(context.Background()))
	assert.False(t, fake.Has(jobPath))
}

func TestJobCreate_RequiresExactlyOneToolkit(t *testing.T) {
	fake, manager := startFake(t)
	fake.Put(workspacePath, models.Workspace{})
	fake.Put(workspacePath+"/experiments/exp1", models.Experiment{})

	ws, err := manager.Workspaces().GetByID(context.Background(), workspacePath)
	require.NoError(t, err)
	experiment, err := ws.Experiments().Get(context.Background(), "exp1")
	require.NoError(t, err)

	define := func() JobWithCreate {
		return experiment.Jobs().Define("j").
			WithExistingCluster(workspacePath + "/clusters/c").
			WithNodeCount(1).
			WithStdOutErrPathPrefix("/mnt")
	}

	_, err = define().Create(context.Background())
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = define().WithCommandLine("python a.py").WithPyTorch("b.py", "", 1).Create(context.Background())
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, 0, fake.Rec.Count("PUT "+workspacePath+"/experiments/exp1/jobs/j"))
}

func TestFileServerCreate(t *testing.T) {
	fake, manager := startFake(t)
	ws := createWorkspace(t, manager)

	server, err := ws.FileServers().Define("nfs").
		WithDataDisks(128, 2, StoragePremiumLRS).
		WithVMSize("STANDARD_D2_V2").
		WithUserName("admin").
		WithPassword("p@ssw0rd").
		Create(context.Background())
	require.NoError(t, err)

	path := workspacePath + "/fileServers/nfs"
	assert.Equal(t, path, server.ID())

	var sent models.FileServer
	require.True(t, fake.LastBody("PUT "+path, &sent))
	assert.Equal(t, &models.DataDisks{DiskSizeInGB: 128, DiskCount: 2, StorageAccountType: StoragePremiumLRS}, sent.Properties.DataDisks)
	assert.Equal(t, "admin", sent.Properties.SSHConfiguration.UserAccountSettings.AdminUserName)

	servers, err := ws.FileServers().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, servers, 1)
}

func TestChildCreate_RequiresCreatedWorkspace(t *testing.T) {
	fake, manager := startFake(t)
	ws := manager.Workspaces().Define("draft")

	_, err := ws.workspace.Experiments().Define("exp").Create(context.Background())
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, fake.Rec.Requests())
}
