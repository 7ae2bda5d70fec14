package batchai

import (
	"context"
	"net/http"

	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/fluent"
	"github.com/yaroslav/azfluent/sdk"
)

const clusterType = "Microsoft.BatchAI/workspaces/clusters"

// VM priorities.
const (
	PriorityDedicated   = "dedicated"
	PriorityLowPriority = "lowpriority"
)

// Node deallocation options used when a manual scale-down removes busy nodes.
const (
	DeallocationRequeue              = "requeue"
	DeallocationTerminate            = "terminate"
	DeallocationWaitForJobCompletion = "waitforjobcompletion"
)

// Clusters is the collection of clusters in a workspace.
type Clusters struct {
	workspace *Workspace
}

func (c *Clusters) children() childCollection[models.BatchAICluster, *Cluster] {
	return childCollection[models.BatchAICluster, *Cluster]{
		client:   c.workspace.manager.client,
		parentID: c.workspace.ID,
		segment:  "clusters",
		wrap:     c.wrap,
	}
}

func (c *Clusters) wrap(inner models.BatchAICluster) *Cluster {
	return &Cluster{clusters: c, state: fluent.Saved(inner.ID, inner)}
}

// Define starts the definition of a new cluster.
func (c *Clusters) Define(name string) ClusterBlank {
	return ClusterBlank{cluster: &Cluster{
		clusters: c,
		state: fluent.Unsaved(models.BatchAICluster{
			Name:       name,
			Properties: models.ClusterProperties{VMPriority: PriorityDedicated},
		}),
	}}
}

// Get fetches a cluster by name.
func (c *Clusters) Get(ctx context.Context, name string) (*Cluster, error) {
	return c.children().get(ctx, name)
}

// List returns every cluster in the workspace.
func (c *Clusters) List(ctx context.Context) ([]*Cluster, error) {
	return c.ListPager().All(ctx)
}

// ListPager returns a pager over the clusters in the workspace.
func (c *Clusters) ListPager() *sdk.Pager[models.BatchAICluster, *Cluster] {
	return c.children().pager()
}

// Delete deletes a cluster and waits for its nodes to be released.
func (c *Clusters) Delete(ctx context.Context, name string) error {
	return c.children().delete(ctx, name)
}

// Cluster is a pool of compute nodes.
type Cluster struct {
	clusters *Clusters
	state    fluent.State[models.BatchAICluster]
	scale    *models.ScaleSettings
}

// ID returns the resource ID, or "" before creation.
func (cl *Cluster) ID() string { return cl.state.ID() }

// Name returns the cluster name.
func (cl *Cluster) Name() string { return cl.state.Inner().Name }

// Workspace returns the workspace holding the cluster.
func (cl *Cluster) Workspace() *Workspace { return cl.clusters.workspace }

// VMSize returns the VM size of every node.
func (cl *Cluster) VMSize() string { return cl.state.Inner().Properties.VMSize }

// VMPriority returns PriorityDedicated or PriorityLowPriority.
func (cl *Cluster) VMPriority() string { return cl.state.Inner().Properties.VMPriority }

// ScaleSettings returns the manual or auto-scale settings.
func (cl *Cluster) ScaleSettings() *models.ScaleSettings { return cl.state.Inner().Properties.ScaleSettings }

// AllocationState returns "steady" or "resizing".
func (cl *Cluster) AllocationState() string { return cl.state.Inner().Properties.AllocationState }

// CurrentNodeCount returns the number of allocated nodes.
func (cl *Cluster) CurrentNodeCount() int32 { return cl.state.Inner().Properties.CurrentNodeCount }

// NodeStateCounts returns node counts by state, or nil.
func (cl *Cluster) NodeStateCounts() *models.NodeStateCount {
	return cl.state.Inner().Properties.NodeStateCounts
}

// AdminUserName returns the administrator account created on every node.
func (cl *Cluster) AdminUserName() string {
	if account := cl.state.Inner().Properties.UserAccountSettings; account != nil {
		return account.AdminUserName
	}
	return ""
}

// Inner returns the last known wire representation.
func (cl *Cluster) Inner() models.BatchAICluster { return cl.state.Inner() }

// IsInCreateMode reports whether the cluster has not been created yet.
func (cl *Cluster) IsInCreateMode() bool { return cl.state.IsInCreateMode() }

// Refresh reloads the cluster.
func (cl *Cluster) Refresh(ctx context.Context) error {
	fresh, err := cl.clusters.Get(ctx, cl.Name())
	if err != nil {
		return err
	}
	cl.state = fresh.state
	return nil
}

// Delete deletes the cluster.
func (cl *Cluster) Delete(ctx context.Context) error {
	return cl.clusters.Delete(ctx, cl.Name())
}

// ListRemoteLoginInformation returns how to reach each node over SSH.
func (cl *Cluster) ListRemoteLoginInformation(ctx context.Context) ([]models.RemoteLoginInformation, error) {
	return cl.RemoteLoginInformationPager().All(ctx)
}

// RemoteLoginInformationPager returns a pager over the node login endpoints.
func (cl *Cluster) RemoteLoginInformationPager() *sdk.Pager[models.RemoteLoginInformation, models.RemoteLoginInformation] {
	return sdk.NewActionPager(cl.clusters.workspace.manager.client, http.MethodPost,
		cl.ID()+"/listRemoteLoginInformation", nil,
		func(info models.RemoteLoginInformation) models.RemoteLoginInformation { return info })
}

// Update starts a change of the scale settings, the only mutable cluster property.
func (cl *Cluster) Update() ClusterUpdate {
	cl.scale = nil
	return ClusterUpdate{cluster: cl}
}

func (cl *Cluster) validate() error {
	p := cl.state.Inner().Properties
	switch {
	case cl.Name() == "":
		return models.Validationf("cluster name is required")
	case cl.clusters.workspace.ID() == "":
		return models.Validationf("cluster workspace must be created first")
	case p.ScaleSettings == nil:
		return models.Validationf("cluster scale settings are required")
	case p.UserAccountSettings == nil || p.UserAccountSettings.AdminUserName == "":
		return models.Validationf("cluster administrator user name is required")
	case p.UserAccountSettings.AdminUserPassword == "" && p.UserAccountSettings.AdminUserSSHPublicKey == "":
		return models.Validationf("cluster administrator password or SSH public key is required")
	}
	return validateScale(p.ScaleSettings)
}

func validateScale(scale *models.ScaleSettings) error {
	if auto := scale.AutoScale; auto != nil {
		if auto.MinimumNodeCount < 0 || auto.MaximumNodeCount < auto.MinimumNodeCount {
			return models.Validationf("auto-scale bounds %d-%d are invalid", auto.MinimumNodeCount, auto.MaximumNodeCount)
		}
	}
	if manual := scale.Manual; manual != nil && manual.TargetNodeCount < 0 {
		return models.Validationf("target node count %d is negative", manual.TargetNodeCount)
	}
	return nil
}

func (cl *Cluster) submit(ctx context.Context) (*Cluster, error) {
	if cl.IsInCreateMode() {
		if err := cl.validate(); err != nil {
			return nil, err
		}
	} else if cl.scale != nil {
		if err := validateScale(cl.scale); err != nil {
			return nil, err
		}
	}

	client := cl.clusters.workspace.manager.client
	reconciler := fluent.Reconciler[models.BatchAICluster]{
		Create: func(ctx context.Context, draft models.BatchAICluster) (models.BatchAICluster, error) {
			body := models.BatchAICluster{Properties: draft.Properties}
			return sdk.BeginAndWait[models.BatchAICluster](ctx, client, http.MethodPut,
				cl.clusters.children().path(draft.Name), body)
		},
		Update: func(ctx context.Context, id string, _ models.BatchAICluster) (models.BatchAICluster, error) {
			params := models.ClusterUpdateParameters{
				Properties: models.ClusterUpdateProperties{ScaleSettings: cl.scale},
			}
			var updated models.BatchAICluster
			err := client.DoJSON(ctx, http.MethodPatch, id, params, &updated)
			return updated, err
		},
		IDOf: func(inner models.BatchAICluster) string { return inner.ID },
	}
	if _, err := sdk.Submit(ctx, client, clusterType, cl.Name(), reconciler, &cl.state); err != nil {
		return nil, err
	}
	cl.scale = nil
	return cl, nil
}

func (cl *Cluster) mutate(fn func(p *models.ClusterProperties)) {
	cl.state.Mutate(func(inner *models.BatchAICluster) {
		fn(&inner.Properties)
	})
}

func autoScale(minimum, maximum int32) *models.ScaleSettings {
	return &models.ScaleSettings{AutoScale: &models.AutoScaleSettings{
		MinimumNodeCount: minimum,
		MaximumNodeCount: maximum,
	}}
}

func manualScale(target int32) *models.ScaleSettings {
	return &models.ScaleSettings{Manual: &models.ManualScaleSettings{
		TargetNodeCount:        target,
		NodeDeallocationOption: DeallocationRequeue,
	}}
}

// ClusterBlank is the first definition stage: the VM size.
type ClusterBlank struct {
	cluster *Cluster
}

// WithVMSize sets the VM size of every node, e.g. "STANDARD_NC6".
func (d ClusterBlank) WithVMSize(size string) ClusterWithUserName {
	d.cluster.mutate(func(p *models.ClusterProperties) {
		p.VMSize = size
	})
	return ClusterWithUserName(d)
}

// ClusterWithUserName selects the administrator account name.
type ClusterWithUserName struct {
	cluster *Cluster
}

// WithUserName sets the administrator account created on every node.
func (d ClusterWithUserName) WithUserName(name string) ClusterWithCredentials {
	d.cluster.mutate(func(p *models.ClusterProperties) {
		p.UserAccountSettings = &models.UserAccountSettings{AdminUserName: name}
	})
	return ClusterWithCredentials(d)
}

// ClusterWithCredentials selects how the administrator signs in.
type ClusterWithCredentials struct {
	cluster *Cluster
}

// WithPassword sets the administrator password.
func (d ClusterWithCredentials) WithPassword(password string) ClusterWithScale {
	d.cluster.mutate(func(p *models.ClusterProperties) {
		p.UserAccountSettings.AdminUserPassword = password
	})
	return ClusterWithScale(d)
}

// WithSSHPublicKey sets the administrator SSH public key.
func (d ClusterWithCredentials) WithSSHPublicKey(key string) ClusterWithScale {
	d.cluster.mutate(func(p *models.ClusterProperties) {
		p.UserAccountSettings.AdminUserSSHPublicKey = key
	})
	return ClusterWithScale(d)
}

// ClusterWithScale selects the scale settings.
type ClusterWithScale struct {
	cluster *Cluster
}

// WithAutoScale lets the service size the cluster between minimum and maximum nodes.
func (d ClusterWithScale) WithAutoScale(minimum, maximum int32) ClusterWithCreate {
	d.cluster.mutate(func(p *models.ClusterProperties) {
		p.ScaleSettings = autoScale(minimum, maximum)
	})
	return ClusterWithCreate(d)
}

// WithManualScale pins the cluster to target nodes.
func (d ClusterWithScale) WithManualScale(target int32) ClusterWithCreate {
	d.cluster.mutate(func(p *models.ClusterProperties) {
		p.ScaleSettings = manualScale(target)
	})
	return ClusterWithCreate(d)
}

// ClusterWithCreate is the final definition stage; optional settings and Create.
type ClusterWithCreate struct {
	cluster *Cluster
}

// WithLowPriority uses low-priority VMs, which can be preempted.
func (d ClusterWithCreate) WithLowPriority() ClusterWithCreate {
	d.cluster.mutate(func(p *models.ClusterProperties) {
		p.VMPriority = PriorityLowPriority
	})
	return d
}

// WithSetupTaskCommandLine runs commandLine on each node as it joins the cluster,
// writing its output under stdOutErrPathPrefix.
func (d ClusterWithCreate) WithSetupTaskCommandLine(commandLine, stdOutErrPathPrefix string) ClusterWithCreate {
	d.cluster.mutate(func(p *models.ClusterProperties) {
		p.NodeSetup = &models.NodeSetup{SetupTask: &models.SetupTask{
			CommandLine:         commandLine,
			StdOutErrPathPrefix: stdOutErrPathPrefix,
		}}
	})
	return d
}

// WithSubnet places the nodes in an existing subnet.
func (d ClusterWithCreate) WithSubnet(subnetID string) ClusterWithCreate {
	d.cluster.mutate(func(p *models.ClusterProperties) {
		p.Subnet = &models.SubResource{ID: subnetID}
	})
	return d
}

// WithVirtualMachineImage selects a marketplace image for the nodes.
func (d ClusterWithCreate) WithVirtualMachineImage(publisher, offer, sku, version string) ClusterWithCreate {
	d.cluster.mutate(func(p *models.ClusterProperties) {
		p.VirtualMachineConfiguration = &models.VirtualMachineConfiguration{
			ImageReference: &models.ImageReference{Publisher: publisher, Offer: offer, Sku: sku, Version: version},
		}
	})
	return d
}

// Create creates the cluster and waits for provisioning to finish.
func (d ClusterWithCreate) Create(ctx context.Context) (*Cluster, error) {
	return d.cluster.submit(ctx)
}

// ClusterUpdate changes the scale settings of an existing cluster.
type ClusterUpdate struct {
	cluster *Cluster
}

// WithAutoScale switches to auto-scale between minimum and maximum nodes.
func (u ClusterUpdate) WithAutoScale(minimum, maximum int32) ClusterUpdate {
	u.cluster.scale = autoScale(minimum, maximum)
	return u
}

// WithManualScale switches to a fixed node count, requeueing jobs on removed nodes.
func (u ClusterUpdate) WithManualScale(target int32) ClusterUpdate {
	u.cluster.scale = manualScale(target)
	return u
}

// WithManualScaleAndDeallocation switches to a fixed node count with the given
// deallocation option.
func (u ClusterUpdate) WithManualScaleAndDeallocation(target int32, option string) ClusterUpdate {
	u.cluster.scale = manualScale(target)
	u.cluster.scale.Manual.NodeDeallocationOption = option
	return u
}

// Apply sends the scale settings.
func (u ClusterUpdate) Apply(ctx context.Context) (*Cluster, error) {
	return u.cluster.submit(ctx)
}
