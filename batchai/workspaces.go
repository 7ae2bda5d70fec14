package batchai

import (
	"context"
	"net/http"
	"time"

	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/fluent"
	"github.com/yaroslav/azfluent/sdk"
)

const workspaceType = "Microsoft.BatchAI/workspaces"

// Workspaces is the collection of Batch AI workspaces.
type Workspaces struct {
	sdk.ResourceCollection[models.Workspace, *Workspace]
	manager *Manager
}

// Define starts the definition of a new workspace.
func (c *Workspaces) Define(name string) WorkspaceBlank {
	ws := c.newWorkspace(fluent.Unsaved(models.Workspace{Resource: models.Resource{Name: name}}))
	return WorkspaceBlank{workspace: ws}
}

func (c *Workspaces) wrap(inner models.Workspace) *Workspace {
	ws := c.newWorkspace(fluent.Saved(inner.ID, inner))
	ws.resourceGroup = sdk.ResourceGroupOf(inner.ID)
	return ws
}

func (c *Workspaces) newWorkspace(state fluent.State[models.Workspace]) *Workspace {
	ws := &Workspace{manager: c.manager, state: state}
	ws.clusters = &Clusters{workspace: ws}
	ws.experiments = &Experiments{workspace: ws}
	ws.fileServers = &FileServers{workspace: ws}
	return ws
}

// Workspace groups clusters, file servers and experiments.
type Workspace struct {
	manager       *Manager
	state         fluent.State[models.Workspace]
	resourceGroup string
	tags          map[string]string

	clusters    *Clusters
	experiments *Experiments
	fileServers *FileServers
}

// ID returns the resource ID, or "" before creation.
func (ws *Workspace) ID() string { return ws.state.ID() }

// Name returns the workspace name.
func (ws *Workspace) Name() string { return ws.state.Inner().Name }

// ResourceGroupName returns the resource group holding the workspace.
func (ws *Workspace) ResourceGroupName() string { return ws.resourceGroup }

// Region returns the location of the workspace.
func (ws *Workspace) Region() string { return ws.state.Inner().Location }

// Tags returns the resource tags.
func (ws *Workspace) Tags() map[string]string { return ws.state.Inner().Tags }

// CreationTime returns when the workspace was created, or the zero time.
func (ws *Workspace) CreationTime() time.Time {
	if t := ws.state.Inner().Properties.CreationTime; t != nil {
		return *t
	}
	return time.Time{}
}

// ProvisioningState returns the last reported provisioning state.
func (ws *Workspace) ProvisioningState() string { return ws.state.Inner().Properties.ProvisioningState }

// Inner returns the last known wire representation.
func (ws *Workspace) Inner() models.Workspace { return ws.state.Inner() }

// IsInCreateMode reports whether the workspace has not been created yet.
func (ws *Workspace) IsInCreateMode() bool { return ws.state.IsInCreateMode() }

// Clusters returns the clusters of the workspace.
func (ws *Workspace) Clusters() *Clusters { return ws.clusters }

// Experiments returns the experiments of the workspace.
func (ws *Workspace) Experiments() *Experiments { return ws.experiments }

// FileServers returns the file servers of the workspace.
func (ws *Workspace) FileServers() *FileServers { return ws.fileServers }

// Refresh reloads the workspace.
func (ws *Workspace) Refresh(ctx context.Context) error {
	var inner models.Workspace
	if err := ws.manager.client.DoJSON(ctx, http.MethodGet, ws.ID(), nil, &inner); err != nil {
		return err
	}
	ws.state = ws.state.Refreshed(inner)
	return nil
}

// Update starts a batch of tag changes.
func (ws *Workspace) Update() WorkspaceUpdate {
	ws.tags = map[string]string{}
	for k, v := range ws.Tags() {
		ws.tags[k] = v
	}
	return WorkspaceUpdate{workspace: ws}
}

func (ws *Workspace) submit(ctx context.Context) (*Workspace, error) {
	if ws.IsInCreateMode() {
		inner := ws.state.Inner()
		switch {
		case inner.Name == "":
			return nil, models.Validationf("workspace name is required")
		case inner.Location == "":
			return nil, models.Validationf("workspace region is required")
		case ws.resourceGroup == "":
			return nil, models.Validationf("workspace resource group is required")
		}
	}

	client := ws.manager.client
	reconciler := fluent.Reconciler[models.Workspace]{
		Create: func(ctx context.Context, draft models.Workspace) (models.Workspace, error) {
			params := models.WorkspaceCreateParameters{Location: draft.Location, Tags: draft.Tags}
			path := ws.manager.workspaces.Path(ws.resourceGroup, draft.Name)
			return sdk.BeginAndWait[models.Workspace](ctx, client, http.MethodPut, path, params)
		},
		Update: func(ctx context.Context, id string, _ models.Workspace) (models.Workspace, error) {
			var updated models.Workspace
			err := client.DoJSON(ctx, http.MethodPatch, id, models.WorkspaceUpdateParameters{Tags: ws.tags}, &updated)
			return updated, err
		},
		IDOf: func(inner models.Workspace) string { return inner.ID },
	}
	if _, err := sdk.Submit(ctx, client, workspaceType, ws.Name(), reconciler, &ws.state); err != nil {
		return nil, err
	}
	return ws, nil
}

// WorkspaceBlank is the first definition stage: the region.
type WorkspaceBlank struct {
	workspace *Workspace
}

// WithRegion sets the location of the workspace.
func (d WorkspaceBlank) WithRegion(region string) WorkspaceWithGroup {
	d.workspace.state.Mutate(func(inner *models.Workspace) {
		inner.Location = region
	})
	return WorkspaceWithGroup(d)
}

// WorkspaceWithGroup selects the resource group.
type WorkspaceWithGroup struct {
	workspace *Workspace
}

// WithExistingResourceGroup places the workspace in an existing resource group.
func (d WorkspaceWithGroup) WithExistingResourceGroup(resourceGroup string) WorkspaceWithCreate {
	d.workspace.resourceGroup = resourceGroup
	return WorkspaceWithCreate(d)
}

// WorkspaceWithCreate is the final definition stage.
type WorkspaceWithCreate struct {
	workspace *Workspace
}

// WithTag adds a resource tag.
func (d WorkspaceWithCreate) WithTag(key, value string) WorkspaceWithCreate {
	d.workspace.state.Mutate(func(inner *models.Workspace) {
		if inner.Tags == nil {
			inner.Tags = map[string]string{}
		}
		inner.Tags[key] = value
	})
	return d
}

// Create creates the workspace and waits for provisioning to finish.
func (d WorkspaceWithCreate) Create(ctx context.Context) (*Workspace, error) {
	return d.workspace.submit(ctx)
}

// WorkspaceUpdate collects tag changes to an existing workspace.
type WorkspaceUpdate struct {
	workspace *Workspace
}

// WithTag sets a tag.
func (u WorkspaceUpdate) WithTag(key, value string) WorkspaceUpdate {
	u.workspace.tags[key] = value
	return u
}

// WithoutTag removes a tag.
func (u WorkspaceUpdate) WithoutTag(key string) WorkspaceUpdate {
	delete(u.workspace.tags, key)
	return u
}

// Apply sends the new tag set.
func (u WorkspaceUpdate) Apply(ctx context.Context) (*Workspace, error) {
	return u.workspace.submit(ctx)
}

// childCollection holds the plumbing shared by the collections nested in a workspace.
type childCollection[T, R any] struct {
	client   *sdk.Client
	parentID func() string
	segment  string
	wrap     func(T) R
}

func (c childCollection[T, R]) path(name string) string {
	return c.parentID() + "/" + c.segment + "/" + name
}

func (c childCollection[T, R]) get(ctx context.Context, name string) (R, error) {
	var zero R
	var inner T
	if err := c.client.DoJSON(ctx, http.MethodGet, c.path(name), nil, &inner); err != nil {
		return zero, err
	}
	return c.wrap(inner), nil
}

func (c childCollection[T, R]) pager() *sdk.Pager[T, R] {
	return sdk.NewPager(c.client, c.parentID()+"/"+c.segment, c.wrap)
}

func (c childCollection[T, R]) delete(ctx context.Context, name string) error {
	_, err := sdk.BeginAndWait[struct{}](ctx, c.client, http.MethodDelete, c.path(name), nil)
	return err
}
