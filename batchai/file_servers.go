package batchai

import (
	"context"
	"net/http"

	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/fluent"
	"github.com/yaroslav/azfluent/sdk"
)

const fileServerType = "Microsoft.BatchAI/workspaces/fileServers"

// Storage account types of file server data disks.
const (
	StorageStandardLRS = "Standard_LRS"
	StoragePremiumLRS  = "Premium_LRS"
)

// FileServers is the collection of NFS file servers in a workspace.
type FileServers struct {
	workspace *Workspace
}

func (c *FileServers) children() childCollection[models.FileServer, *FileServer] {
	return childCollection[models.FileServer, *FileServer]{
		client:   c.workspace.manager.client,
		parentID: c.workspace.ID,
		segment:  "fileServers",
		wrap:     c.wrap,
	}
}

func (c *FileServers) wrap(inner models.FileServer) *FileServer {
	return &FileServer{fileServers: c, state: fluent.Saved(inner.ID, inner)}
}

// Define starts the definition of a new file server.
func (c *FileServers) Define(name string) FileServerBlank {
	return FileServerBlank{server: &FileServer{
		fileServers: c,
		state:       fluent.Unsaved(models.FileServer{Name: name}),
	}}
}

// Get fetches a file server by name.
func (c *FileServers) Get(ctx context.Context, name string) (*FileServer, error) {
	return c.children().get(ctx, name)
}

// List returns every file server in the workspace.
func (c *FileServers) List(ctx context.Context) ([]*FileServer, error) {
	return c.ListPager().All(ctx)
}

// ListPager returns a pager over the file servers in the workspace.
func (c *FileServers) ListPager() *sdk.Pager[models.FileServer, *FileServer] {
	return c.children().pager()
}

// Delete deletes a file server.
func (c *FileServers) Delete(ctx context.Context, name string) error {
	return c.children().delete(ctx, name)
}

// FileServer is an NFS server jobs can mount.
type FileServer struct {
	fileServers *FileServers
	state       fluent.State[models.FileServer]
}

// ID returns the resource ID, or "" before creation.
func (fs *FileServer) ID() string { return fs.state.ID() }

// Name returns the file server name.
func (fs *FileServer) Name() string { return fs.state.Inner().Name }

// VMSize returns the size of the file server VM.
func (fs *FileServer) VMSize() string { return fs.state.Inner().Properties.VMSize }

// DataDisks returns the data disk configuration.
func (fs *FileServer) DataDisks() *models.DataDisks { return fs.state.Inner().Properties.DataDisks }

// MountSettings returns where the file server is reachable, once provisioned.
func (fs *FileServer) MountSettings() *models.MountSettings {
	return fs.state.Inner().Properties.MountSettings
}

// ProvisioningState returns the last reported provisioning state.
func (fs *FileServer) ProvisioningState() string { return fs.state.Inner().Properties.ProvisioningState }

// Inner returns the last known wire representation.
func (fs *FileServer) Inner() models.FileServer { return fs.state.Inner() }

// Delete deletes the file server.
func (fs *FileServer) Delete(ctx context.Context) error {
	return fs.fileServers.Delete(ctx, fs.Name())
}

func (fs *FileServer) validate() error {
	p := fs.state.Inner().Properties
	switch {
	case fs.Name() == "":
		return models.Validationf("file server name is required")
	case fs.fileServers.workspace.ID() == "":
		return models.Validationf("file server workspace must be created first")
	case p.DataDisks == nil || p.DataDisks.DiskCount < 1 || p.DataDisks.DiskSizeInGB < 1:
		return models.Validationf("file server needs at least one data disk")
	case p.VMSize == "":
		return models.Validationf("file server VM size is required")
	case p.SSHConfiguration == nil || p.SSHConfiguration.UserAccountSettings.AdminUserName == "":
		return models.Validationf("file server administrator user name is required")
	}
	return nil
}

func (fs *FileServer) create(ctx context.Context) (*FileServer, error) {
	if err := fs.validate(); err != nil {
		return nil, err
	}

	client := fs.fileServers.workspace.manager.client
	reconciler := fluent.Reconciler[models.FileServer]{
		Create: func(ctx context.Context, draft models.FileServer) (models.FileServer, error) {
			body := models.FileServer{Properties: draft.Properties}
			return sdk.BeginAndWait[models.FileServer](ctx, client, http.MethodPut,
				fs.fileServers.children().path(draft.Name), body)
		},
		Update: func(ctx context.Context, id string, current models.FileServer) (models.FileServer, error) {
			return current, sdk.ErrUnsupportedOperation
		},
		IDOf: func(inner models.FileServer) string { return inner.ID },
	}
	if _, err := sdk.Submit(ctx, client, fileServerType, fs.Name(), reconciler, &fs.state); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileServer) mutate(fn func(p *models.FileServerProperties)) {
	fs.state.Mutate(func(inner *models.FileServer) {
		fn(&inner.Properties)
	})
}

// FileServerBlank is the first definition stage: the data disks.
type FileServerBlank struct {
	server *FileServer
}

// WithDataDisks backs the server with count disks of sizeInGB each, on storageType.
func (d FileServerBlank) WithDataDisks(sizeInGB, count int32, storageType string) FileServerWithVMSize {
	d.server.mutate(func(p *models.FileServerProperties) {
		p.DataDisks = &models.DataDisks{
			DiskSizeInGB:       sizeInGB,
			DiskCount:          count,
			StorageAccountType: storageType,
		}
	})
	return FileServerWithVMSize(d)
}

// FileServerWithVMSize selects the VM size.
type FileServerWithVMSize struct {
	server *FileServer
}

// WithVMSize sets the size of the file server VM.
func (d FileServerWithVMSize) WithVMSize(size string) FileServerWithUserName {
	d.server.mutate(func(p *models.FileServerProperties) {
		p.VMSize = size
	})
	return FileServerWithUserName(d)
}

// FileServerWithUserName selects the administrator account name.
type FileServerWithUserName struct {
	server *FileServer
}

// WithUserName sets the administrator account.
func (d FileServerWithUserName) WithUserName(name string) FileServerWithCredentials {
	d.server.mutate(func(p *models.FileServerProperties) {
		p.SSHConfiguration = &models.SSHConfiguration{
			UserAccountSettings: models.UserAccountSettings{AdminUserName: name},
		}
	})
	return FileServerWithCredentials(d)
}

// FileServerWithCredentials selects how the administrator signs in.
type FileServerWithCredentials struct {
	server *FileServer
}

// WithPassword sets the administrator password.
func (d FileServerWithCredentials) WithPassword(password string) FileServerWithCreate {
	d.server.mutate(func(p *models.FileServerProperties) {
		p.SSHConfiguration.UserAccountSettings.AdminUserPassword = password
	})
	return FileServerWithCreate(d)
}

// WithSSHPublicKey sets the administrator SSH public key.
func (d FileServerWithCredentials) WithSSHPublicKey(key string) FileServerWithCreate {
	d.server.mutate(func(p *models.FileServerProperties) {
		p.SSHConfiguration.UserAccountSettings.AdminUserSSHPublicKey = key
	})
	return FileServerWithCreate(d)
}

// FileServerWithCreate is the final definition stage.
type FileServerWithCreate struct {
	server *FileServer
}

// WithSubnet places the file server in an existing subnet.
func (d FileServerWithCreate) WithSubnet(subnetID string) FileServerWithCreate {
	d.server.mutate(func(p *models.FileServerProperties) {
		p.Subnet = &models.SubResource{ID: subnetID}
	})
	return d
}

// Create creates the file server and waits for provisioning to finish.
func (d FileServerWithCreate) Create(ctx context.Context) (*FileServer, error) {
	return d.server.create(ctx)
}
