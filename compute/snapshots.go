package compute

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/fluent"
	"github.com/yaroslav/azfluent/sdk"
)

const snapshotType = "Microsoft.Compute/snapshots"

// Disk SKU names.
const (
	SkuStandardLRS    = "Standard_LRS"
	SkuPremiumLRS     = "Premium_LRS"
	SkuStandardSSDLRS = "StandardSSD_LRS"
)

// OS types of snapshots and images.
const (
	OSTypeLinux   = "Linux"
	OSTypeWindows = "Windows"
)

// Snapshot creation options.
const (
	CreateOptionImport = "Import"
	CreateOptionCopy   = "Copy"
)

// Snapshots is the collection of managed snapshots in the subscription.
type Snapshots struct {
	sdk.ResourceCollection[models.Snapshot, *Snapshot]
	manager *Manager
}

// Define starts the definition of a new snapshot.
func (c *Snapshots) Define(name string) SnapshotBlank {
	return SnapshotBlank{snapshot: &Snapshot{
		manager: c.manager,
		state: fluent.Unsaved(models.Snapshot{
			Resource: models.Resource{Name: name},
		}),
	}}
}

func (c *Snapshots) wrap(inner models.Snapshot) *Snapshot {
	return &Snapshot{
		manager:       c.manager,
		state:         fluent.Saved(inner.ID, inner),
		resourceGroup: sdk.ResourceGroupOf(inner.ID),
	}
}

// Snapshot is a managed snapshot.
type Snapshot struct {
	manager       *Manager
	state         fluent.State[models.Snapshot]
	resourceGroup string
	update        models.SnapshotUpdate
}

// ID returns the resource ID, or "" before creation.
func (s *Snapshot) ID() string { return s.state.ID() }

// Name returns the snapshot name.
func (s *Snapshot) Name() string { return s.state.Inner().Name }

// ResourceGroupName returns the resource group holding the snapshot.
func (s *Snapshot) ResourceGroupName() string { return s.resourceGroup }

// Region returns the location of the snapshot.
func (s *Snapshot) Region() string { return s.state.Inner().Location }

// Tags returns the resource tags.
func (s *Snapshot) Tags() map[string]string { return s.state.Inner().Tags }

// SkuName returns the storage SKU, or "" when the service did not report one.
func (s *Snapshot) SkuName() string {
	if sku := s.state.Inner().Sku; sku != nil {
		return sku.Name
	}
	return ""
}

// SizeInGB returns the snapshot size, or 0 when unknown.
func (s *Snapshot) SizeInGB() int32 {
	if size := s.state.Inner().Properties.DiskSizeGB; size != nil {
		return *size
	}
	return 0
}

// OSType returns "Linux" or "Windows" for OS snapshots, "" for data snapshots.
func (s *Snapshot) OSType() string { return s.state.Inner().Properties.OSType }

// Source returns where the snapshot content came from.
func (s *Snapshot) Source() models.CreationData { return s.state.Inner().Properties.CreationData }

// ProvisioningState returns the last reported provisioning state.
func (s *Snapshot) ProvisioningState() string { return s.state.Inner().Properties.ProvisioningState }

// Inner returns the last known wire representation.
func (s *Snapshot) Inner() models.Snapshot { return s.state.Inner() }

// IsInCreateMode reports whether the snapshot has not been created yet.
func (s *Snapshot) IsInCreateMode() bool { return s.state.IsInCreateMode() }

// Refresh reloads the snapshot.
func (s *Snapshot) Refresh(ctx context.Context) error {
	var inner models.Snapshot
	if err := s.manager.client.DoJSON(ctx, http.MethodGet, s.ID(), nil, &inner); err != nil {
		return err
	}
	s.state = s.state.Refreshed(inner)
	return nil
}

// Update starts a batch of changes to the snapshot.
func (s *Snapshot) Update() SnapshotUpdate {
	s.update = models.SnapshotUpdate{}
	return SnapshotUpdate{snapshot: s}
}

// GrantAccess returns a read SAS URI for the snapshot, valid for seconds.
func (s *Snapshot) GrantAccess(ctx context.Context, seconds int32) (string, error) {
	if seconds <= 0 {
		return "", models.Validationf("access duration must be positive")
	}
	result, err := sdk.BeginAndWait[models.AccessURI](ctx, s.manager.client, http.MethodPost,
		s.ID()+"/beginGetAccess", models.GrantAccessData{Access: "Read", DurationInSeconds: seconds})
	if err != nil {
		return "", err
	}

	logging.FromContext(ctx, s.manager.logger).Info("Granted snapshot access",
		zap.String(logging.FieldResourceID, s.ID()),
		zap.Int32("duration_seconds", seconds))
	return result.AccessSAS, nil
}

// RevokeAccess revokes every SAS URI previously granted for the snapshot.
func (s *Snapshot) RevokeAccess(ctx context.Context) error {
	_, err := sdk.BeginAndWait[struct{}](ctx, s.manager.client, http.MethodPost, s.ID()+"/endGetAccess", nil)
	return err
}

func (s *Snapshot) validate() error {
	inner := s.state.Inner()
	switch {
	case inner.Name == "":
		return models.Validationf("snapshot name is required")
	case inner.Location == "":
		return models.Validationf("snapshot region is required")
	case s.resourceGroup == "":
		return models.Validationf("snapshot resource group is required")
	case inner.Properties.CreationData.CreateOption == "":
		return models.Validationf("snapshot source is required")
	}
	return nil
}

func (s *Snapshot) reconciler() fluent.Reconciler[models.Snapshot] {
	return fluent.Reconciler[models.Snapshot]{
		Create: func(ctx context.Context, draft models.Snapshot) (models.Snapshot, error) {
			path := s.manager.snapshots.Path(s.resourceGroup, draft.Name)
			return sdk.BeginAndWait[models.Snapshot](ctx, s.manager.client, http.MethodPut, path, draft)
		},
		Update: func(ctx context.Context, id string, _ models.Snapshot) (models.Snapshot, error) {
			return sdk.BeginAndWait[models.Snapshot](ctx, s.manager.client, http.MethodPatch, id, s.update)
		},
		IDOf: func(inner models.Snapshot) string { return inner.ID },
	}
}

func (s *Snapshot) submit(ctx context.Context) (*Snapshot, error) {
	if s.IsInCreateMode() {
		if err := s.validate(); err != nil {
			return nil, err
		}
	}
	if _, err := sdk.Submit(ctx, s.manager.client, snapshotType, s.Name(), s.reconciler(), &s.state); err != nil {
		return nil, err
	}
	s.update = models.SnapshotUpdate{}
	return s, nil
}

// SnapshotBlank is the first definition stage: the region.
type SnapshotBlank struct {
	snapshot *Snapshot
}

// WithRegion sets the location of the snapshot.
func (d SnapshotBlank) WithRegion(region string) SnapshotWithGroup {
	d.snapshot.state.Mutate(func(inner *models.Snapshot) {
		inner.Location = region
	})
	return SnapshotWithGroup(d)
}

// SnapshotWithGroup selects the resource group.
type SnapshotWithGroup struct {
	snapshot *Snapshot
}

// WithExistingResourceGroup places the snapshot in an existing resource group.
func (d SnapshotWithGroup) WithExistingResourceGroup(resourceGroup string) SnapshotWithSource {
	d.snapshot.resourceGroup = resourceGroup
	return SnapshotWithSource(d)
}

// SnapshotWithSource selects what the snapshot is taken from.
type SnapshotWithSource struct {
	snapshot *Snapshot
}

// WithLinuxFromVHD imports a Linux OS VHD blob.
func (d SnapshotWithSource) WithLinuxFromVHD(vhdURL string) SnapshotWithCreate {
	return d.fromVHD(OSTypeLinux, vhdURL)
}

// WithWindowsFromVHD imports a Windows OS VHD blob.
func (d SnapshotWithSource) WithWindowsFromVHD(vhdURL string) SnapshotWithCreate {
	return d.fromVHD(OSTypeWindows, vhdURL)
}

// WithDataFromVHD imports a data disk VHD blob.
func (d SnapshotWithSource) WithDataFromVHD(vhdURL string) SnapshotWithCreate {
	return d.fromVHD("", vhdURL)
}

func (d SnapshotWithSource) fromVHD(osType, vhdURL string) SnapshotWithCreate {
	d.snapshot.state.Mutate(func(inner *models.Snapshot) {
		inner.Properties.OSType = osType
		inner.Properties.CreationData = models.CreationData{
			CreateOption: CreateOptionImport,
			SourceURI:    vhdURL,
		}
	})
	return SnapshotWithCreate(d)
}

// WithDataFromDisk copies a managed disk.
func (d SnapshotWithSource) WithDataFromDisk(diskID string) SnapshotWithCreate {
	return d.copyOf(diskID)
}

// WithDataFromSnapshot copies another snapshot.
func (d SnapshotWithSource) WithDataFromSnapshot(snapshotID string) SnapshotWithCreate {
	return d.copyOf(snapshotID)
}

func (d SnapshotWithSource) copyOf(sourceID string) SnapshotWithCreate {
	d.snapshot.state.Mutate(func(inner *models.Snapshot) {
		inner.Properties.CreationData = models.CreationData{
			CreateOption:     CreateOptionCopy,
			SourceResourceID: sourceID,
		}
	})
	return SnapshotWithCreate(d)
}

// SnapshotWithCreate is the final definition stage; optional settings and Create.
type SnapshotWithCreate struct {
	snapshot *Snapshot
}

// WithSizeInGB sets the snapshot size.
func (d SnapshotWithCreate) WithSizeInGB(size int32) SnapshotWithCreate {
	d.snapshot.state.Mutate(func(inner *models.Snapshot) {
		inner.Properties.DiskSizeGB = &size
	})
	return d
}

// WithSku sets the storage SKU.
func (d SnapshotWithCreate) WithSku(sku string) SnapshotWithCreate {
	d.snapshot.state.Mutate(func(inner *models.Snapshot) {
		inner.Sku = &models.DiskSku{Name: sku}
	})
	return d
}

// WithIncremental makes the snapshot store only the changes since the previous one.
func (d SnapshotWithCreate) WithIncremental(incremental bool) SnapshotWithCreate {
	d.snapshot.state.Mutate(func(inner *models.Snapshot) {
		inner.Properties.Incremental = &incremental
	})
	return d
}

// WithTag adds a resource tag.
func (d SnapshotWithCreate) WithTag(key, value string) SnapshotWithCreate {
	d.snapshot.state.Mutate(func(inner *models.Snapshot) {
		if inner.Tags == nil {
			inner.Tags = map[string]string{}
		}
		inner.Tags[key] = value
	})
	return d
}

// Create creates the snapshot and waits for provisioning to finish.
func (d SnapshotWithCreate) Create(ctx context.Context) (*Snapshot, error) {
	return d.snapshot.submit(ctx)
}

// SnapshotUpdate collects changes to an existing snapshot.
type SnapshotUpdate struct {
	snapshot *Snapshot
}

// WithSku changes the storage SKU.
func (u SnapshotUpdate) WithSku(sku string) SnapshotUpdate {
	u.snapshot.update.Sku = &models.DiskSku{Name: sku}
	return u
}

// WithSizeInGB grows the snapshot.
func (u SnapshotUpdate) WithSizeInGB(size int32) SnapshotUpdate {
	u.properties().DiskSizeGB = &size
	return u
}

// WithOSType sets the OS type of the snapshot.
func (u SnapshotUpdate) WithOSType(osType string) SnapshotUpdate {
	u.properties().OSType = osType
	return u
}

// WithTag sets a resource tag. The update replaces the whole tag set.
func (u SnapshotUpdate) WithTag(key, value string) SnapshotUpdate {
	if u.snapshot.update.Tags == nil {
		u.snapshot.update.Tags = map[string]string{}
		for k, v := range u.snapshot.Tags() {
			u.snapshot.update.Tags[k] = v
		}
	}
	u.snapshot.update.Tags[key] = value
	return u
}

func (u SnapshotUpdate) properties() *models.SnapshotUpdateProperties {
	if u.snapshot.update.Properties == nil {
		u.snapshot.update.Properties = &models.SnapshotUpdateProperties{}
	}
	return u.snapshot.update.Properties
}

// Apply sends the changes and waits for the update to finish.
func (u SnapshotUpdate) Apply(ctx context.Context) (*Snapshot, error) {
	return u.snapshot.submit(ctx)
}
