package compute

import (
	"context"
	"net/http"

	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/fluent"
	"github.com/yaroslav/azfluent/sdk"
)

const imageType = "Microsoft.Compute/images"

// OS states of an image source.
const (
	OSStateGeneralized = "Generalized"
	OSStateSpecialized = "Specialized"
)

// Images is the collection of custom virtual machine images.
type Images struct {
	sdk.ResourceCollection[models.Image, *Image]
	manager *Manager
}

// Define starts the definition of a new image.
func (c *Images) Define(name string) ImageBlank {
	return ImageBlank{image: &Image{
		manager: c.manager,
		state:   fluent.Unsaved(models.Image{Resource: models.Resource{Name: name}}),
	}}
}

func (c *Images) wrap(inner models.Image) *Image {
	return &Image{
		manager:       c.manager,
		state:         fluent.Saved(inner.ID, inner),
		resourceGroup: sdk.ResourceGroupOf(inner.ID),
	}
}

// Image is a custom virtual machine image.
type Image struct {
	manager       *Manager
	state         fluent.State[models.Image]
	resourceGroup string
}

// ID returns the resource ID, or "" before creation.
func (img *Image) ID() string { return img.state.ID() }

// Name returns the image name.
func (img *Image) Name() string { return img.state.Inner().Name }

// ResourceGroupName returns the resource group holding the image.
func (img *Image) ResourceGroupName() string { return img.resourceGroup }

// Region returns the location of the image.
func (img *Image) Region() string { return img.state.Inner().Location }

// SourceVirtualMachineID returns the VM the image was captured from, or "".
func (img *Image) SourceVirtualMachineID() string {
	if vm := img.state.Inner().Properties.SourceVirtualMachine; vm != nil {
		return vm.ID
	}
	return ""
}

// OSDisk returns the OS disk of the image, or nil for images captured from a VM
// before the service filled in the storage profile.
func (img *Image) OSDisk() *models.ImageOSDisk {
	if profile := img.state.Inner().Properties.StorageProfile; profile != nil {
		return profile.OSDisk
	}
	return nil
}

// DataDisks returns the data disks of the image.
func (img *Image) DataDisks() []models.ImageDataDisk {
	if profile := img.state.Inner().Properties.StorageProfile; profile != nil {
		return profile.DataDisks
	}
	return nil
}

// Inner returns the last known wire representation.
func (img *Image) Inner() models.Image { return img.state.Inner() }

// IsInCreateMode reports whether the image has not been created yet.
func (img *Image) IsInCreateMode() bool { return img.state.IsInCreateMode() }

func (img *Image) storageProfile(inner *models.Image) *models.ImageStorageProfile {
	if inner.Properties.StorageProfile == nil {
		inner.Properties.StorageProfile = &models.ImageStorageProfile{}
	}
	return inner.Properties.StorageProfile
}

func (img *Image) validate() error {
	inner := img.state.Inner()
	switch {
	case inner.Name == "":
		return models.Validationf("image name is required")
	case inner.Location == "":
		return models.Validationf("image region is required")
	case img.resourceGroup == "":
		return models.Validationf("image resource group is required")
	case inner.Properties.SourceVirtualMachine == nil &&
		(inner.Properties.StorageProfile == nil || inner.Properties.StorageProfile.OSDisk == nil):
		return models.Validationf("image source is required")
	}
	return nil
}

func (img *Image) create(ctx context.Context) (*Image, error) {
	if err := img.validate(); err != nil {
		return nil, err
	}
	reconciler := fluent.Reconciler[models.Image]{
		Create: func(ctx context.Context, draft models.Image) (models.Image, error) {
			path := img.manager.images.Path(img.resourceGroup, draft.Name)
			return sdk.BeginAndWait[models.Image](ctx, img.manager.client, http.MethodPut, path, draft)
		},
		Update: func(ctx context.Context, id string, current models.Image) (models.Image, error) {
			return sdk.BeginAndWait[models.Image](ctx, img.manager.client, http.MethodPut, id, current)
		},
		IDOf: func(inner models.Image) string { return inner.ID },
	}
	if _, err := sdk.Submit(ctx, img.manager.client, imageType, img.Name(), reconciler, &img.state); err != nil {
		return nil, err
	}
	return img, nil
}

// ImageBlank is the first definition stage: the region.
type ImageBlank struct {
	image *Image
}

// WithRegion sets the location of the image.
func (d ImageBlank) WithRegion(region string) ImageWithGroup {
	d.image.state.Mutate(func(inner *models.Image) {
		inner.Location = region
	})
	return ImageWithGroup(d)
}

// ImageWithGroup selects the resource group.
type ImageWithGroup struct {
	image *Image
}

// WithExistingResourceGroup places the image in an existing resource group.
func (d ImageWithGroup) WithExistingResourceGroup(resourceGroup string) ImageWithSource {
	d.image.resourceGroup = resourceGroup
	return ImageWithSource(d)
}

// ImageWithSource selects the OS disk source of the image.
type ImageWithSource struct {
	image *Image
}

// WithLinuxFromVHD builds the image from a Linux OS VHD blob.
func (d ImageWithSource) WithLinuxFromVHD(vhdURL, osState string) ImageWithCreate {
	return d.withOSDisk(models.ImageOSDisk{OSType: OSTypeLinux, OSState: osState, BlobURI: vhdURL})
}

// WithWindowsFromVHD builds the image from a Windows OS VHD blob.
func (d ImageWithSource) WithWindowsFromVHD(vhdURL, osState string) ImageWithCreate {
	return d.withOSDisk(models.ImageOSDisk{OSType: OSTypeWindows, OSState: osState, BlobURI: vhdURL})
}

// FromSnapshot builds the image from an OS snapshot.
func (d ImageWithSource) FromSnapshot(osType, osState, snapshotID string) ImageWithCreate {
	return d.withOSDisk(models.ImageOSDisk{
		OSType:   osType,
		OSState:  osState,
		Snapshot: &models.SubResource{ID: snapshotID},
	})
}

// FromManagedDisk builds the image from an OS managed disk.
func (d ImageWithSource) FromManagedDisk(osType, osState, diskID string) ImageWithCreate {
	return d.withOSDisk(models.ImageOSDisk{
		OSType:      osType,
		OSState:     osState,
		ManagedDisk: &models.SubResource{ID: diskID},
	})
}

// FromVirtualMachine captures a generalized virtual machine.
func (d ImageWithSource) FromVirtualMachine(vmID string) ImageWithCreate {
	d.image.state.Mutate(func(inner *models.Image) {
		inner.Properties.SourceVirtualMachine = &models.SubResource{ID: vmID}
	})
	return ImageWithCreate(d)
}

func (d ImageWithSource) withOSDisk(disk models.ImageOSDisk) ImageWithCreate {
	d.image.state.Mutate(func(inner *models.Image) {
		d.image.storageProfile(inner).OSDisk = &disk
	})
	return ImageWithCreate(d)
}

// ImageWithCreate is the final definition stage; data disks, options and Create.
type ImageWithCreate struct {
	image *Image
}

// WithDataDiskFromVHD adds a data disk from a VHD blob at the next free LUN.
func (d ImageWithCreate) WithDataDiskFromVHD(vhdURL string) ImageWithCreate {
	return d.withDataDisk(models.ImageDataDisk{BlobURI: vhdURL})
}

// WithDataDiskFromSnapshot adds a data disk from a snapshot at the next free LUN.
func (d ImageWithCreate) WithDataDiskFromSnapshot(snapshotID string) ImageWithCreate {
	return d.withDataDisk(models.ImageDataDisk{Snapshot: &models.SubResource{ID: snapshotID}})
}

func (d ImageWithCreate) withDataDisk(disk models.ImageDataDisk) ImageWithCreate {
	d.image.state.Mutate(func(inner *models.Image) {
		profile := d.image.storageProfile(inner)
		disk.Lun = int32(len(profile.DataDisks))
		profile.DataDisks = append(profile.DataDisks, disk)
	})
	return d
}

// WithZoneResilient stores the image in zone-redundant storage.
func (d ImageWithCreate) WithZoneResilient() ImageWithCreate {
	d.image.state.Mutate(func(inner *models.Image) {
		resilient := true
		d.image.storageProfile(inner).ZoneResilient = &resilient
	})
	return d
}

// WithTag adds a resource tag.
func (d ImageWithCreate) WithTag(key, value string) ImageWithCreate {
	d.image.state.Mutate(func(inner *models.Image) {
		if inner.Tags == nil {
			inner.Tags = map[string]string{}
		}
		inner.Tags[key] = value
	})
	return d
}

// Create creates the image and waits for provisioning to finish.
func (d ImageWithCreate) Create(ctx context.Context) (*Image, error) {
	return d.image.create(ctx)
}
