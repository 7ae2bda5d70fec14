package models

import "time"

// Snapshot is a point-in-time copy of a managed disk or VHD.
type Snapshot struct {
	Resource

	Sku        *DiskSku           `json:"sku,omitempty"`
	Properties SnapshotProperties `json:"properties"`
}

// DiskSku names the storage tier, e.g. "Standard_LRS" or "Premium_LRS".
type DiskSku struct {
	Name string `json:"name"`
}

// SnapshotProperties describes the snapshot source and size.
type SnapshotProperties struct {
	// OSType is "Linux" or "Windows" for OS snapshots, empty for data snapshots.
	OSType string `json:"osType,omitempty"`

	CreationData CreationData `json:"creationData"`
	DiskSizeGB   *int32       `json:"diskSizeGB,omitempty"`
	Incremental  *bool        `json:"incremental,omitempty"`

	TimeCreated       *time.Time `json:"timeCreated,omitempty"`
	ProvisioningState string     `json:"provisioningState,omitempty"`
}

// CreationData says where the snapshot content comes from.
type CreationData struct {
	// CreateOption is "Import" for VHDs and "Copy" for disks and snapshots.
	CreateOption     string `json:"createOption"`
	SourceURI        string `json:"sourceUri,omitempty"`
	SourceResourceID string `json:"sourceResourceId,omitempty"`
	StorageAccountID string `json:"storageAccountId,omitempty"`
}

// SnapshotUpdate is the PATCH body for a snapshot.
type SnapshotUpdate struct {
	Sku        *DiskSku                  `json:"sku,omitempty"`
	Tags       map[string]string         `json:"tags,omitempty"`
	Properties *SnapshotUpdateProperties `json:"properties,omitempty"`
}

// SnapshotUpdateProperties are the mutable snapshot properties.
type SnapshotUpdateProperties struct {
	OSType     string `json:"osType,omitempty"`
	DiskSizeGB *int32 `json:"diskSizeGB,omitempty"`
}

// GrantAccessData requests a SAS URI for a snapshot.
type GrantAccessData struct {
	// Access is "Read" or "Write".
	Access            string `json:"access"`
	DurationInSeconds int32  `json:"durationInSeconds"`
}

// AccessURI is the result of a grant access operation.
type AccessURI struct {
	AccessSAS string `json:"accessSAS,omitempty"`
}

// Image is a custom VM image.
type Image struct {
	Resource
	Properties ImageProperties `json:"properties"`
}

// ImageProperties describes the image source.
type ImageProperties struct {
	SourceVirtualMachine *SubResource         `json:"sourceVirtualMachine,omitempty"`
	StorageProfile       *ImageStorageProfile `json:"storageProfile,omitempty"`
	ProvisioningState    string               `json:"provisioningState,omitempty"`
}

// ImageStorageProfile lists the OS and data disks of an image.
type ImageStorageProfile struct {
	OSDisk        *ImageOSDisk    `json:"osDisk,omitempty"`
	DataDisks     []ImageDataDisk `json:"dataDisks,omitempty"`
	ZoneResilient *bool           `json:"zoneResilient,omitempty"`
}

// ImageOSDisk is the OS disk of an image.
type ImageOSDisk struct {
	OSType string `json:"osType"`

	// OSState is "Generalized" or "Specialized".
	OSState     string       `json:"osState"`
	BlobURI     string       `json:"blobUri,omitempty"`
	Snapshot    *SubResource `json:"snapshot,omitempty"`
	ManagedDisk *SubResource `json:"managedDisk,omitempty"`
	Caching     string       `json:"caching,omitempty"`
	DiskSizeGB  *int32       `json:"diskSizeGB,omitempty"`
}

// ImageDataDisk is a data disk of an image.
type ImageDataDisk struct {
	Lun         int32        `json:"lun"`
	BlobURI     string       `json:"blobUri,omitempty"`
	Snapshot    *SubResource `json:"snapshot,omitempty"`
	ManagedDisk *SubResource `json:"managedDisk,omitempty"`
	Caching     string       `json:"caching,omitempty"`
	DiskSizeGB  *int32       `json:"diskSizeGB,omitempty"`
}

// VirtualMachine is the read view of a VM used by the power operations.
type VirtualMachine struct {
	Resource
	Properties VirtualMachineProperties `json:"properties"`
}

// VirtualMachineProperties is a subset of the VM properties.
type VirtualMachineProperties struct {
	VMID              string           `json:"vmId,omitempty"`
	HardwareProfile   *HardwareProfile `json:"hardwareProfile,omitempty"`
	ProvisioningState string           `json:"provisioningState,omitempty"`
}

// HardwareProfile holds the VM size.
type HardwareProfile struct {
	VMSize string `json:"vmSize,omitempty"`
}

// VirtualMachineInstanceView is the runtime state of a VM.
type VirtualMachineInstanceView struct {
	ComputerName string               `json:"computerName,omitempty"`
	Statuses     []InstanceViewStatus `json:"statuses,omitempty"`
}

// InstanceViewStatus is one status entry, e.g. code "PowerState/running".
type InstanceViewStatus struct {
	Code          string `json:"code"`
	Level         string `json:"level,omitempty"`
	DisplayStatus string `json:"displayStatus,omitempty"`
}
