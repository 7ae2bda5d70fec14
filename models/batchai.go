package models

import "time"

// Workspace groups Batch AI clusters, file servers and experiments.
type Workspace struct {
	Resource
	Properties WorkspaceProperties `json:"properties"`
}

// WorkspaceProperties is the read-only state of a workspace.
type WorkspaceProperties struct {
	CreationTime      *time.Time `json:"creationTime,omitempty"`
	ProvisioningState string     `json:"provisioningState,omitempty"`
}

// WorkspaceCreateParameters is the PUT body for a workspace.
type WorkspaceCreateParameters struct {
	Location string            `json:"location"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// WorkspaceUpdateParameters is the PATCH body for a workspace.
type WorkspaceUpdateParameters struct {
	Tags map[string]string `json:"tags"`
}

// BatchAICluster is a pool of compute nodes inside a workspace.
type BatchAICluster struct {
	ID         string            `json:"id,omitempty"`
	Name       string            `json:"name,omitempty"`
	Type       string            `json:"type,omitempty"`
	Properties ClusterProperties `json:"properties"`
}

// ClusterProperties describes the node pool.
type ClusterProperties struct {
	// VMSize is the Azure VM size of every node, e.g. "STANDARD_NC6".
	VMSize string `json:"vmSize,omitempty"`

	// VMPriority is "dedicated" or "lowpriority".
	VMPriority string `json:"vmPriority,omitempty"`

	ScaleSettings               *ScaleSettings               `json:"scaleSettings,omitempty"`
	VirtualMachineConfiguration *VirtualMachineConfiguration `json:"virtualMachineConfiguration,omitempty"`
	NodeSetup                   *NodeSetup                   `json:"nodeSetup,omitempty"`
	UserAccountSettings         *UserAccountSettings         `json:"userAccountSettings,omitempty"`
	Subnet                      *SubResource                 `json:"subnet,omitempty"`

	CreationTime      *time.Time      `json:"creationTime,omitempty"`
	ProvisioningState string          `json:"provisioningState,omitempty"`
	AllocationState   string          `json:"allocationState,omitempty"`
	CurrentNodeCount  int32           `json:"currentNodeCount,omitempty"`
	NodeStateCounts   *NodeStateCount `json:"nodeStateCounts,omitempty"`
}

// ScaleSettings holds exactly one of Manual or AutoScale.
type ScaleSettings struct {
	Manual    *ManualScaleSettings `json:"manual,omitempty"`
	AutoScale *AutoScaleSettings   `json:"autoScale,omitempty"`
}

// ManualScaleSettings pins the cluster to a fixed node count.
type ManualScaleSettings struct {
	TargetNodeCount int32 `json:"targetNodeCount"`

	// NodeDeallocationOption is "requeue", "terminate" or "waitforjobcompletion".
	NodeDeallocationOption string `json:"nodeDeallocationOption,omitempty"`
}

// AutoScaleSettings lets the service resize the cluster between bounds.
type AutoScaleSettings struct {
	MinimumNodeCount int32  `json:"minimumNodeCount"`
	MaximumNodeCount int32  `json:"maximumNodeCount"`
	InitialNodeCount *int32 `json:"initialNodeCount,omitempty"`
}

// VirtualMachineConfiguration selects the node OS image.
type VirtualMachineConfiguration struct {
	ImageReference *ImageReference `json:"imageReference,omitempty"`
}

// ImageReference names a marketplace image.
type ImageReference struct {
	Publisher string `json:"publisher,omitempty"`
	Offer     string `json:"offer,omitempty"`
	Sku       string `json:"sku,omitempty"`
	Version   string `json:"version,omitempty"`
}

// NodeSetup configures work done when a node joins the cluster.
type NodeSetup struct {
	SetupTask *SetupTask `json:"setupTask,omitempty"`
}

// SetupTask runs once on each node.
type SetupTask struct {
	CommandLine         string `json:"commandLine"`
	StdOutErrPathPrefix string `json:"stdOutErrPathPrefix"`
}

// UserAccountSettings is the administrator account created on every node.
type UserAccountSettings struct {
	AdminUserName         string `json:"adminUserName"`
	AdminUserSSHPublicKey string `json:"adminUserSshPublicKey,omitempty"`
	AdminUserPassword     string `json:"adminUserPassword,omitempty"`
}

// NodeStateCount summarises node states.
type NodeStateCount struct {
	IdleNodeCount      int32 `json:"idleNodeCount"`
	RunningNodeCount   int32 `json:"runningNodeCount"`
	PreparingNodeCount int32 `json:"preparingNodeCount"`
	UnusableNodeCount  int32 `json:"unusableNodeCount"`
	LeavingNodeCount   int32 `json:"leavingNodeCount"`
}

// ClusterUpdateParameters is the PATCH body for a cluster.
type ClusterUpdateParameters struct {
	Properties ClusterUpdateProperties `json:"properties"`
}

// ClusterUpdateProperties carries the only mutable cluster property.
type ClusterUpdateProperties struct {
	ScaleSettings *ScaleSettings `json:"scaleSettings,omitempty"`
}

// RemoteLoginInformation is how to SSH into one cluster node.
type RemoteLoginInformation struct {
	NodeID    string `json:"nodeId"`
	IPAddress string `json:"ipAddress"`
	Port      int32  `json:"port"`
}

// Experiment groups jobs inside a workspace.
type Experiment struct {
	ID         string               `json:"id,omitempty"`
	Name       string               `json:"name,omitempty"`
	Type       string               `json:"type,omitempty"`
	Properties ExperimentProperties `json:"properties"`
}

// ExperimentProperties is the read-only state of an experiment.
type ExperimentProperties struct {
	CreationTime      *time.Time `json:"creationTime,omitempty"`
	ProvisioningState string     `json:"provisioningState,omitempty"`
}

// Job is a unit of work scheduled onto a cluster.
type Job struct {
	ID         string        `json:"id,omitempty"`
	Name       string        `json:"name,omitempty"`
	Type       string        `json:"type,omitempty"`
	Properties JobProperties `json:"properties"`
}

// JobProperties describes what a job runs and where.
type JobProperties struct {
	Cluster             SubResource `json:"cluster"`
	NodeCount           int32       `json:"nodeCount"`
	StdOutErrPathPrefix string      `json:"stdOutErrPathPrefix"`
	SchedulingPriority  string      `json:"schedulingPriority,omitempty"`

	ContainerSettings     *ContainerSettings     `json:"containerSettings,omitempty"`
	CustomToolkitSettings *CustomToolkitSettings `json:"customToolkitSettings,omitempty"`
	TensorFlowSettings    *TensorFlowSettings    `json:"tensorFlowSettings,omitempty"`
	PyTorchSettings       *PyTorchSettings       `json:"pyTorchSettings,omitempty"`

	InputDirectories     []InputDirectory      `json:"inputDirectories,omitempty"`
	OutputDirectories    []OutputDirectory     `json:"outputDirectories,omitempty"`
	EnvironmentVariables []EnvironmentVariable `json:"environmentVariables,omitempty"`

	CreationTime      *time.Time `json:"creationTime,omitempty"`
	ProvisioningState string     `json:"provisioningState,omitempty"`

	// ExecutionState is "queued", "running", "terminating", "succeeded" or "failed".
	ExecutionState string `json:"executionState,omitempty"`
}

// ContainerSettings runs the job inside a Docker image.
type ContainerSettings struct {
	ImageSourceRegistry ImageSourceRegistry `json:"imageSourceRegistry"`
}

// ImageSourceRegistry names the image to pull.
type ImageSourceRegistry struct {
	Image     string `json:"image"`
	ServerURL string `json:"serverUrl,omitempty"`
}

// CustomToolkitSettings runs an arbitrary command line.
type CustomToolkitSettings struct {
	CommandLine string `json:"commandLine,omitempty"`
}

// TensorFlowSettings runs a TensorFlow training script.
type TensorFlowSettings struct {
	PythonScriptFilePath  string `json:"pythonScriptFilePath"`
	MasterCommandLineArgs string `json:"masterCommandLineArgs,omitempty"`
	WorkerCount           *int32 `json:"workerCount,omitempty"`
}

// PyTorchSettings runs a PyTorch training script.
type PyTorchSettings struct {
	PythonScriptFilePath string `json:"pythonScriptFilePath"`
	CommandLineArgs      string `json:"commandLineArgs,omitempty"`
	ProcessCount         *int32 `json:"processCount,omitempty"`
}

// InputDirectory exposes a path to the job through AZ_BATCHAI_INPUT_{ID}.
type InputDirectory struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// OutputDirectory exposes a path to the job through AZ_BATCHAI_OUTPUT_{ID}.
type OutputDirectory struct {
	ID         string `json:"id"`
	PathPrefix string `json:"pathPrefix"`
	PathSuffix string `json:"pathSuffix,omitempty"`
}

// EnvironmentVariable is passed to the job process.
type EnvironmentVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// File is an entry of a job output directory listing.
type File struct {
	Name        string         `json:"name"`
	FileType    string         `json:"fileType,omitempty"`
	DownloadURL string         `json:"downloadUrl,omitempty"`
	Properties  FileProperties `json:"properties"`
}

// FileProperties holds file metadata.
type FileProperties struct {
	LastModified  *time.Time `json:"lastModified,omitempty"`
	ContentLength int64      `json:"contentLength,omitempty"`
}

// FileServer is an NFS server that jobs can mount.
type FileServer struct {
	ID         string               `json:"id,omitempty"`
	Name       string               `json:"name,omitempty"`
	Type       string               `json:"type,omitempty"`
	Properties FileServerProperties `json:"properties"`
}

// FileServerProperties describes the file server VM and its disks.
type FileServerProperties struct {
	VMSize           string            `json:"vmSize,omitempty"`
	SSHConfiguration *SSHConfiguration `json:"sshConfiguration,omitempty"`
	DataDisks        *DataDisks        `json:"dataDisks,omitempty"`
	Subnet           *SubResource      `json:"subnet,omitempty"`
	MountSettings    *MountSettings    `json:"mountSettings,omitempty"`

	ProvisioningState string `json:"provisioningState,omitempty"`
}

// SSHConfiguration holds the admin account of a file server.
type SSHConfiguration struct {
	UserAccountSettings UserAccountSettings `json:"userAccountSettings"`
}

// DataDisks configures the RAID set backing a file server.
type DataDisks struct {
	DiskSizeInGB       int32  `json:"diskSizeInGB"`
	DiskCount          int32  `json:"diskCount"`
	StorageAccountType string `json:"storageAccountType"`
	CachingType        string `json:"cachingType,omitempty"`
}

// MountSettings is where the file server is reachable.
type MountSettings struct {
	MountPoint           string `json:"mountPoint,omitempty"`
	FileServerPublicIP   string `json:"fileServerPublicIP,omitempty"`
	FileServerInternalIP string `json:"fileServerInternalIP,omitempty"`
}
