package batchai

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/fluent"
	"github.com/yaroslav/azfluent/sdk"
)

const jobType = "Microsoft.BatchAI/workspaces/experiments/jobs"

// Job execution states.
const (
	ExecutionStateQueued      = "queued"
	ExecutionStateRunning     = "running"
	ExecutionStateTerminating = "terminating"
	ExecutionStateSucceeded   = "succeeded"
	ExecutionStateFailed      = "failed"
)

// StdOutErrDirectoryID is the output directory holding the job's stdout and stderr.
const StdOutErrDirectoryID = "stdouterr"

// Jobs is the collection of jobs in an experiment.
type Jobs struct {
	experiment *Experiment
}

func (c *Jobs) children() childCollection[models.Job, *Job] {
	return childCollection[models.Job, *Job]{
		client:   c.experiment.experiments.workspace.manager.client,
		parentID: c.experiment.ID,
		segment:  "jobs",
		wrap:     c.wrap,
	}
}

func (c *Jobs) wrap(inner models.Job) *Job {
	return &Job{jobs: c, state: fluent.Saved(inner.ID, inner)}
}

func (c *Jobs) manager() *Manager { return c.experiment.experiments.workspace.manager }

// Define starts the definition of a new job.
func (c *Jobs) Define(name string) JobBlank {
	return JobBlank{job: &Job{jobs: c, state: fluent.Unsaved(models.Job{Name: name})}}
}

// Get fetches a job by name.
func (c *Jobs) Get(ctx context.Context, name string) (*Job, error) {
	return c.children().get(ctx, name)
}

// List returns every job in the experiment.
func (c *Jobs) List(ctx context.Context) ([]*Job, error) {
	return c.ListPager().All(ctx)
}

// ListPager returns a pager over the jobs in the experiment.
func (c *Jobs) ListPager() *sdk.Pager[models.Job, *Job] {
	return c.children().pager()
}

// Delete deletes a job.
func (c *Jobs) Delete(ctx context.Context, name string) error {
	return c.children().delete(ctx, name)
}

// Terminate stops a running job and waits until it has stopped.
func (c *Jobs) Terminate(ctx context.Context, name string) error {
	path := c.children().path(name) + "/terminate"
	if _, err := sdk.BeginAndWait[struct{}](ctx, c.manager().client, http.MethodPost, path, nil); err != nil {
		return err
	}
	logging.FromContext(ctx, c.manager().logger).Info("Batch AI job terminated",
		zap.String(logging.FieldResourceName, name),
		zap.String(logging.FieldResourceID, c.children().path(name)))
	return nil
}

// Job is a unit of work scheduled onto a cluster.
type Job struct {
	jobs  *Jobs
	state fluent.State[models.Job]
}

// ID returns the resource ID, or "" before creation.
func (j *Job) ID() string { return j.state.ID() }

// Name returns the job name.
func (j *Job) Name() string { return j.state.Inner().Name }

// Experiment returns the experiment holding the job.
func (j *Job) Experiment() *Experiment { return j.jobs.experiment }

// ClusterID returns the cluster the job runs on.
func (j *Job) ClusterID() string { return j.state.Inner().Properties.Cluster.ID }

// NodeCount returns the number of nodes the job uses.
func (j *Job) NodeCount() int32 { return j.state.Inner().Properties.NodeCount }

// ExecutionState returns one of the ExecutionState constants.
func (j *Job) ExecutionState() string { return j.state.Inner().Properties.ExecutionState }

// ProvisioningState returns the last reported provisioning state.
func (j *Job) ProvisioningState() string { return j.state.Inner().Properties.ProvisioningState }

// Inner returns the last known wire representation.
func (j *Job) Inner() models.Job { return j.state.Inner() }

// IsInCreateMode reports whether the job has not been created yet.
func (j *Job) IsInCreateMode() bool { return j.state.IsInCreateMode() }

// Refresh reloads the job.
func (j *Job) Refresh(ctx context.Context) error {
	fresh, err := j.jobs.Get(ctx, j.Name())
	if err != nil {
		return err
	}
	j.state = fresh.state
	return nil
}

// Terminate stops the job.
func (j *Job) Terminate(ctx context.Context) error {
	return j.jobs.Terminate(ctx, j.Name())
}

// Delete deletes the job.
func (j *Job) Delete(ctx context.Context) error {
	return j.jobs.Delete(ctx, j.Name())
}

// ListOutputFiles lists the files in one of the job's output directories.
func (j *Job) ListOutputFiles(ctx context.Context, outputDirectoryID string) ([]models.File, error) {
	return j.OutputFilesPager(outputDirectoryID).All(ctx)
}

// OutputFilesPager returns a pager over the files in an output directory.
func (j *Job) OutputFilesPager(outputDirectoryID string) *sdk.Pager[models.File, models.File] {
	query := url.Values{}
	query.Set("outputdirectoryid", outputDirectoryID)
	path := j.ID() + "/listOutputFiles?" + query.Encode()
	return sdk.NewActionPager(j.jobs.manager().client, http.MethodPost, path, nil,
		func(f models.File) models.File { return f })
}

func (j *Job) validate() error {
	p := j.state.Inner().Properties
	switch {
	case j.Name() == "":
		return models.Validationf("job name is required")
	case j.jobs.experiment.ID() == "":
		return models.Validationf("job experiment must be created first")
	case p.Cluster.ID == "":
		return models.Validationf("job cluster is required")
	case p.NodeCount < 1:
		return models.Validationf("job node count must be at least 1")
	case p.StdOutErrPathPrefix == "":
		return models.Validationf("job stdout/stderr path prefix is required")
	}

	toolkits := 0
	for _, set := range []bool{
		p.CustomToolkitSettings != nil,
		p.TensorFlowSettings != nil,
		p.PyTorchSettings != nil,
	} {
		if set {
			toolkits++
		}
	}
	if toolkits != 1 {
		return models.Validationf("job needs exactly one of a command line, TensorFlow or PyTorch settings")
	}
	return nil
}

func (j *Job) create(ctx context.Context) (*Job, error) {
	if err := j.validate(); err != nil {
		return nil, err
	}

	client := j.jobs.manager().client
	reconciler := fluent.Reconciler[models.Job]{
		Create: func(ctx context.Context, draft models.Job) (models.Job, error) {
			body := models.Job{Properties: draft.Properties}
			return sdk.BeginAndWait[models.Job](ctx, client, http.MethodPut, j.jobs.children().path(draft.Name), body)
		},
		Update: func(ctx context.Context, id string, current models.Job) (models.Job, error) {
			return current, sdk.ErrUnsupportedOperation
		},
		IDOf: func(inner models.Job) string { return inner.ID },
	}
	if _, err := sdk.Submit(ctx, client, jobType, j.Name(), reconciler, &j.state); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Job) mutate(fn func(p *models.JobProperties)) {
	j.state.Mutate(func(inner *models.Job) {
		fn(&inner.Properties)
	})
}

// JobBlank is the first definition stage: the cluster.
type JobBlank struct {
	job *Job
}

// WithExistingCluster runs the job on a cluster, by resource ID.
func (d JobBlank) WithExistingCluster(clusterID string) JobWithNodeCount {
	d.job.mutate(func(p *models.JobProperties) {
		p.Cluster = models.SubResource{ID: clusterID}
	})
	return JobWithNodeCount(d)
}

// JobWithNodeCount selects how many nodes the job uses.
type JobWithNodeCount struct {
	job *Job
}

// WithNodeCount sets the number of nodes.
func (d JobWithNodeCount) WithNodeCount(count int32) JobWithStdOutErr {
	d.job.mutate(func(p *models.JobProperties) {
		p.NodeCount = count
	})
	return JobWithStdOutErr(d)
}

// JobWithStdOutErr selects where stdout and stderr are written.
type JobWithStdOutErr struct {
	job *Job
}

// WithStdOutErrPathPrefix sets the mounted path prefix for the job's output streams.
func (d JobWithStdOutErr) WithStdOutErrPathPrefix(prefix string) JobWithCreate {
	d.job.mutate(func(p *models.JobProperties) {
		p.StdOutErrPathPrefix = prefix
	})
	return JobWithCreate(d)
}

// JobWithCreate is the final definition stage: what to run, and Create.
type JobWithCreate struct {
	job *Job
}

// WithCommandLine runs a command line with the custom toolkit.
func (d JobWithCreate) WithCommandLine(commandLine string) JobWithCreate {
	return d.WithCustomToolkit(commandLine)
}

// WithCustomToolkit runs commandLine on every node.
func (d JobWithCreate) WithCustomToolkit(commandLine string) JobWithCreate {
	d.job.mutate(func(p *models.JobProperties) {
		p.CustomToolkitSettings = &models.CustomToolkitSettings{CommandLine: commandLine}
	})
	return d
}

// WithTensorFlow runs a TensorFlow script with workerCount workers.
func (d JobWithCreate) WithTensorFlow(scriptPath, args string, workerCount int32) JobWithCreate {
	d.job.mutate(func(p *models.JobProperties) {
		p.TensorFlowSettings = &models.TensorFlowSettings{
			PythonScriptFilePath:  scriptPath,
			MasterCommandLineArgs: args,
			WorkerCount:           &workerCount,
		}
	})
	return d
}

// WithPyTorch runs a PyTorch script with processCount processes.
func (d JobWithCreate) WithPyTorch(scriptPath, args string, processCount int32) JobWithCreate {
	d.job.mutate(func(p *models.JobProperties) {
		p.PyTorchSettings = &models.PyTorchSettings{
			PythonScriptFilePath: scriptPath,
			CommandLineArgs:      args,
			ProcessCount:         &processCount,
		}
	})
	return d
}

// WithContainerImage runs the job inside a Docker image.
func (d JobWithCreate) WithContainerImage(image string) JobWithCreate {
	d.job.mutate(func(p *models.JobProperties) {
		p.ContainerSettings = &models.ContainerSettings{
			ImageSourceRegistry: models.ImageSourceRegistry{Image: image},
		}
	})
	return d
}

// WithInputDirectory exposes path to the job as $AZ_BATCHAI_INPUT_{id}.
func (d JobWithCreate) WithInputDirectory(id, path string) JobWithCreate {
	d.job.mutate(func(p *models.JobProperties) {
		p.InputDirectories = append(p.InputDirectories, models.InputDirectory{ID: id, Path: path})
	})
	return d
}

// WithOutputDirectory exposes a directory under pathPrefix as $AZ_BATCHAI_OUTPUT_{id}.
func (d JobWithCreate) WithOutputDirectory(id, pathPrefix string) JobWithCreate {
	d.job.mutate(func(p *models.JobProperties) {
		p.OutputDirectories = append(p.OutputDirectories, models.OutputDirectory{ID: id, PathPrefix: pathPrefix})
	})
	return d
}

// WithEnvironmentVariable passes a variable to the job process.
func (d JobWithCreate) WithEnvironmentVariable(name, value string) JobWithCreate {
	d.job.mutate(func(p *models.JobProperties) {
		p.EnvironmentVariables = append(p.EnvironmentVariables, models.EnvironmentVariable{Name: name, Value: value})
	})
	return d
}

// Create submits the job and waits until it is accepted.
func (d JobWithCreate) Create(ctx context.Context) (*Job, error) {
	return d.job.create(ctx)
}
