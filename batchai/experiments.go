package batchai

import (
	"context"
	"net/http"
	"time"

	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/sdk"
)

// Experiments is the collection of experiments in a workspace.
type Experiments struct {
	workspace *Workspace
}

func (c *Experiments) children() childCollection[models.Experiment, *Experiment] {
	return childCollection[models.Experiment, *Experiment]{
		client:   c.workspace.manager.client,
		parentID: c.workspace.ID,
		segment:  "experiments",
		wrap:     c.wrap,
	}
}

func (c *Experiments) wrap(inner models.Experiment) *Experiment {
	exp := &Experiment{experiments: c, inner: inner}
	exp.jobs = &Jobs{experiment: exp}
	return exp
}

// Define starts the definition of a new experiment.
func (c *Experiments) Define(name string) ExperimentWithCreate {
	return ExperimentWithCreate{experiments: c, name: name}
}

// Get fetches an experiment by name.
func (c *Experiments) Get(ctx context.Context, name string) (*Experiment, error) {
	return c.children().get(ctx, name)
}

// List returns every experiment in the workspace.
func (c *Experiments) List(ctx context.Context) ([]*Experiment, error) {
	return c.ListPager().All(ctx)
}

// ListPager returns a pager over the experiments in the workspace.
func (c *Experiments) ListPager() *sdk.Pager[models.Experiment, *Experiment] {
	return c.children().pager()
}

// Delete deletes an experiment and every job in it.
func (c *Experiments) Delete(ctx context.Context, name string) error {
	return c.children().delete(ctx, name)
}

// Experiment groups jobs.
type Experiment struct {
	experiments *Experiments
	inner       models.Experiment
	jobs        *Jobs
}

// ID returns the resource ID.
func (e *Experiment) ID() string { return e.inner.ID }

// Name returns the experiment name.
func (e *Experiment) Name() string { return e.inner.Name }

// Workspace returns the workspace holding the experiment.
func (e *Experiment) Workspace() *Workspace { return e.experiments.workspace }

// CreationTime returns when the experiment was created, or the zero time.
func (e *Experiment) CreationTime() time.Time {
	if t := e.inner.Properties.CreationTime; t != nil {
		return *t
	}
	return time.Time{}
}

// ProvisioningState returns the last reported provisioning state.
func (e *Experiment) ProvisioningState() string { return e.inner.Properties.ProvisioningState }

// Inner returns the wire representation.
func (e *Experiment) Inner() models.Experiment { return e.inner }

// Jobs returns the jobs of the experiment.
func (e *Experiment) Jobs() *Jobs { return e.jobs }

// Delete deletes the experiment.
func (e *Experiment) Delete(ctx context.Context) error {
	return e.experiments.Delete(ctx, e.Name())
}

// ExperimentWithCreate is the only definition stage of an experiment.
type ExperimentWithCreate struct {
	experiments *Experiments
	name        string
}

// Create creates the experiment and waits for provisioning to finish.
func (d ExperimentWithCreate) Create(ctx context.Context) (*Experiment, error) {
	if d.name == "" {
		return nil, models.Validationf("experiment name is required")
	}
	if d.experiments.workspace.ID() == "" {
		return nil, models.Validationf("experiment workspace must be created first")
	}

	client := d.experiments.workspace.manager.client
	inner, err := sdk.BeginAndWait[models.Experiment](ctx, client, http.MethodPut,
		d.experiments.children().path(d.name), struct{}{})
	if err != nil {
		return nil, err
	}
	return d.experiments.wrap(inner), nil
}
