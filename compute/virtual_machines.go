package compute

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/sdk"
)

const virtualMachineType = "Microsoft.Compute/virtualMachines"

// PowerState is the power state reported in a VM instance view.
type PowerState string

// Power states.
const (
	PowerStateUnknown      PowerState = ""
	PowerStateStarting     PowerState = "starting"
	PowerStateRunning      PowerState = "running"
	PowerStateStopping     PowerState = "stopping"
	PowerStateStopped      PowerState = "stopped"
	PowerStateDeallocating PowerState = "deallocating"
	PowerStateDeallocated  PowerState = "deallocated"
)

const powerStatePrefix = "PowerState/"

// VirtualMachines is the read-only view of the virtual machines in the subscription,
// with power operations.
type VirtualMachines struct {
	sdk.ResourceCollection[models.VirtualMachine, *VirtualMachine]
	manager *Manager
}

func (c *VirtualMachines) wrap(inner models.VirtualMachine) *VirtualMachine {
	return &VirtualMachine{manager: c.manager, inner: inner}
}

// Start powers on a VM.
func (c *VirtualMachines) Start(ctx context.Context, resourceGroup, name string) error {
	return c.action(ctx, resourceGroup, name, "start")
}

// PowerOff stops a VM without releasing its compute resources.
func (c *VirtualMachines) PowerOff(ctx context.Context, resourceGroup, name string) error {
	return c.action(ctx, resourceGroup, name, "powerOff")
}

// Restart restarts a VM.
func (c *VirtualMachines) Restart(ctx context.Context, resourceGroup, name string) error {
	return c.action(ctx, resourceGroup, name, "restart")
}

// Deallocate stops a VM and releases its compute resources.
func (c *VirtualMachines) Deallocate(ctx context.Context, resourceGroup, name string) error {
	return c.action(ctx, resourceGroup, name, "deallocate")
}

func (c *VirtualMachines) action(ctx context.Context, resourceGroup, name, action string) error {
	path := c.Path(resourceGroup, name) + "/" + action
	if _, err := sdk.BeginAndWait[struct{}](ctx, c.Client, http.MethodPost, path, nil); err != nil {
		return err
	}
	logging.FromContext(ctx, c.manager.logger).Info("Virtual machine power operation completed",
		zap.String(logging.FieldResourceGroup, resourceGroup),
		zap.String(logging.FieldResourceName, name),
		zap.String(logging.FieldOperation, action))
	return nil
}

// VirtualMachine is a virtual machine.
type VirtualMachine struct {
	manager *Manager
	inner   models.VirtualMachine
}

// ID returns the resource ID.
func (vm *VirtualMachine) ID() string { return vm.inner.ID }

// Name returns the VM name.
func (vm *VirtualMachine) Name() string { return vm.inner.Name }

// ResourceGroupName returns the resource group holding the VM.
func (vm *VirtualMachine) ResourceGroupName() string { return sdk.ResourceGroupOf(vm.inner.ID) }

// Region returns the location of the VM.
func (vm *VirtualMachine) Region() string { return vm.inner.Location }

// VMID returns the unique VM identifier assigned by the platform.
func (vm *VirtualMachine) VMID() string { return vm.inner.Properties.VMID }

// Size returns the VM size, e.g. "Standard_D2s_v3".
func (vm *VirtualMachine) Size() string {
	if hw := vm.inner.Properties.HardwareProfile; hw != nil {
		return hw.VMSize
	}
	return ""
}

// ProvisioningState returns the last reported provisioning state.
func (vm *VirtualMachine) ProvisioningState() string { return vm.inner.Properties.ProvisioningState }

// Inner returns the wire representation.
func (vm *VirtualMachine) Inner() models.VirtualMachine { return vm.inner }

// Start powers on the VM.
func (vm *VirtualMachine) Start(ctx context.Context) error {
	return vm.manager.virtualMachines.Start(ctx, vm.ResourceGroupName(), vm.Name())
}

// PowerOff stops the VM without releasing its compute resources.
func (vm *VirtualMachine) PowerOff(ctx context.Context) error {
	return vm.manager.virtualMachines.PowerOff(ctx, vm.ResourceGroupName(), vm.Name())
}

// Restart restarts the VM.
func (vm *VirtualMachine) Restart(ctx context.Context) error {
	return vm.manager.virtualMachines.Restart(ctx, vm.ResourceGroupName(), vm.Name())
}

// Deallocate stops the VM and releases its compute resources.
func (vm *VirtualMachine) Deallocate(ctx context.Context) error {
	return vm.manager.virtualMachines.Deallocate(ctx, vm.ResourceGroupName(), vm.Name())
}

// InstanceView fetches the runtime state of the VM.
func (vm *VirtualMachine) InstanceView(ctx context.Context) (models.VirtualMachineInstanceView, error) {
	var view models.VirtualMachineInstanceView
	err := vm.manager.client.DoJSON(ctx, http.MethodGet, vm.ID()+"/instanceView", nil, &view)
	return view, err
}

// PowerState fetches the instance view and returns the power state it reports.
func (vm *VirtualMachine) PowerState(ctx context.Context) (PowerState, error) {
	view, err := vm.InstanceView(ctx)
	if err != nil {
		return PowerStateUnknown, err
	}
	return powerStateOf(view), nil
}

func powerStateOf(view models.VirtualMachineInstanceView) PowerState {
	for _, status := range view.Statuses {
		if strings.HasPrefix(status.Code, powerStatePrefix) {
			return PowerState(strings.TrimPrefix(status.Code, powerStatePrefix))
		}
	}
	return PowerStateUnknown
}
