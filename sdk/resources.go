package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

// ResourceCollection implements the read and delete operations shared by every
// resource-group scoped ARM resource type. Service collections embed it and add
// Define and the type-specific operations.
type ResourceCollection[T, R any] struct {
	// Client sends the requests.
	Client *Client

	// ResourceType is the provider type, e.g. "Microsoft.Compute/snapshots".
	ResourceType string

	// Wrap turns a wire object into its fluent wrapper.
	Wrap func(T) R
}

// Path returns the path of the named resource in resourceGroup.
func (c ResourceCollection[T, R]) Path(resourceGroup, name string) string {
	return c.Client.ProviderPath(resourceGroup, c.ResourceType, name)
}

// GetByResourceGroup fetches a resource by resource group and name.
func (c ResourceCollection[T, R]) GetByResourceGroup(ctx context.Context, resourceGroup, name string) (R, error) {
	return c.get(ctx, c.Path(resourceGroup, name))
}

// GetByID fetches a resource by its fully qualified ID.
func (c ResourceCollection[T, R]) GetByID(ctx context.Context, id string) (R, error) {
	var zero R
	if _, err := ParseResourceID(id); err != nil {
		return zero, err
	}
	return c.get(ctx, id)
}

func (c ResourceCollection[T, R]) get(ctx context.Context, path string) (R, error) {
	var zero R
	var inner T
	if err := c.Client.DoJSON(ctx, http.MethodGet, path, nil, &inner); err != nil {
		return zero, err
	}
	return c.Wrap(inner), nil
}

// List returns every resource of the type in the subscription.
func (c ResourceCollection[T, R]) List(ctx context.Context) ([]R, error) {
	return c.ListPager().All(ctx)
}

// ListPager returns a pager over every resource of the type in the subscription.
func (c ResourceCollection[T, R]) ListPager() *Pager[T, R] {
	path := c.Client.SubscriptionScope() + "/providers/" + c.ResourceType
	return NewPager(c.Client, path, c.Wrap)
}

// ListByResourceGroup returns every resource of the type in resourceGroup.
func (c ResourceCollection[T, R]) ListByResourceGroup(ctx context.Context, resourceGroup string) ([]R, error) {
	return c.ListByResourceGroupPager(resourceGroup).All(ctx)
}

// ListByResourceGroupPager returns a pager over the resources of the type in resourceGroup.
func (c ResourceCollection[T, R]) ListByResourceGroupPager(resourceGroup string) *Pager[T, R] {
	return NewPager(c.Client, c.Client.ProviderPath(resourceGroup, c.ResourceType), c.Wrap)
}

// BeginDeleteByID starts deleting the resource with the given ID.
func (c ResourceCollection[T, R]) BeginDeleteByID(ctx context.Context, id string) (*runtime.Poller[struct{}], error) {
	if _, err := ParseResourceID(id); err != nil {
		return nil, err
	}
	return Begin[struct{}](ctx, c.Client, http.MethodDelete, id, nil)
}

// DeleteByID deletes the resource with the given ID and waits for completion.
func (c ResourceCollection[T, R]) DeleteByID(ctx context.Context, id string) error {
	if _, err := ParseResourceID(id); err != nil {
		return err
	}
	_, err := BeginAndWait[struct{}](ctx, c.Client, http.MethodDelete, id, nil)
	return err
}

// DeleteByResourceGroup deletes a resource by resource group and name and waits for completion.
func (c ResourceCollection[T, R]) DeleteByResourceGroup(ctx context.Context, resourceGroup, name string) error {
	_, err := BeginAndWait[struct{}](ctx, c.Client, http.MethodDelete, c.Path(resourceGroup, name), nil)
	return err
}

// ParseResourceID parses a fully qualified ARM resource ID.
func ParseResourceID(id string) (*arm.ResourceID, error) {
	unescaped, err := url.PathUnescape(id)
	if err != nil {
		unescaped = id
	}
	rid, err := arm.ParseResourceID(unescaped)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid resource id %q: %v", ErrInvalidResourceID, id, err)
	}
	return rid, nil
}
