package models

// Resource holds the fields shared by every tracked ARM resource.
type Resource struct {
	// ID is the fully qualified resource ID, assigned by the service.
	// Empty until the resource has been created.
	ID string `json:"id,omitempty"`

	// Name is the resource name (last segment of the ID).
	Name string `json:"name,omitempty"`

	// Type is the provider resource type, e.g. "Microsoft.Compute/snapshots".
	Type string `json:"type,omitempty"`

	// Location is the Azure region the resource lives in.
	Location string `json:"location,omitempty"`

	// Tags are free-form key/value labels.
	Tags map[string]string `json:"tags,omitempty"`
}

// SubResource references another resource by ID.
type SubResource struct {
	ID string `json:"id,omitempty"`
}

// Page is one page of a list response.
// ARM returns the continuation token as nextLink, Graph as odata.nextLink.
type Page[T any] struct {
	Value         []T    `json:"value"`
	NextLink      string `json:"nextLink,omitempty"`
	ODataNextLink string `json:"odata.nextLink,omitempty"`
}

// Next returns the continuation token of the page, or "" on the last page.
func (p Page[T]) Next() string {
	if p.NextLink != "" {
		return p.NextLink
	}
	return p.ODataNextLink
}
