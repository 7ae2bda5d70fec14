// Package fluent holds the create-or-update bookkeeping shared by every fluent resource.
//
// A resource is either Unsaved (a local draft the service has never seen) or Saved
// (it has a service-assigned ID). Submitting an Unsaved resource creates it, submitting
// a Saved one updates it, and either way the resource ends up Saved.
package fluent

import (
	"context"
	"errors"
)

// ErrNoID is returned when a create call yields a resource without an ID.
var ErrNoID = errors.New("service returned a resource without an id")

// State is the tagged create-or-update state of a resource of inner type T.
type State[T any] struct {
	saved bool
	id    string
	inner T
}

// Unsaved returns the draft state for a resource that does not exist yet.
func Unsaved[T any](draft T) State[T] {
	return State[T]{inner: draft}
}

// Saved returns the state of a resource the service knows under id.
func Saved[T any](id string, inner T) State[T] {
	return State[T]{saved: true, id: id, inner: inner}
}

// IsInCreateMode reports whether submitting would create the resource.
func (s State[T]) IsInCreateMode() bool {
	return !s.saved
}

// ID returns the service-assigned ID, or "" while Unsaved.
func (s State[T]) ID() string {
	return s.id
}

// Inner returns the current payload: the draft while Unsaved, the last known server
// snapshot once Saved.
func (s State[T]) Inner() T {
	return s.inner
}

// Mutate applies fn to the payload in place, keeping the variant.
func (s *State[T]) Mutate(fn func(inner *T)) {
	fn(&s.inner)
}

// Refreshed returns a Saved state holding inner under the existing ID.
func (s State[T]) Refreshed(inner T) State[T] {
	return State[T]{saved: true, id: s.id, inner: inner}
}

// Reconciler dispatches a submission to exactly one of Create or Update.
type Reconciler[T any] struct {
	// Create is called with the draft when the state is Unsaved.
	Create func(ctx context.Context, draft T) (T, error)

	// Update is called with the ID and current payload when the state is Saved.
	Update func(ctx context.Context, id string, current T) (T, error)

	// IDOf extracts the service-assigned ID from a created resource.
	IDOf func(T) string
}

// Submit creates or updates the resource held by state, and on success replaces
// state with the Saved result. On failure state is left untouched.
func (r Reconciler[T]) Submit(ctx context.Context, state *State[T]) (T, error) {
	var zero T

	if state.IsInCreateMode() {
		created, err := r.Create(ctx, state.inner)
		if err != nil {
			return zero, err
		}
		id := r.IDOf(created)
		if id == "" {
			return zero, ErrNoID
		}
		*state = Saved(id, created)
		return created, nil
	}

	updated, err := r.Update(ctx, state.id, state.inner)
	if err != nil {
		return zero, err
	}
	*state = state.Refreshed(updated)
	return updated, nil
}
