package graphrbac

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/sdk"
)

// Users is the read-only collection of Azure AD users.
type Users struct {
	manager *Manager
}

// User is an Azure AD user.
type User struct {
	inner models.User
}

// ID returns the object ID.
func (u *User) ID() string { return u.inner.ObjectID }

// Name returns the display name.
func (u *User) Name() string { return u.inner.DisplayName }

// UserPrincipalName returns the sign-in name.
func (u *User) UserPrincipalName() string { return u.inner.UserPrincipalName }

// Mail returns the primary email address.
func (u *User) Mail() string { return u.inner.Mail }

// Inner returns the wire representation.
func (u *User) Inner() models.User { return u.inner }

func wrapUser(inner models.User) *User { return &User{inner: inner} }

// GetByID fetches a user by object ID or user principal name.
func (c *Users) GetByID(ctx context.Context, id string) (*User, error) {
	var inner models.User
	if err := c.manager.graph.DoJSON(ctx, http.MethodGet, "users/"+url.PathEscape(id), nil, &inner); err != nil {
		return nil, err
	}
	return wrapUser(inner), nil
}

// GetByName finds a user by user principal name, mail or display name, in that order.
func (c *Users) GetByName(ctx context.Context, name string) (*User, error) {
	for _, filter := range []string{
		"userPrincipalName eq " + odataQuote(name),
		"mail eq " + odataQuote(name),
		"displayName eq " + odataQuote(name),
	} {
		users, err := sdk.NewPager(c.manager.graph, withFilter("users", filter), wrapUser).NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if len(users) > 0 {
			return users[0], nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", name, models.ErrNotFound)
}

// List returns every user in the tenant.
func (c *Users) List(ctx context.Context) ([]*User, error) {
	return c.ListPager().All(ctx)
}

// ListPager returns a pager over every user in the tenant.
func (c *Users) ListPager() *sdk.Pager[models.User, *User] {
	return sdk.NewPager(c.manager.graph, "users", wrapUser)
}

// Groups is the read-only collection of Azure AD groups.
type Groups struct {
	manager *Manager
}

// Group is an Azure AD group.
type Group struct {
	inner models.Group
}

// ID returns the object ID.
func (g *Group) ID() string { return g.inner.ObjectID }

// Name returns the display name.
func (g *Group) Name() string { return g.inner.DisplayName }

// SecurityEnabled reports whether the group can be used in role assignments.
func (g *Group) SecurityEnabled() bool {
	return g.inner.SecurityEnabled != nil && *g.inner.SecurityEnabled
}

// Inner returns the wire representation.
func (g *Group) Inner() models.Group { return g.inner }

func wrapGroup(inner models.Group) *Group { return &Group{inner: inner} }

// GetByID fetches a group by object ID.
func (c *Groups) GetByID(ctx context.Context, id string) (*Group, error) {
	var inner models.Group
	if err := c.manager.graph.DoJSON(ctx, http.MethodGet, "groups/"+url.PathEscape(id), nil, &inner); err != nil {
		return nil, err
	}
	return wrapGroup(inner), nil
}

// GetByName finds a group by display name.
func (c *Groups) GetByName(ctx context.Context, name string) (*Group, error) {
	groups, err := sdk.NewPager(c.manager.graph, withFilter("groups", "displayName eq "+odataQuote(name)), wrapGroup).
		NextPage(ctx)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("group %q: %w", name, models.ErrNotFound)
	}
	return groups[0], nil
}

// List returns every group in the tenant.
func (c *Groups) List(ctx context.Context) ([]*Group, error) {
	return c.ListPager().All(ctx)
}

// ListPager returns a pager over every group in the tenant.
func (c *Groups) ListPager() *sdk.Pager[models.Group, *Group] {
	return sdk.NewPager(c.manager.graph, "groups", wrapGroup)
}
