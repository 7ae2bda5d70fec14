package graphrbac

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroslav/azfluent/internal/testutil"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/sdk"
)

func TestRoleAssignmentCreate_ByObjectIDAndBuiltInRole(t *testing.T) {
	fake := newFakeDirectory(t)
	manager, _ := fake.start()

	assignment, err := manager.RoleAssignments().Define("6b1c0f7e-0000-0000-0000-000000000001").
		ForObjectID(testSPObjectID).
		WithBuiltInRole(Contributor).
		WithResourceGroupScope("rg1").
		Create(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ResourceGroupScope(testutil.SubscriptionID, "rg1"), assignment.Scope())
	require.Len(t, fake.assignments, 1)
	assert.Equal(t, testSPObjectID, fake.assignments[0].Properties.PrincipalID)
	assert.Equal(t, contributorDefinitionID, fake.assignments[0].Properties.RoleDefinitionID)
}

func TestRoleAssignmentCreate_WithRoleDefinitionSkipsLookup(t *testing.T) {
	fake := newFakeDirectory(t)
	manager, _ := fake.start()

	_, err := manager.RoleAssignments().Define("6b1c0f7e-0000-0000-0000-000000000002").
		ForObjectID(testSPObjectID).
		WithRoleDefinition(contributorDefinitionID).
		WithSubscriptionScope(testutil.SubscriptionID).
		Create(context.Background())
	require.NoError(t, err)

	for _, r := range fake.rec.Requests() {
		assert.NotContains(t, r, "roleDefinitions")
	}
}

func TestRoleAssignmentCreate_ByServicePrincipalName(t *testing.T) {
	fake := newFakeDirectory(t)
	manager, _ := fake.start()

	_, err := manager.RoleAssignments().Define("6b1c0f7e-0000-0000-0000-000000000003").
		ForServicePrincipalName(testAppID).
		WithBuiltInRole(Contributor).
		WithSubscriptionScope(testutil.SubscriptionID).
		Create(context.Background())
	require.NoError(t, err)

	require.Len(t, fake.assignments, 1)
	assert.Equal(t, testSPObjectID, fake.assignments[0].Properties.PrincipalID)
}

func TestRoleAssignmentCreate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		define  func(m *Manager) RoleAssignmentWithCreate
		wantMsg string
	}{
		{
			name: "missing role",
			define: func(m *Manager) RoleAssignmentWithCreate {
				return m.RoleAssignments().Define("a").ForObjectID(testSPObjectID).
					WithBuiltInRole("").WithSubscriptionScope(testutil.SubscriptionID)
			},
			wantMsg: "role name or role definition ID is required",
		},
		{
			name: "missing principal",
			define: func(m *Manager) RoleAssignmentWithCreate {
				return m.RoleAssignments().Define("a").ForObjectID("").
					WithBuiltInRole(Reader).WithSubscriptionScope(testutil.SubscriptionID)
			},
			wantMsg: "object ID, user, group, or service principal is required",
		},
		{
			name: "missing scope",
			define: func(m *Manager) RoleAssignmentWithCreate {
				return m.RoleAssignments().Define("a").ForObjectID(testSPObjectID).
					WithBuiltInRole(Reader).WithScope("")
			},
			wantMsg: "scope is required",
		},
		{
			name: "missing name",
			define: func(m *Manager) RoleAssignmentWithCreate {
				return m.RoleAssignments().Define("").ForObjectID(testSPObjectID).
					WithBuiltInRole(Reader).WithSubscriptionScope(testutil.SubscriptionID)
			},
			wantMsg: "role assignment name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeDirectory(t)
			manager, _ := fake.start()

			_, err := tt.define(manager).Create(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Empty(t, fake.rec.Requests(), "validation must fail before any request")
		})
	}
}

func TestRoleAssignmentCreate_UnknownRole(t *testing.T) {
	fake := newFakeDirectory(t)
	manager, _ := fake.start()

	_, err := manager.RoleAssignments().Define("a").
		ForObjectID(testSPObjectID).
		WithBuiltInRole("Nonexistent Role").
		WithSubscriptionScope(testutil.SubscriptionID).
		Create(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Zero(t, fake.puts())
}

func TestIsPrincipalNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"exact code", &sdk.CloudError{StatusCode: http.StatusBadRequest, Code: "PrincipalNotFound"}, true},
		{"code case-insensitive", &sdk.CloudError{StatusCode: http.StatusBadRequest, Code: "principalnotfound"}, true},
		{
			"message only",
			&sdk.CloudError{StatusCode: http.StatusBadRequest, Code: "BadRequest", Message: "Principal x does not exist in the directory y."},
			true,
		},
		{"other code", &sdk.CloudError{StatusCode: http.StatusForbidden, Code: "AuthorizationFailed"}, false},
		{"wrapped", errors.Join(errors.New("context"), &sdk.CloudError{Code: "PrincipalNotFound"}), true},
		{"not a cloud error", errors.New("PrincipalNotFound"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPrincipalNotFound(tt.err))
		})
	}
}

func TestRoleAssignmentsExist(t *testing.T) {
	assert.True(t, IsRoleAssignmentExists(&sdk.CloudError{StatusCode: http.StatusConflict, Code: "RoleAssignmentExists"}))
	assert.False(t, IsRoleAssignmentExists(&sdk.CloudError{StatusCode: http.StatusConflict, Code: "Conflict"}))
}

func TestSubscriptionOfScope(t *testing.T) {
	assert.Equal(t, "sub", subscriptionOfScope("/subscriptions/sub/resourceGroups/rg"))
	assert.Equal(t, "sub", subscriptionOfScope("/subscriptions/sub"))
	assert.Equal(t, "", subscriptionOfScope("/providers/Microsoft.Management/managementGroups/mg"))
}

func TestOdataQuote(t *testing.T) {
	assert.Equal(t, "'O''Brien'", odataQuote("O'Brien"))
}
