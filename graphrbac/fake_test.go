package graphrbac

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yaroslav/azfluent/internal/testutil"
	"github.com/yaroslav/azfluent/models"
)

const (
	testAppObjectID = "11111111-0000-0000-0000-000000000001"
	testAppID       = "22222222-0000-0000-0000-000000000002"
	testSPObjectID  = "33333333-0000-0000-0000-000000000003"

	contributorDefinitionID = "/subscriptions/" + testutil.SubscriptionID +
		"/providers/Microsoft.Authorization/roleDefinitions/b24988ac-6180-42a0-ab88-20f7382dd24c"
)

// fakeDirectory serves the Graph and Authorization endpoints used by service principal
// and role assignment flows.
type fakeDirectory struct {
	t   *testing.T
	rec testutil.Recorder

	mu sync.Mutex

	// principalNotFound is how many role assignment PUTs fail before one succeeds.
	// A negative value fails every PUT.
	principalNotFound int

	// notFoundByMessage reports replication lag through the message instead of the code.
	notFoundByMessage bool

	// assignmentErrorCode, when set, fails every role assignment PUT with that code.
	assignmentErrorCode string

	passwords []models.PasswordCredential
	keys      []models.KeyCredential

	passwordPatches []models.PasswordCredentialsUpdateParameters
	keyPatches      []models.KeyCredentialsUpdateParameters
	assignments     []models.RoleAssignmentCreateParameters
}

func newFakeDirectory(t *testing.T) *fakeDirectory {
	return &fakeDirectory{t: t}
}

// start returns a manager bound to the fake and the delays its principal retry slept.
func (f *fakeDirectory) start() (*Manager, *[]time.Duration) {
	server := testutil.NewServer(f.t, &f.rec, f.serve)
	manager := testutil.Authenticate(f.t, Configure(), server.URL)

	var delays []time.Duration
	manager.principalRetry.Sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return manager, &delays
}

func (f *fakeDirectory) puts() int {
	n := 0
	for _, r := range f.rec.Requests() {
		if strings.HasPrefix(r, http.MethodPut+" ") && strings.Contains(r, "/roleAssignments/") {
			n++
		}
	}
	return n
}

func (f *fakeDirectory) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tenant := "/" + testutil.TenantID
	path := r.URL.Path

	switch {
	case r.Method == http.MethodPost && path == tenant+"/applications":
		var params models.ApplicationCreateParameters
		testutil.DecodeJSON(f.t, r, &params)
		testutil.WriteJSON(w, http.StatusCreated, models.Application{
			DirectoryObject: models.DirectoryObject{ObjectID: testAppObjectID, ObjectType: "Application"},
			AppID:           testAppID,
			DisplayName:     params.DisplayName,
			Homepage:        params.Homepage,
		})

	case r.Method == http.MethodPost && path == tenant+"/servicePrincipals":
		var params models.ServicePrincipalCreateParameters
		testutil.DecodeJSON(f.t, r, &params)
		testutil.WriteJSON(w, http.StatusCreated, models.ServicePrincipal{
			DirectoryObject:       models.DirectoryObject{ObjectID: testSPObjectID, ObjectType: "ServicePrincipal"},
			AppID:                 params.AppID,
			DisplayName:           "sp-display",
			ServicePrincipalNames: []string{params.AppID},
		})

	case r.Method == http.MethodGet && path == tenant+"/servicePrincipals/"+testSPObjectID:
		testutil.WriteJSON(w, http.StatusOK, models.ServicePrincipal{
			DirectoryObject: models.DirectoryObject{ObjectID: testSPObjectID},
			AppID:           testAppID,
			DisplayName:     "sp-display",
		})

	case r.Method == http.MethodGet && path == tenant+"/servicePrincipals":
		testutil.WriteJSON(w, http.StatusOK, models.Page[models.ServicePrincipal]{
			Value: []models.ServicePrincipal{{
				DirectoryObject: models.DirectoryObject{ObjectID: testSPObjectID},
				AppID:           testAppID,
			}},
		})

	case r.Method == http.MethodPatch && strings.HasSuffix(path, "/passwordCredentials"):
		var params models.PasswordCredentialsUpdateParameters
		testutil.DecodeJSON(f.t, r, &params)
		f.passwordPatches = append(f.passwordPatches, params)
		f.passwords = nil
		for _, c := range params.Value {
			c.Value = ""
			f.passwords = append(f.passwords, c)
		}
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodPatch && strings.HasSuffix(path, "/keyCredentials"):
		var params models.KeyCredentialsUpdateParameters
		testutil.DecodeJSON(f.t, r, &params)
		f.keyPatches = append(f.keyPatches, params)
		f.keys = params.Value
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/passwordCredentials"):
		testutil.WriteJSON(w, http.StatusOK, models.Page[models.PasswordCredential]{Value: f.passwords})

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/keyCredentials"):
		testutil.WriteJSON(w, http.StatusOK, models.Page[models.KeyCredential]{Value: f.keys})

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/providers/Microsoft.Authorization/roleDefinitions"):
		if got := r.URL.Query().Get("api-version"); got != RoleDefinitionAPIVersion {
			f.t.Errorf("role definition api-version = %q, want %q", got, RoleDefinitionAPIVersion)
		}
		filter := r.URL.Query().Get("$filter")
		if filter != "roleName eq 'Contributor'" {
			testutil.WriteJSON(w, http.StatusOK, models.Page[models.RoleDefinition]{Value: []models.RoleDefinition{}})
			return
		}
		testutil.WriteJSON(w, http.StatusOK, models.Page[models.RoleDefinition]{Value: []models.RoleDefinition{{
			ID:         contributorDefinitionID,
			Name:       "b24988ac-6180-42a0-ab88-20f7382dd24c",
			Properties: models.RoleDefinitionProperties{RoleName: "Contributor", RoleType: "BuiltInRole"},
		}}})

	case r.Method == http.MethodPut && strings.Contains(path, "/providers/Microsoft.Authorization/roleAssignments/"):
		if got := r.URL.Query().Get("api-version"); got != RoleAssignmentAPIVersion {
			f.t.Errorf("role assignment api-version = %q, want %q", got, RoleAssignmentAPIVersion)
		}
		var params models.RoleAssignmentCreateParameters
		testutil.DecodeJSON(f.t, r, &params)
		f.assignments = append(f.assignments, params)

		if f.assignmentErrorCode != "" {
			testutil.WriteError(w, http.StatusForbidden, f.assignmentErrorCode, "The client does not have authorization")
			return
		}
		if f.principalNotFound != 0 {
			if f.principalNotFound > 0 {
				f.principalNotFound--
			}
			if f.notFoundByMessage {
				testutil.WriteError(w, http.StatusBadRequest, "BadRequest",
					"Principal "+params.Properties.PrincipalID+" Does Not Exist In The Directory "+testutil.TenantID+".")
				return
			}
			testutil.WriteError(w, http.StatusBadRequest, CodePrincipalNotFound,
				"Principal "+params.Properties.PrincipalID+" does not exist in the directory "+testutil.TenantID+".")
			return
		}

		name := path[strings.LastIndex(path, "/")+1:]
		scope := strings.TrimSuffix(path, "/providers/Microsoft.Authorization/roleAssignments/"+name)
		testutil.WriteJSON(w, http.StatusCreated, models.RoleAssignment{
			ID:   path,
			Name: name,
			Type: "Microsoft.Authorization/roleAssignments",
			Properties: models.RoleAssignmentProperties{
				Scope:            scope,
				RoleDefinitionID: params.Properties.RoleDefinitionID,
				PrincipalID:      params.Properties.PrincipalID,
			},
		})

	case r.Method == http.MethodDelete && strings.Contains(path, "/providers/Microsoft.Authorization/roleAssignments/"):
		w.WriteHeader(http.StatusOK)

	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.String())
		testutil.WriteError(w, http.StatusNotFound, "NotFound", "no route")
	}
}
