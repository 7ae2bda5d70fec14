package keyvault

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"

	"github.com/yaroslav/azfluent/graphrbac"
	"github.com/yaroslav/azfluent/internal/testutil"
	"github.com/yaroslav/azfluent/models"
)

const vaultPath = "/subscriptions/" + testutil.SubscriptionID +
	"/resourceGroups/rg1/providers/Microsoft.KeyVault/vaults/kv1"

// directory is the Azure AD content the fake Graph endpoint serves.
type directory struct {
	users             []models.User
	servicePrincipals []models.ServicePrincipal
}

// serve answers the Graph requests made while resolving access policy principals.
func (d directory) serve(w http.ResponseWriter, r *http.Request) bool {
	prefix := "/" + testutil.TenantID + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		return false
	}
	path := strings.TrimPrefix(r.URL.Path, prefix)
	filter := r.URL.Query().Get("$filter")

	switch {
	case path == "users":
		var found []models.User
		for _, u := range d.users {
			if strings.Contains(filter, "'"+u.UserPrincipalName+"'") {
				found = append(found, u)
			}
		}
		testutil.WriteJSON(w, http.StatusOK, models.Page[models.User]{Value: found})
	case path == "servicePrincipals":
		var found []models.ServicePrincipal
		for _, sp := range d.servicePrincipals {
			for _, name := range sp.ServicePrincipalNames {
				if strings.Contains(filter, "'"+name+"'") {
					found = append(found, sp)
					break
				}
			}
		}
		testutil.WriteJSON(w, http.StatusOK, models.Page[models.ServicePrincipal]{Value: found})
	case strings.HasSuffix(path, "/passwordCredentials"), strings.HasSuffix(path, "/keyCredentials"):
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"value": []any{}})
	case strings.HasPrefix(path, "servicePrincipals/"):
		id := strings.TrimPrefix(path, "servicePrincipals/")
		for _, sp := range d.servicePrincipals {
			if sp.ObjectID == id {
				testutil.WriteJSON(w, http.StatusOK, sp)
				return true
			}
		}
		testutil.WriteGraphError(w, http.StatusNotFound, "Request_ResourceNotFound", "Resource '"+id+"' does not exist.")
	default:
		testutil.WriteGraphError(w, http.StatusNotFound, "Request_ResourceNotFound", "unexpected path "+path)
	}
	return true
}

// startFake serves a fake Resource Manager and Graph on one server and returns a manager
// whose key clients are fakeKeys, recording the vault URL they were opened for.
func startFake(t *testing.T, dir directory) (*testutil.ARM, *Manager, *fakeKeys) {
	t.Helper()

	fake := testutil.NewARM(t)
	fake.Intercept = dir.serve
	server := fake.Start()

	profile := testutil.Profile(server.URL)
	graph := graphrbac.NewManager(
		testutil.NewClient(t, server.URL+"/"+testutil.TenantID, graphrbac.GraphAPIVersion),
		testutil.NewClient(t, server.URL, graphrbac.RoleAssignmentAPIVersion),
		profile,
	)

	keys := newFakeKeys()
	manager := NewManager(testutil.NewClient(t, server.URL, APIVersion), graph, func(vaultURL string) (KeyClient, error) {
		keys.vaultURL = vaultURL
		return keys, nil
	})
	return fake, manager, keys
}

// fakeKeys is an in-memory KeyClient. Every create or import adds a version.
type fakeKeys struct {
	mu       sync.Mutex
	vaultURL string
	versions map[string][]azkeys.KeyBundle

	created  []azkeys.CreateKeyParameters
	imported []azkeys.ImportKeyParameters
	updated  []azkeys.UpdateKeyParameters
}

func newFakeKeys() *fakeKeys {
	return &fakeKeys{versions: map[string][]azkeys.KeyBundle{}}
}

func (f *fakeKeys) addVersion(name string, key azkeys.JSONWebKey, attributes *azkeys.KeyAttributes, tags map[string]*string) azkeys.KeyBundle {
	version := fmt.Sprintf("v%d", len(f.versions[name])+1)
	kid := azkeys.ID(f.vaultURL + "/keys/" + name + "/" + version)
	key.KID = &kid
	if attributes == nil {
		attributes = &azkeys.KeyAttributes{Enabled: to.Ptr(true)}
	}
	bundle := azkeys.KeyBundle{Key: &key, Attributes: attributes, Tags: tags}
	f.versions[name] = append(f.versions[name], bundle)
	return bundle
}

func (f *fakeKeys) latest(name string) (azkeys.KeyBundle, error) {
	versions := f.versions[name]
	if len(versions) == 0 {
		return azkeys.KeyBundle{}, &azcore.ResponseError{ErrorCode: "KeyNotFound", StatusCode: http.StatusNotFound}
	}
	return versions[len(versions)-1], nil
}

func (f *fakeKeys) CreateKey(_ context.Context, name string, parameters azkeys.CreateKeyParameters, _ *azkeys.CreateKeyOptions) (azkeys.CreateKeyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, parameters)
	key := azkeys.JSONWebKey{Kty: parameters.Kty, KeyOps: parameters.KeyOps, Crv: parameters.Curve}
	return azkeys.CreateKeyResponse{KeyBundle: f.addVersion(name, key, parameters.KeyAttributes, parameters.Tags)}, nil
}

func (f *fakeKeys) ImportKey(_ context.Context, name string, parameters azkeys.ImportKeyParameters, _ *azkeys.ImportKeyOptions) (azkeys.ImportKeyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imported = append(f.imported, parameters)
	return azkeys.ImportKeyResponse{KeyBundle: f.addVersion(name, *parameters.Key, parameters.KeyAttributes, parameters.Tags)}, nil
}

func (f *fakeKeys) GetKey(_ context.Context, name string, version string, _ *azkeys.GetKeyOptions) (azkeys.GetKeyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if version != "" {
		for _, bundle := range f.versions[name] {
			if bundle.Key.KID.Version() == version {
				return azkeys.GetKeyResponse{KeyBundle: bundle}, nil
			}
		}
	}
	bundle, err := f.latest(name)
	return azkeys.GetKeyResponse{KeyBundle: bundle}, err
}

func (f *fakeKeys) UpdateKey(_ context.Context, name string, _ string, parameters azkeys.UpdateKeyParameters, _ *azkeys.UpdateKeyOptions) (azkeys.UpdateKeyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, parameters)

	bundle, err := f.latest(name)
	if err != nil {
		return azkeys.UpdateKeyResponse{}, err
	}
	if parameters.KeyOps != nil {
		key := *bundle.Key
		key.KeyOps = parameters.KeyOps
		bundle.Key = &key
	}
	if parameters.KeyAttributes != nil {
		bundle.Attributes = parameters.KeyAttributes
	}
	bundle.Tags = parameters.Tags
	versions := f.versions[name]
	versions[len(versions)-1] = bundle
	return azkeys.UpdateKeyResponse{KeyBundle: bundle}, nil
}

func (f *fakeKeys) DeleteKey(_ context.Context, name string, _ *azkeys.DeleteKeyOptions) (azkeys.DeleteKeyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.latest(name); err != nil {
		return azkeys.DeleteKeyResponse{}, err
	}
	delete(f.versions, name)
	return azkeys.DeleteKeyResponse{}, nil
}

func (f *fakeKeys) properties(bundles []azkeys.KeyBundle) []*azkeys.KeyProperties {
	props := make([]*azkeys.KeyProperties, 0, len(bundles))
	for _, bundle := range bundles {
		props = append(props, &azkeys.KeyProperties{KID: bundle.Key.KID, Attributes: bundle.Attributes, Tags: bundle.Tags})
	}
	return props
}

func (f *fakeKeys) NewListKeyPropertiesPager(_ *azkeys.ListKeyPropertiesOptions) *runtime.Pager[azkeys.ListKeyPropertiesResponse] {
	return runtime.NewPager(runtime.PagingHandler[azkeys.ListKeyPropertiesResponse]{
		More: func(azkeys.ListKeyPropertiesResponse) bool { return false },
		Fetcher: func(context.Context, *azkeys.ListKeyPropertiesResponse) (azkeys.ListKeyPropertiesResponse, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			var current []azkeys.KeyBundle
			for name := range f.versions {
				bundle, _ := f.latest(name)
				current = append(current, bundle)
			}
			return azkeys.ListKeyPropertiesResponse{
				KeyPropertiesListResult: azkeys.KeyPropertiesListResult{Value: f.properties(current)},
			}, nil
		},
	})
}

func (f *fakeKeys) NewListKeyPropertiesVersionsPager(name string, _ *azkeys.ListKeyPropertiesVersionsOptions) *runtime.Pager[azkeys.ListKeyPropertiesVersionsResponse] {
	return runtime.NewPager(runtime.PagingHandler[azkeys.ListKeyPropertiesVersionsResponse]{
		More: func(azkeys.ListKeyPropertiesVersionsResponse) bool { return false },
		Fetcher: func(context.Context, *azkeys.ListKeyPropertiesVersionsResponse) (azkeys.ListKeyPropertiesVersionsResponse, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			return azkeys.ListKeyPropertiesVersionsResponse{
				KeyPropertiesListResult: azkeys.KeyPropertiesListResult{Value: f.properties(f.versions[name])},
			}, nil
		},
	})
}
