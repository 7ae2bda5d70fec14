package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/yaroslav/azfluent/sdk"
)

// ARM is an in-memory Resource Manager. PUT stores the body under the request path and
// marks it provisioned, PATCH merges into the stored document, GET returns a resource or
// lists a collection, and DELETE removes it. Every call completes synchronously, so the
// azcore pollers finish on the first response.
type ARM struct {
	t   testing.TB
	Rec Recorder

	mu        sync.Mutex
	resources map[string]map[string]any
	bodies    map[string][][]byte

	// Actions handles POST requests by path suffix, e.g. "/beginGetAccess".
	// Unmatched POSTs answer 200 with no body.
	Actions map[string]http.HandlerFunc

	// Intercept, when set, sees every request first and handles it when it returns true.
	Intercept func(w http.ResponseWriter, r *http.Request) bool
}

// NewARM returns an empty fake.
func NewARM(t testing.TB) *ARM {
	return &ARM{
		t:         t,
		resources: map[string]map[string]any{},
		bodies:    map[string][][]byte{},
		Actions:   map[string]http.HandlerFunc{},
	}
}

// Start serves the fake and returns the server.
func (a *ARM) Start() *httptest.Server {
	return NewServer(a.t, &a.Rec, a.serve)
}

// Put stores doc under path as if it had been created.
func (a *ARM) Put(path string, doc any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resources[path] = a.normalize(path, toMap(a.t, doc))
}

// Get returns the stored document at path decoded into v, reporting whether it exists.
func (a *ARM) Get(path string, v any) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	doc, ok := a.resources[path]
	if !ok {
		return false
	}
	raw, _ := json.Marshal(doc)
	if err := json.Unmarshal(raw, v); err != nil {
		a.t.Errorf("stored document at %s does not decode: %v", path, err)
	}
	return true
}

// Has reports whether a resource is stored at path.
func (a *ARM) Has(path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.resources[path]
	return ok
}

// LastBody decodes the last request body sent with "METHOD path" into v.
func (a *ARM) LastBody(methodAndPath string, v any) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	bodies := a.bodies[methodAndPath]
	if len(bodies) == 0 {
		return false
	}
	if err := json.Unmarshal(bodies[len(bodies)-1], v); err != nil {
		a.t.Errorf("body of %s does not decode: %v", methodAndPath, err)
	}
	return true
}

func (a *ARM) serve(w http.ResponseWriter, r *http.Request) {
	if a.Intercept != nil && a.Intercept(w, r) {
		return
	}

	body, _ := io.ReadAll(r.Body)
	path := r.URL.Path

	a.mu.Lock()
	if len(body) > 0 {
		key := r.Method + " " + path
		a.bodies[key] = append(a.bodies[key], body)
	}
	a.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		var doc map[string]any
		if err := json.Unmarshal(body, &doc); err != nil {
			WriteError(w, http.StatusBadRequest, "InvalidRequestContent", err.Error())
			return
		}
		a.mu.Lock()
		doc = a.normalize(path, doc)
		a.resources[path] = doc
		a.mu.Unlock()
		WriteJSON(w, http.StatusOK, doc)

	case http.MethodPatch:
		var patch map[string]any
		if err := json.Unmarshal(body, &patch); err != nil {
			WriteError(w, http.StatusBadRequest, "InvalidRequestContent", err.Error())
			return
		}
		a.mu.Lock()
		doc, ok := a.resources[path]
		if ok {
			merge(doc, patch)
		}
		a.mu.Unlock()
		if !ok {
			WriteError(w, http.StatusNotFound, "ResourceNotFound", "The Resource '"+path+"' was not found.")
			return
		}
		WriteJSON(w, http.StatusOK, doc)

	case http.MethodGet:
		a.get(w, path)

	case http.MethodDelete:
		a.mu.Lock()
		delete(a.resources, path)
		a.mu.Unlock()
		w.WriteHeader(http.StatusOK)

	case http.MethodPost:
		for suffix, handler := range a.Actions {
			if strings.HasSuffix(path, suffix) {
				handler(w, r)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (a *ARM) get(w http.ResponseWriter, path string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if doc, ok := a.resources[path]; ok {
		WriteJSON(w, http.StatusOK, doc)
		return
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments)%2 == 0 {
		WriteError(w, http.StatusNotFound, "ResourceNotFound", "The Resource '"+path+"' was not found.")
		return
	}

	var keys []string
	for key := range a.resources {
		if parentOf(key) == path || parentOf(withoutResourceGroup(key)) == path {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	value := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		value = append(value, a.resources[key])
	}
	WriteJSON(w, http.StatusOK, map[string]any{"value": value})
}

// normalize fills in the fields the service assigns on creation.
func (a *ARM) normalize(path string, doc map[string]any) map[string]any {
	if doc == nil {
		doc = map[string]any{}
	}
	doc["id"] = path
	if rid, err := sdk.ParseResourceID(path); err == nil {
		doc["name"] = rid.Name
		doc["type"] = rid.ResourceType.String()
	}
	props, _ := doc["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
		doc["properties"] = props
	}
	props["provisioningState"] = "Succeeded"
	return doc
}

func parentOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return ""
	}
	return path[:i]
}

// withoutResourceGroup drops "/resourceGroups/{name}" so subscription-wide lists match.
func withoutResourceGroup(path string) string {
	segments := strings.Split(path, "/")
	for i := 0; i+1 < len(segments); i++ {
		if strings.EqualFold(segments[i], "resourceGroups") {
			return strings.Join(append(segments[:i:i], segments[i+2:]...), "/")
		}
	}
	return path
}

func merge(dst, src map[string]any) {
	for key, value := range src {
		if nested, ok := value.(map[string]any); ok {
			if existing, ok := dst[key].(map[string]any); ok {
				merge(existing, nested)
				continue
			}
		}
		dst[key] = value
	}
}

func toMap(t testing.TB, v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal %T: %v", v, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("failed to unmarshal %T: %v", v, err)
	}
	return doc
}
