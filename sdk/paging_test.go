package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/yaroslav/azfluent/models"
)

type item struct {
	Name string `json:"name"`
}

type wrappedItem struct {
	inner item
}

func TestPager_FollowsNextLinkUntilAbsent(t *testing.T) {
	var server *httptest.Server
	var requests atomic.Int32

	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Query().Get("page") {
		case "":
			writeJSON(w, http.StatusOK, models.Page[item]{
				Value:    []item{{Name: "a"}, {Name: "b"}},
				NextLink: server.URL + "/items?page=2&api-version=2019-07-01",
			})
		case "2":
			writeJSON(w, http.StatusOK, models.Page[item]{
				Value:    []item{{Name: "c"}},
				NextLink: server.URL + "/items?page=3&api-version=2019-07-01",
			})
		case "3":
			writeJSON(w, http.StatusOK, models.Page[item]{
				Value: []item{{Name: "d"}, {Name: "e"}},
			})
		default:
			t.Errorf("unexpected page request %s", r.URL)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeCredential{})

	wraps := 0
	pager := NewPager(client, "/items", func(v item) *wrappedItem {
		wraps++
		return &wrappedItem{inner: v}
	})

	all, err := pager.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}

	var names []string
	for _, w := range all {
		names = append(names, w.inner.Name)
	}
	if fmt.Sprint(names) != "[a b c d e]" {
		t.Errorf("names = %v, want [a b c d e]", names)
	}
	if wraps != 5 {
		t.Errorf("wrap called %d times, want 5", wraps)
	}
	if requests.Load() != 3 {
		t.Errorf("requests = %d, want 3", requests.Load())
	}
	if pager.More() {
		t.Error("More() = true after last page")
	}
}

func TestPager_SendsNextLinkQueryVerbatim(t *testing.T) {
	const nextQuery = "$skiptoken=a%2Bb%3D%3D&api-version=2018-01-01"

	var server *httptest.Server
	var got []string

	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.RawQuery)
		if len(got) == 1 {
			writeJSON(w, http.StatusOK, models.Page[item]{
				Value:    []item{{Name: "a"}},
				NextLink: server.URL + "/items?" + nextQuery,
			})
			return
		}
		writeJSON(w, http.StatusOK, models.Page[item]{Value: []item{{Name: "b"}}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeCredential{})
	pager := NewPager(client, "/items", func(v item) item { return v })

	all, err := pager.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("items = %d, want 2", len(all))
	}
	if len(got) != 2 {
		t.Fatalf("requests = %d, want 2", len(got))
	}
	if got[1] != nextQuery {
		t.Errorf("next page query = %q, want %q", got[1], nextQuery)
	}
}

func TestPager_RelativeODataNextLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api-version"); got != "2019-07-01" {
			t.Errorf("api-version = %q on %s", got, r.URL)
		}
		switch r.URL.Path {
		case "/tenant-123/users":
			writeJSON(w, http.StatusOK, models.Page[item]{
				Value:         []item{{Name: "alice"}},
				ODataNextLink: "directoryObjects/$/Microsoft.DirectoryServices.User?$skiptoken=X1",
			})
		case "/tenant-123/directoryObjects/$/Microsoft.DirectoryServices.User":
			if r.URL.Query().Get("$skiptoken") != "X1" {
				t.Errorf("missing skiptoken on %s", r.URL)
			}
			writeJSON(w, http.StatusOK, models.Page[item]{Value: []item{{Name: "bob"}}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/tenant-123", &fakeCredential{})
	all, err := NewPager(client, "/users", func(v item) string { return v.Name }).All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if fmt.Sprint(all) != "[alice bob]" {
		t.Errorf("All() = %v, want [alice bob]", all)
	}
}

func TestPager_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Page[item]{Value: []item{}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeCredential{})
	all, err := NewPager(client, "/items", func(v item) item { return v }).All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("All() = %v, want empty", all)
	}
}

func TestPager_ErrorStopsIteration(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
				Error: &models.ErrorBody{Code: "InternalError", Message: "try later"},
			})
			return
		}
		writeJSON(w, http.StatusOK, models.Page[item]{
			Value:    []item{{Name: "a"}},
			NextLink: server.URL + "/items?page=2",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeCredential{})
	pager := NewPager(client, "/items", func(v item) item { return v })

	first, err := pager.NextPage(context.Background())
	if err != nil || len(first) != 1 {
		t.Fatalf("first NextPage() = %v, %v", first, err)
	}

	_, err = pager.NextPage(context.Background())
	cloudErr, ok := AsCloudError(err)
	if !ok || cloudErr.Code != "InternalError" {
		t.Errorf("second NextPage() error = %v, want InternalError cloud error", err)
	}
}
