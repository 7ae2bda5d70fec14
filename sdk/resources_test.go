package sdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type widget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestResourceCollection_Paths(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			if r.URL.Path == "/subscriptions/sub-123/providers/Microsoft.Test/widgets" ||
				r.URL.Path == "/subscriptions/sub-123/resourceGroups/rg/providers/Microsoft.Test/widgets" {
				writeJSON(w, http.StatusOK, map[string]any{"value": []widget{{ID: "w1", Name: "one"}}})
				return
			}
			writeJSON(w, http.StatusOK, widget{ID: r.URL.Path, Name: "one"})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	collection := ResourceCollection[widget, string]{
		Client:       newTestClient(t, server.URL, &fakeCredential{}),
		ResourceType: "Microsoft.Test/widgets",
		Wrap:         func(w widget) string { return w.Name },
	}

	ctx := context.Background()
	id := "/subscriptions/sub-123/resourceGroups/rg/providers/Microsoft.Test/widgets/one"

	if name, err := collection.GetByResourceGroup(ctx, "rg", "one"); err != nil || name != "one" {
		t.Fatalf("GetByResourceGroup() = %q, %v", name, err)
	}
	if _, err := collection.GetByID(ctx, id); err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if all, err := collection.List(ctx); err != nil || len(all) != 1 {
		t.Fatalf("List() = %v, %v", all, err)
	}
	if all, err := collection.ListByResourceGroup(ctx, "rg"); err != nil || len(all) != 1 {
		t.Fatalf("ListByResourceGroup() = %v, %v", all, err)
	}
	if err := collection.DeleteByID(ctx, id); err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}

	want := []string{
		"GET " + id,
		"GET " + id,
		"GET /subscriptions/sub-123/providers/Microsoft.Test/widgets",
		"GET /subscriptions/sub-123/resourceGroups/rg/providers/Microsoft.Test/widgets",
		"DELETE " + id,
	}
	if len(got) != len(want) {
		t.Fatalf("requests = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResourceCollection_RejectsMalformedID(t *testing.T) {
	collection := ResourceCollection[widget, string]{
		Client:       newTestClient(t, "http://127.0.0.1:1", &fakeCredential{}),
		ResourceType: "Microsoft.Test/widgets",
		Wrap:         func(w widget) string { return w.Name },
	}

	_, err := collection.GetByID(context.Background(), "not-a-resource-id")
	if !errors.Is(err, ErrInvalidResourceID) {
		t.Errorf("GetByID() error = %v, want ErrInvalidResourceID", err)
	}
	if err := collection.DeleteByID(context.Background(), "also/bad"); !errors.Is(err, ErrInvalidResourceID) {
		t.Errorf("DeleteByID() error = %v, want ErrInvalidResourceID", err)
	}
}

func TestParseResourceID(t *testing.T) {
	rid, err := ParseResourceID("/subscriptions/sub-123/resourceGroups/rg1/providers/Microsoft.Compute/snapshots/snap1")
	if err != nil {
		t.Fatalf("ParseResourceID() error = %v", err)
	}
	if rid.SubscriptionID != "sub-123" || rid.ResourceGroupName != "rg1" || rid.Name != "snap1" {
		t.Errorf("ParseResourceID() = %+v", rid)
	}
}
