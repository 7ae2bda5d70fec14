package sdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type provisioned struct {
	ID         string `json:"id"`
	Properties struct {
		ProvisioningState string `json:"provisioningState"`
	} `json:"properties"`
}

func TestBeginAndWait_TerminalInitialResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("unexpected %s", r.Method)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         "/things/1",
			"properties": map[string]string{"provisioningState": "Succeeded"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeCredential{})
	got, err := BeginAndWait[provisioned](context.Background(), client, http.MethodPut, "/things/1", map[string]string{"a": "b"})
	if err != nil {
		t.Fatalf("BeginAndWait() error = %v", err)
	}
	if got.ID != "/things/1" || got.Properties.ProvisioningState != "Succeeded" {
		t.Errorf("BeginAndWait() = %+v", got)
	}
}

func TestBeginAndWait_AsyncOperationHeader(t *testing.T) {
	var server *httptest.Server
	var statusPolls atomic.Int32

	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/things/2":
			w.Header().Set("Azure-AsyncOperation", server.URL+"/operations/op1")
			writeJSON(w, http.StatusCreated, map[string]any{
				"id":         "/things/2",
				"properties": map[string]string{"provisioningState": "Creating"},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/operations/op1":
			statusPolls.Add(1)
			writeJSON(w, http.StatusOK, map[string]string{"status": "Succeeded"})
		case r.Method == http.MethodGet && r.URL.Path == "/things/2":
			writeJSON(w, http.StatusOK, map[string]any{
				"id":         "/things/2",
				"properties": map[string]string{"provisioningState": "Succeeded"},
			})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeCredential{})
	got, err := BeginAndWait[provisioned](context.Background(), client, http.MethodPut, "/things/2", map[string]string{})
	if err != nil {
		t.Fatalf("BeginAndWait() error = %v", err)
	}
	if got.Properties.ProvisioningState != "Succeeded" {
		t.Errorf("final state = %q, want Succeeded", got.Properties.ProvisioningState)
	}
	if statusPolls.Load() == 0 {
		t.Error("operation status was never polled")
	}
}

func TestBeginAndWait_FailedOperation(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/things/3":
			w.Header().Set("Azure-AsyncOperation", server.URL+"/operations/op3")
			writeJSON(w, http.StatusAccepted, map[string]any{})
		case "/operations/op3":
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "Failed",
				"error":  map[string]string{"code": "QuotaExceeded", "message": "no cores left"},
			})
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeCredential{})
	_, err := BeginAndWait[provisioned](context.Background(), client, http.MethodPut, "/things/3", map[string]string{})
	if err == nil {
		t.Fatal("BeginAndWait() expected error")
	}
	cloudErr, ok := AsCloudError(err)
	if !ok {
		t.Fatalf("error = %v, want *CloudError", err)
	}
	if cloudErr.Code != "QuotaExceeded" {
		t.Errorf("Code = %q, want QuotaExceeded", cloudErr.Code)
	}
}

func TestBeginAndWait_RejectedInitialRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{"code": "InvalidParameter", "message": "bad size"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeCredential{})
	_, err := BeginAndWait[provisioned](context.Background(), client, http.MethodPut, "/things/4", map[string]string{})
	cloudErr, ok := AsCloudError(err)
	if !ok || cloudErr.Code != "InvalidParameter" || cloudErr.Message != "bad size" {
		t.Errorf("BeginAndWait() error = %v", err)
	}
}

func TestBeginAndWait_DeleteNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeCredential{})
	if _, err := BeginAndWait[struct{}](context.Background(), client, http.MethodDelete, "/things/5", nil); err != nil {
		t.Fatalf("BeginAndWait() error = %v", err)
	}
}
