package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testClient(url string) *apiClient {
	return &apiClient{
		baseURL:    url,
		httpClient: http.DefaultClient,
	}
}

func TestClientDecodesData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"status": "ok"}})
	}))
	defer srv.Close()

	var result struct {
		Data map[string]string `json:"data"`
	}
	if err := testClient(srv.URL).do(http.MethodGet, "/health", nil, &result); err != nil {
		t.Fatalf("do: %v", err)
	}
	if result.Data["status"] != "ok" {
		t.Errorf("data = %v", result.Data)
	}
}

func TestClientSendsCredentials(t *testing.T) {
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("X-Service-Key")
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.token = "tok123"
	c.serviceKey = "key456"
	if err := c.do(http.MethodPost, "/x", nil, nil); err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotKey != "key456" {
		t.Errorf("X-Service-Key = %q", gotKey)
	}
}

func TestClientSurfacesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "FORBIDDEN", "message": "admin role required"},
		})
	}))
	defer srv.Close()

	err := testClient(srv.URL).do(http.MethodGet, "/x", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "admin role required") || !strings.Contains(err.Error(), "FORBIDDEN") {
		t.Errorf("err = %v", err)
	}
}

func TestClientSurfacesFlatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "telemetry store not configured"})
	}))
	defer srv.Close()

	err := testClient(srv.URL).do(http.MethodPost, "/x", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "telemetry store not configured") {
		t.Errorf("err = %v", err)
	}
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := testClient(srv.URL).do(http.MethodGet, "/x", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("err = %v", err)
	}
}
