package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"logwal/pkg/metrics"
	"logwal/pkg/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, storage.Engine) {
	t.Helper()
	engine := storage.NewMemory()
	s := NewServer(engine, "0")
	s.SetMetrics(metrics.NewPrometheus())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = engine.Close()
	})
	return ts, engine
}

func do(t *testing.T, method, url string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}

func TestMapAPI(t *testing.T) {
	ts, engine := newTestServer(t)
	value := []byte("7:5:hello")

	t.Run("PUT operation", func(t *testing.T) {
		resp := do(t, http.MethodPut, ts.URL+"/api/map/3", value)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		var result Response
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if result.Status != StatusApplied || result.Key == nil || *result.Key != 3 {
			t.Fatalf("Expected applied status for key 3, got %+v", result)
		}
		got, found, _ := engine.Get(3)
		if !found || !bytes.Equal(got, value) {
			t.Fatalf("engine holds %q (found=%v)", got, found)
		}
	})

	t.Run("GET operation", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.URL+"/api/map/3", nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != contentTypeBinary {
			t.Fatalf("Expected binary content type, got %q", ct)
		}
		body, _ := io.ReadAll(resp.Body)
		if !bytes.Equal(body, value) {
			t.Fatalf("Expected %q, got %q", value, body)
		}
	})

	t.Run("HEAD operation", func(t *testing.T) {
		resp := do(t, http.MethodHead, ts.URL+"/api/map/3", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		resp = do(t, http.MethodHead, ts.URL+"/api/map/4", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("Expected status 404, got %d", resp.StatusCode)
		}
	})

	t.Run("LEN operation", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.URL+"/api/len", nil)
		defer resp.Body.Close()
		var result Response
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if result.Len == nil || *result.Len != 1 {
			t.Fatalf("Expected len 1, got %+v", result)
		}
	})

	t.Run("DELETE operation", func(t *testing.T) {
		resp := do(t, http.MethodDelete, ts.URL+"/api/map/3", nil)
		var result Response
		err := json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || err != nil {
			t.Fatalf("Expected status 200, got %d err=%v", resp.StatusCode, err)
		}
		if result.Status != StatusApplied || result.Key == nil || *result.Key != 3 {
			t.Fatalf("Expected applied status for key 3, got %+v", result)
		}
		resp = do(t, http.MethodGet, ts.URL+"/api/map/3", nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("Expected status 404 after delete, got %d", resp.StatusCode)
		}
	})

	t.Run("negative and empty values", func(t *testing.T) {
		resp := do(t, http.MethodPut, ts.URL+"/api/map/-9", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		resp = do(t, http.MethodGet, ts.URL+"/api/map/-9", nil)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK || len(body) != 0 {
			t.Fatalf("Expected empty value, got %d %q", resp.StatusCode, body)
		}
	})
}

func TestInvalidKey(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, method := range []string{http.MethodPut, http.MethodGet, http.MethodDelete, http.MethodHead} {
		resp := do(t, method, ts.URL+"/api/map/abc", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected status 400, got %d", method, resp.StatusCode)
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/health", nil)
	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	resp.Body.Close()
	if result.Status != StatusHealthy {
		t.Fatalf("Expected OK status, got %q", result.Status)
	}

	resp = do(t, http.MethodGet, ts.URL+"/metrics", nil)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `logwal_http_requests_total{code="200",method="GET",route="/health"} 1`) {
		t.Fatalf("metrics output missing health counter:\n%s", body)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	ts, engine := newTestServer(t)
	for k, v := range map[int64]string{0: "0:1:a", 1: "0:1:b", 2: "1:0:"} {
		if err := engine.Insert(k, []byte(v)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	resp := do(t, http.MethodGet, ts.URL+"/api/snapshot", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Snapshot-Entries"); got != "3" {
		t.Fatalf("Expected 3 entries, got %q", got)
	}

	entries, err := storage.ReadSnapshot(resp.Body)
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if len(entries) != 3 || entries[0].Key != 0 || string(entries[2].Value) != "1:0:" {
		t.Fatalf("unexpected snapshot entries: %+v", entries)
	}
}

func TestServerStartStop(t *testing.T) {
	s := NewServer(storage.NewMemory(), "0")
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestEngineErrorResponse(t *testing.T) {
	ts, engine := newTestServer(t)
	_ = engine.Close()

	resp := do(t, http.MethodPut, ts.URL+"/api/map/1", []byte("v"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", resp.StatusCode)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.Status != StatusFailed || result.Error == "" || result.Key != nil {
		t.Fatalf("Expected error reply, got %+v", result)
	}
}
