package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	accesshttp "gatekeeper/contexts/identity-access/access-control/transport/http"
)

func doJSON(t *testing.T, server *Server, method string, path string, body []byte, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer token")
		req.Header.Set("X-Request-Id", "req-1")
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestCheckAllowsSeededDefaultChannel(t *testing.T) {
	server := newTestServer()
	rr := doJSON(t, server, http.MethodPost, "/api/access/v1/check",
		[]byte(`{"session_id":"session-1","action":"send_message"}`), false)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp accesshttp.CheckAccessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if !resp.Allowed || resp.Channel != "default" {
		t.Fatalf("expected seeded allow on default channel, got %+v", resp)
	}
}

func TestCheckResolvesSessionFromHeader(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/access/v1/check",
		bytes.NewReader([]byte(`{"action":"send_message"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-Id", "session-7")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp accesshttp.CheckAccessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp.SessionID != "session-7" {
		t.Fatalf("expected session from header, got %+v", resp)
	}
}

func TestCheckWithoutSessionIsBadRequest(t *testing.T) {
	server := newTestServer()
	rr := doJSON(t, server, http.MethodPost, "/api/access/v1/check",
		[]byte(`{"action":"send_message"}`), false)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestPermissionLifecycleOverHTTP(t *testing.T) {
	server := newTestServer()

	rr := doJSON(t, server, http.MethodPut, "/api/access/v1/groups/moderators",
		[]byte(`{"members":["session-mod"]}`), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("replace group: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/access/v1/permissions",
		[]byte(`{"channel":"default","action":"delete_message","allow":["moderators"]}`), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("add permission: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/access/v1/check",
		[]byte(`{"session_id":"session-mod","action":"delete_message"}`), false)
	var member accesshttp.CheckAccessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &member); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if !member.Allowed {
		t.Fatalf("expected group member allowed, got %+v", member)
	}

	rr = doJSON(t, server, http.MethodPost, "/api/access/v1/check",
		[]byte(`{"session_id":"session-guest","action":"delete_message"}`), false)
	var outsider accesshttp.CheckAccessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &outsider); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if outsider.Allowed {
		t.Fatalf("expected outsider denied, got %+v", outsider)
	}
}

func TestExceptionShortCircuitsOverHTTP(t *testing.T) {
	server := newTestServer()

	rr := doJSON(t, server, http.MethodPost, "/api/access/v1/exceptions",
		[]byte(`{"action":"status_update"}`), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("add exception: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/access/v1/check",
		[]byte(`{"session_id":"session-1","action":"status_update","channel":"telegram"}`), false)
	var resp accesshttp.CheckAccessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if !resp.Allowed || !resp.Exempt {
		t.Fatalf("expected exempt bypass on any channel, got %+v", resp)
	}
}

func TestReadyzReflectsPolicyIntegrity(t *testing.T) {
	server := newTestServer()

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected ready seed state, got %d body=%s", rr.Code, rr.Body.String())
	}

	mutate := doJSON(t, server, http.MethodPost, "/api/access/v1/permissions",
		[]byte(`{"channel":"carrier-pigeon","action":"any","allow":["all"]}`), true)
	if mutate.Code != http.StatusOK {
		t.Fatalf("add permission: expected 200, got %d body=%s", mutate.Code, mutate.Body.String())
	}

	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after unrecognized channel entry, got %d", rr.Code)
	}
}

func TestHealthzAlwaysOK(t *testing.T) {
	server := newTestServer()
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}
