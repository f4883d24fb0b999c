package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	accesserrors "gatekeeper/contexts/identity-access/access-control/domain/errors"
	accesshttp "gatekeeper/contexts/identity-access/access-control/transport/http"
)

func writeAccessError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, accesshttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeAccessDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accesserrors.ErrInvalidSessionID),
		errors.Is(err, accesserrors.ErrInvalidAction),
		errors.Is(err, accesserrors.ErrInvalidChannel),
		errors.Is(err, accesserrors.ErrInvalidGroupName):
		writeAccessError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeAccessError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireAccessAuthorization(w http.ResponseWriter, r *http.Request) bool {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		writeAccessError(w, http.StatusUnauthorized, "unauthorized", "Authorization bearer token is required")
		return false
	}
	return true
}

func requireAccessRequestID(w http.ResponseWriter, r *http.Request) bool {
	if strings.TrimSpace(r.Header.Get("X-Request-Id")) == "" {
		writeAccessError(w, http.StatusBadRequest, "missing_request_id", "X-Request-Id header is required")
		return false
	}
	return true
}

func resolveAccessSessionID(bodySessionID string, r *http.Request) string {
	if strings.TrimSpace(bodySessionID) != "" {
		return bodySessionID
	}
	return strings.TrimSpace(r.Header.Get("X-Session-Id"))
}

func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	var req accesshttp.CheckAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAccessError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	sessionID := resolveAccessSessionID(req.SessionID, r)
	resp, err := s.access.Handler.CheckAccessHandler(r.Context(), sessionID, req)
	if err != nil {
		writeAccessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccessCheckBatch(w http.ResponseWriter, r *http.Request) {
	var req accesshttp.CheckAccessBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAccessError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	sessionID := resolveAccessSessionID(req.SessionID, r)
	resp, err := s.access.Handler.CheckBatchHandler(r.Context(), sessionID, req)
	if err != nil {
		writeAccessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccessGetPolicy(w http.ResponseWriter, r *http.Request) {
	if !requireAccessAuthorization(w, r) {
		return
	}
	resp, err := s.access.Handler.GetPolicyHandler(r.Context())
	if err != nil {
		writeAccessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccessAddPermission(w http.ResponseWriter, r *http.Request) {
	if !requireAccessAuthorization(w, r) || !requireAccessRequestID(w, r) {
		return
	}
	var req accesshttp.AddPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAccessError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.access.Handler.AddPermissionHandler(r.Context(), req)
	if err != nil {
		writeAccessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccessReplaceGroup(w http.ResponseWriter, r *http.Request) {
	if !requireAccessAuthorization(w, r) || !requireAccessRequestID(w, r) {
		return
	}
	var req accesshttp.ReplaceGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAccessError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.access.Handler.ReplaceGroupHandler(r.Context(), r.PathValue("group_name"), req)
	if err != nil {
		writeAccessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccessAddException(w http.ResponseWriter, r *http.Request) {
	if !requireAccessAuthorization(w, r) || !requireAccessRequestID(w, r) {
		return
	}
	var req accesshttp.AddExceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAccessError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.access.Handler.AddExceptionHandler(r.Context(), req)
	if err != nil {
		writeAccessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccessSetEnforcement(w http.ResponseWriter, r *http.Request) {
	if !requireAccessAuthorization(w, r) || !requireAccessRequestID(w, r) {
		return
	}
	var req accesshttp.EnforcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAccessError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.access.Handler.SetEnforcementHandler(r.Context(), req)
	if err != nil {
		writeAccessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
