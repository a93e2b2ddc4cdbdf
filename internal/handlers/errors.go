package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/gw-escrow-market/internal/jwt"
	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/middlewares"
	"github.com/sbilibin2017/gw-escrow-market/internal/services"
)

// ErrorResponse is the body of every failed request.
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// default: invalid transition
	Error string `json:"error"`
}

// errorStatuses maps service errors to HTTP status codes. Only the matched sentinel's
// text reaches the client.
var errorStatuses = []struct {
	err    error
	status int
}{
	{services.ErrInvalidRequest, http.StatusBadRequest},
	{services.ErrNotAuthorized, http.StatusForbidden},
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrInvalidTransition, http.StatusConflict},
	{services.ErrOutOfStock, http.StatusConflict},
	{services.ErrInvalidCode, http.StatusUnprocessableEntity},
	{services.ErrPaymentFailed, http.StatusPaymentRequired},
	{services.ErrLockTimeout, http.StatusServiceUnavailable},
}

// classify returns the status code and client-facing message for err.
func classify(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

func statusFor(err error) int {
	status, _ := classify(err)
	return status
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorw("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeServiceError logs err and writes the mapped response. Internal details are not exposed.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		logger.Log.Errorw("request failed",
			"request_id", middlewares.RequestIDFromContext(r.Context()),
			"method", r.Method, "uri", r.RequestURI, "error", err)
	} else {
		logger.Log.Warnw("request rejected",
			"request_id", middlewares.RequestIDFromContext(r.Context()),
			"method", r.Method, "uri", r.RequestURI, "status", status, "error", err)
	}
	writeError(w, status, msg)
}

// caller returns the authenticated user, or writes 401.
func caller(w http.ResponseWriter, r *http.Request) (*jwt.Claims, bool) {
	claims, ok := middlewares.ClaimsFromContext(r.Context())
	if !ok {
		logger.Log.Errorw("claims missing from request context", "uri", r.RequestURI)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return claims, true
}

// transactionID returns the {id} path parameter, or writes 400.
func transactionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing transaction id")
		return "", false
	}
	return id, true
}

// decode reads a JSON body into v, or writes 400.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Log.Warnw("failed to decode request body", "uri", r.RequestURI, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
