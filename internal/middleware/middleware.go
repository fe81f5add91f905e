package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/atelier/internal/domain"
)

var codeStatus = map[string]int{
	domain.EINVALID:      http.StatusBadRequest,
	domain.EUNAUTHORIZED: http.StatusUnauthorized,
	domain.EFORBIDDEN:    http.StatusForbidden,
	domain.ENOTFOUND:     http.StatusNotFound,
	domain.ECONFLICT:     http.StatusConflict,
	domain.ETOOLARGE:     http.StatusRequestEntityTooLarge,
	domain.ERATELIMIT:    http.StatusTooManyRequests,
	domain.ENOTIMPL:      http.StatusNotImplemented,
	domain.EEXTERNAL:     http.StatusBadGateway,
	domain.ETIMEOUT:      http.StatusServiceUnavailable,
}

// StatusForCode maps an application error code to its HTTP status. Unknown
// codes, including EINTERNAL, are 500.
func StatusForCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondWithError writes the same {"error":{code,message}} envelope as the
// handler package, which imports this one and so cannot be used here.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := StatusForCode(code)

	level := "rejected"
	log := GetLogger(r.Context()).Info
	if status >= http.StatusInternalServerError {
		level = "failed"
		log = GetLogger(r.Context()).Error
	}
	log("request "+level+" by middleware", "code", code, "status", status, "error", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": code, "message": domain.ErrorMessage(err)},
	})
}

func respondUnauthorized(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, domain.Unauthorized("", "Authentication required"))
}

func respondForbidden(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, domain.Forbidden("", "Admin role required"))
}

func respondTooManyRequests(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, domain.Errorf(domain.ERATELIMIT, "", "Too many requests"))
}

func respondTooLarge(w http.ResponseWriter, r *http.Request, message string) {
	respondWithError(w, r, domain.Errorf(domain.ETOOLARGE, "", "%s", message))
}
