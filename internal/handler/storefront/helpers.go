package storefront

import (
	"net/http"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/middleware"
)

// requireIdentity returns the caller's identity, writing a 401 when the
// request is anonymous. Routes are wrapped in RequireAuth; this only guards
// against a handler mounted without it.
func requireIdentity(w http.ResponseWriter, r *http.Request) (*domain.Identity, bool) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		handler.UnauthorizedResponse(w, r)
		return nil, false
	}
	return identity, true
}
