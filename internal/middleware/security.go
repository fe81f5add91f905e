package middleware

import (
	"net/http"
	"strconv"
)

// SecurityHeadersConfig configures the headers SecurityHeaders sets. Empty
// string fields are omitted.
type SecurityHeadersConfig struct {
	ContentSecurityPolicy string
	FrameOptions          string
	ReferrerPolicy        string
	PermissionsPolicy     string

	// HSTSMaxAge in seconds. 0 disables Strict-Transport-Security, which is
	// what local development over plain HTTP wants.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	// NoStoreAuthenticated marks responses to requests carrying an identity
	// as uncacheable. Carts, orders and addresses are per user.
	NoStoreAuthenticated bool
}

// DefaultSecurityHeadersConfig returns headers suited to a JSON API that
// never serves markup.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		FrameOptions:          "DENY",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "camera=(), microphone=(), geolocation=()",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		NoStoreAuthenticated:  true,
	}
}

// SecurityHeaders sets the configured headers on every response. It must run
// after Authenticate for NoStoreAuthenticated to see the identity.
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	static := [][2]string{{"X-Content-Type-Options", "nosniff"}}
	add := func(name, value string) {
		if value != "" {
			static = append(static, [2]string{name, value})
		}
	}
	add("Content-Security-Policy", config.ContentSecurityPolicy)
	add("X-Frame-Options", config.FrameOptions)
	add("Referrer-Policy", config.ReferrerPolicy)
	add("Permissions-Policy", config.PermissionsPolicy)
	if config.HSTSMaxAge > 0 {
		hsts := "max-age=" + strconv.Itoa(config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		add("Strict-Transport-Security", hsts)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range static {
				h.Set(kv[0], kv[1])
			}
			if config.NoStoreAuthenticated && GetIdentity(r.Context()) != nil {
				h.Set("Cache-Control", "no-store")
			}
			next.ServeHTTP(w, r)
		})
	}
}
