package routes

import (
	"net/http"

	"github.com/dukerupert/atelier/internal/handler/admin"
	"github.com/dukerupert/atelier/internal/handler/storefront"
	"github.com/dukerupert/atelier/internal/router"
)

// StorefrontDeps contains dependencies for storefront routes
type StorefrontDeps struct {
	CatalogHandler *storefront.CatalogHandler
	CartHandler    *storefront.CartHandler
	OrderHandler   *storefront.OrderHandler
	AddressHandler *storefront.AddressHandler

	// WriteLimit throttles cart and order writes. Optional.
	WriteLimit router.Middleware
}

// AdminDeps contains dependencies for admin routes
type AdminDeps struct {
	CatalogHandler *admin.CatalogHandler
	UploadHandler  *admin.UploadHandler
	SaleHandler    *admin.SaleHandler
	OrderHandler   *admin.OrderHandler
}

// OpsDeps contains dependencies for operational endpoints
type OpsDeps struct {
	Health  http.HandlerFunc
	Metrics http.Handler

	// UploadsDir serves locally stored images under UploadsURL when set.
	UploadsDir string
	UploadsURL string
}
