package routes

import (
	"github.com/dukerupert/atelier/internal/middleware"
	"github.com/dukerupert/atelier/internal/router"
)

// RegisterStorefrontRoutes registers all customer-facing routes.
// Catalog reads are public; cart, orders and addresses need a signed-in
// customer.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	// Catalog browsing
	r.Get("/products", deps.CatalogHandler.ListProducts)
	r.Get("/products/{id}", deps.CatalogHandler.GetProduct)
	r.Get("/categories", deps.CatalogHandler.ListCategories)
	r.Get("/colors", deps.CatalogHandler.ListColors)

	account := r.Group(middleware.RequireAuth)

	writes := account.Group(middleware.MaxBodySize(middleware.SmallMaxBodySize))
	if deps.WriteLimit != nil {
		writes = writes.Group(deps.WriteLimit)
	}

	// Shopping cart
	account.Get("/cart", deps.CartHandler.View)
	writes.Post("/cart", deps.CartHandler.Add)
	writes.Patch("/cart/items/{id}", deps.CartHandler.SetQuantity)
	writes.Delete("/cart/items/{id}", deps.CartHandler.Remove)
	writes.Delete("/cart/clear", deps.CartHandler.Clear)

	// Orders
	account.Get("/orders", deps.OrderHandler.List)
	account.Get("/orders/{id}", deps.OrderHandler.Get)
	writes.Post("/orders", deps.OrderHandler.Create)

	// Shipping addresses
	account.Get("/addresses", deps.AddressHandler.List)
	writes.Post("/addresses", deps.AddressHandler.Create)
}
