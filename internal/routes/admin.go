package routes

import (
	"github.com/dukerupert/atelier/internal/middleware"
	"github.com/dukerupert/atelier/internal/router"
)

// RegisterAdminRoutes registers all admin routes.
// All routes are protected by admin authentication middleware.
func RegisterAdminRoutes(r *router.Router, deps AdminDeps) {
	admin := r.Group(middleware.RequireAdmin)
	writes := admin.Group(middleware.MaxBodySize(middleware.SmallMaxBodySize))

	// Categories
	admin.Get("/admin/categories", deps.CatalogHandler.ListCategories)
	writes.Post("/admin/categories", deps.CatalogHandler.CreateCategory)
	writes.Patch("/admin/categories/{id}", deps.CatalogHandler.UpdateCategory)
	admin.Delete("/admin/categories/{id}", deps.CatalogHandler.DeleteCategory)

	// Colors
	admin.Get("/admin/colors", deps.CatalogHandler.ListColors)
	writes.Post("/admin/colors", deps.CatalogHandler.CreateColor)
	writes.Patch("/admin/colors/{id}", deps.CatalogHandler.UpdateColor)
	admin.Delete("/admin/colors/{id}", deps.CatalogHandler.DeleteColor)

	// Products
	admin.Get("/admin/products", deps.CatalogHandler.ListProducts)
	writes.Post("/admin/products", deps.CatalogHandler.CreateProduct)
	admin.Get("/admin/products/{id}", deps.CatalogHandler.GetProduct)
	writes.Patch("/admin/products/{id}", deps.CatalogHandler.UpdateProduct)
	admin.Delete("/admin/products/{id}", deps.CatalogHandler.DeleteProduct)

	// Image uploads
	admin.Post("/admin/uploads", deps.UploadHandler.Upload, middleware.MaxBodySize(middleware.UploadMaxBodySize))

	// Sales
	admin.Get("/admin/sales", deps.SaleHandler.List)
	writes.Post("/admin/sales", deps.SaleHandler.Create)
	admin.Get("/admin/sales/{id}", deps.SaleHandler.Get)
	writes.Patch("/admin/sales/{id}", deps.SaleHandler.Update)
	admin.Delete("/admin/sales/{id}", deps.SaleHandler.Delete)

	// Orders
	admin.Get("/admin/orders", deps.OrderHandler.List)
	writes.Patch("/admin/orders/{id}/status", deps.OrderHandler.UpdateStatus)
}
