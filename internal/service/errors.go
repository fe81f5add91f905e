package service

import (
	"github.com/dukerupert/atelier/internal/domain"
)

// Catalog errors - use domain.ENOTFOUND
var (
	ErrProductNotFound  = domain.Errorf(domain.ENOTFOUND, "", "Product not found")
	ErrSaleNotFound     = domain.Errorf(domain.ENOTFOUND, "", "Sale not found")
	ErrCategoryNotFound = domain.Errorf(domain.ENOTFOUND, "", "Category not found")
	ErrColorNotFound    = domain.Errorf(domain.ENOTFOUND, "", "Color not found")
	ErrVariantNotFound  = domain.Errorf(domain.ENOTFOUND, "", "Variant not found")
	ErrCartItemNotFound = domain.ErrCartItemNotFound
	ErrOrderNotFound    = domain.ErrOrderNotFound
)

// Validation errors - use domain.EINVALID
var (
	ErrInvalidQuantity  = domain.ErrInvalidQuantity
	ErrProductNotActive = domain.ErrProductNotActive
)

// Pricing and lifecycle errors
var (
	ErrSaleCollision        = domain.Errorf(domain.ECONFLICT, "", "Product is already on another sale")
	ErrSaleEnded            = domain.Errorf(domain.ECONFLICT, "", "Sale has already ended")
	ErrProductOnActiveSale  = domain.Errorf(domain.ECONFLICT, "", "Product is on an active sale")
	ErrTooManyConflicts     = domain.Errorf(domain.ECONFLICT, "", "Document kept changing, try again")
	ErrInvalidStatusChange  = domain.ErrInvalidStatusChange
	ErrInvalidPaymentMethod = domain.ErrInvalidPaymentMethod
)

// Access errors. Messages never name the resource or its owner.
var (
	ErrForbidden = domain.Forbidden("", "forbidden")
)

// notFound re-tags a repository ENOTFOUND as the service's sentinel and
// passes any other error through.
func notFound(err error, sentinel error) error {
	if domain.IsCode(err, domain.ENOTFOUND) {
		return sentinel
	}
	return err
}

// OrderValidationError reports why an order could not be placed. No order is
// created when it is returned.
func OrderValidationError(field, message string) error {
	return domain.NewValidationError("order.create", field, message)
}
