package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/atelier/internal/clock"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/telemetry"
)

// AssetStore removes stored images. Deleting a URL that no longer exists
// succeeds.
type AssetStore interface {
	Delete(ctx context.Context, url string) error
}

// CatalogService manages categories, colors and products, including the
// cascades their deletion implies.
type CatalogService interface {
	// Categories
	ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	CreateCategory(ctx context.Context, params CreateCategoryParams) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id string, params UpdateCategoryParams) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	// Colors
	ListColors(ctx context.Context) ([]domain.Color, error)
	GetColor(ctx context.Context, id string) (*domain.Color, error)
	CreateColor(ctx context.Context, params CreateColorParams) (*domain.Color, error)
	UpdateColor(ctx context.Context, id string, params UpdateColorParams) (*domain.Color, error)
	DeleteColor(ctx context.Context, id string) error

	// Products
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, params CreateProductParams) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, params UpdateProductParams) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// =============================================================================
// PARAMETER TYPES
// =============================================================================

// CreateCategoryParams contains parameters for creating a category.
type CreateCategoryParams struct {
	Name   string
	Slug   string
	Active bool
}

// UpdateCategoryParams contains parameters for updating a category.
// Pointer fields indicate optional updates (nil = no change).
type UpdateCategoryParams struct {
	Name   *string
	Slug   *string
	Active *bool
}

// CreateColorParams contains parameters for creating a color.
type CreateColorParams struct {
	Name  string
	Value string
}

// UpdateColorParams contains parameters for updating a color.
type UpdateColorParams struct {
	Name  *string
	Value *string
}

// CreateProductParams contains parameters for creating a product.
type CreateProductParams struct {
	Name            string
	Description     string
	CategoryID      string
	Price           int64
	DiscountPercent float64
	Variants        []domain.Variant
	Status          domain.ProductStatus
}

// UpdateProductParams contains parameters for updating a product.
// Pointer fields indicate optional updates (nil = no change).
type UpdateProductParams struct {
	Name            *string
	Description     *string
	CategoryID      *string
	Price           *int64
	DiscountPercent *float64
	Variants        *[]domain.Variant
	Status          *domain.ProductStatus
}

// maxCascadeRounds bounds how often a color cascade re-scans for products
// that picked up the color, or images, while it was running.
const maxCascadeRounds = 5

// errVariantImagesAdded stops a variant removal whose images grew since they
// were deleted from the asset store.
var errVariantImagesAdded = errors.New("variant images changed during cascade")

type catalogService struct {
	// refs serializes product writes against the deletion of the categories
	// and colors they reference. Keys come from categoryRef and colorRef.
	refs *keyedMutex

	categories domain.CategoryRepository
	colors     domain.ColorRepository
	products   domain.ProductRepository
	pricing    PricingService
	assets     AssetStore
	clock      clock.Clock
	metrics    *telemetry.BusinessMetrics
	logger     *slog.Logger
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(store domain.Store, pricing PricingService, assets AssetStore, clk clock.Clock, metrics *telemetry.BusinessMetrics, logger *slog.Logger) CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &catalogService{
		refs:       newKeyedMutex(),
		categories: store.Categories,
		colors:     store.Colors,
		products:   store.Products,
		pricing:    pricing,
		assets:     assets,
		clock:      clk,
		metrics:    metrics,
		logger:     logger,
	}
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (s *catalogService) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	all, err := s.categories.List(ctx)
	if err != nil {
		return nil, domain.Internal(err, "category.list", "failed to list categories")
	}
	if !activeOnly {
		return all, nil
	}
	out := make([]domain.Category, 0, len(all))
	for _, c := range all {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *catalogService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := s.categories.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}
	return c, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, params CreateCategoryParams) (*domain.Category, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, domain.NewValidationError("category.create", "name", "is required")
	}
	slug := params.Slug
	if slug == "" {
		slug = domain.Slugify(name)
	}

	now := s.clock.Now()
	c := &domain.Category{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      slug,
		Active:    params.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.categories.Create(ctx, c); err != nil {
		if domain.IsCode(err, domain.ECONFLICT) {
			return nil, err
		}
		return nil, domain.Internal(err, "category.create", "failed to create category")
	}
	s.logger.Info("category created", "category_id", c.ID, "slug", c.Slug)
	return c, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id string, params UpdateCategoryParams) (*domain.Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, domain.NewValidationError("category.update", "name", "is required")
		}
		c.Name = name
	}
	if params.Slug != nil {
		c.Slug = *params.Slug
	}
	if params.Active != nil {
		c.Active = *params.Active
	}
	c.UpdatedAt = s.clock.Now()
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}
	return c, nil
}

// DeleteCategory refuses while any product still references the category.
func (s *catalogService) DeleteCategory(ctx context.Context, id string) error {
	const op = "category.delete"

	unlock := s.refs.Lock(categoryRef(id))
	defer unlock()

	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	refs, err := s.products.ListByCategory(ctx, id)
	if err != nil {
		return domain.Internal(err, op, "failed to look up category products")
	}
	if len(refs) > 0 {
		return domain.Errorf(domain.ECONFLICT, op, "category is used by %d product(s)", len(refs))
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return notFound(err, ErrCategoryNotFound)
	}
	s.logger.Info("category deleted", "category_id", id)
	return nil
}

// =============================================================================
// COLORS
// =============================================================================

func (s *catalogService) ListColors(ctx context.Context) ([]domain.Color, error) {
	colors, err := s.colors.List(ctx)
	if err != nil {
		return nil, domain.Internal(err, "color.list", "failed to list colors")
	}
	return colors, nil
}

func (s *catalogService) GetColor(ctx context.Context, id string) (*domain.Color, error) {
	c, err := s.colors.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrColorNotFound)
	}
	return c, nil
}

func (s *catalogService) CreateColor(ctx context.Context, params CreateColorParams) (*domain.Color, error) {
	var verr error
	name := strings.TrimSpace(params.Name)
	if name == "" {
		verr = domain.AddFieldError(verr, "name", "is required")
	}
	if strings.TrimSpace(params.Value) == "" {
		verr = domain.AddFieldError(verr, "value", "is required")
	}
	if verr != nil {
		verr.(*domain.ValidationError).Op = "color.create"
		return nil, verr
	}

	now := s.clock.Now()
	c := &domain.Color{
		ID:        uuid.NewString(),
		Name:      name,
		Value:     strings.TrimSpace(params.Value),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.colors.Create(ctx, c); err != nil {
		return nil, domain.Internal(err, "color.create", "failed to create color")
	}
	return c, nil
}

func (s *catalogService) UpdateColor(ctx context.Context, id string, params UpdateColorParams) (*domain.Color, error) {
	c, err := s.GetColor(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.Name != nil {
		c.Name = strings.TrimSpace(*params.Name)
	}
	if params.Value != nil {
		c.Value = strings.TrimSpace(*params.Value)
	}
	if c.Name == "" || c.Value == "" {
		return nil, domain.Invalid("color.update", "name and value are required")
	}
	c.UpdatedAt = s.clock.Now()
	if err := s.colors.Update(ctx, c); err != nil {
		return nil, notFound(err, ErrColorNotFound)
	}
	return c, nil
}

// DeleteColor removes the color's images from the asset store, then the
// variants that use it, then the color itself. Images are deleted one at a
// time; the first failure aborts, leaving the failing product and the color
// untouched so a retry picks up where this call stopped.
//
// Products that gain the color while the cascade runs are swept in a further
// round. The color row is only deleted once a lookup made under its ref lock
// comes back empty.
func (s *catalogService) DeleteColor(ctx context.Context, id string) error {
	const op = "color.delete"

	if _, err := s.GetColor(ctx, id); err != nil {
		return err
	}

	swept := 0
	for round := 0; round < maxCascadeRounds; round++ {
		unlock := s.refs.Lock(colorRef(id))
		refs, err := s.products.ListByColor(ctx, id)
		if err != nil {
			unlock()
			return domain.Internal(err, op, "failed to look up color products")
		}
		if len(refs) == 0 {
			err := s.colors.Delete(ctx, id)
			unlock()
			if err != nil {
				return notFound(err, ErrColorNotFound)
			}
			s.logger.Info("color deleted", "color_id", id, "products", swept, "rounds", round+1)
			return nil
		}
		unlock()

		for _, p := range refs {
			if err := s.removeColor(ctx, op, id, p); err != nil {
				s.logger.Error("color cascade aborted", "color_id", id, "product_id", p.ID, "error", err)
				return err
			}
			swept++
		}
	}
	return domain.Errorf(domain.ECONFLICT, op, "color is still being assigned to products, try again")
}

// removeColor deletes the images of p's variants in colorID and then drops
// those variants. Images added to the variants after the asset deletes are
// deleted in turn before the variants go.
func (s *catalogService) removeColor(ctx context.Context, op, colorID string, p domain.Product) error {
	var pending []string
	if v := p.Variant(colorID); v != nil {
		pending = v.Images
	}
	deleted := make(map[string]bool)

	for attempt := 0; attempt < maxCascadeRounds; attempt++ {
		if err := s.deleteImages(ctx, op, "color", pending); err != nil {
			return err
		}
		for _, url := range pending {
			deleted[url] = true
		}

		_, err := s.pricing.Update(ctx, p.ID, func(p *domain.Product) error {
			pending = nil
			kept := make([]domain.Variant, 0, len(p.Variants))
			for _, v := range p.Variants {
				if v.ColorID != colorID {
					kept = append(kept, v)
					continue
				}
				for _, url := range v.Images {
					if !deleted[url] {
						pending = append(pending, url)
					}
				}
			}
			if len(pending) > 0 {
				return errVariantImagesAdded
			}
			p.Variants = kept
			return nil
		})
		switch {
		case errors.Is(err, errVariantImagesAdded):
			s.logger.Info("variant gained images during color cascade", "color_id", colorID, "product_id", p.ID, "images", len(pending))
			continue
		case errors.Is(err, ErrProductNotFound):
			return nil
		case err != nil:
			return err
		}
		s.logger.Info("color removed from product", "color_id", colorID, "product_id", p.ID, "images", len(deleted))
		return nil
	}
	return domain.Errorf(domain.ECONFLICT, op, "images of product %s kept changing, try again", p.ID)
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (s *catalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, "product.list", "failed to list products")
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	return p, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, params CreateProductParams) (*domain.Product, error) {
	const op = "product.create"

	status := params.Status
	if status == "" {
		status = domain.ProductStatusDraft
	}
	now := s.clock.Now()
	p := domain.Product{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(params.Name),
		Description:     params.Description,
		CategoryID:      params.CategoryID,
		Price:           params.Price,
		DiscountPercent: params.DiscountPercent,
		Variants:        params.Variants,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	unlock := s.lockRefs(p.CategoryID, p.Variants)
	defer unlock()

	if err := s.validateProduct(ctx, op, &p); err != nil {
		return nil, err
	}

	p = Recompute(p, nil, "")
	if err := s.products.Create(ctx, &p); err != nil {
		return nil, domain.Internal(err, op, "failed to create product")
	}
	s.logger.Info("product created", "product_id", p.ID, "name", p.Name, "price", p.Price, "discounted_price", p.DiscountedPrice)
	return &p, nil
}

// UpdateProduct edits a product and recomputes its derived pricing. Sale
// pricing, if any, is preserved. Images dropped by the edit are removed from
// the asset store afterwards. That cleanup is best-effort: failures are logged
// and counted but do not fail the update.
func (s *catalogService) UpdateProduct(ctx context.Context, id string, params UpdateProductParams) (*domain.Product, error) {
	const op = "product.update"

	var categoryID string
	if params.CategoryID != nil {
		categoryID = *params.CategoryID
	}
	var variants []domain.Variant
	if params.Variants != nil {
		variants = *params.Variants
	}
	unlock := s.lockRefs(categoryID, variants)

	var before []string
	updated, err := s.pricing.Update(ctx, id, func(p *domain.Product) error {
		before = p.Images()
		if params.Name != nil {
			p.Name = strings.TrimSpace(*params.Name)
		}
		if params.Description != nil {
			p.Description = *params.Description
		}
		if params.CategoryID != nil {
			p.CategoryID = *params.CategoryID
		}
		if params.Price != nil {
			p.Price = *params.Price
		}
		if params.DiscountPercent != nil {
			p.DiscountPercent = *params.DiscountPercent
		}
		if params.Variants != nil {
			p.Variants = *params.Variants
		}
		if params.Status != nil {
			p.Status = *params.Status
		}
		return s.validateProduct(ctx, op, p)
	})
	unlock()
	if err != nil {
		return nil, err
	}

	kept := make(map[string]bool)
	for _, url := range updated.Images() {
		kept[url] = true
	}
	removed := 0
	for _, url := range before {
		if kept[url] {
			continue
		}
		if err := s.assets.Delete(ctx, url); err != nil {
			s.metrics.RecordImageDeleteFailure("product_update")
			s.logger.Warn("failed to delete replaced image", "product_id", id, "url", url, "error", err)
			continue
		}
		removed++
	}
	s.metrics.RecordImagesDeleted("product_update", removed)

	s.logger.Info("product updated", "product_id", id, "discounted_price", updated.DiscountedPrice, "on_sale", updated.SaleType)
	return updated, nil
}

// DeleteProduct removes the product's images and then the product. A product
// currently carrying sale pricing cannot be deleted.
func (s *catalogService) DeleteProduct(ctx context.Context, id string) error {
	const op = "product.delete"

	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if p.SaleType {
		return domain.WrapError(ErrProductOnActiveSale, domain.ECONFLICT, op, "product is on sale "+p.SaleID)
	}

	if err := s.deleteImages(ctx, op, "product", p.Images()); err != nil {
		s.logger.Error("product cascade aborted", "product_id", id, "error", err)
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return notFound(err, ErrProductNotFound)
	}
	s.logger.Info("product deleted", "product_id", id)
	return nil
}

// deleteImages deletes each URL once, in order, stopping at the first error.
func (s *catalogService) deleteImages(ctx context.Context, op, entity string, urls []string) error {
	for i, url := range urls {
		if err := s.assets.Delete(ctx, url); err != nil {
			s.metrics.RecordImagesDeleted(entity, i)
			s.metrics.RecordImageDeleteFailure(entity)
			return domain.External(err, op, "failed to delete image from asset store")
		}
	}
	s.metrics.RecordImagesDeleted(entity, len(urls))
	return nil
}

func categoryRef(id string) string { return "category:" + id }

func colorRef(id string) string { return "color:" + id }

// lockRefs takes the ref locks for a category and the colors of variants, in
// sorted order, and returns a function releasing them all. An empty
// categoryID is skipped.
func (s *catalogService) lockRefs(categoryID string, variants []domain.Variant) func() {
	keys := make([]string, 0, len(variants)+1)
	if categoryID != "" {
		keys = append(keys, categoryRef(categoryID))
	}
	for _, v := range variants {
		keys = append(keys, colorRef(v.ColorID))
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	unlocks := make([]func(), 0, len(keys))
	for _, key := range keys {
		unlocks = append(unlocks, s.refs.Lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

func (s *catalogService) validateProduct(ctx context.Context, op string, p *domain.Product) error {
	if err := p.Validate(op); err != nil {
		return err
	}
	if _, err := s.categories.Get(ctx, p.CategoryID); err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return domain.NewValidationError(op, "categoryId", "category not found")
		}
		return domain.Internal(err, op, "failed to load category")
	}
	for _, v := range p.Variants {
		if _, err := s.colors.Get(ctx, v.ColorID); err != nil {
			if domain.IsCode(err, domain.ENOTFOUND) {
				return domain.NewValidationError(op, "variants", "color not found: "+v.ColorID)
			}
			return domain.Internal(err, op, "failed to load color")
		}
	}
	return nil
}
