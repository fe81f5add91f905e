package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/clock"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/telemetry"
)

// maxSaveAttempts bounds read-recompute-write retries on version conflicts.
const maxSaveAttempts = 5

var hundred = decimal.NewFromInt(100)

// DiscountedPrice returns price less percent, rounded half away from zero to
// whole currency units. A zero percent returns price unchanged.
func DiscountedPrice(price int64, percent float64) int64 {
	if percent == 0 {
		return price
	}
	p := decimal.NewFromInt(price)
	off := p.Mul(decimal.NewFromFloat(percent)).Div(hundred)
	return p.Sub(off).Round(0).IntPart()
}

// Recompute returns p with its derived pricing fields rebuilt. With a sale
// entry the product carries that entry's pricing and saleID; without one all
// sale fields are cleared.
func Recompute(p domain.Product, entry *domain.SaleProduct, saleID string) domain.Product {
	p.DiscountedPrice = DiscountedPrice(p.Price, p.DiscountPercent)

	if entry == nil {
		p.SaleType = false
		p.SalePrice = 0
		p.SalePriceDiscount = 0
		p.DiscountedSalePrice = 0
		p.SaleID = ""
		return p
	}

	p.SaleType = true
	p.SalePrice = entry.SalePrice
	p.SalePriceDiscount = entry.SalePriceDiscount
	p.DiscountedSalePrice = DiscountedPrice(entry.SalePrice, entry.SalePriceDiscount)
	p.SaleID = saleID
	return p
}

// currentEntry reconstructs the sale entry a product currently carries, or
// nil when it is not on sale.
func currentEntry(p *domain.Product) *domain.SaleProduct {
	if !p.SaleType {
		return nil
	}
	return &domain.SaleProduct{
		ProductID:           p.ID,
		SalePrice:           p.SalePrice,
		SalePriceDiscount:   p.SalePriceDiscount,
		DiscountedSalePrice: p.DiscountedSalePrice,
	}
}

func pricingEqual(a, b *domain.Product) bool {
	return a.DiscountedPrice == b.DiscountedPrice &&
		a.SaleType == b.SaleType &&
		a.SalePrice == b.SalePrice &&
		a.SalePriceDiscount == b.SalePriceDiscount &&
		a.DiscountedSalePrice == b.DiscountedSalePrice &&
		a.SaleID == b.SaleID
}

// PricingService keeps product pricing consistent with the sales applied to it.
type PricingService interface {
	// Apply puts the product on saleID with the entry's pricing. It reports
	// whether a write happened. A product already on a different sale is a
	// conflict.
	Apply(ctx context.Context, productID, saleID string, entry domain.SaleProduct) (bool, error)

	// Strip clears sale pricing from the product if it is on saleID.
	Strip(ctx context.Context, productID, saleID string) (bool, error)

	// Update loads the product, applies mutate, recomputes its derived pricing
	// and saves it, retrying on version conflicts. mutate may be called more
	// than once. It returns the saved product.
	Update(ctx context.Context, productID string, mutate func(p *domain.Product) error) (*domain.Product, error)
}

type pricingService struct {
	products domain.ProductRepository
	clock    clock.Clock
	locks    *keyedMutex
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

// NewPricingService creates a PricingService.
func NewPricingService(products domain.ProductRepository, clk clock.Clock, metrics *telemetry.BusinessMetrics, logger *slog.Logger) PricingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &pricingService{
		products: products,
		clock:    clk,
		locks:    newKeyedMutex(),
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *pricingService) Apply(ctx context.Context, productID, saleID string, entry domain.SaleProduct) (bool, error) {
	return s.sync(ctx, "apply", productID, func(p *domain.Product) (*domain.Product, error) {
		if p.SaleID != "" && p.SaleID != saleID {
			return nil, domain.WrapError(ErrSaleCollision, domain.ECONFLICT, "pricing.apply", "product "+p.ID+" is already on sale "+p.SaleID)
		}
		next := Recompute(*p, &entry, saleID)
		return &next, nil
	})
}

func (s *pricingService) Strip(ctx context.Context, productID, saleID string) (bool, error) {
	return s.sync(ctx, "strip", productID, func(p *domain.Product) (*domain.Product, error) {
		if p.SaleID != saleID {
			return p, nil
		}
		next := Recompute(*p, nil, "")
		return &next, nil
	})
}

func (s *pricingService) Update(ctx context.Context, productID string, mutate func(p *domain.Product) error) (*domain.Product, error) {
	unlock := s.locks.Lock(productID)
	defer unlock()

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		p, err := s.products.Get(ctx, productID)
		if err != nil {
			return nil, notFound(err, ErrProductNotFound)
		}
		if err := mutate(p); err != nil {
			return nil, err
		}
		next := Recompute(*p, currentEntry(p), p.SaleID)
		next.UpdatedAt = s.clock.Now()

		err = s.products.Save(ctx, &next)
		if errors.Is(err, domain.ErrVersionConflict) {
			s.logger.Debug("product version conflict, retrying", "product_id", productID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, domain.Internal(err, "pricing.update", "failed to save product")
		}
		s.metrics.RecordPriceSync("reprice")
		return &next, nil
	}
	return nil, ErrTooManyConflicts
}

// sync runs a read-recompute-write cycle for one product. recompute returns
// the desired product; when its pricing already matches the stored one
// nothing is written.
func (s *pricingService) sync(ctx context.Context, action, productID string, recompute func(p *domain.Product) (*domain.Product, error)) (bool, error) {
	unlock := s.locks.Lock(productID)
	defer unlock()

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		p, err := s.products.Get(ctx, productID)
		if err != nil {
			return false, notFound(err, ErrProductNotFound)
		}

		next, err := recompute(p)
		if err != nil {
			return false, err
		}
		if pricingEqual(p, next) {
			return false, nil
		}
		next.UpdatedAt = s.clock.Now()

		err = s.products.Save(ctx, next)
		if errors.Is(err, domain.ErrVersionConflict) {
			s.logger.Debug("product version conflict, retrying", "product_id", productID, "action", action, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return false, domain.Internal(err, "pricing."+action, "failed to save product")
		}
		s.metrics.RecordPriceSync(action)
		return true, nil
	}
	return false, ErrTooManyConflicts
}
