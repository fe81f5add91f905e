package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/atelier/internal/clock"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/telemetry"
)

// SaleService manages sales and drives their lifecycle.
type SaleService interface {
	CreateSale(ctx context.Context, params CreateSaleParams) (*domain.Sale, error)
	UpdateSale(ctx context.Context, id string, params UpdateSaleParams) (*domain.Sale, error)
	DeleteSale(ctx context.Context, id string) error
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)

	// RunLifecycle performs one scheduler tick at the current clock time.
	// Per-sale failures are reported in the result; the returned error is
	// only set when the tick could not run at all.
	RunLifecycle(ctx context.Context) (LifecycleResult, error)
}

// SaleEntryParams is one requested product entry.
type SaleEntryParams struct {
	ProductID         string
	SalePrice         int64
	SalePriceDiscount float64
}

// CreateSaleParams contains parameters for creating a sale.
// An empty Status means scheduled.
type CreateSaleParams struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Status    domain.SaleStatus
	Products  []SaleEntryParams
}

// UpdateSaleParams contains parameters for editing a sale.
// Pointer fields indicate optional updates (nil = no change).
type UpdateSaleParams struct {
	Name      *string
	StartDate *time.Time
	EndDate   *time.Time
	Status    *domain.SaleStatus
	Products  *[]SaleEntryParams
}

// SaleFailure records a sale the lifecycle could not transition.
type SaleFailure struct {
	SaleID string
	Target domain.SaleStatus
	Err    error
}

// LifecycleResult summarizes one lifecycle tick.
type LifecycleResult struct {
	Activated []string
	Expired   []string
	Failed    []SaleFailure

	// MissingProducts lists sale entries whose product no longer exists.
	// They are skipped, not fatal.
	MissingProducts []string
}

// Transitions is the number of sales whose status changed.
func (r LifecycleResult) Transitions() int {
	return len(r.Activated) + len(r.Expired)
}

type saleService struct {
	sales    domain.SaleRepository
	products domain.ProductRepository
	pricing  PricingService
	clock    clock.Clock
	locks    *keyedMutex
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

// NewSaleService creates a SaleService.
func NewSaleService(store domain.Store, pricing PricingService, clk clock.Clock, metrics *telemetry.BusinessMetrics, logger *slog.Logger) SaleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &saleService{
		sales:    store.Sales,
		products: store.Products,
		pricing:  pricing,
		clock:    clk,
		locks:    newKeyedMutex(),
		metrics:  metrics,
		logger:   logger,
	}
}

// =============================================================================
// ADMIN OPERATIONS
// =============================================================================

func (s *saleService) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := s.sales.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrSaleNotFound)
	}
	return sale, nil
}

func (s *saleService) ListSales(ctx context.Context) ([]domain.Sale, error) {
	sales, err := s.sales.List(ctx)
	if err != nil {
		return nil, domain.Internal(err, "sale.list", "failed to list sales")
	}
	return sales, nil
}

func (s *saleService) CreateSale(ctx context.Context, params CreateSaleParams) (*domain.Sale, error) {
	const op = "sale.create"

	requested := params.Status
	if requested == "" {
		requested = domain.SaleStatusScheduled
	}
	if requested == domain.SaleStatusExpired || !requested.Valid() {
		return nil, domain.NewValidationError(op, "status", "must be scheduled, active or inactive")
	}

	entries, err := s.buildEntries(ctx, op, params.Products)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sale := &domain.Sale{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(params.Name),
		StartDate: params.StartDate.UTC(),
		EndDate:   params.EndDate.UTC(),
		Products:  entries,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateSale(op, sale); err != nil {
		return nil, err
	}

	target, err := resolveTarget(requested, true, sale, now)
	if err != nil {
		return nil, err
	}
	if target == domain.SaleStatusScheduled || target == domain.SaleStatusActive {
		if err := s.checkOverlap(ctx, op, sale); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(sale.ID)
	defer unlock()

	// Activation is a saga: persist first as scheduled (or inactive), then
	// apply pricing, then promote.
	sale.Status = target
	if target == domain.SaleStatusActive {
		sale.Status = domain.SaleStatusScheduled
	}
	if err := s.sales.Create(ctx, sale); err != nil {
		return nil, domain.Internal(err, op, "failed to create sale")
	}

	if target == domain.SaleStatusActive {
		if err := s.activate(ctx, sale); err != nil {
			s.compensate(ctx, sale, nil)
			if delErr := s.sales.Delete(ctx, sale.ID); delErr != nil {
				s.logger.Error("failed to roll back sale after activation failure", "sale_id", sale.ID, "error", delErr)
			}
			return nil, err
		}
	}

	s.logger.Info("sale created", "sale_id", sale.ID, "name", sale.Name, "status", sale.Status, "products", len(sale.Products))
	return sale, nil
}

func (s *saleService) UpdateSale(ctx context.Context, id string, params UpdateSaleParams) (*domain.Sale, error) {
	const op = "sale.update"

	unlock := s.locks.Lock(id)
	defer unlock()

	old, err := s.sales.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrSaleNotFound)
	}

	next := old.Clone()
	if params.Name != nil {
		next.Name = strings.TrimSpace(*params.Name)
	}
	if params.StartDate != nil {
		next.StartDate = params.StartDate.UTC()
	}
	if params.EndDate != nil {
		next.EndDate = params.EndDate.UTC()
	}
	if params.Products != nil {
		entries, err := s.buildEntries(ctx, op, *params.Products)
		if err != nil {
			return nil, err
		}
		next.Products = entries
	}
	if err := validateSale(op, &next); err != nil {
		return nil, err
	}

	requested, explicit := old.Status, false
	if params.Status != nil {
		requested, explicit = *params.Status, true
		if !requested.Valid() {
			return nil, domain.NewValidationError(op, "status", "is not a valid status")
		}
	}

	now := s.clock.Now()
	target, err := resolveTarget(requested, explicit, &next, now)
	if err != nil {
		return nil, err
	}
	if target == domain.SaleStatusScheduled || target == domain.SaleStatusActive {
		if err := s.checkOverlap(ctx, op, &next); err != nil {
			return nil, err
		}
	}

	next.Status = target
	removed := removedEntries(old, &next)

	// Product updates first; the sale document is only written once they
	// all succeeded.
	var effectErr error
	if target == domain.SaleStatusActive {
		if _, effectErr = s.stripIDs(ctx, id, removed); effectErr == nil {
			_, effectErr = s.applyAll(ctx, &next)
		}
	} else {
		_, effectErr = s.stripAll(ctx, &next, removed)
	}
	if effectErr != nil {
		s.compensate(ctx, old, next.ProductIDs())
		return nil, effectErr
	}

	if old.Status != next.Status || !sameSaleDoc(old, &next) {
		next.UpdatedAt = now
		if err := s.sales.Save(ctx, &next); err != nil {
			s.compensate(ctx, old, next.ProductIDs())
			if errors.Is(err, domain.ErrVersionConflict) {
				return nil, domain.WrapError(err, domain.ECONFLICT, op, "sale was modified concurrently")
			}
			return nil, domain.Internal(err, op, "failed to save sale")
		}
		if old.Status != next.Status {
			s.metrics.RecordSaleTransition(string(next.Status), true)
		}
	}

	s.logger.Info("sale updated", "sale_id", id, "from", old.Status, "to", next.Status, "products", len(next.Products))
	return &next, nil
}

func (s *saleService) DeleteSale(ctx context.Context, id string) error {
	const op = "sale.delete"

	unlock := s.locks.Lock(id)
	defer unlock()

	sale, err := s.sales.Get(ctx, id)
	if err != nil {
		return notFound(err, ErrSaleNotFound)
	}

	// Strip every referenced product before the sale disappears so no
	// product keeps pricing from a sale that no longer exists.
	for _, pid := range sale.ProductIDs() {
		if _, err := s.pricing.Strip(ctx, pid, sale.ID); err != nil {
			if errors.Is(err, ErrProductNotFound) {
				continue
			}
			return domain.WrapError(err, domain.ErrorCode(err), op, "failed to strip sale pricing")
		}
	}

	if err := s.sales.Delete(ctx, id); err != nil {
		return notFound(err, ErrSaleNotFound)
	}
	s.logger.Info("sale deleted", "sale_id", id)
	return nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func (s *saleService) RunLifecycle(ctx context.Context) (LifecycleResult, error) {
	var result LifecycleResult
	now := s.clock.Now()

	active, err := s.sales.ListByStatus(ctx, domain.SaleStatusActive)
	if err != nil {
		return result, domain.Internal(err, "sale.lifecycle", "failed to list active sales")
	}
	scheduled, err := s.sales.ListByStatus(ctx, domain.SaleStatusScheduled)
	if err != nil {
		return result, domain.Internal(err, "sale.lifecycle", "failed to list scheduled sales")
	}

	// 1. Expire ended active sales first so their products are free for any
	// sale starting at the same instant.
	for _, sale := range active {
		if !sale.Ended(now) {
			continue
		}
		s.transition(ctx, sale.ID, domain.SaleStatusActive, domain.SaleStatusExpired, &result)
	}

	// 2. Activate scheduled sales whose window contains now.
	for _, sale := range scheduled {
		if !sale.InWindow(now) {
			continue
		}
		s.transition(ctx, sale.ID, domain.SaleStatusScheduled, domain.SaleStatusActive, &result)
	}

	// 3. Scheduled sales whose window passed entirely never touched products.
	for _, sale := range scheduled {
		if !sale.Ended(now) {
			continue
		}
		s.transition(ctx, sale.ID, domain.SaleStatusScheduled, domain.SaleStatusExpired, &result)
	}

	return result, nil
}

// transition moves one sale from -> to, re-reading it under its lock so an
// admin edit that raced the tick wins.
func (s *saleService) transition(ctx context.Context, id string, from, to domain.SaleStatus, result *LifecycleResult) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sale, err := s.sales.Get(ctx, id)
	if err != nil {
		if !domain.IsCode(err, domain.ENOTFOUND) {
			s.fail(result, id, to, err)
		}
		return
	}
	if sale.Status != from {
		return
	}

	var missing []string
	switch to {
	case domain.SaleStatusActive:
		missing, err = s.applyAll(ctx, sale)
	case domain.SaleStatusExpired:
		if from == domain.SaleStatusActive {
			missing, err = s.stripAll(ctx, sale, nil)
		}
	}
	result.MissingProducts = append(result.MissingProducts, missing...)
	if err != nil {
		s.fail(result, id, to, err)
		return
	}

	if err := s.commitStatus(ctx, sale, to); err != nil {
		s.fail(result, id, to, err)
		return
	}

	s.metrics.RecordSaleTransition(string(to), true)
	telemetry.AddBreadcrumb("sale", "sale transitioned", map[string]interface{}{"sale_id": id, "from": from, "to": to})
	s.logger.Info("sale transitioned", "sale_id", id, "name", sale.Name, "from", from, "to", to)
	if to == domain.SaleStatusActive {
		result.Activated = append(result.Activated, id)
	} else {
		result.Expired = append(result.Expired, id)
	}
}

func (s *saleService) fail(result *LifecycleResult, id string, to domain.SaleStatus, err error) {
	s.metrics.RecordSaleTransition(string(to), false)
	s.logger.Error("sale transition failed", "sale_id", id, "to", to, "error", err)
	result.Failed = append(result.Failed, SaleFailure{SaleID: id, Target: to, Err: err})
}

// =============================================================================
// HELPERS
// =============================================================================

// activate applies every entry of sale and commits the active status once
// all product updates succeeded.
func (s *saleService) activate(ctx context.Context, sale *domain.Sale) error {
	if _, err := s.applyAll(ctx, sale); err != nil {
		return err
	}
	if err := s.commitStatus(ctx, sale, domain.SaleStatusActive); err != nil {
		return err
	}
	sale.Status = domain.SaleStatusActive
	s.metrics.RecordSaleTransition(string(domain.SaleStatusActive), true)
	return nil
}

// compensate restores products to the pricing implied by prev after a failed
// edit. extra lists products the failed edit may have touched. Errors are
// logged; the next lifecycle tick or edit converges them.
func (s *saleService) compensate(ctx context.Context, prev *domain.Sale, extra []string) {
	if prev.Status == domain.SaleStatusActive {
		if _, err := s.applyAll(ctx, prev); err != nil {
			s.logger.Error("failed to restore sale pricing", "sale_id", prev.ID, "error", err)
		}
	}
	var strip []string
	for _, pid := range extra {
		if prev.Status != domain.SaleStatusActive || prev.Entry(pid) == nil {
			strip = append(strip, pid)
		}
	}
	if prev.Status != domain.SaleStatusActive {
		strip = append(strip, prev.ProductIDs()...)
	}
	if _, err := s.stripIDs(ctx, prev.ID, strip); err != nil {
		s.logger.Error("failed to strip sale pricing during rollback", "sale_id", prev.ID, "error", err)
	}
}

func (s *saleService) applyAll(ctx context.Context, sale *domain.Sale) ([]string, error) {
	var missing []string
	for _, entry := range sale.Products {
		if _, err := s.pricing.Apply(ctx, entry.ProductID, sale.ID, entry); err != nil {
			if errors.Is(err, ErrProductNotFound) {
				s.logger.Warn("sale references missing product", "sale_id", sale.ID, "product_id", entry.ProductID)
				missing = append(missing, entry.ProductID)
				continue
			}
			return missing, err
		}
	}
	return missing, nil
}

func (s *saleService) stripAll(ctx context.Context, sale *domain.Sale, extra []string) ([]string, error) {
	return s.stripIDs(ctx, sale.ID, append(sale.ProductIDs(), extra...))
}

func (s *saleService) stripIDs(ctx context.Context, saleID string, ids []string) ([]string, error) {
	var missing []string
	for _, pid := range ids {
		if _, err := s.pricing.Strip(ctx, pid, saleID); err != nil {
			if errors.Is(err, ErrProductNotFound) {
				s.logger.Warn("sale references missing product", "sale_id", saleID, "product_id", pid)
				missing = append(missing, pid)
				continue
			}
			return missing, err
		}
	}
	return missing, nil
}

// commitStatus persists status for the sale if it changed.
func (s *saleService) commitStatus(ctx context.Context, sale *domain.Sale, status domain.SaleStatus) error {
	stored, err := s.sales.Get(ctx, sale.ID)
	if err != nil {
		return err
	}
	if stored.Status == status {
		sale.Version = stored.Version
		return nil
	}
	stored.Status = status
	stored.UpdatedAt = s.clock.Now()
	if err := s.sales.Save(ctx, stored); err != nil {
		return err
	}
	sale.Version = stored.Version
	return nil
}

func (s *saleService) buildEntries(ctx context.Context, op string, params []SaleEntryParams) ([]domain.SaleProduct, error) {
	if len(params) == 0 {
		return nil, domain.NewValidationError(op, "products", "at least one product is required")
	}

	var verr error
	seen := make(map[string]bool, len(params))
	entries := make([]domain.SaleProduct, 0, len(params))
	for i, p := range params {
		field := fmt.Sprintf("products[%d]", i)
		switch {
		case p.ProductID == "":
			verr = domain.AddFieldError(verr, field, "productId is required")
			continue
		case seen[p.ProductID]:
			verr = domain.AddFieldError(verr, field, "product appears more than once")
			continue
		case p.SalePrice <= 0:
			verr = domain.AddFieldError(verr, field, "salePrice must be positive")
		case p.SalePriceDiscount < 0 || p.SalePriceDiscount >= 100:
			verr = domain.AddFieldError(verr, field, "salePriceDiscount must be in [0, 100)")
		}
		seen[p.ProductID] = true

		if _, err := s.products.Get(ctx, p.ProductID); err != nil {
			if domain.IsCode(err, domain.ENOTFOUND) {
				verr = domain.AddFieldError(verr, field, "product not found")
				continue
			}
			return nil, domain.Internal(err, op, "failed to load product")
		}

		entries = append(entries, domain.SaleProduct{
			ProductID:           p.ProductID,
			SalePrice:           p.SalePrice,
			SalePriceDiscount:   p.SalePriceDiscount,
			DiscountedSalePrice: DiscountedPrice(p.SalePrice, p.SalePriceDiscount),
		})
	}
	if verr != nil {
		verr.(*domain.ValidationError).Op = op
		return nil, verr
	}
	return entries, nil
}

func validateSale(op string, sale *domain.Sale) error {
	var verr error
	if sale.Name == "" {
		verr = domain.AddFieldError(verr, "name", "is required")
	}
	if sale.StartDate.IsZero() {
		verr = domain.AddFieldError(verr, "startDate", "is required")
	}
	if sale.EndDate.IsZero() {
		verr = domain.AddFieldError(verr, "endDate", "is required")
	} else if !sale.EndDate.After(sale.StartDate) {
		verr = domain.AddFieldError(verr, "endDate", "must be after startDate")
	}
	if verr != nil {
		verr.(*domain.ValidationError).Op = op
	}
	return verr
}

// resolveTarget decides the status a sale should end up in. A scheduled sale
// whose window already contains now becomes active, and an active sale whose
// start was moved into the future goes back to scheduled unless activation
// was explicitly requested. Explicitly scheduling or activating a sale that
// has ended is refused; a sale that merely kept such a status is expired.
func resolveTarget(requested domain.SaleStatus, explicit bool, sale *domain.Sale, now time.Time) (domain.SaleStatus, error) {
	switch requested {
	case domain.SaleStatusActive, domain.SaleStatusScheduled:
		if sale.Ended(now) {
			if explicit {
				return "", ErrSaleEnded
			}
			return domain.SaleStatusExpired, nil
		}
		if requested == domain.SaleStatusScheduled && sale.InWindow(now) {
			return domain.SaleStatusActive, nil
		}
		if requested == domain.SaleStatusActive && !explicit && now.Before(sale.StartDate) {
			return domain.SaleStatusScheduled, nil
		}
		return requested, nil
	}
	return requested, nil
}

// checkOverlap refuses a sale that shares a product with another live sale
// over an overlapping window. An active sale past its end date still holds
// its products until the lifecycle expires it.
func (s *saleService) checkOverlap(ctx context.Context, op string, sale *domain.Sale) error {
	all, err := s.sales.List(ctx)
	if err != nil {
		return domain.Internal(err, op, "failed to list sales")
	}
	now := s.clock.Now()
	for _, other := range all {
		if other.ID == sale.ID {
			continue
		}
		if other.Status != domain.SaleStatusActive && other.Status != domain.SaleStatusScheduled {
			continue
		}
		end := other.EndDate
		if other.Status == domain.SaleStatusActive && !end.After(now) {
			end = now.Add(time.Nanosecond)
		}
		if !other.StartDate.Before(sale.EndDate) || !sale.StartDate.Before(end) {
			continue
		}
		for _, entry := range sale.Products {
			if other.Entry(entry.ProductID) != nil {
				return domain.Errorf(domain.ECONFLICT, op, "product %s is already in sale %q for an overlapping period", entry.ProductID, other.Name)
			}
		}
	}
	return nil
}

func removedEntries(old, next *domain.Sale) []string {
	var removed []string
	for _, pid := range old.ProductIDs() {
		if next.Entry(pid) == nil {
			removed = append(removed, pid)
		}
	}
	return removed
}

func sameSaleDoc(a, b *domain.Sale) bool {
	if a.Name != b.Name || !a.StartDate.Equal(b.StartDate) || !a.EndDate.Equal(b.EndDate) || len(a.Products) != len(b.Products) {
		return false
	}
	for i := range a.Products {
		if a.Products[i] != b.Products[i] {
			return false
		}
	}
	return true
}
