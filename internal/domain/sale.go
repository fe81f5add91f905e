package domain

import "time"

// SaleStatus is the lifecycle state of a sale.
type SaleStatus string

const (
	SaleStatusScheduled SaleStatus = "scheduled"
	SaleStatusActive    SaleStatus = "active"
	SaleStatusInactive  SaleStatus = "inactive"
	SaleStatusExpired   SaleStatus = "expired"
)

// Valid reports whether s is a known sale status.
func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusScheduled, SaleStatusActive, SaleStatusInactive, SaleStatusExpired:
		return true
	}
	return false
}

// SaleProduct is one product's pricing within a sale.
type SaleProduct struct {
	ProductID           string  `json:"productId"`
	SalePrice           int64   `json:"salePrice"`
	SalePriceDiscount   float64 `json:"salePriceDiscount"`
	DiscountedSalePrice int64   `json:"discountedSalePrice"`
}

// Sale is a time-boxed promotion over a set of products.
//
// A product appears at most once per sale, and while the sale is active every
// listed product carries its entry's pricing.
type Sale struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	StartDate time.Time     `json:"startDate"`
	EndDate   time.Time     `json:"endDate"`
	Status    SaleStatus    `json:"status"`
	Products  []SaleProduct `json:"products"`
	Version   int64         `json:"version"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Entry returns the sale entry for productID, or nil.
func (s *Sale) Entry(productID string) *SaleProduct {
	for i := range s.Products {
		if s.Products[i].ProductID == productID {
			return &s.Products[i]
		}
	}
	return nil
}

// ProductIDs lists the products referenced by the sale in entry order.
func (s *Sale) ProductIDs() []string {
	ids := make([]string, len(s.Products))
	for i, p := range s.Products {
		ids[i] = p.ProductID
	}
	return ids
}

// InWindow reports whether now is within [StartDate, EndDate).
func (s *Sale) InWindow(now time.Time) bool {
	return !now.Before(s.StartDate) && now.Before(s.EndDate)
}

// Ended reports whether the sale's end date has been reached.
func (s *Sale) Ended(now time.Time) bool {
	return !now.Before(s.EndDate)
}

// Clone returns a deep copy of s.
func (s Sale) Clone() Sale {
	out := s
	if s.Products != nil {
		out.Products = append([]SaleProduct(nil), s.Products...)
	}
	return out
}
