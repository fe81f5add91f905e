package domain

import (
	"fmt"
	"time"
)

// =============================================================================
// PRODUCT DOMAIN TYPES
// =============================================================================

// ProductStatus represents the lifecycle state of a product.
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

// Valid reports whether s is a known product status.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived:
		return true
	}
	return false
}

// Size is a garment size.
type Size string

const (
	SizeS    Size = "S"
	SizeM    Size = "M"
	SizeL    Size = "L"
	SizeXL   Size = "XL"
	SizeXXL  Size = "XXL"
	SizeXXXL Size = "XXXL"
)

// AllSizes lists every size in display order.
var AllSizes = []Size{SizeS, SizeM, SizeL, SizeXL, SizeXXL, SizeXXXL}

// Valid reports whether s is a known size.
func (s Size) Valid() bool {
	for _, known := range AllSizes {
		if s == known {
			return true
		}
	}
	return false
}

// SizeStock is the stock count of one size within a color variant.
type SizeStock struct {
	Size  Size `json:"size"`
	Stock int  `json:"stock"`
}

// Variant groups the images and per-size stock of one color of a product.
type Variant struct {
	ColorID string      `json:"colorId"`
	Images  []string    `json:"images"`
	Sizes   []SizeStock `json:"sizes"`
}

// Product is a sellable garment with list pricing, optional sale pricing and
// per-color stock.
//
// DiscountedPrice always equals the list price less DiscountPercent, and the
// sale fields are populated if and only if SaleType is set. Both rules are
// maintained by the pricing service; nothing else should write those fields.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CategoryID  string `json:"categoryId"`

	Price           int64   `json:"price"`
	DiscountPercent float64 `json:"discountPercent"`
	DiscountedPrice int64   `json:"discountedPrice"`

	SaleType            bool    `json:"saleType"`
	SalePrice           int64   `json:"salePrice"`
	SalePriceDiscount   float64 `json:"salePriceDiscount"`
	DiscountedSalePrice int64   `json:"discountedSalePrice"`
	SaleID              string  `json:"saleId,omitempty"`

	Variants []Variant     `json:"variants"`
	Status   ProductStatus `json:"status"`

	// Version is incremented on every successful save.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EffectivePrice is the unit price a shopper pays right now. Sale pricing
// replaces list pricing; the two are never stacked.
func (p *Product) EffectivePrice() int64 {
	if p.SaleType {
		return p.DiscountedSalePrice
	}
	return p.DiscountedPrice
}

// Variant returns the variant for colorID, or nil.
// The returned pointer aliases the product's slice.
func (p *Product) Variant(colorID string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ColorID == colorID {
			return &p.Variants[i]
		}
	}
	return nil
}

// HasColor reports whether any variant uses colorID.
func (p *Product) HasColor(colorID string) bool {
	return p.Variant(colorID) != nil
}

// Stock returns the stock of the (color, size) pair and whether it exists.
func (p *Product) Stock(colorID string, size Size) (int, bool) {
	v := p.Variant(colorID)
	if v == nil {
		return 0, false
	}
	for _, s := range v.Sizes {
		if s.Size == size {
			return s.Stock, true
		}
	}
	return 0, false
}

// AdjustStock adds delta to the stock of the (color, size) pair.
// Stock never goes negative: a delta that would do so returns an
// InsufficientStockError and leaves the product unchanged.
func (p *Product) AdjustStock(colorID string, size Size, delta int) error {
	v := p.Variant(colorID)
	if v == nil {
		return NotFound("product.adjust_stock", "variant", colorID)
	}
	for i := range v.Sizes {
		if v.Sizes[i].Size != size {
			continue
		}
		if v.Sizes[i].Stock+delta < 0 {
			return InsufficientStock("product.adjust_stock", p.ID, colorID, size, -delta, v.Sizes[i].Stock)
		}
		v.Sizes[i].Stock += delta
		return nil
	}
	return NotFound("product.adjust_stock", "size", fmt.Sprintf("%s/%s", colorID, size))
}

// Images returns every image URL across all variants.
func (p *Product) Images() []string {
	var urls []string
	for _, v := range p.Variants {
		urls = append(urls, v.Images...)
	}
	return urls
}

// Clone returns a deep copy of p.
func (p Product) Clone() Product {
	out := p
	if p.Variants != nil {
		out.Variants = make([]Variant, len(p.Variants))
		for i, v := range p.Variants {
			out.Variants[i] = Variant{
				ColorID: v.ColorID,
				Images:  append([]string(nil), v.Images...),
				Sizes:   append([]SizeStock(nil), v.Sizes...),
			}
		}
	}
	return out
}

// Validate checks the stock and pricing ranges of a product.
func (p *Product) Validate(op string) error {
	var err error
	if p.Name == "" {
		err = AddFieldError(err, "name", "is required")
	}
	if p.CategoryID == "" {
		err = AddFieldError(err, "categoryId", "is required")
	}
	if p.Price < 0 {
		err = AddFieldError(err, "price", "must not be negative")
	}
	if p.DiscountPercent < 0 || p.DiscountPercent >= 100 {
		err = AddFieldError(err, "discountPercent", "must be in [0, 100)")
	}
	if !p.Status.Valid() {
		err = AddFieldError(err, "status", "is not a valid status")
	}

	seen := make(map[string]bool, len(p.Variants))
	for _, v := range p.Variants {
		if v.ColorID == "" {
			err = AddFieldError(err, "variants", "colorId is required")
			continue
		}
		if seen[v.ColorID] {
			err = AddFieldError(err, "variants", "duplicate color "+v.ColorID)
		}
		seen[v.ColorID] = true

		sizes := make(map[Size]bool, len(v.Sizes))
		for _, s := range v.Sizes {
			if !s.Size.Valid() {
				err = AddFieldError(err, "variants", fmt.Sprintf("unknown size %q", s.Size))
			}
			if sizes[s.Size] {
				err = AddFieldError(err, "variants", fmt.Sprintf("duplicate size %q for color %s", s.Size, v.ColorID))
			}
			sizes[s.Size] = true
			if s.Stock < 0 {
				err = AddFieldError(err, "variants", "stock must not be negative")
			}
		}
	}

	if err != nil {
		if ve, ok := err.(*ValidationError); ok {
			ve.Op = op
		}
	}
	return err
}
