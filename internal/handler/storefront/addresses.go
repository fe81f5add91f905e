package storefront

import (
	"net/http"

	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/service"
)

// AddressHandler manages the caller's shipping addresses.
type AddressHandler struct {
	addressService service.AddressService
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(addressService service.AddressService) *AddressHandler {
	return &AddressHandler{addressService: addressService}
}

type createAddressRequest struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country" validate:"omitempty,len=2"`
	Phone      string `json:"phone"`
}

// List handles GET /addresses
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	addresses, err := h.addressService.ListAddresses(r.Context(), identity.UserID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, addresses)
}

// Create handles POST /addresses
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req createAddressRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	address, err := h.addressService.CreateAddress(r.Context(), identity.UserID, service.CreateAddressParams{
		FullName:   req.FullName,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Phone:      req.Phone,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, address)
}
