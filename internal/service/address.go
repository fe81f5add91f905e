package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/atelier/internal/domain"
)

// AddressService manages a customer's shipping addresses.
type AddressService interface {
	ListAddresses(ctx context.Context, userID string) ([]domain.Address, error)
	CreateAddress(ctx context.Context, userID string, params CreateAddressParams) (*domain.Address, error)
}

// CreateAddressParams contains parameters for saving a shipping address.
type CreateAddressParams struct {
	FullName   string
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Country    string
	Phone      string
}

type addressService struct {
	addresses domain.AddressRepository
	logger    *slog.Logger
}

// NewAddressService creates an AddressService.
func NewAddressService(store domain.Store, logger *slog.Logger) AddressService {
	if logger == nil {
		logger = slog.Default()
	}
	return &addressService{addresses: store.Addresses, logger: logger}
}

func (s *addressService) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	addrs, err := s.addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, "address.list", "failed to list addresses")
	}
	return addrs, nil
}

func (s *addressService) CreateAddress(ctx context.Context, userID string, params CreateAddressParams) (*domain.Address, error) {
	const op = "address.create"

	a := &domain.Address{
		ID:         uuid.NewString(),
		UserID:     userID,
		FullName:   strings.TrimSpace(params.FullName),
		Line1:      strings.TrimSpace(params.Line1),
		Line2:      strings.TrimSpace(params.Line2),
		City:       strings.TrimSpace(params.City),
		PostalCode: strings.TrimSpace(params.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(params.Country)),
		Phone:      strings.TrimSpace(params.Phone),
	}

	var verr error
	required := []struct{ field, value string }{
		{"fullName", a.FullName},
		{"line1", a.Line1},
		{"city", a.City},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	}
	for _, r := range required {
		if r.value == "" {
			verr = domain.AddFieldError(verr, r.field, "is required")
		}
	}
	if verr != nil {
		return nil, verr
	}

	if err := s.addresses.Create(ctx, a); err != nil {
		return nil, domain.Internal(err, op, "failed to save address")
	}

	s.logger.InfoContext(ctx, "address created", "address_id", a.ID, "user_id", userID)
	return a, nil
}
