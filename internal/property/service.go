package property

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/money"
)

type CreateRequest struct {
	HostID          string
	Title           string
	Description     string
	BasePrice       money.Amount
	WeekendPrice    *money.Amount
	CleaningFee     money.Amount
	WeeklyDiscount  *decimal.Decimal
	MonthlyDiscount *decimal.Decimal
	MaxGuests       int
	MinimumStay     int
	MaximumStay     *int
	InstantBook     bool
}

// UpdateRequest changes only the fields that are set. The Clear flags remove an optional value.
type UpdateRequest struct {
	Title           *string
	Description     *string
	BasePrice       *money.Amount
	WeekendPrice    *money.Amount
	CleaningFee     *money.Amount
	WeeklyDiscount  *decimal.Decimal
	MonthlyDiscount *decimal.Decimal
	MaxGuests       *int
	MinimumStay     *int
	MaximumStay     *int
	InstantBook     *bool

	ClearWeekendPrice    bool
	ClearWeeklyDiscount  bool
	ClearMonthlyDiscount bool
	ClearMaximumStay     bool
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Property, error)
	GetByID(ctx context.Context, id string) (*Property, error)
	List(ctx context.Context, filter Filter) ([]*Property, int, error)
	Update(ctx context.Context, id, actorID string, req UpdateRequest) (*Property, error)
	SetCustomPrices(ctx context.Context, id, actorID string, prices map[calendar.Date]money.Amount) (*Property, error)
	RemoveCustomPrices(ctx context.Context, id, actorID string, dates []calendar.Date) (*Property, error)
	BlockDates(ctx context.Context, id, actorID string, dates []calendar.Date) (*Property, error)
	UnblockDates(ctx context.Context, id, actorID string, dates []calendar.Date) (*Property, error)
	// AuthorizeHost loads the property and fails with ErrPermissionDenied unless actorID is its host.
	AuthorizeHost(ctx context.Context, id, actorID string) (*Property, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Property, error) {
	minStay := req.MinimumStay
	if minStay == 0 {
		minStay = 1
	}

	p := &Property{
		HostID:          req.HostID,
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		BasePrice:       req.BasePrice,
		WeekendPrice:    req.WeekendPrice,
		CleaningFee:     req.CleaningFee,
		WeeklyDiscount:  req.WeeklyDiscount,
		MonthlyDiscount: req.MonthlyDiscount,
		MaxGuests:       req.MaxGuests,
		MinimumStay:     minStay,
		MaximumStay:     req.MaximumStay,
		InstantBook:     req.InstantBook,
		CustomPricing:   map[calendar.Date]money.Amount{},
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Property, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Property, int, error) {
	return s.repo.ListOrderedByCreation(ctx, filter)
}

func (s *service) AuthorizeHost(ctx context.Context, id, actorID string) (*Property, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsHost(actorID) {
		return nil, ErrPermissionDenied
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, id, actorID string, req UpdateRequest) (*Property, error) {
	p, err := s.AuthorizeHost(ctx, id, actorID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		p.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.BasePrice != nil {
		p.BasePrice = *req.BasePrice
	}
	if req.CleaningFee != nil {
		p.CleaningFee = *req.CleaningFee
	}
	if req.MaxGuests != nil {
		p.MaxGuests = *req.MaxGuests
	}
	if req.MinimumStay != nil {
		p.MinimumStay = *req.MinimumStay
	}
	if req.InstantBook != nil {
		p.InstantBook = *req.InstantBook
	}

	switch {
	case req.ClearWeekendPrice:
		p.WeekendPrice = nil
	case req.WeekendPrice != nil:
		p.WeekendPrice = req.WeekendPrice
	}
	switch {
	case req.ClearWeeklyDiscount:
		p.WeeklyDiscount = nil
	case req.WeeklyDiscount != nil:
		p.WeeklyDiscount = req.WeeklyDiscount
	}
	switch {
	case req.ClearMonthlyDiscount:
		p.MonthlyDiscount = nil
	case req.MonthlyDiscount != nil:
		p.MonthlyDiscount = req.MonthlyDiscount
	}
	switch {
	case req.ClearMaximumStay:
		p.MaximumStay = nil
	case req.MaximumStay != nil:
		p.MaximumStay = req.MaximumStay
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) SetCustomPrices(ctx context.Context, id, actorID string, prices map[calendar.Date]money.Amount) (*Property, error) {
	if len(prices) == 0 {
		return nil, ErrNoDates
	}
	for _, price := range prices {
		if price <= 0 {
			return nil, ErrInvalidBasePrice
		}
	}
	if _, err := s.AuthorizeHost(ctx, id, actorID); err != nil {
		return nil, err
	}
	if err := s.repo.SetCustomPrices(ctx, id, prices); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) RemoveCustomPrices(ctx context.Context, id, actorID string, dates []calendar.Date) (*Property, error) {
	return s.changeDates(ctx, id, actorID, dates, s.repo.RemoveCustomPrices)
}

func (s *service) BlockDates(ctx context.Context, id, actorID string, dates []calendar.Date) (*Property, error) {
	return s.changeDates(ctx, id, actorID, dates, s.repo.BlockDates)
}

func (s *service) UnblockDates(ctx context.Context, id, actorID string, dates []calendar.Date) (*Property, error) {
	return s.changeDates(ctx, id, actorID, dates, s.repo.UnblockDates)
}

func (s *service) changeDates(
	ctx context.Context,
	id, actorID string,
	dates []calendar.Date,
	write func(ctx context.Context, id string, dates []calendar.Date) error,
) (*Property, error) {
	if len(dates) == 0 {
		return nil, ErrNoDates
	}
	if _, err := s.AuthorizeHost(ctx, id, actorID); err != nil {
		return nil, err
	}
	if err := write(ctx, id, dates); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
