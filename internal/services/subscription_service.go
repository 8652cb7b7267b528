package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/subsmanager/backend/internal/dto"
	"github.com/subsmanager/backend/internal/models"
	"github.com/subsmanager/backend/internal/store"
)

type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	FindSubscription(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
	DeleteSubscription(ctx context.Context, id uuid.UUID) error
}

type SubscriptionService struct {
	store SubscriptionStore
}

func NewSubscriptionService(store SubscriptionStore) *SubscriptionService {
	return &SubscriptionService{store: store}
}

func (s *SubscriptionService) List(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	subs, err := s.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	return subs, nil
}

func (s *SubscriptionService) Create(ctx context.Context, userID uuid.UUID, req *dto.CreateSubscriptionRequest) (*models.Subscription, error) {
	req.Plan = strings.TrimSpace(req.Plan)
	if err := dto.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}
	renewal, err := ParseRenewalDate(req.RenewalDate)
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		ID:          uuid.New(),
		UserID:      userID,
		Plan:        req.Plan,
		Price:       req.Price,
		Currency:    normalizeCurrency(req.Currency),
		RenewalDate: renewal,
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Update applies a partial update after checking the actor owns the record.
func (s *SubscriptionService) Update(ctx context.Context, actorID, subID uuid.UUID, req *dto.UpdateSubscriptionRequest) (*models.Subscription, error) {
	sub, err := s.owned(ctx, actorID, subID)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if req.Plan != nil {
		plan := strings.TrimSpace(*req.Plan)
		if plan == "" {
			return nil, fmt.Errorf("%w: plan cannot be empty", ErrValidation)
		}
		sub.Plan = plan
	}
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return nil, err
		}
		sub.Price = *req.Price
	}
	if req.Currency != nil {
		sub.Currency = normalizeCurrency(*req.Currency)
	}
	if req.RenewalDate != nil {
		renewal, err := ParseRenewalDate(*req.RenewalDate)
		if err != nil {
			return nil, err
		}
		sub.RenewalDate = renewal
	}

	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionService) Delete(ctx context.Context, actorID, subID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.owned(ctx, actorID, subID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteSubscription(ctx, sub.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

// Dashboard sums the user's subscription prices and lists the plan names.
func (s *SubscriptionService) Dashboard(ctx context.Context, userID uuid.UUID) (*dto.DashboardResponse, error) {
	subs, err := s.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := lo.Reduce(subs, func(acc decimal.Decimal, sub models.Subscription, _ int) decimal.Decimal {
		return acc.Add(sub.Price)
	}, decimal.Zero)

	return &dto.DashboardResponse{
		TotalMonthlyCost:  total,
		TotalSubscription: len(subs),
		PlanNames:         lo.Map(subs, func(sub models.Subscription, _ int) string { return sub.Plan }),
	}, nil
}

func (s *SubscriptionService) owned(ctx context.Context, actorID, subID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.store.FindSubscription(ctx, subID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	if sub.UserID != actorID {
		return nil, ErrNotOwner
	}
	return sub, nil
}

// ParseRenewalDate accepts YYYY-MM-DD or RFC 3339 and keeps only the calendar date.
func ParseRenewalDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return models.CalendarDate(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return models.CalendarDate(t), nil
	}
	return time.Time{}, fmt.Errorf("%w: renewalDate must be YYYY-MM-DD", ErrValidation)
}

func validatePrice(p decimal.Decimal) error {
	if !p.IsPositive() {
		return fmt.Errorf("%w: price must be greater than zero", ErrValidation)
	}
	return nil
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return models.DefaultCurrency
	}
	return c
}
