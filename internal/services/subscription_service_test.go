package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subsmanager/backend/internal/dto"
	"github.com/subsmanager/backend/internal/models"
)

func TestSubscriptionService_Create(t *testing.T) {
	st := newMemStore()
	svc := NewSubscriptionService(st)
	owner := uuid.New()

	sub, err := svc.Create(context.Background(), owner, &dto.CreateSubscriptionRequest{
		Plan:        "  Spotify ",
		Price:       decimal.RequireFromString("10.99"),
		Currency:    "eur",
		RenewalDate: "2026-11-05",
	})
	require.NoError(t, err)
	assert.Equal(t, owner, sub.UserID)
	assert.Equal(t, "Spotify", sub.Plan)
	assert.Equal(t, "EUR", sub.Currency)
	assert.Equal(t, time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC), sub.RenewalDate)
}

func TestSubscriptionService_CreateValidation(t *testing.T) {
	svc := NewSubscriptionService(newMemStore())

	tests := []struct {
		name string
		req  dto.CreateSubscriptionRequest
	}{
		{"missing plan", dto.CreateSubscriptionRequest{Price: decimal.NewFromInt(5), RenewalDate: "2026-11-05"}},
		{"whitespace plan", dto.CreateSubscriptionRequest{Plan: "   ", Price: decimal.NewFromInt(5), RenewalDate: "2026-11-05"}},
		{"zero price", dto.CreateSubscriptionRequest{Plan: "x", Price: decimal.Zero, RenewalDate: "2026-11-05"}},
		{"negative price", dto.CreateSubscriptionRequest{Plan: "x", Price: decimal.NewFromInt(-1), RenewalDate: "2026-11-05"}},
		{"bad date", dto.CreateSubscriptionRequest{Plan: "x", Price: decimal.NewFromInt(5), RenewalDate: "05/11/2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := svc.Create(context.Background(), uuid.New(), &req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSubscriptionService_DefaultsCurrency(t *testing.T) {
	svc := NewSubscriptionService(newMemStore())
	sub, err := svc.Create(context.Background(), uuid.New(), &dto.CreateSubscriptionRequest{
		Plan: "Netflix", Price: decimal.NewFromInt(15), RenewalDate: "2026-12-01T10:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCurrency, sub.Currency)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), sub.RenewalDate)
}

func TestSubscriptionService_UpdateRequiresOwnership(t *testing.T) {
	st := newMemStore()
	svc := NewSubscriptionService(st)
	ctx := context.Background()
	owner, intruder := uuid.New(), uuid.New()

	sub, err := svc.Create(ctx, owner, &dto.CreateSubscriptionRequest{
		Plan: "Disney+", Price: decimal.NewFromInt(8), RenewalDate: "2026-11-20",
	})
	require.NoError(t, err)
	before := st.mutationCount()

	plan := "Hijacked"
	_, err = svc.Update(ctx, intruder, sub.ID, &dto.UpdateSubscriptionRequest{Plan: &plan})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.Delete(ctx, intruder, sub.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	got, err := st.FindSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Disney+", got.Plan)
	assert.Equal(t, before, st.mutationCount())
}

func TestSubscriptionService_UpdatePartial(t *testing.T) {
	st := newMemStore()
	svc := NewSubscriptionService(st)
	ctx := context.Background()
	owner := uuid.New()

	sub, err := svc.Create(ctx, owner, &dto.CreateSubscriptionRequest{
		Plan: "Gym", Price: decimal.NewFromInt(30), RenewalDate: "2026-11-01",
	})
	require.NoError(t, err)

	price := decimal.RequireFromString("32.50")
	date := "2026-12-01"
	updated, err := svc.Update(ctx, owner, sub.ID, &dto.UpdateSubscriptionRequest{Price: &price, RenewalDate: &date})
	require.NoError(t, err)
	assert.Equal(t, "Gym", updated.Plan)
	assert.True(t, price.Equal(updated.Price))
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), updated.RenewalDate)

	empty := "   "
	_, err = svc.Update(ctx, owner, sub.ID, &dto.UpdateSubscriptionRequest{Plan: &empty})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(ctx, owner, uuid.New(), &dto.UpdateSubscriptionRequest{})
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestSubscriptionService_Delete(t *testing.T) {
	st := newMemStore()
	svc := NewSubscriptionService(st)
	ctx := context.Background()
	owner := uuid.New()

	sub, err := svc.Create(ctx, owner, &dto.CreateSubscriptionRequest{
		Plan: "iCloud", Price: decimal.NewFromInt(3), RenewalDate: "2026-11-09",
	})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, owner, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, deleted.ID)

	_, err = svc.Delete(ctx, owner, sub.ID)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestSubscriptionService_Dashboard(t *testing.T) {
	st := newMemStore()
	svc := NewSubscriptionService(st)
	ctx := context.Background()
	owner := uuid.New()

	for _, p := range []struct{ plan, price string }{{"A", "9.99"}, {"B", "0.01"}, {"C", "20.00"}} {
		_, err := svc.Create(ctx, owner, &dto.CreateSubscriptionRequest{
			Plan: p.plan, Price: decimal.RequireFromString(p.price), RenewalDate: "2026-11-01",
		})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, uuid.New(), &dto.CreateSubscriptionRequest{
		Plan: "other", Price: decimal.NewFromInt(100), RenewalDate: "2026-11-01",
	})
	require.NoError(t, err)

	dash, err := svc.Dashboard(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, dash.TotalSubscription)
	assert.Equal(t, "30", dash.TotalMonthlyCost.String())
	assert.ElementsMatch(t, []string{"A", "B", "C"}, dash.PlanNames)

	empty, err := svc.Dashboard(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, empty.TotalSubscription)
	assert.True(t, empty.TotalMonthlyCost.IsZero())
}

func TestSubscriptionService_ListNeverNil(t *testing.T) {
	svc := NewSubscriptionService(newMemStore())
	subs, err := svc.List(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
}
