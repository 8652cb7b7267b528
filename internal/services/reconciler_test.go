package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/subsmanager/backend/internal/billing"
	"github.com/subsmanager/backend/internal/models"
)

const webhookSecret = "whsec_reconciler_test"

func signedEvent(t *testing.T, eventID, stripeType, customer string) ([]byte, string) {
	t.Helper()
	payload := fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"data":{"object":{"id":"obj_1","customer":%q}}}`,
		eventID, stripeType, customer)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Payload, signed.Header
}

func TestReconciler_CheckoutCompletedIsIdempotent(t *testing.T) {
	st := newMemStore()
	u := st.addUser(models.TierFree, "cus_1")
	r := NewReconciler(st, webhookSecret, nil)
	ctx := context.Background()

	payload, header := signedEvent(t, "evt_1", "checkout.session.completed", "cus_1")

	out, err := r.Handle(ctx, payload, header)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, billing.EventCheckoutCompleted, out.EventType)
	assert.Equal(t, models.TierPremium, st.user(u.ID).Tier)
	assert.Equal(t, 1, st.mutationCount())

	out, err = r.Handle(ctx, payload, header)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, models.TierPremium, st.user(u.ID).Tier)
	assert.Equal(t, 1, st.mutationCount(), "redelivery must not write again")
}

func TestReconciler_PaymentSucceededOrderIndependent(t *testing.T) {
	orders := [][]string{{"evt_a", "evt_b"}, {"evt_b", "evt_a"}}

	for _, order := range orders {
		t.Run(order[0]+"_first", func(t *testing.T) {
			st := newMemStore()
			u := st.addUser(models.TierFree, "cus_2")
			r := NewReconciler(st, webhookSecret, nil)

			for _, id := range order {
				payload, header := signedEvent(t, id, "invoice.payment_succeeded", "cus_2")
				_, err := r.Handle(context.Background(), payload, header)
				require.NoError(t, err)
			}
			assert.Equal(t, models.TierPremium, st.user(u.ID).Tier)
		})
	}
}

func TestReconciler_PaymentSucceededRepairsDrift(t *testing.T) {
	st := newMemStore()
	u := st.addUser(models.TierFree, "cus_drift")
	r := NewReconciler(st, webhookSecret, nil)

	payload, header := signedEvent(t, "evt_renewal", "invoice.paid", "cus_drift")
	out, err := r.Handle(context.Background(), payload, header)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, models.TierPremium, st.user(u.ID).Tier)
}

func TestReconciler_SubscriptionCancelledSetsFree(t *testing.T) {
	st := newMemStore()
	premium := st.addUser(models.TierPremium, "cus_3")
	free := st.addUser(models.TierFree, "cus_4")
	r := NewReconciler(st, webhookSecret, nil)
	ctx := context.Background()

	payload, header := signedEvent(t, "evt_c1", "customer.subscription.deleted", "cus_3")
	out, err := r.Handle(ctx, payload, header)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, models.TierFree, st.user(premium.ID).Tier)

	payload, header = signedEvent(t, "evt_c2", "customer.subscription.deleted", "cus_4")
	out, err = r.Handle(ctx, payload, header)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, models.TierFree, st.user(free.ID).Tier)
}

func TestReconciler_TamperedSignatureRejected(t *testing.T) {
	st := newMemStore()
	u := st.addUser(models.TierFree, "cus_5")
	r := NewReconciler(st, webhookSecret, nil)

	payload, header := signedEvent(t, "evt_t", "checkout.session.completed", "cus_5")
	tampered := []byte(header)
	if tampered[len(tampered)-1] == 'a' {
		tampered[len(tampered)-1] = 'b'
	} else {
		tampered[len(tampered)-1] = 'a'
	}

	_, err := r.Handle(context.Background(), payload, string(tampered))
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, models.TierFree, st.user(u.ID).Tier)
	assert.Zero(t, st.mutationCount())
}

func TestReconciler_MalformedPayloadRejected(t *testing.T) {
	st := newMemStore()
	r := NewReconciler(st, webhookSecret, nil)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(`not json`),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	_, err := r.Handle(context.Background(), signed.Payload, signed.Header)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Zero(t, st.mutationCount())
}

func TestReconciler_UnknownCustomerAccepted(t *testing.T) {
	st := newMemStore()
	st.addUser(models.TierFree, "cus_known")
	r := NewReconciler(st, webhookSecret, nil)

	payload, header := signedEvent(t, "evt_u", "checkout.session.completed", "cus_unknown")
	out, err := r.Handle(context.Background(), payload, header)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Zero(t, st.mutationCount())
}

func TestReconciler_UnknownEventTypeAccepted(t *testing.T) {
	st := newMemStore()
	u := st.addUser(models.TierPremium, "cus_6")
	r := NewReconciler(st, webhookSecret, nil)

	payload, header := signedEvent(t, "evt_x", "customer.updated", "cus_6")
	out, err := r.Handle(context.Background(), payload, header)
	require.NoError(t, err)
	assert.Equal(t, billing.EventUnknown, out.EventType)
	assert.Equal(t, models.TierPremium, st.user(u.ID).Tier)
	assert.Zero(t, st.mutationCount())
}

// vanishingStore deletes the user between lookup and tier update.
type vanishingStore struct {
	*memStore
}

func (v *vanishingStore) SetTier(ctx context.Context, userID uuid.UUID, tier models.Tier) error {
	if _, err := v.memStore.DeleteUser(ctx, userID); err != nil {
		return err
	}
	return v.memStore.SetTier(ctx, userID, tier)
}

func TestReconciler_UserDeletedMidEventAccepted(t *testing.T) {
	mem := newMemStore()
	mem.addUser(models.TierFree, "cus_gone")
	r := NewReconciler(&vanishingStore{memStore: mem}, webhookSecret, nil)

	payload, header := signedEvent(t, "evt_gone", "checkout.session.completed", "cus_gone")
	out, err := r.Handle(context.Background(), payload, header)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, models.TierFree, out.NewTier)
}

func TestReconciler_StoreFailureSurfaces(t *testing.T) {
	st := newMemStore()
	st.addUser(models.TierFree, "cus_7")
	st.failNext = errors.New("connection reset")
	r := NewReconciler(st, webhookSecret, nil)

	payload, header := signedEvent(t, "evt_f", "checkout.session.completed", "cus_7")
	_, err := r.Handle(context.Background(), payload, header)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSignature)
	assert.NotErrorIs(t, err, ErrMalformedPayload)
}
