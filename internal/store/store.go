// Package store is the GORM-backed persistence layer for users, subscription
// records and persisted system logs.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/subsmanager/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrCustomerRefSet = errors.New("billing customer reference already set")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Tier == "" {
		user.Tier = models.TierFree
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindUserByLogin matches either the username or the email address.
func (s *Store) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) UserExists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) FindUserByCustomerRef(ctx context.Context, ref string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("stripe_customer_id = ?", ref).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) SetTier(ctx context.Context, userID uuid.UUID, tier models.Tier) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("tier", tier)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCustomerRef links the user to a Stripe customer. The update only applies
// while the column is still NULL, so an existing reference is never replaced.
func (s *Store) SetCustomerRef(ctx context.Context, userID uuid.UUID, ref string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND stripe_customer_id IS NULL", userID).
		Update("stripe_customer_id", ref)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := s.FindUserByID(ctx, userID); err != nil {
			return err
		}
		return ErrCustomerRefSet
	}
	return nil
}

// DeleteUser removes the user and every subscription record it owns.
func (s *Store) DeleteUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Scopes(ownedBy(userID)).Delete(&models.Subscription{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		res = tx.Where("id = ?", userID).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// --- subscriptions ---

func (s *Store) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.Currency == "" {
		sub.Currency = models.DefaultCurrency
	}
	if err := s.db.WithContext(ctx).Omit("User").Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (s *Store) FindSubscription(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (s *Store) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Scopes(ownedBy(userID)).
		Order("renewal_date ASC").
		Find(&subs).Error
	return subs, err
}

// SaveSubscription writes the mutable columns back. The owner column is never
// part of the update.
func (s *Store) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	return s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"plan":         sub.Plan,
			"price":        sub.Price,
			"currency":     sub.Currency,
			"renewal_date": sub.RenewalDate,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (s *Store) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Subscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindSubscriptionsRenewingBetween returns records whose renewal date lies in
// [start, end], with the owning user preloaded.
func (s *Store) FindSubscriptionsRenewingBetween(ctx context.Context, start, end time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("renewal_date >= ? AND renewal_date <= ?", start.UTC(), end.UTC()).
		Order("renewal_date ASC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query renewals: %w", err)
	}
	return subs, nil
}

// --- system logs ---

func (s *Store) DeleteSystemLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return res.RowsAffected, res.Error
}

// ownedBy filters subscription rows to one owner.
func ownedBy(userID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
