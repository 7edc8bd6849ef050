package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/MimoJanra/AuditPulse/internal/models"
)

type SubscriberRepo struct {
	db *gorm.DB
}

func NewSubscriberRepo(db *gorm.DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

func (r *SubscriberRepo) Create(ctx context.Context, s *models.Subscriber) error {
	s.Email = normalizeEmail(s.Email)
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, s.Email)
		}
		return fmt.Errorf("create subscriber: %w", err)
	}
	return nil
}

func (r *SubscriberRepo) Get(ctx context.Context, id uint) (*models.Subscriber, error) {
	var s models.Subscriber
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("subscriber %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get subscriber %d: %w", id, err)
	}
	return &s, nil
}

func (r *SubscriberRepo) GetByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	var s models.Subscriber
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("subscriber %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("get subscriber by email: %w", err)
	}
	return &s, nil
}

func (r *SubscriberRepo) List(ctx context.Context) ([]models.Subscriber, error) {
	var subs []models.Subscriber
	err := r.db.WithContext(ctx).Order("is_admin DESC").Order("email ASC").Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return subs, nil
}

// ListScheduled returns subscribers with a non-empty scheduled target. The
// delivery address is not filtered so callers can report half-configured rows.
func (r *SubscriberRepo) ListScheduled(ctx context.Context) ([]models.Subscriber, error) {
	var subs []models.Subscriber
	err := r.db.WithContext(ctx).
		Where("scheduled_target_url IS NOT NULL AND scheduled_target_url <> ''").
		Order("id ASC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list scheduled subscribers: %w", err)
	}
	return subs, nil
}

func (r *SubscriberRepo) SetSchedule(ctx context.Context, id uint, target, address string) error {
	res := r.db.WithContext(ctx).Model(&models.Subscriber{}).Where("id = ?", id).Updates(map[string]any{
		"scheduled_target_url":       target,
		"scheduled_delivery_address": address,
	})
	if res.Error != nil {
		return fmt.Errorf("set schedule for subscriber %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subscriber %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SubscriberRepo) ClearSchedule(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.Subscriber{}).Where("id = ?", id).Updates(map[string]any{
		"scheduled_target_url":       nil,
		"scheduled_delivery_address": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("clear schedule for subscriber %d: %w", id, err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
