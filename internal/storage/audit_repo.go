package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MimoJanra/AuditPulse/internal/models"
)

// AuditRepo stores audit snapshots. It exposes no update or delete path and
// does not check ownership on reads.
type AuditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Save(ctx context.Context, snap *models.AuditSnapshot) (uint, error) {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	snap.CreatedAt = snap.CreatedAt.UTC()

	if err := r.db.WithContext(ctx).Omit("Owner").Create(snap).Error; err != nil {
		return 0, fmt.Errorf("save audit snapshot: %w", err)
	}
	return snap.ID, nil
}

func (r *AuditRepo) Get(ctx context.Context, id uint) (*models.AuditSnapshot, error) {
	var snap models.AuditSnapshot
	if err := r.db.WithContext(ctx).First(&snap, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("audit snapshot %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get audit snapshot %d: %w", id, err)
	}
	return &snap, nil
}

// ListForOwner returns the owner's snapshots, newest first, ties in insertion order.
func (r *AuditRepo) ListForOwner(ctx context.Context, ownerID uint, limit int) ([]models.AuditSnapshot, error) {
	var snaps []models.AuditSnapshot
	err := r.recent(ctx, limit).Where("owner_id = ?", ownerID).Find(&snaps).Error
	if err != nil {
		return nil, fmt.Errorf("list snapshots for owner %d: %w", ownerID, err)
	}
	return snaps, nil
}

func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]models.AuditSnapshot, error) {
	var snaps []models.AuditSnapshot
	if err := r.recent(ctx, limit).Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", err)
	}
	return snaps, nil
}

func (r *AuditRepo) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.AuditSnapshot{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

func (r *AuditRepo) CountForOwner(ctx context.Context, ownerID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.AuditSnapshot{}).Where("owner_id = ?", ownerID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count snapshots for owner %d: %w", ownerID, err)
	}
	return n, nil
}

func (r *AuditRepo) recent(ctx context.Context, limit int) *gorm.DB {
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}
