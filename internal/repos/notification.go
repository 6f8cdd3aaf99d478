package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/types"
)

type NotificationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Notification) error
	// GetForUpdate loads one notification holding a row lock for the rest of
	// the transaction, so read_by rewrites cannot interleave. Returns nil
	// when the id is unknown.
	GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Notification, error)
	// List returns notifications newest first, up to limit.
	List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Notification, error)
	// ListAll returns every notification; read tracking scans read_by in the
	// application, which is fine at event scale.
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Notification, error)
	UpdateReadBy(ctx context.Context, tx *gorm.DB, id uuid.UUID, readBy []byte) error
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{db: db, log: baseLog.With("repo", "NotificationRepo")}
}

func (r *notificationRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Notification) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *notificationRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Notification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx)
	// SQLite serializes writers on its own and rejects FOR UPDATE syntax;
	// Postgres needs the explicit row lock.
	if transaction.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row types.Notification
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *notificationRepo) List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Notification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Notification
	q := transaction.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *notificationRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Notification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Notification
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *notificationRepo) UpdateReadBy(ctx context.Context, tx *gorm.DB, id uuid.UUID, readBy []byte) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Notification{}).
		Where("id = ?", id).
		Update("read_by", readBy).Error
}
