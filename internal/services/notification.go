package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendalab/impact-backend/internal/config"
	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/realtime"
	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/requestdata"
	"github.com/vendalab/impact-backend/internal/types"
)

// maxNotificationListLimit caps caller-supplied page sizes.
const maxNotificationListLimit = 200

type BroadcastInput struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// NotificationView pairs a notification with the requesting user's read flag
// so clients never have to inspect the raw read_by set.
type NotificationView struct {
	*types.Notification
	Read bool `json:"read"`
}

type NotificationService interface {
	Broadcast(ctx context.Context, in BroadcastInput) (*types.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*NotificationView, error)
	// MarkRead is idempotent: marking an already-read notification is a no-op
	// reported as success.
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

type notificationService struct {
	db               *gorm.DB
	log              *logger.Logger
	cfg              config.EventConfig
	notificationRepo repos.NotificationRepo
	emitter          SSEEmitter
}

func NewNotificationService(
	db *gorm.DB,
	log *logger.Logger,
	cfg config.EventConfig,
	notificationRepo repos.NotificationRepo,
	emitter SSEEmitter,
) NotificationService {
	return &notificationService{
		db:               db,
		log:              log.With("service", "NotificationService"),
		cfg:              cfg,
		notificationRepo: notificationRepo,
		emitter:          emitter,
	}
}

func (ns *notificationService) Broadcast(ctx context.Context, in BroadcastInput) (*types.Notification, error) {
	rd := requestdata.GetRequestData(ctx)
	if !rd.IsController() {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Message) == "" {
		return nil, fmt.Errorf("title and message required")
	}
	if in.Type == "" {
		in.Type = "info"
	}

	emptySet, _ := json.Marshal([]string{})
	row := &types.Notification{
		ID:        uuid.New(),
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		ReadBy:    emptySet,
		CreatedAt: time.Now().UTC(),
	}
	if err := ns.notificationRepo.Create(ctx, nil, row); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	ns.log.Info("Notification broadcast", "notificationID", row.ID, "type", row.Type)
	ns.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChannelNotifications,
		Event:   realtime.SSEEventNotificationCreated,
		Data:    row,
	})
	return row, nil
}

func (ns *notificationService) List(ctx context.Context, userID uuid.UUID, limit int) ([]*NotificationView, error) {
	if limit <= 0 {
		limit = ns.cfg.NotificationListLimit
	}
	if limit > maxNotificationListLimit {
		limit = maxNotificationListLimit
	}
	rows, err := ns.notificationRepo.List(ctx, nil, limit)
	if err != nil {
		return nil, err
	}
	views := make([]*NotificationView, 0, len(rows))
	for _, n := range rows {
		views = append(views, &NotificationView{Notification: n, Read: n.IsReadBy(userID)})
	}
	return views, nil
}

func (ns *notificationService) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	if notificationID == uuid.Nil || userID == uuid.Nil {
		return fmt.Errorf("notification id and user id required")
	}
	return ns.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ns.appendReader(ctx, tx, notificationID, userID)
	})
}

func (ns *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user id required")
	}
	return ns.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, gErr := ns.notificationRepo.ListAll(ctx, tx)
		if gErr != nil {
			return fmt.Errorf("list notifications: %w", gErr)
		}
		for _, n := range rows {
			if aErr := ns.appendReader(ctx, tx, n.ID, userID); aErr != nil {
				return aErr
			}
		}
		return nil
	})
}

// appendReader grows read_by by one id if absent; an already-present id is a
// no-op, not an error. The row is re-read under a lock inside tx so two
// concurrent markers cannot overwrite each other's receipt.
func (ns *notificationService) appendReader(ctx context.Context, tx *gorm.DB, notificationID, userID uuid.UUID) error {
	n, err := ns.notificationRepo.GetForUpdate(ctx, tx, notificationID)
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}
	if n == nil {
		return fmt.Errorf("unknown notification %s", notificationID)
	}
	if n.IsReadBy(userID) {
		return nil
	}
	ids, err := n.ReadByIDs()
	if err != nil {
		ns.log.Warn("Resetting malformed read_by set", "notificationID", n.ID, "error", err)
		ids = nil
	}
	raw := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	raw = append(raw, userID.String())
	encoded, mErr := json.Marshal(raw)
	if mErr != nil {
		return mErr
	}
	if uErr := ns.notificationRepo.UpdateReadBy(ctx, tx, n.ID, encoded); uErr != nil {
		return fmt.Errorf("update read_by: %w", uErr)
	}
	return nil
}

func (ns *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	rows, err := ns.notificationRepo.ListAll(ctx, nil)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range rows {
		if !n.IsReadBy(userID) {
			count++
		}
	}
	return count, nil
}
