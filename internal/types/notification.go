package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification is broadcast to all participants. Per-user read state lives
// inside the row as a JSON array of user ids that only ever grows.
type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Type      string         `gorm:"not null;column:type" json:"type"`
	Title     string         `gorm:"not null;column:title" json:"title"`
	Message   string         `gorm:"not null;column:message" json:"message"`
	ReadBy    datatypes.JSON `gorm:"type:jsonb;column:read_by" json:"read_by"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notification"
}

// ReadByIDs decodes the read_by set. A null or empty column means nobody has
// read the notification yet.
func (n *Notification) ReadByIDs() ([]uuid.UUID, error) {
	if len(n.ReadBy) == 0 {
		return nil, nil
	}
	var raw []string
	if err := json.Unmarshal(n.ReadBy, &raw); err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (n *Notification) IsReadBy(userID uuid.UUID) bool {
	ids, err := n.ReadByIDs()
	if err != nil {
		return false
	}
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}
