package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotificationTypeGeneral = "general"
	NotificationTypeBlog    = "blog"

	MaxNotificationTitle = 100
)

type Notification struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	CreatorID   primitive.ObjectID   `bson:"creator_id" json:"creatorId"`
	RecipientID *primitive.ObjectID  `bson:"recipient_id,omitempty" json:"recipientId,omitempty"` // set on fan-out copies only
	Title       string               `bson:"title" json:"title"`
	Message     string               `bson:"message" json:"message"`
	Type        string               `bson:"type" json:"type"`
	IsRead      bool                 `bson:"is_read" json:"isRead"` // legacy, readers is authoritative
	Readers     []primitive.ObjectID `bson:"readers" json:"readers"`
	CreatedAt   time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updatedAt"`
}

// HasReader reports whether userID already read the notification.
func (n *Notification) HasReader(userID primitive.ObjectID) bool {
	for _, id := range n.Readers {
		if id == userID {
			return true
		}
	}
	return false
}

// UnreadFor applies the ledger's unread predicate for a single record.
func (n *Notification) UnreadFor(userID primitive.ObjectID) bool {
	if n.CreatorID == userID || n.HasReader(userID) {
		return false
	}
	return n.RecipientID == nil || *n.RecipientID == userID
}

// NotificationView is a notification with its creator joined in.
type NotificationView struct {
	Notification `bson:",inline"`
	Creator      *UserSummary `bson:"creator,omitempty" json:"creator,omitempty"`
}
