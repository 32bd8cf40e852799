package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Realtime event names.
const (
	EventBlogNotification = "blog-notification"
	EventNewNotification  = "new-notification"
	EventNewPost          = "new-post"
	EventDeletePost       = "delete-post"
	EventJoin             = "join"
)

// BlogEvent is pushed on blog-notification when a blog is updated or deleted.
type BlogEvent struct {
	Action  string             `json:"action"` // "update" or "delete"
	ID      primitive.ObjectID `json:"id"`
	Title   string             `json:"title"`
	Message string             `json:"message"`
}
