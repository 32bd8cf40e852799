package services

import (
	"context"
	"io"
	"time"

	"github.com/blogsphere/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStore is the subset of the user repository the services depend on.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUsersByRole(ctx context.Context, role string) ([]models.User, error)
	GetUserSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error)
	GetUserIDsExcept(ctx context.Context, exclude primitive.ObjectID) ([]primitive.ObjectID, error)
	AdjustBlogCount(ctx context.Context, id primitive.ObjectID, delta int) error
}

type BlogStore interface {
	CreateBlog(ctx context.Context, blog *models.Blog) (*models.Blog, error)
	GetBlogByID(ctx context.Context, id primitive.ObjectID) (*models.Blog, error)
	GetAllBlogs(ctx context.Context) ([]models.Blog, error)
	GetBlogsByAuthor(ctx context.Context, userID primitive.ObjectID) ([]models.Blog, error)
	UpdateBlog(ctx context.Context, blog *models.Blog) (*models.Blog, error)
	DeleteBlog(ctx context.Context, id primitive.ObjectID) error
}

type LikeStore interface {
	Like(ctx context.Context, blogID, userID primitive.ObjectID) (*models.Blog, error)
	Unlike(ctx context.Context, blogID, userID primitive.ObjectID) (*models.Blog, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, notif *models.Notification) error
	ListUnreadFor(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationView, error)
	CountUnreadFor(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) (*models.NotificationView, bool, error)
	MarkAllReadFor(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// Publisher pushes realtime events. Delivery is best-effort.
type Publisher interface {
	Broadcast(event string, payload interface{})
	SendTo(room, event string, payload interface{})
}

// ImageStore keeps uploaded images.
type ImageStore interface {
	Put(ctx context.Context, folder string, r io.Reader, size int64, contentType string) (*models.Image, error)
	Delete(ctx context.Context, publicID string) error
}

type Mailer interface {
	SendEmail(to, subject, body string) error
}

type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}
