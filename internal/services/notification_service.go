package services

import (
	"context"
	"errors"

	"github.com/blogsphere/backend/internal/apperrors"
	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/repository"
	"github.com/blogsphere/backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService owns the notification ledger: records are the source of truth,
// realtime pushes are only a latency optimisation on top of them.
type NotificationService struct {
	repo      NotificationStore
	users     UserStore
	publisher Publisher
}

func NewNotificationService(repo NotificationStore, users UserStore, publisher Publisher) *NotificationService {
	return &NotificationService{repo: repo, users: users, publisher: publisher}
}

// Create validates req and stores one record created by creatorID with an empty reader set.
func (s *NotificationService) Create(ctx context.Context, creatorID primitive.ObjectID, req models.NotificationRequest) (*models.Notification, error) {
	if err := s.checkRequest(ctx, creatorID, req); err != nil {
		return nil, err
	}
	notif := newNotification(creatorID, req)
	if err := s.repo.CreateNotification(ctx, notif); err != nil {
		return nil, apperrors.Internal("failed to create notification", err)
	}
	return notif, nil
}

// Broadcast stores one record per user other than the creator and pushes each record
// to its recipient's room.
func (s *NotificationService) Broadcast(ctx context.Context, creatorID primitive.ObjectID, req models.NotificationRequest) ([]models.Notification, error) {
	if err := s.checkRequest(ctx, creatorID, req); err != nil {
		return nil, err
	}

	recipients, err := s.users.GetUserIDsExcept(ctx, creatorID)
	if err != nil {
		return nil, apperrors.Internal("failed to list recipients", err)
	}

	sent := make([]models.Notification, 0, len(recipients))
	for _, recipientID := range recipients {
		notif := newNotification(creatorID, req)
		recipient := recipientID
		notif.RecipientID = &recipient

		if err := s.repo.CreateNotification(ctx, notif); err != nil {
			logger.Log.WithError(err).WithField("recipient", recipientID.Hex()).Error("Fan-out stopped on failed insert")
			return nil, apperrors.Internal("Notification create failed", err)
		}
		sent = append(sent, *notif)
		s.publisher.SendTo(recipientID.Hex(), models.EventNewNotification, notif)
	}

	logger.Log.WithFields(map[string]interface{}{
		"creator":    creatorID.Hex(),
		"total_sent": len(sent),
	}).Info("Notification fanned out")
	return sent, nil
}

// NotifyBlogCreated records a single shared blog notification and broadcasts it to everyone.
func (s *NotificationService) NotifyBlogCreated(ctx context.Context, blog *models.Blog) (*models.Notification, error) {
	notif := &models.Notification{
		CreatorID: blog.CreatedBy,
		Title:     blog.Title,
		Message:   "Blog created",
		Type:      models.NotificationTypeBlog,
	}
	if err := s.repo.CreateNotification(ctx, notif); err != nil {
		return nil, apperrors.Internal("failed to record blog notification", err)
	}
	s.publisher.Broadcast(models.EventBlogNotification, notif)
	return notif, nil
}

// ListUnread returns the newest unread records for userID and the total unread count.
func (s *NotificationService) ListUnread(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationView, int64, error) {
	views, err := s.repo.ListUnreadFor(ctx, userID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to fetch notifications", err)
	}
	count, err := s.repo.CountUnreadFor(ctx, userID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to fetch notifications", err)
	}
	return views, count, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	count, err := s.repo.CountUnreadFor(ctx, userID)
	if err != nil {
		return 0, apperrors.Internal("Failed to count notifications", err)
	}
	return count, nil
}

// MarkRead adds userID to the record's readers. alreadyRead reports a repeated call.
func (s *NotificationService) MarkRead(ctx context.Context, id string, userID primitive.ObjectID) (view *models.NotificationView, alreadyRead bool, err error) {
	objID, err := parseID(id, "notification")
	if err != nil {
		return nil, false, err
	}

	view, changed, err := s.repo.MarkRead(ctx, objID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, apperrors.NotFound("Notification not found")
	}
	if err != nil {
		return nil, false, apperrors.Internal("Failed to update notification", err)
	}
	return view, !changed, nil
}

// MarkAllRead sweeps every record missing userID from its readers and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.repo.MarkAllReadFor(ctx, userID)
	if err != nil {
		return 0, apperrors.Internal("Failed to update notifications", err)
	}
	return n, nil
}

func (s *NotificationService) checkRequest(ctx context.Context, creatorID primitive.ObjectID, req models.NotificationRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	if _, err := s.users.GetUserByID(ctx, creatorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Creator not found")
		}
		return apperrors.Internal("failed to load creator", err)
	}
	return nil
}

func newNotification(creatorID primitive.ObjectID, req models.NotificationRequest) *models.Notification {
	notifType := req.Type
	if notifType == "" {
		notifType = models.NotificationTypeGeneral
	}
	return &models.Notification{
		CreatorID: creatorID,
		Title:     req.Title,
		Message:   req.Message,
		Type:      notifType,
	}
}
