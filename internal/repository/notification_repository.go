package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/blogsphere/backend/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UnreadListLimit caps how many unread notifications are returned at once.
const UnreadListLimit = 50

type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// CreateNotification inserts a notification with an empty reader set.
func (r *NotificationRepository) CreateNotification(ctx context.Context, notif *models.Notification) error {
	notif.CreatedAt = time.Now()
	notif.UpdatedAt = notif.CreatedAt
	notif.Readers = []primitive.ObjectID{}

	result, err := r.collection.InsertOne(ctx, notif)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert notification")
		return fmt.Errorf("failed to create notification: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		notif.ID = id
	}
	return nil
}

// unreadFilter selects the records userID has not read, did not create,
// and that are either shared or addressed to userID.
// Fan-out copies carry recipient_id so each user sees only their own copy.
func unreadFilter(userID primitive.ObjectID) bson.M {
	return bson.M{
		"readers":      bson.M{"$ne": userID},
		"creator_id":   bson.M{"$ne": userID},
		"recipient_id": bson.M{"$in": bson.A{nil, userID}},
	}
}

// creatorLookupStages joins the creator as {_id, name, avatar}.
func creatorLookupStages() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "let", Value: bson.D{{Key: "creatorId", Value: "$creator_id"}}},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
					{Key: "$eq", Value: bson.A{"$_id", "$$creatorId"}},
				}}}}},
				bson.D{{Key: "$project", Value: bson.D{
					{Key: "name", Value: 1},
					{Key: "avatar", Value: "$photo.url"},
				}}},
			}},
			{Key: "as", Value: "creator"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$creator"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
}

func (r *NotificationRepository) aggregateViews(ctx context.Context, pipeline mongo.Pipeline) ([]models.NotificationView, error) {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate notifications: %w", err)
	}
	defer cursor.Close(ctx)

	views := []models.NotificationView{}
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return views, nil
}

// ListUnreadFor returns up to UnreadListLimit unread notifications for userID, newest first.
func (r *NotificationRepository) ListUnreadFor(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: unreadFilter(userID)}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$limit", Value: UnreadListLimit}},
	}
	pipeline = append(pipeline, creatorLookupStages()...)

	views, err := r.aggregateViews(ctx, pipeline)
	if err != nil {
		logrus.WithError(err).WithField("userID", userID.Hex()).Error("Failed to list unread notifications")
		return nil, err
	}
	return views, nil
}

// CountUnreadFor counts every unread notification for userID, ignoring the list cap.
func (r *NotificationRepository) CountUnreadFor(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, unreadFilter(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// FindViewByID fetches a notification with its creator joined.
func (r *NotificationRepository) FindViewByID(ctx context.Context, id primitive.ObjectID) (*models.NotificationView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": id}}},
		{{Key: "$limit", Value: 1}},
	}
	pipeline = append(pipeline, creatorLookupStages()...)

	views, err := r.aggregateViews(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrNotFound
	}
	return &views[0], nil
}

// MarkRead adds userID to the reader set of id. changed is false when userID had already read it.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) (view *models.NotificationView, changed bool, err error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "readers": bson.M{"$ne": userID}},
		bson.M{
			"$addToSet": bson.M{"readers": userID},
			"$set":      bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		logrus.WithError(err).WithField("notificationID", id.Hex()).Error("Failed to mark notification read")
		return nil, false, fmt.Errorf("failed to mark notification read: %w", err)
	}

	view, err = r.FindViewByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return view, result.ModifiedCount > 0, nil
}

// MarkAllReadFor adds userID to every record it is missing from, across the whole collection.
// This includes records userID created and fan-out copies addressed to other users.
func (r *NotificationRepository) MarkAllReadFor(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"readers": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"readers": userID}},
	)
	if err != nil {
		logrus.WithError(err).WithField("userID", userID.Hex()).Error("Failed to mark all notifications read")
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	logrus.Infof("Marked %d notifications read for %s", result.ModifiedCount, userID.Hex())
	return result.ModifiedCount, nil
}
