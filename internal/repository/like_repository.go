package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LikeRepository mutates the blog liked-by set and the user's liked list together.
// The blog's like counter is recomputed from the set inside the same update,
// so the two can never disagree after a like or unlike.
type LikeRepository struct {
	client          *mongo.Client
	blogs           *mongo.Collection
	users           *mongo.Collection
	useTransactions bool
}

func NewLikeRepository(db *mongo.Database, useTransactions bool) *LikeRepository {
	return &LikeRepository{
		client:          db.Client(),
		blogs:           db.Collection("blogs"),
		users:           db.Collection("users"),
		useTransactions: useTransactions,
	}
}

// Like adds userID to the blog's liked-by set and blogID to the user's liked list.
// Returns ErrAlreadyLiked when the user is already in the set and ErrNotFound when the blog is gone.
func (r *LikeRepository) Like(ctx context.Context, blogID, userID primitive.ObjectID) (*models.Blog, error) {
	var blog models.Blog
	err := r.withinTransaction(ctx, func(ctx context.Context) error {
		filter := bson.M{"_id": blogID, "liked_by": bson.M{"$ne": userID}}
		err := r.blogs.FindOneAndUpdate(ctx, filter, likedByPipeline("$setUnion", userID),
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&blog)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrAlreadyLiked
		}
		if err != nil {
			return fmt.Errorf("failed to like blog: %w", err)
		}

		_, err = r.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$addToSet": bson.M{"like_by_me": blogID}})
		if err != nil {
			return fmt.Errorf("failed to record liked blog on user: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrAlreadyLiked) {
		// The filter also misses when the blog was deleted concurrently.
		n, countErr := r.blogs.CountDocuments(ctx, bson.M{"_id": blogID})
		if countErr == nil && n == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrAlreadyLiked
	}
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"blog_id": blogID.Hex(),
			"user_id": userID.Hex(),
		}).Error("Like transaction failed")
		return nil, err
	}
	return &blog, nil
}

// Unlike removes userID from the liked-by set. Unliking a blog that was never liked is a no-op.
func (r *LikeRepository) Unlike(ctx context.Context, blogID, userID primitive.ObjectID) (*models.Blog, error) {
	var blog models.Blog
	err := r.withinTransaction(ctx, func(ctx context.Context) error {
		err := r.blogs.FindOneAndUpdate(ctx, bson.M{"_id": blogID}, likedByPipeline("$setDifference", userID),
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&blog)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to unlike blog: %w", err)
		}

		_, err = r.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$pull": bson.M{"like_by_me": blogID}})
		if err != nil {
			return fmt.Errorf("failed to remove liked blog from user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &blog, nil
}

// likedByPipeline applies setOp ($setUnion or $setDifference) with {userID} to liked_by
// and stores the resulting set size in like.
func likedByPipeline(setOp string, userID primitive.ObjectID) mongo.Pipeline {
	current := bson.D{{Key: "$ifNull", Value: bson.A{"$liked_by", bson.A{}}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "liked_by", Value: bson.D{{Key: setOp, Value: bson.A{current, bson.A{userID}}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "like", Value: bson.D{{Key: "$size", Value: "$liked_by"}}},
		}}},
	}
}

func (r *LikeRepository) withinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !r.useTransactions {
		return fn(ctx)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
