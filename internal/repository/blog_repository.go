package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BlogRepository handles database operations related to blogs.
type BlogRepository struct {
	collection *mongo.Collection
}

// NewBlogRepository creates a new instance of BlogRepository.
func NewBlogRepository(db *mongo.Database) *BlogRepository {
	return &BlogRepository{
		collection: db.Collection("blogs"),
	}
}

// CreateBlog inserts a blog with an empty liked-by set.
func (r *BlogRepository) CreateBlog(ctx context.Context, blog *models.Blog) (*models.Blog, error) {
	blog.CreatedAt = time.Now()
	blog.UpdatedAt = blog.CreatedAt
	blog.Like = 0
	blog.LikedBy = []primitive.ObjectID{}

	result, err := r.collection.InsertOne(ctx, blog)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert blog")
		return nil, fmt.Errorf("failed to insert blog: %w", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logger.Log.Error("Failed to cast inserted ID")
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	blog.ID = insertedID

	logger.Log.WithField("blog_id", blog.ID.Hex()).Info("Blog created successfully")
	return blog, nil
}

// GetBlogByID fetches a blog by its ID.
func (r *BlogRepository) GetBlogByID(ctx context.Context, id primitive.ObjectID) (*models.Blog, error) {
	var blog models.Blog
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&blog)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Log.WithError(err).WithField("blog_id", id.Hex()).Error("Failed to find blog by ID")
		return nil, fmt.Errorf("failed to find blog: %w", err)
	}
	return &blog, nil
}

// GetAllBlogs fetches every blog, newest first.
func (r *BlogRepository) GetAllBlogs(ctx context.Context) ([]models.Blog, error) {
	return r.find(ctx, bson.M{})
}

// GetBlogsByAuthor fetches the blogs created by userID, newest first.
func (r *BlogRepository) GetBlogsByAuthor(ctx context.Context, userID primitive.ObjectID) ([]models.Blog, error) {
	return r.find(ctx, bson.M{"created_by": userID})
}

func (r *BlogRepository) find(ctx context.Context, filter bson.M) ([]models.Blog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch blogs")
		return nil, fmt.Errorf("failed to fetch blogs: %w", err)
	}
	defer cursor.Close(ctx)

	blogs := []models.Blog{}
	if err := cursor.All(ctx, &blogs); err != nil {
		return nil, fmt.Errorf("failed to decode blogs: %w", err)
	}
	return blogs, nil
}

// UpdateBlog writes the editable fields of blog. Like state is never touched here.
func (r *BlogRepository) UpdateBlog(ctx context.Context, blog *models.Blog) (*models.Blog, error) {
	blog.UpdatedAt = time.Now()

	set := bson.M{
		"title":      blog.Title,
		"category":   blog.Category,
		"about":      blog.About,
		"updated_at": blog.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if blog.BlogImage != nil {
		set["blog_image"] = blog.BlogImage
	} else {
		update["$unset"] = bson.M{"blog_image": ""}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": blog.ID}, update)
	if err != nil {
		logger.Log.WithError(err).WithField("blog_id", blog.ID.Hex()).Error("Failed to update blog")
		return nil, fmt.Errorf("failed to update blog: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	logger.Log.WithField("blog_id", blog.ID.Hex()).Info("Blog updated successfully")
	return blog, nil
}

// DeleteBlog deletes a blog by its ID.
func (r *BlogRepository) DeleteBlog(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logger.Log.WithError(err).WithField("blog_id", id.Hex()).Error("Failed to delete blog")
		return fmt.Errorf("failed to delete blog: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	logger.Log.WithField("blog_id", id.Hex()).Info("Blog deleted successfully")
	return nil
}

// ReconcileLikeCounts rewrites like to the size of liked_by wherever the two disagree.
func (r *BlogRepository) ReconcileLikeCounts(ctx context.Context) (int64, error) {
	likedBySize := bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$liked_by", bson.A{}}}}}}
	filter := bson.D{{Key: "$expr", Value: bson.D{{Key: "$ne", Value: bson.A{"$like", likedBySize}}}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "like", Value: likedBySize}}}},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile like counts: %w", err)
	}
	return result.ModifiedCount, nil
}
