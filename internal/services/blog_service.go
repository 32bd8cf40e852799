package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/blogsphere/backend/internal/apperrors"
	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/repository"
	"github.com/blogsphere/backend/pkg/logger"
	"github.com/blogsphere/backend/pkg/markdown"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const blogImageFolder = "blog/blogs"

// BlogDetail is a single blog as seen by a particular reader.
type BlogDetail struct {
	Blog      *models.Blog
	LikedByMe bool
	AboutHTML string
}

// LikeResult is the blog's like state right after a like or unlike.
type LikeResult struct {
	Likes   int
	LikedBy []models.UserSummary
}

// BlogService encapsulates the business logic for blogs and likes.
type BlogService struct {
	blogs         BlogStore
	likes         LikeStore
	users         UserStore
	images        ImageStore
	notifications *NotificationService
	publisher     Publisher
}

func NewBlogService(blogs BlogStore, likes LikeStore, users UserStore, images ImageStore, notifications *NotificationService, publisher Publisher) *BlogService {
	return &BlogService{
		blogs:         blogs,
		likes:         likes,
		users:         users,
		images:        images,
		notifications: notifications,
		publisher:     publisher,
	}
}

// Create stores a blog by author, bumps the author's blog count and announces it to everyone.
func (s *BlogService) Create(ctx context.Context, author *models.User, req models.CreateBlogRequest, image *models.ImageUpload) (*models.Blog, error) {
	if err := validateStruct(req); err != nil {
		return nil, apperrors.Validation("Title, category and about are required")
	}
	if image != nil {
		if err := checkImage(image); err != nil {
			return nil, err
		}
	}

	blog := &models.Blog{
		Title:       req.Title,
		Category:    req.Category,
		About:       req.About,
		WriterName:  author.Name,
		WriterPhoto: author.Photo.URL,
		CreatedBy:   author.ID,
	}
	if image != nil {
		stored, err := s.images.Put(ctx, blogImageFolder, image.File, image.Size, image.ContentType)
		if err != nil {
			return nil, apperrors.Internal("failed to upload blog image", err)
		}
		blog.BlogImage = stored
	}

	created, err := s.blogs.CreateBlog(ctx, blog)
	if err != nil {
		if blog.BlogImage != nil {
			s.discardImage(ctx, blog.BlogImage.PublicID)
		}
		return nil, apperrors.Internal("failed to create blog", err)
	}

	if err := s.users.AdjustBlogCount(ctx, author.ID, 1); err != nil {
		logger.Log.WithError(err).WithField("user_id", author.ID.Hex()).Warn("Blog count not incremented")
	}
	if _, err := s.notifications.NotifyBlogCreated(ctx, created); err != nil {
		logger.Log.WithError(err).WithField("blog_id", created.ID.Hex()).Error("Blog created without notification")
	}

	logger.Log.WithField("blog_id", created.ID.Hex()).Info("Blog created in service layer")
	return created, nil
}

// List returns every blog, newest first.
func (s *BlogService) List(ctx context.Context) ([]models.Blog, error) {
	blogs, err := s.blogs.GetAllBlogs(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to list blogs", err)
	}
	return blogs, nil
}

// ListByAuthor returns the blogs written by authorID, newest first.
func (s *BlogService) ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Blog, error) {
	blogs, err := s.blogs.GetBlogsByAuthor(ctx, authorID)
	if err != nil {
		return nil, apperrors.Internal("failed to list blogs", err)
	}
	return blogs, nil
}

// PostsByWriter is ListByAuthor keyed by a hex id from the URL.
func (s *BlogService) PostsByWriter(ctx context.Context, writerID string) ([]models.Blog, error) {
	id, err := parseID(writerID, "writer")
	if err != nil {
		return nil, err
	}
	return s.ListByAuthor(ctx, id)
}

// Get returns a blog with the viewer's like state and the rendered body.
func (s *BlogService) Get(ctx context.Context, id string, viewerID primitive.ObjectID) (*BlogDetail, error) {
	blog, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BlogDetail{
		Blog:      blog,
		LikedByMe: blog.IsLikedBy(viewerID),
		AboutHTML: markdown.Render(blog.About),
	}, nil
}

// Update changes the blog's editable fields. Empty fields keep their value; a new image
// replaces the stored one.
func (s *BlogService) Update(ctx context.Context, actor *models.User, id string, req models.UpdateBlogRequest, image *models.ImageUpload) (*models.Blog, error) {
	blog, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, blog); err != nil {
		return nil, err
	}

	if req.Title != "" {
		blog.Title = req.Title
	}
	if req.Category != "" {
		blog.Category = req.Category
	}
	if req.About != "" {
		blog.About = req.About
	}

	var replaced *models.Image
	if image != nil {
		if err := checkImage(image); err != nil {
			return nil, err
		}
		stored, err := s.images.Put(ctx, blogImageFolder, image.File, image.Size, image.ContentType)
		if err != nil {
			return nil, apperrors.Internal("failed to upload blog image", err)
		}
		replaced, blog.BlogImage = blog.BlogImage, stored
	}

	updated, err := s.blogs.UpdateBlog(ctx, blog)
	if err != nil {
		if image != nil {
			s.discardImage(ctx, blog.BlogImage.PublicID)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Blog not found")
		}
		return nil, apperrors.Internal("failed to update blog", err)
	}
	if replaced != nil {
		s.discardImage(ctx, replaced.PublicID)
	}

	s.publisher.Broadcast(models.EventBlogNotification, models.BlogEvent{
		Action:  "update",
		ID:      updated.ID,
		Title:   updated.Title,
		Message: fmt.Sprintf("Blog Updated: %s", updated.Title),
	})
	return updated, nil
}

// Delete removes the blog and its image and decrements the author's blog count.
func (s *BlogService) Delete(ctx context.Context, actor *models.User, id string) error {
	blog, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, blog); err != nil {
		return err
	}

	if err := s.blogs.DeleteBlog(ctx, blog.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Blog not found")
		}
		return apperrors.Internal("failed to delete blog", err)
	}
	if blog.BlogImage != nil && blog.BlogImage.PublicID != "" {
		s.discardImage(ctx, blog.BlogImage.PublicID)
	}
	if err := s.users.AdjustBlogCount(ctx, blog.CreatedBy, -1); err != nil {
		logger.Log.WithError(err).WithField("user_id", blog.CreatedBy.Hex()).Warn("Blog count not decremented")
	}

	s.publisher.Broadcast(models.EventBlogNotification, models.BlogEvent{
		Action:  "delete",
		ID:      blog.ID,
		Title:   blog.Title,
		Message: fmt.Sprintf("Blog Deleted: %s", blog.Title),
	})
	return nil
}

// Like adds userID to the blog's liked-by set. Liking twice is a DuplicateAction.
func (s *BlogService) Like(ctx context.Context, id string, userID primitive.ObjectID) (*LikeResult, error) {
	blogID, err := parseID(id, "blog")
	if err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	blog, err := s.likes.Like(ctx, blogID, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NotFound("Blog not found")
	case errors.Is(err, repository.ErrAlreadyLiked):
		return nil, apperrors.DuplicateAction("User already liked this blog")
	case err != nil:
		return nil, apperrors.Internal("failed to like blog", err)
	}

	likedBy, err := s.users.GetUserSummaries(ctx, blog.LikedBy)
	if err != nil {
		return nil, apperrors.Internal("failed to load liked-by users", err)
	}
	return &LikeResult{Likes: blog.Like, LikedBy: likedBy}, nil
}

// Unlike removes userID from the liked-by set. It is a no-op when the user never liked the blog.
func (s *BlogService) Unlike(ctx context.Context, id string, userID primitive.ObjectID) (*LikeResult, error) {
	blogID, err := parseID(id, "blog")
	if err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	blog, err := s.likes.Unlike(ctx, blogID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Blog not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to unlike blog", err)
	}
	return &LikeResult{Likes: blog.Like}, nil
}

func (s *BlogService) load(ctx context.Context, id string) (*models.Blog, error) {
	blogID, err := parseID(id, "blog")
	if err != nil {
		return nil, err
	}
	blog, err := s.blogs.GetBlogByID(ctx, blogID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Blog not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get blog", err)
	}
	return blog, nil
}

func (s *BlogService) requireUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("User not found")
	}
	if err != nil {
		return apperrors.Internal("failed to load user", err)
	}
	return nil
}

func (s *BlogService) discardImage(ctx context.Context, publicID string) {
	if err := s.images.Delete(ctx, publicID); err != nil {
		logger.Log.WithError(err).WithField("public_id", publicID).Warn("Failed to delete stored image")
	}
}

// authorize allows the blog's author and admins.
func authorize(actor *models.User, blog *models.Blog) error {
	if actor.Role == models.RoleAdmin || actor.ID == blog.CreatedBy {
		return nil
	}
	return apperrors.Authorization("You can only modify your own blogs")
}
