package services

import (
	"context"
	"strings"
	"testing"

	"github.com/blogsphere/backend/internal/apperrors"
	"github.com/blogsphere/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func pngUpload(body string) *models.ImageUpload {
	return &models.ImageUpload{File: strings.NewReader(body), Size: int64(len(body)), ContentType: "image/png"}
}

func createBlog(t *testing.T, f *fixture, author *models.User) *models.Blog {
	t.Helper()
	blog, err := f.blogs.Create(context.Background(), author, models.CreateBlogRequest{
		Title:    "Go generics",
		Category: "go",
		About:    "# Intro\n\nType parameters.",
	}, pngUpload("png"))
	require.NoError(t, err)
	return blog
}

func TestCreateBlog(t *testing.T) {
	f := newFixture()
	author := f.db.AddUser("ada", models.RoleWriter)

	blog := createBlog(t, f, author)

	assert.Equal(t, 0, blog.Like)
	assert.Empty(t, blog.LikedBy)
	assert.Equal(t, "ada", blog.WriterName)
	assert.Equal(t, author.Photo.URL, blog.WriterPhoto)
	require.NotNil(t, blog.BlogImage)
	assert.True(t, strings.HasPrefix(blog.BlogImage.PublicID, blogImageFolder))
	assert.Equal(t, 1, f.db.Users[author.ID].NoOfBlogs)

	require.Len(t, f.db.Notifications, 1)
	notif := f.db.Notifications[0]
	assert.Equal(t, models.NotificationTypeBlog, notif.Type)
	assert.Equal(t, "Blog created", notif.Message)
	assert.Equal(t, blog.Title, notif.Title)
	assert.Nil(t, notif.RecipientID)

	events := f.publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventBlogNotification, events[0].event)
	assert.Empty(t, events[0].room)
}

func TestCreateBlogValidation(t *testing.T) {
	f := newFixture()
	author := f.db.AddUser("ada", models.RoleWriter)
	ctx := context.Background()

	_, err := f.blogs.Create(ctx, author, models.CreateBlogRequest{Title: "only title"}, nil)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	gif := &models.ImageUpload{File: strings.NewReader("gif"), Size: 3, ContentType: "image/gif"}
	_, err = f.blogs.Create(ctx, author, models.CreateBlogRequest{Title: "t", Category: "c", About: "a"}, gif)
	assert.Equal(t, "Only jpg, jpeg, png allowed", apperrors.PublicMessage(err))
	assert.Empty(t, f.db.Blogs)
}

func TestLikeUnlikeScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	writer := f.db.AddUser("writer", models.RoleWriter)
	reader := f.db.AddUser("reader", models.RoleReader)
	blog := createBlog(t, f, writer)
	id := blog.ID.Hex()

	res, err := f.blogs.Like(ctx, id, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Likes)
	require.Len(t, res.LikedBy, 1)
	assert.Equal(t, "reader", res.LikedBy[0].Name)
	assert.Contains(t, f.db.Blogs[blog.ID].LikedBy, reader.ID)
	assert.Contains(t, f.db.Users[reader.ID].LikeByMe, blog.ID)

	_, err = f.blogs.Like(ctx, id, reader.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindDuplicateAction))
	assert.Equal(t, 1, f.db.Blogs[blog.ID].Like)
	assert.Len(t, f.db.Blogs[blog.ID].LikedBy, 1)

	res, err = f.blogs.Unlike(ctx, id, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Likes)
	assert.NotContains(t, f.db.Blogs[blog.ID].LikedBy, reader.ID)
	assert.NotContains(t, f.db.Users[reader.ID].LikeByMe, blog.ID)
}

func TestUnlikeNeverLikedStaysAtZero(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	writer := f.db.AddUser("writer", models.RoleWriter)
	reader := f.db.AddUser("reader", models.RoleReader)
	blog := createBlog(t, f, writer)

	res, err := f.blogs.Unlike(ctx, blog.ID.Hex(), reader.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Likes)
	assert.Equal(t, len(f.db.Blogs[blog.ID].LikedBy), f.db.Blogs[blog.ID].Like)
}

func TestLikeMissingEntities(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	writer := f.db.AddUser("writer", models.RoleWriter)
	blog := createBlog(t, f, writer)

	_, err := f.blogs.Like(ctx, primitive.NewObjectID().Hex(), writer.ID)
	assert.Equal(t, "Blog not found", apperrors.PublicMessage(err))

	_, err = f.blogs.Like(ctx, blog.ID.Hex(), primitive.NewObjectID())
	assert.Equal(t, "User not found", apperrors.PublicMessage(err))

	_, err = f.blogs.Like(ctx, "bad", writer.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestGetBlogDetail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	writer := f.db.AddUser("writer", models.RoleWriter)
	reader := f.db.AddUser("reader", models.RoleReader)
	blog := createBlog(t, f, writer)
	_, err := f.blogs.Like(ctx, blog.ID.Hex(), reader.ID)
	require.NoError(t, err)

	detail, err := f.blogs.Get(ctx, blog.ID.Hex(), reader.ID)
	require.NoError(t, err)
	assert.True(t, detail.LikedByMe)
	assert.Contains(t, detail.AboutHTML, "<h1")

	detail, err = f.blogs.Get(ctx, blog.ID.Hex(), writer.ID)
	require.NoError(t, err)
	assert.False(t, detail.LikedByMe)
}

func TestUpdateBlog(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	writer := f.db.AddUser("writer", models.RoleWriter)
	other := f.db.AddUser("other", models.RoleWriter)
	admin := f.db.AddUser("admin", models.RoleAdmin)
	blog := createBlog(t, f, writer)
	oldImage := blog.BlogImage.PublicID

	_, err := f.blogs.Update(ctx, other, blog.ID.Hex(), models.UpdateBlogRequest{Title: "hijack"}, nil)
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))

	updated, err := f.blogs.Update(ctx, writer, blog.ID.Hex(), models.UpdateBlogRequest{Title: "Renamed"}, pngUpload("new"))
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "go", updated.Category, "empty fields keep their value")
	assert.NotEqual(t, oldImage, updated.BlogImage.PublicID)
	assert.Contains(t, f.images.deleted, oldImage)

	_, err = f.blogs.Update(ctx, admin, blog.ID.Hex(), models.UpdateBlogRequest{About: "by admin"}, nil)
	require.NoError(t, err)

	events := f.publisher.all()
	last := events[len(events)-1]
	assert.Equal(t, models.EventBlogNotification, last.event)
	assert.Equal(t, "update", last.payload.(models.BlogEvent).Action)
}

func TestDeleteBlog(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	writer := f.db.AddUser("writer", models.RoleWriter)
	reader := f.db.AddUser("reader", models.RoleReader)
	blog := createBlog(t, f, writer)

	err := f.blogs.Delete(ctx, reader, blog.ID.Hex())
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))

	require.NoError(t, f.blogs.Delete(ctx, writer, blog.ID.Hex()))
	assert.Empty(t, f.db.Blogs)
	assert.Contains(t, f.images.deleted, blog.BlogImage.PublicID)
	assert.Equal(t, 0, f.db.Users[writer.ID].NoOfBlogs)

	events := f.publisher.all()
	last := events[len(events)-1]
	event := last.payload.(models.BlogEvent)
	assert.Equal(t, "delete", event.Action)
	assert.Equal(t, blog.ID, event.ID)

	err = f.blogs.Delete(ctx, writer, blog.ID.Hex())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestPostsByWriter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	writer := f.db.AddUser("writer", models.RoleWriter)
	other := f.db.AddUser("other", models.RoleWriter)
	createBlog(t, f, writer)
	createBlog(t, f, writer)
	createBlog(t, f, other)

	posts, err := f.blogs.PostsByWriter(ctx, writer.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	_, err = f.blogs.PostsByWriter(ctx, "zzz")
	assert.Equal(t, "Invalid writer id", apperrors.PublicMessage(err))
}
