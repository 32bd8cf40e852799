package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func ctx() context.Context {
	return context.Background()
}

func blogDoc(id primitive.ObjectID, likedBy ...primitive.ObjectID) bson.D {
	if likedBy == nil {
		likedBy = []primitive.ObjectID{}
	}
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: "Go generics"},
		{Key: "like", Value: len(likedBy)},
		{Key: "liked_by", Value: likedBy},
	}
}

func newLikeRepo(mt *mtest.T) *LikeRepository {
	return &LikeRepository{
		client: mt.Client,
		blogs:  mt.Coll,
		users:  mt.Coll,
	}
}

func TestLikedByPipeline(t *testing.T) {
	userID := primitive.NewObjectID()
	pipeline := likedByPipeline("$setUnion", userID)
	require.Len(t, pipeline, 2)

	likedBy := pipeline[0][0].Value.(bson.D)[0]
	assert.Equal(t, "liked_by", likedBy.Key)
	union := likedBy.Value.(bson.D)[0]
	assert.Equal(t, "$setUnion", union.Key)
	assert.Equal(t, bson.A{userID}, union.Value.(bson.A)[1])

	like := pipeline[1][0].Value.(bson.D)[0]
	assert.Equal(t, "like", like.Key)
	assert.Equal(t, bson.D{{Key: "$size", Value: "$liked_by"}}, like.Value)
}

func TestLikeRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("like returns updated blog", func(mt *mtest.T) {
		repo := newLikeRepo(mt)
		blogID := primitive.NewObjectID()
		userID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: blogDoc(blogID, userID)}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		blog, err := repo.Like(ctx(), blogID, userID)
		require.NoError(mt, err)
		assert.Equal(mt, 1, blog.Like)
		assert.Equal(mt, len(blog.LikedBy), blog.Like)
		assert.True(mt, blog.IsLikedBy(userID))
	})

	mt.Run("like twice is rejected", func(mt *mtest.T) {
		repo := newLikeRepo(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "blogsphere.blogs", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		_, err := repo.Like(ctx(), primitive.NewObjectID(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrAlreadyLiked)
	})

	mt.Run("like missing blog", func(mt *mtest.T) {
		repo := newLikeRepo(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "blogsphere.blogs", mtest.FirstBatch),
		)

		_, err := repo.Like(ctx(), primitive.NewObjectID(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("unlike never liked keeps zero", func(mt *mtest.T) {
		repo := newLikeRepo(mt)
		blogID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: blogDoc(blogID)}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}),
		)

		blog, err := repo.Unlike(ctx(), blogID, primitive.NewObjectID())
		require.NoError(mt, err)
		assert.Equal(mt, 0, blog.Like)
		assert.Empty(mt, blog.LikedBy)
	})

	mt.Run("unlike missing blog", func(mt *mtest.T) {
		repo := newLikeRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.Unlike(ctx(), primitive.NewObjectID(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("user update failure surfaces", func(mt *mtest.T) {
		repo := newLikeRepo(mt)
		blogID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: blogDoc(blogID)}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "boom"}),
		)

		_, err := repo.Unlike(ctx(), blogID, primitive.NewObjectID())
		require.Error(mt, err)
		var cmdErr mongo.CommandError
		assert.ErrorAs(mt, err, &cmdErr)
	})
}
