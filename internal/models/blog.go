package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Blog is a post authored by a writer or admin.
// Like is stored as a projection of len(LikedBy) and is rewritten with it on every like/unlike.
type Blog struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Title       string               `bson:"title" json:"title"`
	Category    string               `bson:"category" json:"category"`
	About       string               `bson:"about" json:"about"`
	BlogImage   *Image               `bson:"blog_image,omitempty" json:"blogImage,omitempty"`
	WriterName  string               `bson:"writer_name" json:"writerName"`
	WriterPhoto string               `bson:"writer_photo" json:"writerPhoto"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updatedAt"`
	Like        int                  `bson:"like" json:"like"`
	LikedBy     []primitive.ObjectID `bson:"liked_by" json:"likedBy"`
}

// IsLikedBy reports whether userID is in the liked-by set.
func (b *Blog) IsLikedBy(userID primitive.ObjectID) bool {
	for _, id := range b.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}
