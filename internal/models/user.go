package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleReader = "reader"
	RoleWriter = "writer"
	RoleAdmin  = "admin"
)

// Image points at a stored media object. PublicID is the storage key used to delete it.
type Image struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"public_id" json:"public_id"`
}

// User represents an account on the platform.
type User struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name      string               `bson:"name" json:"name"`
	Email     string               `bson:"email" json:"email"`
	Phone     string               `bson:"phone" json:"phone"`
	Password  string               `bson:"password" json:"-"`
	Role      string               `bson:"role" json:"role"`
	Education string               `bson:"education,omitempty" json:"education,omitempty"`
	Photo     Image                `bson:"photo" json:"photo"`
	NoOfBlogs int                  `bson:"no_of_blogs" json:"no_ofBlogs"`
	LikeByMe  []primitive.ObjectID `bson:"like_by_me" json:"like_By_me"`
	CreatedAt time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updatedAt"`
}

// PublicUser is the identity block returned by login, register and verify.
type PublicUser struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Role  string             `json:"role"`
	Photo Image              `json:"photo"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Photo: u.Photo}
}

// UserSummary is the compact form joined into notifications and like lists.
type UserSummary struct {
	ID     primitive.ObjectID `bson:"_id" json:"_id"`
	Name   string             `bson:"name" json:"name"`
	Avatar string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleReader, RoleWriter, RoleAdmin:
		return true
	}
	return false
}
