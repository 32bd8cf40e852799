package models

import "io"

type RegisterRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Education string `json:"education" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=reader writer admin"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CreateBlogRequest struct {
	Title    string `json:"title" validate:"required"`
	Category string `json:"category" validate:"required"`
	About    string `json:"about" validate:"required"`
}

// UpdateBlogRequest fields left empty keep their current value.
type UpdateBlogRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	About    string `json:"about"`
}

type NotificationRequest struct {
	Title   string `json:"title" validate:"required,max=100"`
	Message string `json:"message" validate:"required"`
	Type    string `json:"type" validate:"omitempty,max=32"`
}

// ImageUpload is a file received from a multipart form.
type ImageUpload struct {
	File        io.Reader
	Size        int64
	ContentType string
}
