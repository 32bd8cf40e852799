package repository

import "errors"

var (
	ErrNotFound     = errors.New("document not found")
	ErrAlreadyLiked = errors.New("blog already liked by user")
	ErrDuplicateKey = errors.New("duplicate key")
)
