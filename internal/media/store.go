// Package media stores uploaded images and hands back their public URL and storage key.
package media

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/blogsphere/backend/internal/models"
	"github.com/google/uuid"
)

// MaxImageSize is the largest accepted upload, in bytes.
const MaxImageSize = 5 << 20

var (
	ErrUnsupportedType = errors.New("only jpg, jpeg, png allowed")
	ErrTooLarge        = errors.New("image size must be < 5MB")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
}

// Store persists images. PublicID in the returned Image is the key Delete expects.
type Store interface {
	Put(ctx context.Context, folder string, r io.Reader, size int64, contentType string) (*models.Image, error)
	Delete(ctx context.Context, publicID string) error
}

// CheckImage validates an upload's declared type and size before anything is stored.
func CheckImage(contentType string, size int64) error {
	if _, ok := allowedTypes[normalizeType(contentType)]; !ok {
		return ErrUnsupportedType
	}
	if size > MaxImageSize {
		return ErrTooLarge
	}
	return nil
}

func normalizeType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// objectKey builds a unique key such as "blog/blogs/<uuid>.png".
func objectKey(folder, contentType string) string {
	return path.Join(folder, uuid.NewString()+allowedTypes[normalizeType(contentType)])
}
