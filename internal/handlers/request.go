package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/blogsphere/backend/internal/apperrors"
	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/pkg/middleware"
	log "github.com/sirupsen/logrus"
)

const maxFormMemory = 10 << 20

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		log.WithError(err).Warn("Failed to decode request body")
		return apperrors.Validation("Invalid request payload")
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func parseForm(r *http.Request) error {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		log.WithError(err).Warn("Failed to parse multipart form")
		return apperrors.Validation("File too big or invalid format")
	}
	return nil
}

// formImage returns the uploaded file under field, or nil when the form has none.
// The caller closes the returned file.
func formImage(r *http.Request, field string) (*models.ImageUpload, multipart.File, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperrors.Validation("Invalid " + field + " upload")
	}
	return &models.ImageUpload{
		File:        file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}, file, nil
}

// currentUser is the user Authenticator put in the context. Routes using it are always
// behind the auth middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		middleware.WriteError(w, r, apperrors.Authentication("Unauthorized: User not found"))
		return nil, false
	}
	return user, true
}
