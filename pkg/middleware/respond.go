package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/blogsphere/backend/internal/apperrors"
	"github.com/sirupsen/logrus"
)

// WriteJSON writes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

// WriteError answers with {success:false, message}. Internal errors are logged and their
// details withheld from the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": GetRequestID(r.Context()),
		}).Error("Request failed")
	}
	WriteJSON(w, status, map[string]interface{}{
		"success": false,
		"message": apperrors.PublicMessage(err),
	})
}
