package handlers

import (
	"net/http"
	"time"

	"github.com/blogsphere/backend/internal/config"
	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/services"
	"github.com/blogsphere/backend/pkg/middleware"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// UserHandler handles HTTP requests related to user operations.
type UserHandler struct {
	Service *services.UserService
	Blogs   *services.BlogService
	Config  *config.Config
}

// NewUserHandler creates a new instance of UserHandler.
func NewUserHandler(service *services.UserService, blogs *services.BlogService, cfg *config.Config) *UserHandler {
	return &UserHandler{
		Service: service,
		Blogs:   blogs,
		Config:  cfg,
	}
}

// RegisterUserHandler handles user registration from a multipart form with a photo.
func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("RegisterUserHandler called")
	if err := parseForm(r); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	photo, file, err := formImage(r, "photo")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	req := models.RegisterRequest{
		Name:      r.FormValue("name"),
		Email:     r.FormValue("email"),
		Phone:     r.FormValue("phone"),
		Education: r.FormValue("education"),
		Password:  r.FormValue("password"),
		Role:      r.FormValue("role"),
	}
	user, token, err := h.Service.Register(r.Context(), req, photo)
	if err != nil {
		log.WithError(err).Warn("Failed to register user")
		middleware.WriteError(w, r, err)
		return
	}

	h.setAuthCookie(w, token, h.Service.TokenExpiry())
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User Registered Successfully",
		"user":    user.Public(),
		"token":   token,
	})
}

// LoginUserHandler handles user login.
func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("LoginUserHandler called")
	var credentials models.LoginRequest
	if err := decodeJSON(r, &credentials); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	user, token, err := h.Service.Login(r.Context(), credentials)
	if err != nil {
		log.WithFields(log.Fields{
			"email": credentials.Email,
			"error": err,
		}).Warn("Authentication failed")
		middleware.WriteError(w, r, err)
		return
	}

	log.WithField("userID", user.ID.Hex()).Info("User logged in successfully")
	h.setAuthCookie(w, token, h.Service.TokenExpiry())
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"user":    user.Public(),
		"token":   token,
	})
}

// LogoutHandler revokes the current token and clears the cookie.
func (h *UserHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context(), middleware.GetClaimsFromContext(r.Context())); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	h.setAuthCookie(w, "", -1)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// MyProfileHandler returns the authenticated user.
func (h *UserHandler) MyProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

// VerifyHandler lets clients check that their session is still valid.
func (h *UserHandler) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user.Public(),
	})
}

func (h *UserHandler) WritersHandler(w http.ResponseWriter, r *http.Request) {
	h.listByRole(w, r, models.RoleWriter, "writers")
}

func (h *UserHandler) ReadersHandler(w http.ResponseWriter, r *http.Request) {
	h.listByRole(w, r, models.RoleReader, "readers")
}

func (h *UserHandler) AdminsHandler(w http.ResponseWriter, r *http.Request) {
	h.listByRole(w, r, models.RoleAdmin, "admins")
}

func (h *UserHandler) listByRole(w http.ResponseWriter, r *http.Request, role, key string) {
	users, err := h.Service.ListByRole(r.Context(), role)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(users),
		key:       users,
	})
}

// WriterDetailsHandler handles fetching a writer by ID.
func (h *UserHandler) WriterDetailsHandler(w http.ResponseWriter, r *http.Request) {
	writer, err := h.Service.GetUser(r.Context(), mux.Vars(r)["id"], "writer")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"writer":  writer,
	})
}

// PostsByWriterHandler lists every blog written by the user in the path.
func (h *UserHandler) PostsByWriterHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := h.Blogs.PostsByWriter(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(posts),
		"posts":   posts,
	})
}

// setAuthCookie writes the session cookie. A negative maxAge deletes it.
func (h *UserHandler) setAuthCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	sameSite := http.SameSiteLaxMode
	if h.Config.CookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	age := int(maxAge.Seconds())
	if maxAge < 0 {
		age = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   age,
		HttpOnly: true,
		Secure:   h.Config.CookieSecure,
		SameSite: sameSite,
	})
}
