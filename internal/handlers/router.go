package handlers

import (
	"net/http"

	"github.com/blogsphere/backend/internal/apperrors"
	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/ratelimit"
	"github.com/blogsphere/backend/pkg/middleware"
	"github.com/gorilla/mux"
)

// Routes bundles everything NewRouter mounts.
type Routes struct {
	Users         *UserHandler
	Blogs         *BlogHandler
	Notifications *NotificationHandler
	WS            *WSHandler
	Auth          *middleware.Authenticator

	// LoginLimiter throttles login attempts per client IP. Nil disables it.
	LoginLimiter ratelimit.Limiter
	// TrustedProxies may set X-Forwarded-For for the login limiter. Nil trusts none.
	TrustedProxies *middleware.TrustedProxies
	// UploadDir is served under /uploads/ when media is stored on local disk.
	UploadDir string
}

// NewRouter builds the API with request ids, panic recovery and request logging applied.
func NewRouter(rt Routes) http.Handler {
	router := mux.NewRouter()
	authed := rt.Auth.Middleware
	writerOrAdmin := middleware.RequireRole(models.RoleWriter, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "BlogSphere API is running",
		})
	}).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	if rt.WS != nil {
		router.HandleFunc("/ws", rt.WS.ServeWS).Methods(http.MethodGet)
	}
	if rt.UploadDir != "" {
		router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(rt.UploadDir))))
	}

	// User routes
	users := router.PathPrefix("/api/users").Subrouter()
	users.Handle("/register", http.HandlerFunc(rt.Users.RegisterUserHandler)).Methods(http.MethodPost)
	users.Handle("/login", middleware.RateLimit(rt.LoginLimiter, rt.TrustedProxies)(http.HandlerFunc(rt.Users.LoginUserHandler))).Methods(http.MethodPost)
	users.Handle("/logout", authed(http.HandlerFunc(rt.Users.LogoutHandler))).Methods(http.MethodPost)
	users.Handle("/allAdmins", authed(http.HandlerFunc(rt.Users.AdminsHandler))).Methods(http.MethodPost)
	users.Handle("/my-profile", authed(http.HandlerFunc(rt.Users.MyProfileHandler))).Methods(http.MethodGet)
	users.Handle("/verify", authed(http.HandlerFunc(rt.Users.VerifyHandler))).Methods(http.MethodGet)
	users.HandleFunc("/getWriter", rt.Users.WritersHandler).Methods(http.MethodGet)
	users.HandleFunc("/all-readers", rt.Users.ReadersHandler).Methods(http.MethodGet)
	users.HandleFunc("/getAllPostsByWriter/{id}", rt.Users.PostsByWriterHandler).Methods(http.MethodGet)
	users.HandleFunc("/{id}", rt.Users.WriterDetailsHandler).Methods(http.MethodGet)

	// Blog routes
	blogs := router.PathPrefix("/api/blogs").Subrouter()
	blogs.Handle("/create", authed(writerOrAdmin(http.HandlerFunc(rt.Blogs.CreateBlogHandler)))).Methods(http.MethodPost)
	blogs.Handle("/delete/{id}", authed(writerOrAdmin(http.HandlerFunc(rt.Blogs.DeleteBlogHandler)))).Methods(http.MethodDelete)
	blogs.Handle("/update/{id}", authed(writerOrAdmin(http.HandlerFunc(rt.Blogs.UpdateBlogHandler)))).Methods(http.MethodPut)
	blogs.HandleFunc("/all-blogs", rt.Blogs.AllBlogsHandler).Methods(http.MethodGet)
	blogs.Handle("/single-blog/{id}", authed(http.HandlerFunc(rt.Blogs.SingleBlogHandler))).Methods(http.MethodGet)
	blogs.Handle("/my-blog", authed(http.HandlerFunc(rt.Blogs.MyBlogsHandler))).Methods(http.MethodGet)
	blogs.Handle("/v1/like/{id}", authed(http.HandlerFunc(rt.Blogs.LikeHandler))).Methods(http.MethodPut)
	blogs.Handle("/v1/unlike/{id}", authed(http.HandlerFunc(rt.Blogs.UnlikeHandler))).Methods(http.MethodPut)

	// Notification routes, all authenticated
	notifications := router.PathPrefix("/api/notifications").Subrouter()
	notifications.Use(authed)
	notifications.HandleFunc("", rt.Notifications.GetUserNotificationsHandler).Methods(http.MethodGet)
	notifications.HandleFunc("/", rt.Notifications.GetUserNotificationsHandler).Methods(http.MethodGet)
	notifications.Handle("", adminOnly(http.HandlerFunc(rt.Notifications.CreateNotificationHandler))).Methods(http.MethodPost)
	notifications.Handle("/", adminOnly(http.HandlerFunc(rt.Notifications.CreateNotificationHandler))).Methods(http.MethodPost)
	notifications.HandleFunc("/unread-count", rt.Notifications.UnreadCountHandler).Methods(http.MethodGet)
	notifications.HandleFunc("/mark-all-read", rt.Notifications.MarkAllReadHandler).Methods(http.MethodPatch)
	notifications.HandleFunc("/{id}/read", rt.Notifications.MarkAsReadHandler).Methods(http.MethodPatch)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, apperrors.NotFound("Route not found"))
	})

	return middleware.RequestID(middleware.Recovery(middleware.LoggingMiddleware(router)))
}
