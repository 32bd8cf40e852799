package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/blogsphere/backend/internal/config"
	"github.com/blogsphere/backend/internal/media"
	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/realtime"
	"github.com/blogsphere/backend/internal/repository/memstore"
	"github.com/blogsphere/backend/internal/services"
	"github.com/blogsphere/backend/internal/session"
	jwtutil "github.com/blogsphere/backend/pkg/jwt"
	"github.com/blogsphere/backend/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

type denyAll struct{}

func (denyAll) Allow(context.Context, string) bool { return false }

type testAPI struct {
	db      *memstore.DB
	handler http.Handler
}

func newTestAPI(t *testing.T, routes func(*Routes)) *testAPI {
	t.Helper()
	db := memstore.NewDB()
	users := memstore.NewUserStore(db)
	images, err := media.NewDiskStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	hub := realtime.NewHub(nil)
	revoker := session.NewMemoryRevoker()
	cfg := &config.Config{TokenExpiry: time.Hour}

	userSvc := services.NewUserService(users, images, nil, revoker, testSecret, cfg.TokenExpiry)
	notifSvc := services.NewNotificationService(memstore.NewNotificationStore(db), users, hub)
	blogSvc := services.NewBlogService(memstore.NewBlogStore(db), memstore.NewLikeStore(db), users, images, notifSvc, hub)
	auth := middleware.NewAuthenticator(testSecret, users, revoker)

	rt := Routes{
		Users:         NewUserHandler(userSvc, blogSvc, cfg),
		Blogs:         NewBlogHandler(blogSvc),
		Notifications: NewNotificationHandler(notifSvc),
		WS:            NewWSHandler(hub, auth, []string{"http://localhost:5173"}),
		Auth:          auth,
	}
	if routes != nil {
		routes(&rt)
	}
	return &testAPI{db: db, handler: NewRouter(rt)}
}

func (a *testAPI) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := jwtutil.GenerateToken(user.ID.Hex(), testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.serve(t, req)
}

func (a *testAPI) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func registerForm(t *testing.T, fields map[string]string, photoType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photoType != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="photo"; filename="me.png"`)
		header.Set("Content-Type", photoType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG fake"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/users/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRegisterSetsCookieAndVerify(t *testing.T) {
	api := newTestAPI(t, nil)
	fields := map[string]string{
		"name": "Ada", "email": "ada@example.com", "phone": "555", "education": "BSc",
		"password": "pw-123456", "role": "writer",
	}

	rec, body := api.serve(t, registerForm(t, fields, "image/png"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "User Registered Successfully", body["message"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.AuthCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/users/verify", nil)
	req.AddCookie(cookies[0])
	rec, body = api.serve(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", user["email"])

	rec, body = api.serve(t, registerForm(t, fields, "image/gif"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only jpg, jpeg, png allowed", body["message"])
}

func TestLogoutRevokesSession(t *testing.T) {
	api := newTestAPI(t, nil)
	reader := api.db.AddUser("reader", models.RoleReader)
	token := api.tokenFor(t, reader)

	rec, body := api.do(t, http.MethodPost, "/api/users/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", body["message"])

	rec, _ = api.do(t, http.MethodGet, "/api/users/verify", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	api := newTestAPI(t, func(rt *Routes) { rt.LoginLimiter = denyAll{} })

	rec, body := api.do(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": "a@b.c", "password": "x"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, body := api.do(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", body["message"])
}

func TestNotificationLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.db.AddUser("admin", models.RoleAdmin)
	reader := api.db.AddUser("reader", models.RoleReader)
	writer := api.db.AddUser("writer", models.RoleWriter)
	adminToken, readerToken := api.tokenFor(t, admin), api.tokenFor(t, reader)

	rec, body := api.do(t, http.MethodPost, "/api/notifications", api.tokenFor(t, writer),
		map[string]string{"title": "T", "message": "M"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "User is not authorized to access this route", body["message"])

	rec, body = api.do(t, http.MethodPost, "/api/notifications", adminToken,
		map[string]string{"title": "Maintenance", "message": "Tonight"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), body["totalSent"])

	rec, body = api.do(t, http.MethodGet, "/api/notifications", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["unreadCount"], "creator never sees own notifications")

	rec, body = api.do(t, http.MethodGet, "/api/notifications", readerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["unreadCount"])
	list := body["notifications"].([]interface{})
	require.Len(t, list, 1)
	id := list[0].(map[string]interface{})["_id"].(string)

	path := fmt.Sprintf("/api/notifications/%s/read", id)
	_, body = api.do(t, http.MethodPatch, path, readerToken, nil)
	assert.Equal(t, "Marked as read", body["message"])
	_, body = api.do(t, http.MethodPatch, path, readerToken, nil)
	assert.Equal(t, "Already read", body["message"])

	_, body = api.do(t, http.MethodGet, "/api/notifications/unread-count", readerToken, nil)
	assert.Equal(t, float64(0), body["unreadCount"])

	// The sweep is not scoped to the caller's own records: it also covers the reader's copy.
	rec, body = api.do(t, http.MethodPatch, "/api/notifications/mark-all-read", api.tokenFor(t, writer), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2 notifications marked as read", body["message"])
	assert.Equal(t, float64(2), body["modifiedCount"])
}

func TestNotificationsRequireAuth(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, body := api.do(t, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: No token provided", body["message"])

	rec, _ = api.do(t, http.MethodGet, "/api/notifications", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBlogLikeFlow(t *testing.T) {
	api := newTestAPI(t, nil)
	writer := api.db.AddUser("writer", models.RoleWriter)
	reader := api.db.AddUser("reader", models.RoleReader)
	writerToken, readerToken := api.tokenFor(t, writer), api.tokenFor(t, reader)

	rec, _ := api.do(t, http.MethodPost, "/api/blogs/create", readerToken,
		map[string]string{"title": "t", "category": "c", "about": "a"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := api.do(t, http.MethodPost, "/api/blogs/create", writerToken,
		map[string]string{"title": "Hello", "category": "go", "about": "**bold**"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	blogID := body["blog"].(map[string]interface{})["_id"].(string)

	rec, body = api.do(t, http.MethodPut, "/api/blogs/v1/like/"+blogID, readerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["likes"])
	assert.Len(t, body["likedBy"], 1)

	rec, body = api.do(t, http.MethodPut, "/api/blogs/v1/like/"+blogID, readerToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already liked this blog", body["message"])

	_, body = api.do(t, http.MethodGet, "/api/blogs/single-blog/"+blogID, readerToken, nil)
	assert.Equal(t, true, body["likedByMe"])
	assert.Contains(t, body["aboutHtml"], "<strong>bold</strong>")

	rec, body = api.do(t, http.MethodPut, "/api/blogs/v1/unlike/"+blogID, readerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["likes"])

	_, body = api.do(t, http.MethodGet, "/api/blogs/all-blogs", "", nil)
	assert.Equal(t, float64(1), body["count"])

	_, body = api.do(t, http.MethodGet, "/api/users/getAllPostsByWriter/"+writer.ID.Hex(), "", nil)
	assert.Equal(t, float64(1), body["count"])

	rec, _ = api.do(t, http.MethodDelete, "/api/blogs/delete/"+blogID, writerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteAndHealth(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, body := api.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec, body = api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestWSRejectsForeignOrigin(t *testing.T) {
	api := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Origin", "http://evil.example")

	rec, _ := api.serve(t, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
