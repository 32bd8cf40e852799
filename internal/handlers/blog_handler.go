package handlers

import (
	"net/http"

	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/services"
	"github.com/blogsphere/backend/pkg/middleware"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type BlogHandler struct {
	Service *services.BlogService
}

func NewBlogHandler(service *services.BlogService) *BlogHandler {
	return &BlogHandler{Service: service}
}

// POST /api/blogs/create
func (h *BlogHandler) CreateBlogHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	req, image, closeFile, err := blogForm(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	defer closeFile()

	blog, err := h.Service.Create(r.Context(), user, models.CreateBlogRequest(req), image)
	if err != nil {
		log.WithError(err).WithField("userID", user.ID.Hex()).Warn("Failed to create blog")
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Blog created successfully",
		"blog":    blog,
	})
}

// GET /api/blogs/all-blogs
func (h *BlogHandler) AllBlogsHandler(w http.ResponseWriter, r *http.Request) {
	blogs, err := h.Service.List(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeBlogs(w, blogs)
}

// GET /api/blogs/my-blog
func (h *BlogHandler) MyBlogsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	blogs, err := h.Service.ListByAuthor(r.Context(), user.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeBlogs(w, blogs)
}

// GET /api/blogs/single-blog/{id}
func (h *BlogHandler) SingleBlogHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	detail, err := h.Service.Get(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"blog":      detail.Blog,
		"likedByMe": detail.LikedByMe,
		"aboutHtml": detail.AboutHTML,
	})
}

// PUT /api/blogs/update/{id}
func (h *BlogHandler) UpdateBlogHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	req, image, closeFile, err := blogForm(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	defer closeFile()

	blog, err := h.Service.Update(r.Context(), user, mux.Vars(r)["id"], req, image)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Blog updated successfully",
		"blog":    blog,
	})
}

// DELETE /api/blogs/delete/{id}
func (h *BlogHandler) DeleteBlogHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), user, mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Blog deleted successfully",
	})
}

// PUT /api/blogs/v1/like/{id}
func (h *BlogHandler) LikeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	res, err := h.Service.Like(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Blog liked successfully",
		"likes":   res.Likes,
		"likedBy": res.LikedBy,
	})
}

// PUT /api/blogs/v1/unlike/{id}
func (h *BlogHandler) UnlikeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	res, err := h.Service.Unlike(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Blog unliked successfully",
		"likes":   res.Likes,
	})
}

func writeBlogs(w http.ResponseWriter, blogs []models.Blog) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(blogs),
		"blogs":   blogs,
	})
}

// blogForm reads title, category, about and an optional blogImage from a multipart form,
// or the text fields from a JSON body.
func blogForm(r *http.Request) (models.UpdateBlogRequest, *models.ImageUpload, func(), error) {
	noop := func() {}
	var req models.UpdateBlogRequest
	if !isMultipart(r) {
		err := decodeJSON(r, &req)
		return req, nil, noop, err
	}

	if err := parseForm(r); err != nil {
		return req, nil, noop, err
	}
	req = models.UpdateBlogRequest{
		Title:    r.FormValue("title"),
		Category: r.FormValue("category"),
		About:    r.FormValue("about"),
	}
	image, file, err := formImage(r, "blogImage")
	if err != nil || file == nil {
		return req, nil, noop, err
	}
	return req, image, func() { file.Close() }, nil
}
