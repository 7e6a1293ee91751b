package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/devblog-app/devblog/internal/post"
	"github.com/devblog-app/devblog/pkg/jwt"
	"github.com/devblog-app/devblog/pkg/logger"
)

// PostHandler serves the public feed, search, and authoring endpoints.
type PostHandler struct {
	posts    *post.Service
	sessions *jwt.Service
	validate *validator.Validate
	log      *slog.Logger
}

func NewPostHandler(postSvc *post.Service, sessions *jwt.Service, log *slog.Logger) *PostHandler {
	return &PostHandler{
		posts:    postSvc,
		sessions: sessions,
		validate: newValidator(),
		log:      log,
	}
}

// Routes mounts the /api/posts surface. The single-post route uses optional
// auth so the draft visibility check can tell the author apart from everyone
// else.
func (h *PostHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.feed)
	r.Get("/search", h.search)
	r.Get("/tag/{tag}", h.byTag)

	r.Group(func(r chi.Router) {
		r.Use(jwt.OptionalAuth(h.sessions))
		r.Get("/{id}", h.get)
	})

	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireAuth(h.sessions))
		r.Get("/my-drafts", h.myDrafts)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Put("/{id}/publish", h.publish)
	})

	return r
}

func (h *PostHandler) feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.Feed(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to load feed", logger.Error(err))
		respondServerError(w)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	tag := r.URL.Query().Get("tag")

	posts, err := h.posts.Search(r.Context(), query, tag)
	if err != nil {
		if errors.Is(err, post.ErrEmptyQuery) {
			respondMessage(w, http.StatusBadRequest, "please enter something")
			return
		}
		h.log.ErrorContext(r.Context(), "search failed", logger.Error(err))
		respondServerError(w)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) byTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")

	posts, err := h.posts.ByTag(r.Context(), tag)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list posts by tag", logger.Error(err))
		respondServerError(w)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondMessage(w, http.StatusNotFound, "Post Not Found")
		return
	}

	var viewer *int64
	if userID, ok := jwt.UserIDFromContext(r.Context()); ok {
		viewer = &userID
	}

	p, err := h.posts.Get(r.Context(), id, viewer)
	if err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			respondMessage(w, http.StatusNotFound, "Post Not Found")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to load post", logger.Error(err))
		respondServerError(w)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *PostHandler) myDrafts(w http.ResponseWriter, r *http.Request) {
	userID, _ := jwt.UserIDFromContext(r.Context())

	posts, err := h.posts.Drafts(r.Context(), userID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list drafts", logger.Error(err), logger.UserID(userID))
		respondServerError(w)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

type createPostRequest struct {
	Title   string       `json:"title" validate:"required"`
	Content string       `json:"content" validate:"required"`
	Tags    post.TagList `json:"tags"`
	Draft   bool         `json:"draft"`
}

func (h *PostHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, _ := jwt.UserIDFromContext(r.Context())

	var req createPostRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.posts.Create(r.Context(), userID, req.Title, req.Content, req.Tags, req.Draft)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to create post", logger.Error(err), logger.UserID(userID))
		respondServerError(w)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

type updatePostRequest struct {
	Title   *string       `json:"title"`
	Content *string       `json:"content"`
	Tags    *post.TagList `json:"tags"`
	Draft   *bool         `json:"draft"`
}

func (h *PostHandler) update(w http.ResponseWriter, r *http.Request) {
	userID, _ := jwt.UserIDFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondMessage(w, http.StatusNotFound, "Post not found or not authorized")
		return
	}

	var req updatePostRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	params := post.UpdatePostParams{
		Title:   req.Title,
		Content: req.Content,
		Draft:   req.Draft,
	}
	if req.Tags != nil {
		tags := []string(*req.Tags)
		params.Tags = &tags
	}

	p, err := h.posts.Update(r.Context(), id, userID, params)
	if err != nil {
		switch {
		case errors.Is(err, post.ErrNoFieldsToUpdate):
			respondMessage(w, http.StatusBadRequest, "No fields to update")
		case errors.Is(err, post.ErrPostNotFound):
			respondMessage(w, http.StatusNotFound, "Post not found or not authorized")
		default:
			h.log.ErrorContext(r.Context(), "failed to update post", logger.Error(err), logger.UserID(userID))
			respondServerError(w)
		}
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *PostHandler) publish(w http.ResponseWriter, r *http.Request) {
	userID, _ := jwt.UserIDFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondMessage(w, http.StatusNotFound, "Draft not found")
		return
	}

	p, err := h.posts.Publish(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			respondMessage(w, http.StatusNotFound, "Draft not found")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to publish post", logger.Error(err), logger.UserID(userID))
		respondServerError(w)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
