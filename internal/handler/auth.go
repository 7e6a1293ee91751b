package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/devblog-app/devblog/internal/auth"
	"github.com/devblog-app/devblog/internal/post"
	"github.com/devblog-app/devblog/pkg/jwt"
	"github.com/devblog-app/devblog/pkg/logger"
)

// AuthHandler serves registration, sessions, the GitHub OAuth dance, profile
// management, and the password reset flow.
type AuthHandler struct {
	auth     *auth.Service
	oauth    *auth.GithubOAuthService
	resets   *auth.ResetService
	posts    *post.Service
	sessions *jwt.Service
	validate *validator.Validate
	log      *slog.Logger
}

func NewAuthHandler(
	authSvc *auth.Service,
	oauthSvc *auth.GithubOAuthService,
	resetSvc *auth.ResetService,
	postSvc *post.Service,
	sessions *jwt.Service,
	log *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:     authSvc,
		oauth:    oauthSvc,
		resets:   resetSvc,
		posts:    postSvc,
		sessions: sessions,
		validate: newValidator(),
		log:      log,
	}
}

// Routes mounts the /api/auth surface.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Get("/github", h.githubRedirect)
	r.Get("/github/callback", h.githubCallback)
	r.Post("/forgot", h.forgotPassword)
	r.Get("/reset/{token}", h.validateResetToken)
	r.Post("/reset/{token}", h.resetPassword)

	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireAuth(h.sessions))
		r.Get("/me", h.me)
		r.Put("/me", h.updateProfile)
		r.Get("/my-posts", h.myPosts)
		r.Post("/verify-password", h.verifyPassword)
	})

	return r
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string     `json:"token"`
	User  *auth.User `json:"user,omitempty"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			respondMessage(w, http.StatusBadRequest, "User with that email or username already exists")
			return
		}
		h.log.ErrorContext(r.Context(), "register failed", logger.Error(err))
		respondServerError(w)
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.log.ErrorContext(r.Context(), "login failed", logger.Error(err))
		respondServerError(w)
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *AuthHandler) githubRedirect(w http.ResponseWriter, r *http.Request) {
	url, err := h.oauth.AuthURL()
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to build authorization url", logger.Error(err))
		respondServerError(w)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// githubCallback finishes the OAuth flow. Whatever goes wrong, the user ends
// up back on the client's login page rather than an API error page.
func (h *AuthHandler) githubCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	_, token, err := h.oauth.HandleCallback(r.Context(), code, state)
	if err != nil {
		h.log.WarnContext(r.Context(), "oauth callback failed", logger.Error(err))
		http.Redirect(w, r, h.oauth.FailureRedirectURL(), http.StatusFound)
		return
	}

	http.Redirect(w, r, h.oauth.CallbackRedirectURL(token), http.StatusFound)
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := jwt.UserIDFromContext(r.Context())

	user, err := h.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to load current user", logger.Error(err), logger.UserID(userID))
		respondServerError(w)
		return
	}

	respondJSON(w, http.StatusOK, map[string]*auth.User{"user": user})
}

type updateProfileRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password"`
	CurrentPassword string `json:"currentPassword"`
}

func (h *AuthHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := jwt.UserIDFromContext(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), userID, auth.UpdateProfileParams{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoFieldsToUpdate):
			respondMessage(w, http.StatusBadRequest, "No fields to update")
		case errors.Is(err, auth.ErrUserExists):
			respondMessage(w, http.StatusBadRequest, "Username or email already in use")
		case errors.Is(err, auth.ErrPasswordRequired):
			respondMessage(w, http.StatusBadRequest, "Current password is required to change password")
		case errors.Is(err, auth.ErrInvalidCredentials):
			respondMessage(w, http.StatusUnauthorized, "Current password is incorrect")
		default:
			h.log.ErrorContext(r.Context(), "failed to update profile", logger.Error(err), logger.UserID(userID))
			respondServerError(w)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]*auth.User{"user": user})
}

// myPosts returns the caller's published posts; drafts live behind the
// dedicated my-drafts endpoint.
func (h *AuthHandler) myPosts(w http.ResponseWriter, r *http.Request) {
	userID, _ := jwt.UserIDFromContext(r.Context())

	posts, err := h.posts.Published(r.Context(), userID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list user posts", logger.Error(err), logger.UserID(userID))
		respondServerError(w)
		return
	}

	respondJSON(w, http.StatusOK, posts)
}

type verifyPasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
}

func (h *AuthHandler) verifyPassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := jwt.UserIDFromContext(r.Context())

	var req verifyPasswordRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.auth.VerifyPassword(r.Context(), userID, req.CurrentPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrNoPasswordSet):
			respondMessage(w, http.StatusBadRequest, "No password set for this account")
		case errors.Is(err, auth.ErrInvalidCredentials):
			respondMessage(w, http.StatusUnauthorized, "Current password is incorrect")
		default:
			h.log.ErrorContext(r.Context(), "failed to verify password", logger.Error(err), logger.UserID(userID))
			respondServerError(w)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// forgotPassword answers identically whether or not the email is known.
func (h *AuthHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.resets.RequestReset(r.Context(), req.Email); err != nil {
		h.log.ErrorContext(r.Context(), "failed to create reset token", logger.Error(err))
		respondServerError(w)
		return
	}

	respondMessage(w, http.StatusOK, "If that email exists, a reset link has been sent")
}

func (h *AuthHandler) validateResetToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.resets.ValidateToken(r.Context(), token); err != nil {
		h.respondResetError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req resetPasswordRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.resets.ResetPassword(r.Context(), token, req.Password); err != nil {
		h.respondResetError(w, r, err)
		return
	}

	respondMessage(w, http.StatusOK, "Password has been reset")
}

func (h *AuthHandler) respondResetError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrResetTokenNotFound):
		respondMessage(w, http.StatusNotFound, "Invalid token")
	case errors.Is(err, auth.ErrResetTokenUsed):
		respondMessage(w, http.StatusBadRequest, "Token already used")
	case errors.Is(err, auth.ErrResetTokenExpired):
		respondMessage(w, http.StatusBadRequest, "Token expired")
	default:
		h.log.ErrorContext(r.Context(), "reset token operation failed", logger.Error(err))
		respondServerError(w)
	}
}
