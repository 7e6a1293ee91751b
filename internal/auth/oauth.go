package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/devblog-app/devblog/pkg/jwt"
	"github.com/devblog-app/devblog/pkg/logger"
	"github.com/devblog-app/devblog/pkg/token"
)

// GithubOAuthConfig holds the GitHub OAuth application settings.
type GithubOAuthConfig struct {
	ClientID     string        `env:"GITHUB_CLIENT_ID,required"`
	ClientSecret string        `env:"GITHUB_CLIENT_SECRET,required"`
	RedirectURL  string        `env:"GITHUB_REDIRECT_URL,required"`
	Scopes       []string      `env:"GITHUB_SCOPES" envSeparator:"," envDefault:"user:email,read:user"`
	StateTTL     time.Duration `env:"GITHUB_STATE_TTL" envDefault:"10m"`
}

// OAuthStorage defines the persistence operations the federation flow needs.
type OAuthStorage interface {
	GetUserByGithubID(ctx context.Context, githubID string) (*User, error)
	// UpdateGithubAccessToken refreshes the stored provider token for an
	// already-federated user.
	UpdateGithubAccessToken(ctx context.Context, githubID, accessToken string) error
	// CreateGithubUser persists a new OAuth-only user (no password hash)
	// and fills in the generated id and creation timestamp.
	CreateGithubUser(ctx context.Context, user *User, accessToken string) error
}

// GithubOAuthService exchanges a verified GitHub identity for a local user
// record and session token, creating the user on first login.
type GithubOAuthService struct {
	storage      OAuthStorage
	sessions     *jwt.Service
	oauth2Config *oauth2.Config
	stateSecret  string
	stateTTL     time.Duration
	clientURL    string
	apiBaseURL   string
	log          *slog.Logger
	now          func() time.Time
}

type GithubOAuthOption func(*GithubOAuthService)

// WithGithubLogger sets a custom logger for the service.
func WithGithubLogger(log *slog.Logger) GithubOAuthOption {
	return func(s *GithubOAuthService) {
		s.log = log
	}
}

// WithGithubAPIBaseURL points the profile fetch at a different host, for tests.
func WithGithubAPIBaseURL(baseURL string) GithubOAuthOption {
	return func(s *GithubOAuthService) {
		s.apiBaseURL = baseURL
	}
}

// WithGithubClock overrides the time source, for tests.
func WithGithubClock(now func() time.Time) GithubOAuthOption {
	return func(s *GithubOAuthService) {
		s.now = now
	}
}

// NewGithubOAuthService creates the GitHub federation service. clientURL is
// the browser-facing application root used for post-auth redirects.
func NewGithubOAuthService(storage OAuthStorage, sessions *jwt.Service, cfg GithubOAuthConfig, clientURL string, opts ...GithubOAuthOption) *GithubOAuthService {
	s := &GithubOAuthService{
		storage:  storage,
		sessions: sessions,
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     github.Endpoint,
		},
		stateSecret: cfg.ClientSecret,
		stateTTL:    cfg.StateTTL,
		clientURL:   clientURL,
		apiBaseURL:  "https://api.github.com",
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// statePayload is the signed CSRF state carried through the provider
// round trip. Signing makes it verifiable without server-side storage.
type statePayload struct {
	Nonce    string `json:"n"`
	ExpireAt int64  `json:"exp"`
}

// AuthURL builds the provider authorization URL with a fresh signed state.
func (s *GithubOAuthService) AuthURL() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}

	state, err := token.Generate(statePayload{
		Nonce:    base64.RawURLEncoding.EncodeToString(nonce),
		ExpireAt: s.now().Add(s.stateTTL).Unix(),
	}, s.stateSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}

	return s.oauth2Config.AuthCodeURL(state), nil
}

// HandleCallback completes the provider flow: state check, code exchange,
// profile fetch, federation, session issuance.
func (s *GithubOAuthService) HandleCallback(ctx context.Context, code, state string) (*User, string, error) {
	if err := s.verifyState(state); err != nil {
		return nil, "", err
	}

	oauthToken, err := s.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, "", ErrInvalidCode
	}

	identity, err := s.fetchGithubUser(ctx, oauthToken.AccessToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch github user: %w", err)
	}

	user, err := s.Authenticate(ctx, *identity)
	if err != nil {
		return nil, "", err
	}

	sessionToken, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	return user, sessionToken, nil
}

// Authenticate maps a verified provider identity onto a local user record.
// Existing federated users get their stored access token refreshed; unknown
// identities become new users without a password hash. Pure federation
// logic, no HTTP involved, so it is testable on its own.
func (s *GithubOAuthService) Authenticate(ctx context.Context, identity GithubIdentity) (*User, error) {
	user, err := s.storage.GetUserByGithubID(ctx, identity.GithubID)
	if err == nil {
		if err := s.storage.UpdateGithubAccessToken(ctx, identity.GithubID, identity.AccessToken); err != nil {
			return nil, fmt.Errorf("failed to update access token: %w", err)
		}
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up github user: %w", err)
	}

	user = &User{
		Username:  identity.Username,
		GithubID:  identity.GithubID,
		AvatarURL: identity.AvatarURL,
	}
	if err := s.storage.CreateGithubUser(ctx, user, identity.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to create github user: %w", err)
	}

	s.log.InfoContext(ctx, "github user created", logger.UserID(user.ID), logger.Component("oauth"))
	return user, nil
}

// CallbackRedirectURL builds the client redirect carrying the session token.
// The token travels as a query parameter because that is the contract the
// existing client depends on.
func (s *GithubOAuthService) CallbackRedirectURL(sessionToken string) string {
	return s.clientURL + "/auth/callback?token=" + url.QueryEscape(sessionToken)
}

// FailureRedirectURL is where the browser lands when the provider flow fails.
func (s *GithubOAuthService) FailureRedirectURL() string {
	return s.clientURL + "/login"
}

func (s *GithubOAuthService) verifyState(state string) error {
	payload, err := token.Parse[statePayload](state, s.stateSecret)
	if err != nil {
		return ErrInvalidState
	}
	if payload.Nonce == "" || s.now().Unix() > payload.ExpireAt {
		return ErrInvalidState
	}
	return nil
}

type githubUserInfo struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

func (s *GithubOAuthService) fetchGithubUser(ctx context.Context, accessToken string) (*GithubIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBaseURL+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api returned status %d", resp.StatusCode)
	}

	var info githubUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}

	return &GithubIdentity{
		GithubID:    strconv.FormatInt(info.ID, 10),
		Username:    info.Login,
		AvatarURL:   info.AvatarURL,
		AccessToken: accessToken,
	}, nil
}
