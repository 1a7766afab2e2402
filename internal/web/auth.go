package web

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/service/logger"
	"github.com/ssuji15/rvsim/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	SessionCookie  = "jwt"
	stateCookie    = "oauth_state"
	sessionTTL     = 7 * 24 * time.Hour
	githubUserURL  = "https://api.github.com/user"
	oauthUserAgent = "rvsim"
)

const (
	msgAuthRequired = "Authentication required"
	msgInvalidToken = "Invalid authorization token"
)

var ErrInvalidToken = errors.New("invalid authorization token")

type userCtxKey struct{}

type sessionClaims struct {
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator signs in users through GitHub and keeps the session in a
// signed cookie.
type Authenticator struct {
	oauth   *oauth2.Config
	secret  []byte
	userURL string
	now     func() time.Time
}

func NewAuthenticator(cfg *config.AuthConfig) *Authenticator {
	return &Authenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.GITHUB_CLIENT_ID,
			ClientSecret: cfg.GITHUB_CLIENT_SECRET,
			Endpoint:     github.Endpoint,
			RedirectURL:  cfg.REDIRECT_URL,
			Scopes:       []string{"user:email", "read:user"},
		},
		secret:  []byte(cfg.JWT_SECRET),
		userURL: githubUserURL,
		now:     time.Now,
	}
}

// IssueToken signs a session token for u.
func (a *Authenticator) IssueToken(u model.User) (string, error) {
	now := a.now()
	claims := sessionClaims{
		Login: u.Login,
		Name:  u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseToken verifies a session token and returns the user it was issued for.
func (a *Authenticator) ParseToken(token string) (model.User, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return model.User{ID: id, Login: claims.Login, Name: claims.Name}, nil
}

// Middleware rejects requests without a valid session cookie and stores the
// session user in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value == "" {
			logger.Log.Debug().Str("path", r.URL.Path).Msg("Unauthorized access attempt")
			writeError(w, http.StatusUnauthorized, msgAuthRequired)
			return
		}

		u, err := a.ParseToken(c.Value)
		if err != nil {
			logger.Log.Debug().Err(err).Msg("Rejected session token")
			writeError(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

func WithUser(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

func UserFromContext(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(model.User)
	return u, ok
}

func (a *Authenticator) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := genNonce(16)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Unable to generate oauth state")
		writeError(w, http.StatusInternalServerError, "unable to start login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.oauth.AuthCodeURL(state), http.StatusSeeOther)
}

func (a *Authenticator) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || state.Value != r.URL.Query().Get("state") {
		writeError(w, http.StatusBadRequest, "oauth state mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/api/auth", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("Failed to exchange code for token")
		writeError(w, http.StatusBadRequest, "unable to exchange authorization code")
		return
	}

	u, err := a.fetchUser(ctx, tok)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch user from GitHub")
		writeError(w, http.StatusBadRequest, "unable to fetch user profile")
		return
	}

	session, err := a.IssueToken(u)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session token")
		writeError(w, http.StatusInternalServerError, "unable to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	log.Info().Int64("user_id", u.ID).Str("login", u.Login).Msg("User signed in")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *Authenticator) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *Authenticator) fetchUser(ctx context.Context, tok *oauth2.Token) (model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userURL, nil)
	if err != nil {
		return model.User{}, err
	}
	req.Header.Set("User-Agent", oauthUserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := a.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return model.User{}, fmt.Errorf("request user profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.User{}, fmt.Errorf("user profile: unexpected status %d", resp.StatusCode)
	}

	var profile struct {
		ID    int64   `json:"id"`
		Login string  `json:"login"`
		Name  *string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return model.User{}, fmt.Errorf("decode user profile: %w", err)
	}
	if profile.ID == 0 || profile.Login == "" {
		return model.User{}, errors.New("user profile: missing id or login")
	}

	u := model.User{ID: profile.ID, Login: profile.Login}
	if profile.Name != nil {
		u.Name = *profile.Name
	}
	return u, nil
}

func genNonce(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
