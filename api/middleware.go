package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/traffic-portal-api/config"
	"github.com/linesmerrill/traffic-portal-api/databases"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// TokenTTL is how long an issued access token stays valid
const TokenTTL = 12 * time.Hour

// MiddlewareDB authenticates portal requests. Basic credentials are checked
// against the user store; bearer tokens are HS256 JWTs signed with Secret.
type MiddlewareDB struct {
	DB     databases.UserDatabase
	Secret []byte

	authenticator auth.Authenticator
	cache         store.Cache
	revoked       store.Cache
	now           func() time.Time
}

// NewMiddleware returns a ready to use authenticator
func NewMiddleware(db databases.UserDatabase, secret string) *MiddlewareDB {
	m := &MiddlewareDB{DB: db, Secret: []byte(secret), now: time.Now}
	m.SetupGoGuardian()
	return m
}

// SetupGoGuardian sets up the go-guardian strategies
func (m *MiddlewareDB) SetupGoGuardian() {
	m.authenticator = auth.New()
	m.cache = store.NewFIFO(context.Background(), TokenTTL)
	m.revoked = store.NewFIFO(context.Background(), TokenTTL)
	basicStrategy := basic.New(m.ValidateUser, m.cache)
	tokenStrategy := bearer.New(m.ValidateToken, m.cache)

	m.authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	m.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

// Middleware authenticates the request and stores the caller as a
// models.Actor on its context
func (m *MiddlewareDB) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user, err := m.authenticator.Authenticate(r)
		if err != nil {
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
			return
		}
		actor, err := actorFromInfo(user)
		if err != nil {
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
			return
		}
		zap.S().Debugw("authenticated", "user", user.UserName(), "role", actor.Role)
		traceActorRole(r.Context(), string(actor.Role))
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func actorFromInfo(info auth.Info) (models.Actor, error) {
	groups := info.Groups()
	if len(groups) == 0 {
		return models.Actor{}, errors.New("account has no role")
	}
	role, ok := models.ParseRole(groups[0])
	if !ok {
		return models.Actor{}, fmt.Errorf("unknown role %q", groups[0])
	}
	return models.Actor{ID: info.ID(), Role: role}, nil
}

// RequireRole rejects callers whose role is not listed. It must run after
// Middleware.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok || !actor.Is(roles...) {
				config.ErrorStatus("forbidden", http.StatusForbidden, w, models.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ValidateUser checks basic credentials against the user store
func (m *MiddlewareDB) ValidateUser(ctx context.Context, r *http.Request, email, password string) (auth.Info, error) {
	user, err := m.DB.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if !user.Active {
		return nil, errors.New("account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.New("invalid credentials")
	}
	return auth.NewDefaultUser(user.Email, user.ID, []string{string(user.Role)}, nil), nil
}

// ValidateToken verifies a signed access token that is not yet in the cache
func (m *MiddlewareDB) ValidateToken(ctx context.Context, r *http.Request, tokenString string) (auth.Info, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return m.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	jti, _ := claims["jti"].(string)
	if sub == "" || role == "" || jti == "" {
		return nil, errors.New("incomplete token claims")
	}
	if _, revoked, _ := m.revoked.Load(jti, r); revoked {
		return nil, errors.New("token revoked")
	}
	return auth.NewDefaultUser(sub, sub, []string{role}, map[string][]string{"jti": {jti}}), nil
}

// CreateToken issues an access token for the caller authenticated by basic auth
func (m *MiddlewareDB) CreateToken(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("missing caller"))
		return
	}

	jti := uuid.New().String()
	exp := m.now().Add(TokenTTL)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  actor.ID,
		"role": string(actor.Role),
		"jti":  jti,
		"iat":  m.now().Unix(),
		"exp":  exp.Unix(),
	}).SignedString(m.Secret)
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	authUser := auth.NewDefaultUser(actor.ID, actor.ID, []string{string(actor.Role)}, map[string][]string{"jti": {jti}})
	tokenStrategy := m.authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Append(tokenStrategy, signed, authUser, r); err != nil {
		zap.S().Warnw("failed to cache token", "error", err)
	}

	WriteJSON(w, http.StatusOK, models.TokenResponse{
		Token:     signed,
		ID:        actor.ID,
		Role:      actor.Role,
		ExpiresAt: exp.Unix(),
	})
}

// RevokeToken revokes the bearer token of the request
func (m *MiddlewareDB) RevokeToken(w http.ResponseWriter, r *http.Request) {
	reqToken := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if reqToken == "" || strings.HasPrefix(reqToken, "Basic ") {
		config.ErrorStatus("missing bearer token", http.StatusBadRequest, w, errors.New("no bearer token"))
		return
	}

	tokenStrategy := m.authenticator.Strategy(bearer.CachedStrategyKey)
	if info, err := m.ValidateToken(r.Context(), r, reqToken); err == nil {
		for _, jti := range info.Extensions()["jti"] {
			_ = m.revoked.Store(jti, true, r)
		}
	}
	if err := auth.Revoke(tokenStrategy, reqToken, r); err != nil {
		config.ErrorStatus("failed to revoke token", http.StatusInternalServerError, w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

// QueryToken moves an access_token query parameter into the Authorization
// header. Browsers cannot set headers on WebSocket handshakes.
func QueryToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := r.URL.Query().Get("access_token"); tok != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+tok)
		}
		next.ServeHTTP(w, r)
	})
}
