package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/sellerbook/libs/auth"
	"github.com/md-rashed-zaman/sellerbook/libs/httpx"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
)

// UserProvisioner records users the first time they show up with a verified
// identity.
type UserProvisioner interface {
	UpsertUser(ctx context.Context, u model.User) error
}

type Authenticator struct {
	secret       string
	trustGateway bool
	users        UserProvisioner
	logger       *slog.Logger
	now          func() time.Time
}

// NewAuthenticator verifies HS256 bearer tokens signed with secret. With
// trustGateway the X-User-Id header set by an upstream gateway is accepted
// as well.
func NewAuthenticator(secret string, trustGateway bool, users UserProvisioner, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{secret: secret, trustGateway: trustGateway, users: users, logger: logger, now: time.Now}
}

func (a *Authenticator) identify(r *http.Request) (model.User, bool) {
	if token, ok := auth.BearerToken(r.Header.Get("Authorization")); ok && a.secret != "" {
		claims, err := auth.ParseAndVerifyHS256(token, a.secret, a.now())
		if err != nil {
			return model.User{}, false
		}
		return model.User{ID: claims.Sub, Name: claims.Name, Email: claims.Email}, true
	}
	if a.trustGateway {
		if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
			return model.User{
				ID:    id,
				Name:  strings.TrimSpace(r.Header.Get(HeaderUserName)),
				Email: strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
			}, true
		}
	}
	return model.User{}, false
}

// Require rejects anonymous requests with 401 and puts the acting user id on
// the request context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.identify(r)
		if !ok {
			writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if user.Email != "" && a.users != nil {
			if err := a.users.UpsertUser(r.Context(), user); err != nil {
				writeError(w, r, a.logger, err)
				return
			}
		}
		httpx.AnnotateLog(r.Context(), "user_id", user.ID)
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), user.ID)))
	})
}

func actingUser(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
