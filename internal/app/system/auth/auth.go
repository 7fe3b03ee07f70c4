// Package auth turns bearer tokens into an authz.Actor on the request context.
//
// Tokens are HS256 JWTs carrying the subject (user ObjectID hex), display name,
// role names and, for organization admins, the organization id. When a
// UserFetcher is configured the roles and organization are reloaded from the
// account store on every request, so an administrative role change takes
// effect without re-issuing tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/app/system/respond"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MinSecretLen is the shortest accepted signing secret.
const MinSecretLen = 32

// Claims is the token payload.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Org   string   `json:"org,omitempty"`
}

// UserFetcher reloads an actor from the account store. It returns nil when
// the account is missing or disabled.
type UserFetcher interface {
	FetchActor(ctx context.Context, id primitive.ObjectID) (*authz.Actor, error)
}

// Manager verifies and issues tokens.
type Manager struct {
	secret  []byte
	issuer  string
	fetcher UserFetcher
	log     *zap.Logger
	parser  *jwt.Parser
}

// NewManager builds a Manager. fetcher may be nil.
func NewManager(secret, issuer string, fetcher UserFetcher, logger *zap.Logger) (*Manager, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLen)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Manager{
		secret:  []byte(secret),
		issuer:  issuer,
		fetcher: fetcher,
		log:     logger,
		parser:  jwt.NewParser(opts...),
	}, nil
}

// IssueToken signs a token for a. Used by operators and tests; accounts are
// issued tokens by the identity provider in front of this service.
func (m *Manager) IssueToken(a *authz.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID.Hex(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:  a.Name,
		Roles: a.Roles.Strings(),
	}
	if !a.OrganizationID.IsZero() {
		c.Org = a.OrganizationID.Hex()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

// Authenticate verifies token and returns the actor it names.
func (m *Manager) Authenticate(ctx context.Context, token string) (*authz.Actor, error) {
	claims := &Claims{}
	parsed, err := m.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperr.Wrap(apperr.Unauthenticated, err, "invalid token")
	}
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, apperr.New(apperr.Unauthenticated, "invalid token subject")
	}

	if m.fetcher != nil {
		a, err := m.fetcher.FetchActor(ctx, id)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, apperr.New(apperr.Unauthenticated, "account not found or disabled")
		}
		return a, nil
	}

	roles, unknown := authz.ParseRoleSet(claims.Roles)
	if len(unknown) > 0 {
		m.log.Debug("token carries unknown roles", zap.Strings("roles", unknown))
	}
	a := &authz.Actor{ID: id, Name: claims.Name, Roles: roles}
	if claims.Org != "" {
		if org, err := primitive.ObjectIDFromHex(claims.Org); err == nil {
			a.OrganizationID = org
		}
	}
	return a, nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// LoadActor puts the token's actor into the request context. Requests without
// an Authorization header pass through anonymously; a malformed or invalid
// token is rejected with 401.
func (m *Manager) LoadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			respond.Error(w, r, m.log, apperr.New(apperr.Unauthenticated, "expected a bearer token"))
			return
		}
		a, err := m.Authenticate(r.Context(), token)
		if err != nil {
			if !apperr.Is(err, apperr.Unauthenticated) {
				m.log.Warn("actor lookup failed", zap.Error(err))
			}
			respond.Error(w, r, m.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(authz.WithActor(r.Context(), a)))
	})
}

// RequireSignedIn rejects requests that carry no actor.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authz.ActorFrom(r.Context()); !ok {
			respond.Error(w, r, nil, apperr.New(apperr.Unauthenticated, "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose actor holds none of allowed.
func RequireRole(allowed ...authz.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := authz.Authorize(authz.CurrentActor(r), allowed...); err != nil {
				respond.Error(w, r, nil, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ErrNoSecret is returned by configuration checks when no secret is set.
var ErrNoSecret = errors.New("jwt secret is empty")
