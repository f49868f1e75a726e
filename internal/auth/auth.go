// Package auth resolves the acting user from a bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/golang-jwt/jwt/v4"

	"taskboard/internal/models"
)

const defaultRoleTTL = 30 * time.Second

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID string      `json:"id"`
	Name   string      `json:"full_name"`
	Role   models.Role `json:"role"`
}

// Elevated reports whether the actor may manage projects and move tasks.
func (a Actor) Elevated() bool {
	return a.Role == models.RoleProjectManager
}

// Profiles is the profile storage the authenticator consults.
type Profiles interface {
	EnsureProfile(ctx context.Context, id, fullName string) (models.Profile, error)
}

// Authenticator verifies HS256 tokens and resolves the caller's role.
type Authenticator struct {
	secret   []byte
	parser   *jwt.Parser
	profiles Profiles
	roles    *ristretto.Cache[string, models.Profile]
	ttl      time.Duration
}

// New builds an authenticator. roleTTL bounds how long a role change can take
// to be observed; zero picks a default.
func New(secret string, profiles Profiles, roleTTL time.Duration) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if roleTTL <= 0 {
		roleTTL = defaultRoleTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, models.Profile]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("role cache: %w", err)
	}
	return &Authenticator{
		secret:   []byte(secret),
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		profiles: profiles,
		roles:    cache,
		ttl:      roleTTL,
	}, nil
}

// Close releases the role cache.
func (a *Authenticator) Close() {
	a.roles.Close()
}

// Claims are the token fields the service reads.
type Claims struct {
	Subject string
	Name    string
}

// Verify checks the token signature and timing claims.
func (a *Authenticator) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("missing token: %w", models.ErrUnauthorized)
	}
	parsed, err := a.parser.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%v: %w", err, models.ErrUnauthorized)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("invalid claims: %w", models.ErrUnauthorized)
	}
	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, false) {
		return Claims{}, fmt.Errorf("token expired: %w", models.ErrUnauthorized)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Claims{}, fmt.Errorf("missing sub: %w", models.ErrUnauthorized)
	}
	name, _ := claims["name"].(string)
	return Claims{Subject: sub, Name: name}, nil
}

// Resolve verifies token and loads the caller's profile, creating a member
// profile on first sight. Profiles are cached for the role TTL.
func (a *Authenticator) Resolve(ctx context.Context, token string) (Actor, error) {
	claims, err := a.Verify(token)
	if err != nil {
		return Actor{}, err
	}
	if p, ok := a.roles.Get(claims.Subject); ok {
		return actorOf(p), nil
	}

	p, err := a.profiles.EnsureProfile(ctx, claims.Subject, claims.Name)
	if err != nil {
		return Actor{}, fmt.Errorf("load profile: %w", err)
	}
	a.roles.SetWithTTL(claims.Subject, p, 1, a.ttl)
	a.roles.Wait()
	return actorOf(p), nil
}

// Forget drops the cached profile of userID, e.g. after a role change.
func (a *Authenticator) Forget(userID string) {
	a.roles.Del(userID)
}

func actorOf(p models.Profile) Actor {
	return Actor{UserID: p.ID, Name: p.FullName, Role: p.Role}
}

// Mint signs a token for userID. A non-positive ttl yields a token without expiry.
func Mint(secret, userID, name string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is required")
	}
	now := time.Now()
	claims := jwt.MapClaims{"sub": userID, "iat": now.Unix()}
	if name != "" {
		claims["name"] = name
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
