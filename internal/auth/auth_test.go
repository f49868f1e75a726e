package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"taskboard/internal/models"
)

const testSecret = "test-secret"

type memProfiles struct {
	mu    sync.Mutex
	byID  map[string]models.Profile
	calls int
}

func (m *memProfiles) EnsureProfile(_ context.Context, id, name string) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	p := models.Profile{ID: id, FullName: name, Role: models.RoleMember}
	m.byID[id] = p
	return p, nil
}

func newTestAuth(t *testing.T, profiles ...models.Profile) (*Authenticator, *memProfiles) {
	t.Helper()
	store := &memProfiles{byID: map[string]models.Profile{}}
	for _, p := range profiles {
		store.byID[p.ID] = p
	}
	a, err := New(testSecret, store, time.Minute)
	if err != nil {
		t.Fatalf("new auth: %v", err)
	}
	t.Cleanup(a.Close)
	return a, store
}

func mint(t *testing.T, userID string) string {
	t.Helper()
	tok, err := Mint(testSecret, userID, "Test User", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return tok
}

func TestVerify(t *testing.T) {
	a, _ := newTestAuth(t)

	claims, err := a.Verify(mint(t, "u1"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "u1" || claims.Name != "Test User" {
		t.Fatalf("claims = %+v", claims)
	}

	wrongKey, _ := Mint("other-secret", "u1", "", time.Hour)
	noExpiry, _ := Mint(testSecret, "u1", "", -time.Hour)
	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"name": "x"}).SignedString([]byte(testSecret))
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, tok := range map[string]string{
		"empty":     "",
		"garbage":   "not-a-jwt",
		"wrong key": wrongKey,
		"no sub":    noSub,
		"alg none":  noneAlg,
	} {
		if _, err := a.Verify(tok); !errors.Is(err, models.ErrUnauthorized) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
	// Mint with a negative ttl omits exp entirely
	if _, err := a.Verify(noExpiry); err != nil {
		t.Errorf("token without exp rejected: %v", err)
	}

	past, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()}).SignedString([]byte(testSecret))
	if _, err := a.Verify(past); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("expired: err = %v", err)
	}
}

func TestResolveCreatesAndCachesProfile(t *testing.T) {
	a, store := newTestAuth(t, models.Profile{ID: "pm", FullName: "Paula", Role: models.RoleProjectManager})

	actor, err := a.Resolve(context.Background(), mint(t, "pm"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !actor.Elevated() || actor.Name != "Paula" {
		t.Fatalf("actor = %+v", actor)
	}
	if _, err := a.Resolve(context.Background(), mint(t, "pm")); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("profile store consulted %d times, want cached", store.calls)
	}

	a.Forget("pm")
	if _, err := a.Resolve(context.Background(), mint(t, "pm")); err != nil {
		t.Fatalf("resolve after forget: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("forget did not drop cache entry: %d calls", store.calls)
	}

	newcomer, err := a.Resolve(context.Background(), mint(t, "new"))
	if err != nil {
		t.Fatalf("resolve newcomer: %v", err)
	}
	if newcomer.Elevated() || newcomer.Role != models.RoleMember {
		t.Fatalf("newcomer = %+v", newcomer)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, _ := newTestAuth(t, models.Profile{ID: "pm", Role: models.RoleProjectManager})

	router := gin.New()
	router.Use(a.Middleware())
	router.GET("/me", func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, actor)
	})
	router.POST("/admin", RequireElevated(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{"no token", http.MethodGet, "/me", "", http.StatusUnauthorized},
		{"bad scheme", http.MethodGet, "/me", "Basic " + mint(t, "pm"), http.StatusUnauthorized},
		{"bearer", http.MethodGet, "/me", "Bearer " + mint(t, "pm"), http.StatusOK},
		{"query token", http.MethodGet, "/me?token=" + mint(t, "pm"), "", http.StatusOK},
		{"member forbidden", http.MethodPost, "/admin", "Bearer " + mint(t, "m1"), http.StatusForbidden},
		{"manager allowed", http.MethodPost, "/admin", "Bearer " + mint(t, "pm"), http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New("", &memProfiles{}, 0); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := Mint("", "u", "", 0); err == nil {
		t.Fatal("expected mint error for empty secret")
	}
}
