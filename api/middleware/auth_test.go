package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/sportshub-backend/pkg/auth"
	"github.com/angelmondragon/sportshub-backend/pkg/config"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	"github.com/google/uuid"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	userID := uuid.New()
	token := mintTestToken(t, userID, enums.UserRoleCustomer)

	var captured struct {
		user uuid.UUID
		ok   bool
		role string
	}
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user, captured.ok = UserUUIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !captured.ok || captured.user != userID {
		t.Fatalf("expected user %s in context, got %s", userID, captured.user)
	}
	if captured.role != string(enums.UserRoleCustomer) {
		t.Fatalf("expected role customer got %s", captured.role)
	}
}

func TestRequireRoleRejectsCustomer(t *testing.T) {
	chain := Auth(testJWT, nil)(RequireRole(enums.UserRoleAdmin, nil)(okHandler()))

	for role, want := range map[enums.UserRole]int{
		enums.UserRoleCustomer: http.StatusForbidden,
		enums.UserRoleAdmin:    http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory", nil)
		req.Header.Set("Authorization", "Bearer "+mintTestToken(t, uuid.New(), role))
		resp := httptest.NewRecorder()
		chain.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("role %s: expected %d got %d", role, want, resp.Code)
		}
	}
}

func mintTestToken(t *testing.T, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
