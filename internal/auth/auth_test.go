package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelierhq/atelier-admin/internal/gateway"
	"github.com/atelierhq/atelier-admin/pkg/models"
)

type fakeProfiles struct {
	profiles map[string]*models.Profile
}

func (f *fakeProfiles) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	if profile, ok := f.profiles[email]; ok {
		return profile, nil
	}
	return nil, gateway.ErrNotFound
}

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("atelier123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	profiles := &fakeProfiles{profiles: map[string]*models.Profile{
		"staff@atelier.example": {
			ID:           "p1",
			Email:        "staff@atelier.example",
			PasswordHash: string(hash),
			DisplayName:  "Staff",
			Role:         "admin",
		},
	}}
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewService(profiles, NewSessionStore(ttl), logger)
}

func TestSignInSuccess(t *testing.T) {
	service := newTestService(t, time.Hour)

	session, err := service.SignIn(context.Background(), "staff@atelier.example", "atelier123")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if session.Token == "" {
		t.Error("expected a session token")
	}
	if session.ProfileID != "p1" || session.Role != "admin" {
		t.Errorf("unexpected session: %+v", session)
	}

	if _, ok := service.Lookup(session.Token); !ok {
		t.Error("session should be retrievable after sign-in")
	}
}

func TestSignInWrongPassword(t *testing.T) {
	service := newTestService(t, time.Hour)

	_, err := service.SignIn(context.Background(), "staff@atelier.example", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInUnknownEmail(t *testing.T) {
	service := newTestService(t, time.Hour)

	_, err := service.SignIn(context.Background(), "nobody@atelier.example", "atelier123")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignOutInvalidatesToken(t *testing.T) {
	service := newTestService(t, time.Hour)

	session, err := service.SignIn(context.Background(), "staff@atelier.example", "atelier123")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	service.SignOut(session.Token)
	if _, ok := service.Lookup(session.Token); ok {
		t.Error("token should be invalid after sign-out")
	}
}

func TestSessionExpiry(t *testing.T) {
	service := newTestService(t, 10*time.Millisecond)

	session, err := service.SignIn(context.Background(), "staff@atelier.example", "atelier123")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := service.Lookup(session.Token); ok {
		t.Error("expired session should not resolve")
	}
}

func TestMiddleware(t *testing.T) {
	service := newTestService(t, time.Hour)
	session, err := service.SignIn(context.Background(), "staff@atelier.example", "atelier123")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	var gotSession Session
	handler := service.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No token: rejected before the handler runs.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	// Bearer header.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with bearer token, got %d", rec.Code)
	}
	if gotSession.ProfileID != "p1" {
		t.Errorf("session not attached to context: %+v", gotSession)
	}

	// Query parameter, as used by the WebSocket route.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?token="+session.Token, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token query parameter, got %d", rec.Code)
	}
}
