// Package auth implements staff sign-in against the gateway's profiles
// table and bearer-token session checks for the admin API.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelierhq/atelier-admin/internal/gateway"
	"github.com/atelierhq/atelier-admin/pkg/models"
)

// ErrInvalidCredentials covers both unknown email and wrong password, so
// responses do not reveal which one it was.
var ErrInvalidCredentials = errors.New("invalid email or password")

type ProfileReader interface {
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
}

type Service struct {
	profiles ProfileReader
	sessions *SessionStore
	logger   *logrus.Logger
}

func NewService(profiles ProfileReader, sessions *SessionStore, logger *logrus.Logger) *Service {
	return &Service{
		profiles: profiles,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	profile, err := s.profiles.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			s.logger.WithField("email", email).Warn("Sign-in attempt for unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		s.logger.WithField("email", email).Warn("Sign-in attempt with wrong password")
		return nil, ErrInvalidCredentials
	}

	session := Session{
		Token:     uuid.New().String(),
		ProfileID: profile.ID,
		Email:     profile.Email,
		Name:      profile.DisplayName,
		Role:      profile.Role,
		ExpiresAt: time.Now().Add(s.sessions.TTL()),
	}
	s.sessions.Put(session)

	s.logger.WithFields(logrus.Fields{
		"profile_id": profile.ID,
		"email":      profile.Email,
	}).Info("Staff signed in")

	return &session, nil
}

func (s *Service) SignOut(token string) {
	s.sessions.Delete(token)
}

func (s *Service) Lookup(token string) (Session, bool) {
	return s.sessions.Get(token)
}
