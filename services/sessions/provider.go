package sessions

import (
	"context"
	"time"

	"novelchat/apperrors"
	"novelchat/pkg/logger"
	"novelchat/services/api"
	"novelchat/utils"
)

// Authenticator checks credentials against the backend.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*api.User, error)
}

// Provider turns credentials into a Session and remembers it.
type Provider struct {
	auth  Authenticator
	store Store
	now   func() time.Time
	log   *logger.Logger
}

func NewProvider(auth Authenticator, store Store) *Provider {
	return &Provider{
		auth:  auth,
		store: store,
		now:   time.Now,
		log:   logger.WithComponent("sessions"),
	}
}

func (p *Provider) Login(ctx context.Context, username, password string) (Session, error) {
	if appErr := utils.ValidateUsername(username); appErr != nil {
		return Session{}, appErr
	}
	if password == "" {
		return Session{}, apperrors.NewValidationError("Password is required")
	}

	user, err := p.auth.Login(ctx, username, password)
	if err != nil {
		return Session{}, err
	}

	s := NewSession(*user, p.now())
	if s.Username == "" {
		s.Username = username
	}

	// a failed save only costs the next Resume
	if err := p.store.Save(ctx, s); err != nil {
		p.log.WithField("username", username).LogAppError(err, logger.WARN)
	}

	p.log.WithFields(map[string]any{
		"username": s.Username,
		"user_id":  s.UserID.String(),
	}).Info("Logged in")
	return s, nil
}

// Resume returns the saved session of username, if any.
func (p *Provider) Resume(ctx context.Context, username string) (Session, error) {
	return p.store.Load(ctx, username)
}

func (p *Provider) Logout(ctx context.Context, username string) error {
	return p.store.Delete(ctx, username)
}
