package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agentflow/internal/logging"
	"agentflow/internal/repository"
	"agentflow/pkg/models"
)

// UserService resolves the identity behind a request.
type UserService struct {
	store  repository.UserStore
	logger *logging.Logger
}

// NewUserService creates a new UserService.
func NewUserService(store repository.UserStore, logger *logging.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

// Resolve returns the user with the given email, provisioning one on first sight.
func (s *UserService) Resolve(ctx context.Context, email, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, &models.FieldError{Field: "email", Reason: "must be an email address"}
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if name == "" {
		name = email[:strings.Index(email, "@")]
	}
	user = &models.User{Email: email, Name: name}
	err = s.store.CreateUser(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		// Another request provisioned the same user first.
		return s.store.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("provision user %s: %w", email, err)
	}
	s.logger.WithField("user_id", user.ID).Info("provisioned user %s", email)
	return user, nil
}

// Get retrieves a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}
