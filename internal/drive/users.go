package drive

import (
	"context"
	"fmt"
	"strings"

	"drive-go/internal/model"
)

// CreateUser registers a user. Emails are stored lowercased and must be
// unique.
func (s *DriveService) CreateUser(ctx context.Context, email, firstName, lastName, picture string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, badRequest("a valid email is required")
	}

	existing, err := s.database.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking for existing user: %w", err)
	}
	if existing != nil {
		return nil, conflict("user already exists: %s", email)
	}

	user := &model.User{
		ID:        s.idgen.New(),
		Email:     email,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Picture:   picture,
		CreatedAt: s.clock.Now(),
	}
	if err := s.database.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created", "user", user.ID, "email", email)
	return user, nil
}

// GetUser returns the user with the given id.
func (s *DriveService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.database.FindUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, notFound("user not found: %s", id)
	}
	return user, nil
}

// FindUserByEmail returns the user registered with email.
func (s *DriveService) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.database.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, notFound("user not found: %s", email)
	}
	return user, nil
}

// ListUsers returns everyone except exceptID, for picking share targets.
func (s *DriveService) ListUsers(ctx context.Context, exceptID string) ([]*model.User, error) {
	users, err := s.database.ListUsers(ctx, exceptID)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}
