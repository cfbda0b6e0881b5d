package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/interviewace/apiserver/types"
)

const defaultTrialCredits = 5

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Register creates a user account with the starting credit balance.
func (s *UserService) Register(ctx context.Context, name, email, passwordHash string) (types.User, error) {
	return s.repo.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Credits:      defaultTrialCredits,
	})
}

// UpdateDetails changes the profile fields a user may edit themselves.
func (s *UserService) UpdateDetails(ctx context.Context, id int, name string) (types.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.User{}, fmt.Errorf("%w: name is required", ErrValidation)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	user.Name = name
	return s.repo.Update(ctx, user)
}
