package service

import (
	"context"
	"strings"

	"gatherly/internal/models"
	"gatherly/internal/repository"
	"gatherly/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
}

// CreateProfileInput is the sign-up form submission.
type CreateProfileInput struct {
	Subject    string
	Name       string
	Email      string
	Type       string
	Location   string
	Postcode   string
	Interests  []string
	Gender     string
	HeardAbout string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Profile returns the directory row for an auth subject.
func (s *UserService) Profile(ctx context.Context, subject string) (*models.User, error) {
	user, err := s.userRepo.GetByAuthSubject(ctx, subject)
	if models.IsCode(err, models.CodeNotFound) {
		return nil, models.NewNotFoundError("Profile", subject)
	}
	return user, err
}

// CreateProfile creates the directory row for a first-time sign-up. Each auth
// subject gets exactly one profile.
func (s *UserService) CreateProfile(ctx context.Context, in CreateProfileInput) (*models.User, error) {
	if strings.TrimSpace(in.Subject) == "" {
		return nil, models.NewUnauthenticatedError("Authentication required")
	}
	if err := validation.ValidateName(in.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePostcode(in.Postcode); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateLocation(in.Location); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	interests, err := validation.NormalizeInterests(in.Interests)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByAuthSubject(ctx, in.Subject)
	switch {
	case err == nil && existing != nil:
		return nil, models.NewConflictError("A profile already exists for this account")
	case err != nil && !models.IsCode(err, models.CodeNotFound):
		return nil, err
	}

	user := &models.User{
		AuthSubject: strings.TrimSpace(in.Subject),
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Type:        strings.TrimSpace(in.Type),
		Location:    strings.TrimSpace(in.Location),
		Postcode:    strings.ToUpper(strings.TrimSpace(in.Postcode)),
		Interests:   interests,
		Gender:      models.ParseGender(in.Gender),
		HeardAbout:  strings.TrimSpace(in.HeardAbout),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
