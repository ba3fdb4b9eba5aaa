package service

import (
	"context"
	"fmt"

	"github.com/andydwyer/flix/internal/model"
	"github.com/andydwyer/flix/internal/repository"
	"github.com/andydwyer/flix/pkg/apperror"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UpdateUserInput struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	// Password left blank means unchanged; the length rule is not re-applied.
	Password string `json:"password"`
}

type UserResponse struct {
	*model.User
	GravatarURL     string         `json:"gravatar_url"`
	FavouriteMovies []*model.Movie `json:"favourite_movies,omitempty"`
}

type UserService interface {
	Get(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	GetByUsername(ctx context.Context, username string) (*UserResponse, error)
	List(ctx context.Context) ([]*UserResponse, error)
	ListNotAdmins(ctx context.Context) ([]*UserResponse, error)
	Update(ctx context.Context, currentUser *model.User, id uuid.UUID, input UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, currentUser *model.User, id uuid.UUID) error
}

type userService struct {
	repo          repository.UserRepository
	favouriteRepo repository.FavouriteRepository
}

func NewUserService(repo repository.UserRepository, favouriteRepo repository.FavouriteRepository) UserService {
	return &userService{repo: repo, favouriteRepo: favouriteRepo}
}

const gravatarSize = 80

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundIfMissing(err)
	}

	return s.buildUserResponse(ctx, user, true)
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*UserResponse, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFoundIfMissing(err)
	}

	return s.buildUserResponse(ctx, user, true)
}

func (s *userService) List(ctx context.Context) ([]*UserResponse, error) {
	users, err := s.repo.ByName(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildUserResponses(users), nil
}

func (s *userService) ListNotAdmins(ctx context.Context) ([]*UserResponse, error) {
	users, err := s.repo.NotAdmins(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildUserResponses(users), nil
}

func (s *userService) Update(ctx context.Context, currentUser *model.User, id uuid.UUID, input UpdateUserInput) (*model.User, error) {
	if currentUser == nil {
		return nil, apperror.ErrUnauthorized
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundIfMissing(err)
	}

	if !currentUser.Admin && !currentUser.Is(user) {
		return nil, apperror.ErrForbidden
	}

	ve := apperror.NewValidationError()
	if err := validateUserFields(ctx, s.repo, ve, input.Name, input.Username, input.Email, &user.ID); err != nil {
		return nil, err
	}
	if input.Password != "" && len(input.Password) < MinPasswordLength {
		ve.Add("password", fmt.Sprintf("is too short (minimum is %d characters)", MinPasswordLength))
	}
	if ve.HasErrors() {
		return nil, ve
	}

	user.Name = input.Name
	user.Username = input.Username
	user.Email = input.Email

	if input.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hashedPassword)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, translateDuplicateUser(err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *userService) Delete(ctx context.Context, currentUser *model.User, id uuid.UUID) error {
	if currentUser == nil {
		return apperror.ErrUnauthorized
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundIfMissing(err)
	}

	if !currentUser.Admin && !currentUser.Is(user) {
		return apperror.ErrForbidden
	}

	return s.repo.Delete(ctx, user.ID)
}

func (s *userService) buildUserResponse(ctx context.Context, user *model.User, withFavourites bool) (*UserResponse, error) {
	user.PasswordHash = ""
	resp := &UserResponse{
		User:        user,
		GravatarURL: user.GravatarURL(gravatarSize),
	}

	if withFavourites && s.favouriteRepo != nil {
		movies, err := s.favouriteRepo.FavouriteMovies(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		resp.FavouriteMovies = movies
	}

	return resp, nil
}

func (s *userService) buildUserResponses(users []*model.User) []*UserResponse {
	responses := make([]*UserResponse, 0, len(users))
	for _, user := range users {
		user.PasswordHash = ""
		responses = append(responses, &UserResponse{
			User:        user,
			GravatarURL: user.GravatarURL(gravatarSize),
		})
	}
	return responses
}
