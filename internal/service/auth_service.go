package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/andydwyer/flix/internal/model"
	"github.com/andydwyer/flix/internal/repository"
	"github.com/andydwyer/flix/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const MinPasswordLength = 6

var (
	usernameFormat = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	emailFormat    = regexp.MustCompile(`^\S+@\S+$`)
)

type SignupInput struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        *model.User `json:"user"`
}

type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*AuthResponse, error)
	Signin(ctx context.Context, input SigninInput) (*AuthResponse, error)
	// IssueToken is exposed for seeding and tests.
	IssueToken(user *model.User) (string, int64, error)
}

type authService struct {
	repo     repository.UserRepository
	secret   string
	tokenTTL time.Duration
}

func NewAuthService(repo repository.UserRepository, secret string, tokenTTL time.Duration) AuthService {
	if secret == "" {
		secret = "change-me"
	}
	if tokenTTL == 0 {
		tokenTTL = time.Hour
	}

	return &authService{
		repo:     repo,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

func (s *authService) Signup(ctx context.Context, input SignupInput) (*AuthResponse, error) {
	ve := apperror.NewValidationError()
	if err := validateUserFields(ctx, s.repo, ve, input.Name, input.Username, input.Email, nil); err != nil {
		return nil, err
	}
	if input.Password == "" {
		ve.Add("password", "can't be blank")
	} else if len(input.Password) < MinPasswordLength {
		ve.Add("password", fmt.Sprintf("is too short (minimum is %d characters)", MinPasswordLength))
	}
	if ve.HasErrors() {
		return nil, ve
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(input.Name),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, translateDuplicateUser(err)
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Signin(ctx context.Context, input SigninInput) (*AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", apperror.ErrUnauthorized)
	}

	return s.buildAuthResponse(user)
}

func (s *authService) buildAuthResponse(user *model.User) (*AuthResponse, error) {
	token, expiresAt, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""

	return &AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        user,
	}, nil
}

func (s *authService) IssueToken(user *model.User) (string, int64, error) {
	expiresAt := time.Now().Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}

// validateUserFields runs the name/username/email rules shared by signup and
// profile update, appending to ve. All rules are checked; nothing
// short-circuits on the first failure. excludeID skips the uniqueness probe
// against the user being updated. A repository failure during a uniqueness
// probe is returned, not swallowed.
func validateUserFields(ctx context.Context, repo repository.UserRepository, ve *apperror.ValidationError, name, username, email string, excludeID *uuid.UUID) error {
	if strings.TrimSpace(name) == "" {
		ve.Add("name", "can't be blank")
	}

	if strings.TrimSpace(username) == "" {
		ve.Add("username", "can't be blank")
	} else if !usernameFormat.MatchString(username) {
		ve.Add("username", "may only contain letters and numbers")
	} else if taken, err := usernameTaken(ctx, repo, username, excludeID); err != nil {
		return err
	} else if taken {
		ve.Add("username", "has already been taken")
	}

	if strings.TrimSpace(email) == "" {
		ve.Add("email", "can't be blank")
	} else if !emailFormat.MatchString(email) {
		ve.Add("email", "is invalid")
	} else if taken, err := emailTaken(ctx, repo, email, excludeID); err != nil {
		return err
	} else if taken {
		ve.Add("email", "has already been taken")
	}

	return nil
}

func usernameTaken(ctx context.Context, repo repository.UserRepository, username string, excludeID *uuid.UUID) (bool, error) {
	existing, err := repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return excludeID == nil || existing.ID != *excludeID, nil
}

func emailTaken(ctx context.Context, repo repository.UserRepository, email string, excludeID *uuid.UUID) (bool, error) {
	existing, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return excludeID == nil || existing.ID != *excludeID, nil
}

// translateDuplicateUser converts a unique-index race on the users table into
// the same ValidationError shape the pre-checks produce. The pre-checks are
// race-prone under concurrent writes; the index is the durable guarantee.
func translateDuplicateUser(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		ve := apperror.NewValidationError()
		ve.Add("base", "username or email has already been taken")
		return ve
	}
	return err
}
