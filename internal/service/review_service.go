package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/andydwyer/flix/internal/model"
	"github.com/andydwyer/flix/internal/repository"
	"github.com/andydwyer/flix/pkg/apperror"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
)

type ReviewInput struct {
	Stars int    `json:"stars" binding:"required,gte=1,lte=5"`
	Body  string `json:"body" binding:"required"`
}

type ReviewService interface {
	ListForMovie(ctx context.Context, slug string) ([]*model.Review, error)
	Create(ctx context.Context, currentUser *model.User, slug string, input ReviewInput) (*model.Review, error)
	Delete(ctx context.Context, currentUser *model.User, slug string, reviewID uuid.UUID) error
}

type reviewService struct {
	repo      repository.ReviewRepository
	movieRepo repository.MovieRepository
	rdb       *redis.Client
	cooldown  time.Duration
	sanitizer *bluemonday.Policy
}

func NewReviewService(repo repository.ReviewRepository, movieRepo repository.MovieRepository, rdb *redis.Client, cooldown time.Duration) ReviewService {
	return &reviewService{
		repo:      repo,
		movieRepo: movieRepo,
		rdb:       rdb,
		cooldown:  cooldown,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *reviewService) ListForMovie(ctx context.Context, slug string) ([]*model.Review, error) {
	movie, err := s.movieRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundIfMissing(err)
	}

	reviews, err := s.repo.FindByMovie(ctx, movie.ID)
	if err != nil {
		return nil, err
	}

	for _, review := range reviews {
		review.User.PasswordHash = ""
	}

	return reviews, nil
}

func (s *reviewService) Create(ctx context.Context, currentUser *model.User, slug string, input ReviewInput) (*model.Review, error) {
	if currentUser == nil {
		return nil, apperror.ErrUnauthorized
	}

	movie, err := s.movieRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundIfMissing(err)
	}

	if s.cooldown > 0 {
		allowed, err := CheckAndSetRateLimit(ctx, s.rdb, currentUser.ID, "review", s.cooldown)
		if err != nil {
			return nil, err
		}
		if !allowed {
			ttl, _ := GetRateLimitTTL(ctx, s.rdb, currentUser.ID, "review")
			return nil, fmt.Errorf("%w: please wait %.0f seconds before reviewing again", apperror.ErrRateLimitExceeded, ttl.Seconds())
		}
	}

	review := &model.Review{
		Stars:   input.Stars,
		Body:    s.cleanBody(input.Body),
		UserID:  currentUser.ID,
		MovieID: movie.ID,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		if s.cooldown > 0 {
			_ = ClearRateLimit(ctx, s.rdb, currentUser.ID, "review")
		}
		return nil, err
	}

	review.User = *currentUser
	review.User.PasswordHash = ""
	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, currentUser *model.User, slug string, reviewID uuid.UUID) error {
	if currentUser == nil {
		return apperror.ErrUnauthorized
	}

	movie, err := s.movieRepo.FindBySlug(ctx, slug)
	if err != nil {
		return notFoundIfMissing(err)
	}

	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return notFoundIfMissing(err)
	}

	if review.MovieID != movie.ID {
		return apperror.ErrNotFound
	}

	if !currentUser.Admin && review.UserID != currentUser.ID {
		return apperror.ErrForbidden
	}

	return s.repo.Delete(ctx, review.ID)
}

// cleanBody strips markup from the submitted body before it is persisted or
// rendered anywhere.
func (s *reviewService) cleanBody(body string) string {
	sanitized := s.sanitizer.Sanitize(body)
	cleaned := html.UnescapeString(sanitized)
	return strings.TrimSpace(cleaned)
}
