package service

import (
	"context"
	"errors"

	"github.com/andydwyer/flix/internal/model"
	"github.com/andydwyer/flix/internal/repository"
	"github.com/andydwyer/flix/pkg/apperror"
	"gorm.io/gorm"
)

type FavouriteService interface {
	Favourite(ctx context.Context, currentUser *model.User, slug string) error
	Unfavourite(ctx context.Context, currentUser *model.User, slug string) error
	Fans(ctx context.Context, slug string) ([]*model.User, error)
}

type favouriteService struct {
	repo      repository.FavouriteRepository
	movieRepo repository.MovieRepository
}

func NewFavouriteService(repo repository.FavouriteRepository, movieRepo repository.MovieRepository) FavouriteService {
	return &favouriteService{repo: repo, movieRepo: movieRepo}
}

func (s *favouriteService) Favourite(ctx context.Context, currentUser *model.User, slug string) error {
	if currentUser == nil {
		return apperror.ErrUnauthorized
	}

	movie, err := s.movieRepo.FindBySlug(ctx, slug)
	if err != nil {
		return notFoundIfMissing(err)
	}

	favourite := &model.Favourite{
		UserID:  currentUser.ID,
		MovieID: movie.ID,
	}

	if err := s.repo.Create(ctx, favourite); err != nil {
		// Favouriting twice is a no-op, including under a race: the unique
		// (user, movie) index is the durable guarantee.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}

	return nil
}

func (s *favouriteService) Unfavourite(ctx context.Context, currentUser *model.User, slug string) error {
	if currentUser == nil {
		return apperror.ErrUnauthorized
	}

	movie, err := s.movieRepo.FindBySlug(ctx, slug)
	if err != nil {
		return notFoundIfMissing(err)
	}

	return s.repo.Delete(ctx, currentUser.ID, movie.ID)
}

func (s *favouriteService) Fans(ctx context.Context, slug string) ([]*model.User, error) {
	movie, err := s.movieRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundIfMissing(err)
	}

	fans, err := s.repo.Fans(ctx, movie.ID)
	if err != nil {
		return nil, err
	}

	for _, fan := range fans {
		fan.PasswordHash = ""
	}

	return fans, nil
}
