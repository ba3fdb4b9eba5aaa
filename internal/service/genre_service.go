package service

import (
	"context"
	"errors"
	"strings"

	"github.com/andydwyer/flix/internal/model"
	"github.com/andydwyer/flix/internal/repository"
	"github.com/andydwyer/flix/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GenreInput struct {
	Name string `json:"name"`
}

type GenreResponse struct {
	*model.Genre
	Movies []*model.Movie `json:"movies,omitempty"`
}

type GenreService interface {
	List(ctx context.Context) ([]*model.Genre, error)
	Get(ctx context.Context, id uuid.UUID) (*GenreResponse, error)
	Create(ctx context.Context, input GenreInput) (*model.Genre, error)
	Update(ctx context.Context, id uuid.UUID, input GenreInput) (*model.Genre, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type genreService struct {
	repo repository.GenreRepository
}

func NewGenreService(repo repository.GenreRepository) GenreService {
	return &genreService{repo: repo}
}

func (s *genreService) List(ctx context.Context) ([]*model.Genre, error) {
	return s.repo.FindAll(ctx)
}

func (s *genreService) Get(ctx context.Context, id uuid.UUID) (*GenreResponse, error) {
	genre, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundIfMissing(err)
	}

	movies, err := s.repo.Movies(ctx, genre.ID)
	if err != nil {
		return nil, err
	}

	return &GenreResponse{Genre: genre, Movies: movies}, nil
}

func (s *genreService) Create(ctx context.Context, input GenreInput) (*model.Genre, error) {
	if err := s.validate(ctx, input, nil); err != nil {
		return nil, err
	}

	genre := &model.Genre{Name: strings.TrimSpace(input.Name)}
	if err := s.repo.Create(ctx, genre); err != nil {
		return nil, translateDuplicateGenre(err)
	}

	return genre, nil
}

func (s *genreService) Update(ctx context.Context, id uuid.UUID, input GenreInput) (*model.Genre, error) {
	genre, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundIfMissing(err)
	}

	if err := s.validate(ctx, input, &genre.ID); err != nil {
		return nil, err
	}

	genre.Name = strings.TrimSpace(input.Name)
	if err := s.repo.Update(ctx, genre); err != nil {
		return nil, translateDuplicateGenre(err)
	}

	return genre, nil
}

func (s *genreService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFoundIfMissing(err)
	}

	return s.repo.Delete(ctx, id)
}

func (s *genreService) validate(ctx context.Context, input GenreInput, excludeID *uuid.UUID) error {
	ve := apperror.NewValidationError()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		ve.Add("name", "can't be blank")
	} else if existing, err := s.repo.FindByName(ctx, name); err == nil {
		if excludeID == nil || existing.ID != *excludeID {
			ve.Add("name", "has already been taken")
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return ve.OrNil()
}

func translateDuplicateGenre(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		ve := apperror.NewValidationError()
		ve.Add("name", "has already been taken")
		return ve
	}
	return err
}
