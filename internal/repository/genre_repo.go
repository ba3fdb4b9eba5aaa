package repository

import (
	"context"

	"github.com/andydwyer/flix/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GenreRepository interface {
	Create(ctx context.Context, genre *model.Genre) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Genre, error)
	FindByName(ctx context.Context, name string) (*model.Genre, error)
	FindAll(ctx context.Context) ([]*model.Genre, error)
	Update(ctx context.Context, genre *model.Genre) error
	Delete(ctx context.Context, id uuid.UUID) error
	Movies(ctx context.Context, genreID uuid.UUID) ([]*model.Movie, error)
}

type genreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) GenreRepository {
	return &genreRepository{db: db}
}

func (r *genreRepository) Create(ctx context.Context, genre *model.Genre) error {
	return r.db.WithContext(ctx).Create(genre).Error
}

func (r *genreRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	var genre model.Genre
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&genre).Error; err != nil {
		return nil, err
	}

	return &genre, nil
}

func (r *genreRepository) FindByName(ctx context.Context, name string) (*model.Genre, error) {
	var genre model.Genre
	if err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&genre).Error; err != nil {
		return nil, err
	}

	return &genre, nil
}

func (r *genreRepository) FindAll(ctx context.Context) ([]*model.Genre, error) {
	var genres []*model.Genre
	if err := r.db.WithContext(ctx).
		Order("name").
		Find(&genres).Error; err != nil {
		return nil, err
	}

	return genres, nil
}

func (r *genreRepository) Update(ctx context.Context, genre *model.Genre) error {
	return r.db.WithContext(ctx).Save(genre).Error
}

// Delete removes the genre and its characterizations together; the movies on
// the other side of the join persist.
func (r *genreRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("genre_id = ?", id).Delete(&model.Characterization{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Genre{}, "id = ?", id).Error
	})
}

// Movies is the derived "movies in a genre" view through characterizations.
func (r *genreRepository) Movies(ctx context.Context, genreID uuid.UUID) ([]*model.Movie, error) {
	var movies []*model.Movie
	if err := r.db.WithContext(ctx).
		Joins("join characterizations on characterizations.movie_id = movies.id").
		Where("characterizations.genre_id = ?", genreID).
		Order("movies.title").
		Find(&movies).Error; err != nil {
		return nil, err
	}

	return movies, nil
}
