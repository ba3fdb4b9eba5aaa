package repository

import (
	"context"

	"github.com/andydwyer/flix/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FavouriteRepository interface {
	Create(ctx context.Context, favourite *model.Favourite) error
	Find(ctx context.Context, userID, movieID uuid.UUID) (*model.Favourite, error)
	Delete(ctx context.Context, userID, movieID uuid.UUID) error
	FavouriteMovies(ctx context.Context, userID uuid.UUID) ([]*model.Movie, error)
	Fans(ctx context.Context, movieID uuid.UUID) ([]*model.User, error)
}

type favouriteRepository struct {
	db *gorm.DB
}

func NewFavouriteRepository(db *gorm.DB) FavouriteRepository {
	return &favouriteRepository{db: db}
}

func (r *favouriteRepository) Create(ctx context.Context, favourite *model.Favourite) error {
	return r.db.WithContext(ctx).Create(favourite).Error
}

func (r *favouriteRepository) Find(ctx context.Context, userID, movieID uuid.UUID) (*model.Favourite, error) {
	var favourite model.Favourite
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		First(&favourite).Error; err != nil {
		return nil, err
	}

	return &favourite, nil
}

func (r *favouriteRepository) Delete(ctx context.Context, userID, movieID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Delete(&model.Favourite{}).Error
}

// FavouriteMovies is the derived "favourite movies of a user" view, computed
// by joining through favourites rather than stored separately.
func (r *favouriteRepository) FavouriteMovies(ctx context.Context, userID uuid.UUID) ([]*model.Movie, error) {
	var movies []*model.Movie
	if err := r.db.WithContext(ctx).
		Joins("join favourites on favourites.movie_id = movies.id").
		Where("favourites.user_id = ?", userID).
		Order("favourites.created_at desc").
		Find(&movies).Error; err != nil {
		return nil, err
	}

	return movies, nil
}

// Fans is the derived "users who favourited a movie" view.
func (r *favouriteRepository) Fans(ctx context.Context, movieID uuid.UUID) ([]*model.User, error) {
	var users []*model.User
	if err := r.db.WithContext(ctx).
		Joins("join favourites on favourites.user_id = users.id").
		Where("favourites.movie_id = ?", movieID).
		Order("users.name").
		Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}
