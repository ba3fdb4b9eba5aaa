package repository

import (
	"context"
	"time"

	"github.com/andydwyer/flix/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovieRepository interface {
	Create(ctx context.Context, movie *model.Movie) error
	Update(ctx context.Context, movie *model.Movie) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Movie, error)
	FindBySlug(ctx context.Context, slug string) (*model.Movie, error)
	FindByTitle(ctx context.Context, title string) (*model.Movie, error)
	FindAll(ctx context.Context) ([]*model.Movie, error)
	Released(ctx context.Context) ([]*model.Movie, error)
	Upcoming(ctx context.Context) ([]*model.Movie, error)
	Recent(ctx context.Context, max int) ([]*model.Movie, error)
	Hits(ctx context.Context) ([]*model.Movie, error)
	Flops(ctx context.Context) ([]*model.Movie, error)
	RecentlyAdded(ctx context.Context, max int) ([]*model.Movie, error)
	GrossedLessThan(ctx context.Context, amount float64) ([]*model.Movie, error)
	GrossedGreaterThan(ctx context.Context, amount float64) ([]*model.Movie, error)
	ReviewStats(ctx context.Context, movieID uuid.UUID) (model.ReviewStats, error)
	FanCount(ctx context.Context, movieID uuid.UUID) (int64, error)
	Genres(ctx context.Context, movieID uuid.UUID) ([]*model.Genre, error)
	SetGenres(ctx context.Context, movieID uuid.UUID, genreIDs []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type movieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) MovieRepository {
	return &movieRepository{db: db}
}

func (r *movieRepository) Create(ctx context.Context, movie *model.Movie) error {
	return r.db.WithContext(ctx).Create(movie).Error
}

func (r *movieRepository) Update(ctx context.Context, movie *model.Movie) error {
	return r.db.WithContext(ctx).Save(movie).Error
}

func (r *movieRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	var movie model.Movie
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&movie).Error; err != nil {
		return nil, err
	}

	return &movie, nil
}

func (r *movieRepository) FindBySlug(ctx context.Context, slug string) (*model.Movie, error) {
	var movie model.Movie
	if err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&movie).Error; err != nil {
		return nil, err
	}

	return &movie, nil
}

func (r *movieRepository) FindByTitle(ctx context.Context, title string) (*model.Movie, error) {
	var movie model.Movie
	if err := r.db.WithContext(ctx).
		Where("title = ?", title).
		First(&movie).Error; err != nil {
		return nil, err
	}

	return &movie, nil
}

func (r *movieRepository) FindAll(ctx context.Context) ([]*model.Movie, error) {
	var movies []*model.Movie
	if err := r.db.WithContext(ctx).
		Order("created_at desc").
		Find(&movies).Error; err != nil {
		return nil, err
	}

	return movies, nil
}

func (r *movieRepository) released(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Where("released_on <= ?", time.Now())
}

func (r *movieRepository) Released(ctx context.Context) ([]*model.Movie, error) {
	var movies []*model.Movie
	if err := r.released(ctx).
		Order("released_on desc").
		Find(&movies).Error; err != nil {
		return nil, err
	}

	return movies, nil
}

func (r *movieRepository) Upcoming(ctx context.Context) ([]*model.Movie, error) {
	var movies []*model.Movie
	if err := r.db.WithContext(ctx).
		Where("released_on > ?", time.Now()).
		Order("released_on asc").
		Find(&movies).Error; err != nil {
		return nil, err
	}

	return movies, nil
}

func (r *movieRepository) Recent(ctx context.Context, max int) ([]*model.Movie, error) {
	var movies []*model.Movie
	if err := r.released(ctx).
		Order("released_on desc").
		Limit(max).
		Find(&movies).Error; err != nil {
		return nil, err
	}

	return movies, nil
}

func (r *movieRepository) Hits(ctx context.Context) ([]*model.Movie, error) {
	var movies []*model.Movie
	if err := r.released(ctx).
		Where("total_gross >= ?", float64(model.HitThreshold)).
		Order("total_gross desc").
		Find(&movies).Error; err != nil {
		return nil, err
	}

	return movies, nil
}

// Flops filters on gross alone. Unlike Movie.Flop it does not exempt cult
// classics; the two deliberately disagree.
func (r *movieRepository) Flops(ctx context.Context) ([]*model.Movie, error) {
	var movies []*model.Movie
	if err := r.released(ctx).
		Where("total_gross < ?", float64(model.FlopThreshold)).
		Order("total_gross asc").
		Find(&movies).Error; err != nil {
		return nil, err
	}

	return movies, nil
}

func (r *movieRepository) RecentlyAdded(ctx context.Context, max int) ([]*model.Movie, error) {
	var movies []*model.Movie
	if err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(max).
		Find(&movies).Error; err != nil {
		return nil, err
	}

	return movies, nil
}

func (r *movieRepository) GrossedLessThan(ctx context.Context, amount float64) ([]*model.Movie, error) {
	var movies []*model.Movie
	if err := r.released(ctx).
		Where("total_gross < ?", amount).
		Find(&movies).Error; err != nil {
		return nil, err
	}

	return movies, nil
}

func (r *movieRepository) GrossedGreaterThan(ctx context.Context, amount float64) ([]*model.Movie, error) {
	var movies []*model.Movie
	if err := r.released(ctx).
		Where("total_gross > ?", amount).
		Find(&movies).Error; err != nil {
		return nil, err
	}

	return movies, nil
}

func (r *movieRepository) ReviewStats(ctx context.Context, movieID uuid.UUID) (model.ReviewStats, error) {
	var stats model.ReviewStats
	if err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Select("count(*) as count, coalesce(avg(stars), 0) as average_stars").
		Where("movie_id = ?", movieID).
		Scan(&stats).Error; err != nil {
		return model.ReviewStats{}, err
	}

	return stats, nil
}

func (r *movieRepository) FanCount(ctx context.Context, movieID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Favourite{}).
		Where("movie_id = ?", movieID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (r *movieRepository) Genres(ctx context.Context, movieID uuid.UUID) ([]*model.Genre, error) {
	var genres []*model.Genre
	if err := r.db.WithContext(ctx).
		Joins("join characterizations on characterizations.genre_id = genres.id").
		Where("characterizations.movie_id = ?", movieID).
		Order("genres.name").
		Find(&genres).Error; err != nil {
		return nil, err
	}

	return genres, nil
}

// SetGenres rewrites the movie's characterizations to match genreIDs.
func (r *movieRepository) SetGenres(ctx context.Context, movieID uuid.UUID, genreIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("movie_id = ?", movieID).Delete(&model.Characterization{}).Error; err != nil {
			return err
		}
		for _, genreID := range genreIDs {
			ch := model.Characterization{MovieID: movieID, GenreID: genreID}
			if err := tx.Create(&ch).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the movie together with its reviews, favourites and
// characterizations in one transaction. Users and genres are untouched.
func (r *movieRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("movie_id = ?", id).Delete(&model.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("movie_id = ?", id).Delete(&model.Favourite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("movie_id = ?", id).Delete(&model.Characterization{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Movie{}, "id = ?", id).Error
	})
}
