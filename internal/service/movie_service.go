package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/andydwyer/flix/internal/model"
	"github.com/andydwyer/flix/internal/repository"
	"github.com/andydwyer/flix/pkg/apperror"
	"github.com/andydwyer/flix/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinDescriptionLength = 25
	MaxPosterBytes       = 1 << 20

	defaultRecentMax        = 5
	defaultRecentlyAddedMax = 3
	defaultGrossAmount      = 1000000
)

type MovieInput struct {
	Title       string    `json:"title" form:"title"`
	Description string    `json:"description" form:"description"`
	Director    string    `json:"director" form:"director"`
	Duration    int       `json:"duration" form:"duration"`
	Rating      string    `json:"rating" form:"rating"`
	TotalGross  float64   `json:"total_gross" form:"total_gross"`
	ReleasedOn  time.Time `json:"released_on" form:"released_on" time_format:"2006-01-02"`

	GenreIDs []uuid.UUID `json:"genre_ids" form:"genre_ids"`
}

// PosterFile is an uploaded poster image, sniffed and size-checked before it
// reaches storage.
type PosterFile struct {
	Reader   io.Reader
	FileName string
	Size     int64
}

// MovieResponse decorates a movie with the derived attributes the views need.
type MovieResponse struct {
	*model.Movie
	ReviewCount           int64    `json:"review_count"`
	AverageStars          float64  `json:"average_stars"`
	AverageStarsAsPercent float64  `json:"average_stars_as_percent"`
	FanCount              int64    `json:"fan_count"`
	Genres                []string `json:"genres"`
	Flop                  bool     `json:"flop"`
	Upcoming              bool     `json:"upcoming"`
	CultClassic           bool     `json:"cult_classic"`
}

type MovieService interface {
	List(ctx context.Context, filter string) ([]*model.Movie, error)
	Get(ctx context.Context, slug string) (*MovieResponse, error)
	Create(ctx context.Context, input MovieInput, poster *PosterFile) (*model.Movie, error)
	Update(ctx context.Context, slug string, input MovieInput, poster *PosterFile) (*model.Movie, error)
	Delete(ctx context.Context, slug string) error
	Search(ctx context.Context, query string) ([]*model.Movie, error)
}

type movieService struct {
	repo          repository.MovieRepository
	posterStorage storage.PosterStorage
	search        SearchService
}

func NewMovieService(repo repository.MovieRepository, posterStorage storage.PosterStorage, search SearchService) MovieService {
	return &movieService{
		repo:          repo,
		posterStorage: posterStorage,
		search:        search,
	}
}

// List dispatches the filter path parameter onto the repository scopes. An
// empty filter lists released movies, matching the site's front page.
func (s *movieService) List(ctx context.Context, filter string) ([]*model.Movie, error) {
	switch filter {
	case "", "released":
		return s.repo.Released(ctx)
	case "upcoming":
		return s.repo.Upcoming(ctx)
	case "recent":
		return s.repo.Recent(ctx, defaultRecentMax)
	case "hits":
		return s.repo.Hits(ctx)
	case "flops":
		return s.repo.Flops(ctx)
	case "recently_added":
		return s.repo.RecentlyAdded(ctx, defaultRecentlyAddedMax)
	case "grossed_less_than":
		return s.repo.GrossedLessThan(ctx, defaultGrossAmount)
	case "grossed_greater_than":
		return s.repo.GrossedGreaterThan(ctx, defaultGrossAmount)
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", apperror.ErrNotFound, filter)
	}
}

func (s *movieService) Get(ctx context.Context, slug string) (*MovieResponse, error) {
	movie, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundIfMissing(err)
	}

	return s.buildMovieResponse(ctx, movie)
}

func (s *movieService) Create(ctx context.Context, input MovieInput, poster *PosterFile) (*model.Movie, error) {
	if err := s.validateMovie(ctx, input, nil, poster); err != nil {
		return nil, err
	}

	movie := &model.Movie{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Director:    input.Director,
		Duration:    input.Duration,
		Rating:      input.Rating,
		TotalGross:  input.TotalGross,
		ReleasedOn:  input.ReleasedOn,
	}

	if poster != nil {
		url, err := s.uploadPoster(ctx, poster)
		if err != nil {
			return nil, err
		}
		movie.MainImageURL = &url
	}

	if err := s.repo.Create(ctx, movie); err != nil {
		s.discardPoster(ctx, movie.MainImageURL)
		return nil, translateDuplicateMovie(err)
	}

	if len(input.GenreIDs) > 0 {
		if err := s.repo.SetGenres(ctx, movie.ID, input.GenreIDs); err != nil {
			if derr := s.repo.Delete(ctx, movie.ID); derr != nil {
				log.Printf("failed to undo movie create after genre write error: %v", derr)
			}
			s.discardPoster(ctx, movie.MainImageURL)
			return nil, err
		}
	}

	s.indexMovie(movie)
	return movie, nil
}

func (s *movieService) Update(ctx context.Context, slug string, input MovieInput, poster *PosterFile) (*model.Movie, error) {
	movie, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundIfMissing(err)
	}

	if err := s.validateMovie(ctx, input, &movie.ID, poster); err != nil {
		return nil, err
	}

	oldPoster := movie.MainImageURL

	movie.Title = strings.TrimSpace(input.Title)
	movie.Description = input.Description
	movie.Director = input.Director
	movie.Duration = input.Duration
	movie.Rating = input.Rating
	movie.TotalGross = input.TotalGross
	movie.ReleasedOn = input.ReleasedOn

	if poster != nil {
		url, err := s.uploadPoster(ctx, poster)
		if err != nil {
			return nil, err
		}
		movie.MainImageURL = &url
	}

	if err := s.repo.Update(ctx, movie); err != nil {
		if poster != nil {
			s.discardPoster(ctx, movie.MainImageURL)
		}
		return nil, translateDuplicateMovie(err)
	}

	if input.GenreIDs != nil {
		if err := s.repo.SetGenres(ctx, movie.ID, input.GenreIDs); err != nil {
			return nil, err
		}
	}

	if poster != nil && oldPoster != nil {
		if err := s.posterStorage.DeletePoster(ctx, *oldPoster); err != nil {
			log.Printf("failed to delete replaced poster: %v", err)
		}
	}

	s.indexMovie(movie)
	return movie, nil
}

func (s *movieService) Delete(ctx context.Context, slug string) error {
	movie, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return notFoundIfMissing(err)
	}

	if err := s.repo.Delete(ctx, movie.ID); err != nil {
		return err
	}

	if movie.MainImageURL != nil && s.posterStorage != nil {
		if err := s.posterStorage.DeletePoster(ctx, *movie.MainImageURL); err != nil {
			log.Printf("failed to delete poster for %s: %v", movie.Slug, err)
		}
	}

	if s.search != nil {
		if err := s.search.DeleteMovie(movie.ID); err != nil {
			log.Printf("failed to remove %s from search index: %v", movie.Slug, err)
		}
	}

	return nil
}

func (s *movieService) Search(ctx context.Context, query string) ([]*model.Movie, error) {
	if s.search == nil {
		return nil, apperror.ErrNotFound
	}

	ids, err := s.search.SearchMovies(query)
	if err != nil {
		return nil, err
	}

	movies := make([]*model.Movie, 0, len(ids))
	for _, id := range ids {
		movie, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Index lag after a delete; skip the stale hit.
				continue
			}
			return nil, err
		}
		movies = append(movies, movie)
	}

	return movies, nil
}

// validateMovie checks every field rule independently and aggregates the
// violations, then vets the poster. Nothing short-circuits: a submission with
// five problems reports five messages.
func (s *movieService) validateMovie(ctx context.Context, input MovieInput, excludeID *uuid.UUID, poster *PosterFile) error {
	ve := apperror.NewValidationError()

	title := strings.TrimSpace(input.Title)
	if title == "" {
		ve.Add("title", "can't be blank")
	} else if taken, err := s.titleTaken(ctx, title, excludeID); err != nil {
		return err
	} else if taken {
		ve.Add("title", "has already been taken")
	}

	if strings.TrimSpace(input.Description) == "" {
		ve.Add("description", "can't be blank")
	} else if len(input.Description) < MinDescriptionLength {
		ve.Add("description", fmt.Sprintf("is too short (minimum is %d characters)", MinDescriptionLength))
	}

	if strings.TrimSpace(input.Director) == "" {
		ve.Add("director", "can't be blank")
	}

	if input.Duration <= 0 {
		ve.Add("duration", "must be greater than 0")
	}

	if input.ReleasedOn.IsZero() {
		ve.Add("released_on", "can't be blank")
	}

	if input.TotalGross < 0 {
		ve.Add("total_gross", "must be greater than or equal to 0")
	}

	if !model.ValidRating(input.Rating) {
		ve.Add("rating", "is not included in the list")
	}

	if poster != nil {
		validatePoster(ve, poster)
	}

	return ve.OrNil()
}

// validatePoster sniffs the image content and bounds its size. The sniffed
// bytes are stitched back so the upload still sees the whole stream.
func validatePoster(ve *apperror.ValidationError, poster *PosterFile) {
	if poster.Size > MaxPosterBytes {
		ve.Add("main_image", "must be 1 MB or smaller")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(poster.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		ve.Add("main_image", "could not be read")
		return
	}
	head = head[:n]
	poster.Reader = io.MultiReader(bytes.NewReader(head), poster.Reader)

	switch http.DetectContentType(head) {
	case "image/jpeg", "image/png":
	default:
		ve.Add("main_image", "must be a JPG or PNG image")
	}
}

// discardPoster removes an already uploaded poster after the write it was
// attached to failed, so the image does not sit orphaned in storage.
func (s *movieService) discardPoster(ctx context.Context, fileURL *string) {
	if fileURL == nil || s.posterStorage == nil {
		return
	}
	if err := s.posterStorage.DeletePoster(ctx, *fileURL); err != nil {
		log.Printf("failed to delete orphaned poster: %v", err)
	}
}

func (s *movieService) uploadPoster(ctx context.Context, poster *PosterFile) (string, error) {
	if s.posterStorage == nil {
		return "", fmt.Errorf("%w: poster storage is not configured", apperror.ErrInternal)
	}
	return s.posterStorage.UploadPoster(ctx, poster.Reader, poster.FileName)
}

func (s *movieService) titleTaken(ctx context.Context, title string, excludeID *uuid.UUID) (bool, error) {
	existing, err := s.repo.FindByTitle(ctx, title)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return excludeID == nil || existing.ID != *excludeID, nil
}

// translateDuplicateMovie converts a unique-index race on title or slug into
// the ValidationError the pre-check would have produced.
func translateDuplicateMovie(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		ve := apperror.NewValidationError()
		ve.Add("title", "has already been taken")
		return ve
	}
	return err
}

func (s *movieService) buildMovieResponse(ctx context.Context, movie *model.Movie) (*MovieResponse, error) {
	stats, err := s.repo.ReviewStats(ctx, movie.ID)
	if err != nil {
		return nil, err
	}

	fanCount, err := s.repo.FanCount(ctx, movie.ID)
	if err != nil {
		return nil, err
	}

	genres, err := s.repo.Genres(ctx, movie.ID)
	if err != nil {
		return nil, err
	}

	genreNames := make([]string, 0, len(genres))
	for _, genre := range genres {
		genreNames = append(genreNames, genre.Name)
	}

	return &MovieResponse{
		Movie:                 movie,
		ReviewCount:           stats.Count,
		AverageStars:          stats.AverageStars,
		AverageStarsAsPercent: stats.AverageStarsAsPercent(),
		FanCount:              fanCount,
		Genres:                genreNames,
		Flop:                  movie.Flop(stats),
		Upcoming:              movie.Upcoming(time.Now()),
		CultClassic:           movie.CultClassic(stats),
	}, nil
}

func (s *movieService) indexMovie(movie *model.Movie) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexMovie(movie); err != nil {
		log.Printf("failed to index %s for search: %v", movie.Slug, err)
	}
}
