package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/andydwyer/flix/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository fakes. Create and Update run the model persist hooks
// so stored records look the way the database would leave them.

type fakeUserRepo struct {
	users     map[uuid.UUID]*model.User
	createErr error
	updateErr error
	lookupErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	_ = user.BeforeCreate(nil)
	_ = user.BeforeSave(nil)
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *user
	return &found, nil
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, user := range f.users {
		if strings.EqualFold(user.Username, username) {
			found := *user
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			found := *user
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) ByName(ctx context.Context) ([]*model.User, error) {
	users := f.all()
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (f *fakeUserRepo) NotAdmins(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	for _, user := range f.all() {
		if !user.Admin {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	_ = user.BeforeSave(nil)
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeUserRepo) all() []*model.User {
	users := make([]*model.User, 0, len(f.users))
	for _, user := range f.users {
		found := *user
		users = append(users, &found)
	}
	return users
}

type fakeMovieRepo struct {
	movies       map[uuid.UUID]*model.Movie
	stats        map[uuid.UUID]model.ReviewStats
	fanCounts    map[uuid.UUID]int64
	genres       map[uuid.UUID][]*model.Genre
	calls        []string
	createErr    error
	updateErr    error
	lookupErr    error
	setGenresErr error
}

func newFakeMovieRepo() *fakeMovieRepo {
	return &fakeMovieRepo{
		movies:    make(map[uuid.UUID]*model.Movie),
		stats:     make(map[uuid.UUID]model.ReviewStats),
		fanCounts: make(map[uuid.UUID]int64),
		genres:    make(map[uuid.UUID][]*model.Genre),
	}
}

func (f *fakeMovieRepo) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeMovieRepo) Create(ctx context.Context, movie *model.Movie) error {
	if f.createErr != nil {
		return f.createErr
	}
	_ = movie.BeforeCreate(nil)
	_ = movie.BeforeSave(nil)
	if movie.CreatedAt.IsZero() {
		movie.CreatedAt = time.Now()
	}
	stored := *movie
	f.movies[movie.ID] = &stored
	return nil
}

func (f *fakeMovieRepo) Update(ctx context.Context, movie *model.Movie) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	_ = movie.BeforeSave(nil)
	stored := *movie
	f.movies[movie.ID] = &stored
	return nil
}

func (f *fakeMovieRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	movie, ok := f.movies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *movie
	return &found, nil
}

func (f *fakeMovieRepo) FindBySlug(ctx context.Context, slug string) (*model.Movie, error) {
	for _, movie := range f.movies {
		if movie.Slug == slug {
			found := *movie
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMovieRepo) FindByTitle(ctx context.Context, title string) (*model.Movie, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, movie := range f.movies {
		if movie.Title == title {
			found := *movie
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMovieRepo) FindAll(ctx context.Context) ([]*model.Movie, error) {
	f.record("FindAll")
	movies := f.all(func(m *model.Movie) bool { return true })
	sort.Slice(movies, func(i, j int) bool { return movies[i].CreatedAt.After(movies[j].CreatedAt) })
	return movies, nil
}

func (f *fakeMovieRepo) Released(ctx context.Context) ([]*model.Movie, error) {
	f.record("Released")
	now := time.Now()
	movies := f.all(func(m *model.Movie) bool { return !m.ReleasedOn.After(now) })
	sort.Slice(movies, func(i, j int) bool { return movies[i].ReleasedOn.After(movies[j].ReleasedOn) })
	return movies, nil
}

func (f *fakeMovieRepo) Upcoming(ctx context.Context) ([]*model.Movie, error) {
	f.record("Upcoming")
	now := time.Now()
	movies := f.all(func(m *model.Movie) bool { return m.ReleasedOn.After(now) })
	sort.Slice(movies, func(i, j int) bool { return movies[i].ReleasedOn.Before(movies[j].ReleasedOn) })
	return movies, nil
}

func (f *fakeMovieRepo) Recent(ctx context.Context, max int) ([]*model.Movie, error) {
	f.record("Recent")
	movies, _ := f.Released(ctx)
	f.calls = f.calls[:len(f.calls)-1]
	if len(movies) > max {
		movies = movies[:max]
	}
	return movies, nil
}

func (f *fakeMovieRepo) Hits(ctx context.Context) ([]*model.Movie, error) {
	f.record("Hits")
	now := time.Now()
	movies := f.all(func(m *model.Movie) bool {
		return !m.ReleasedOn.After(now) && m.TotalGross >= model.HitThreshold
	})
	sort.Slice(movies, func(i, j int) bool { return movies[i].TotalGross > movies[j].TotalGross })
	return movies, nil
}

func (f *fakeMovieRepo) Flops(ctx context.Context) ([]*model.Movie, error) {
	f.record("Flops")
	now := time.Now()
	movies := f.all(func(m *model.Movie) bool {
		return !m.ReleasedOn.After(now) && m.TotalGross < model.FlopThreshold
	})
	sort.Slice(movies, func(i, j int) bool { return movies[i].TotalGross < movies[j].TotalGross })
	return movies, nil
}

func (f *fakeMovieRepo) RecentlyAdded(ctx context.Context, max int) ([]*model.Movie, error) {
	f.record("RecentlyAdded")
	movies := f.all(func(m *model.Movie) bool { return true })
	sort.Slice(movies, func(i, j int) bool { return movies[i].CreatedAt.After(movies[j].CreatedAt) })
	if len(movies) > max {
		movies = movies[:max]
	}
	return movies, nil
}

func (f *fakeMovieRepo) GrossedLessThan(ctx context.Context, amount float64) ([]*model.Movie, error) {
	f.record("GrossedLessThan")
	now := time.Now()
	return f.all(func(m *model.Movie) bool {
		return !m.ReleasedOn.After(now) && m.TotalGross < amount
	}), nil
}

func (f *fakeMovieRepo) GrossedGreaterThan(ctx context.Context, amount float64) ([]*model.Movie, error) {
	f.record("GrossedGreaterThan")
	now := time.Now()
	return f.all(func(m *model.Movie) bool {
		return !m.ReleasedOn.After(now) && m.TotalGross > amount
	}), nil
}

func (f *fakeMovieRepo) ReviewStats(ctx context.Context, movieID uuid.UUID) (model.ReviewStats, error) {
	return f.stats[movieID], nil
}

func (f *fakeMovieRepo) FanCount(ctx context.Context, movieID uuid.UUID) (int64, error) {
	return f.fanCounts[movieID], nil
}

func (f *fakeMovieRepo) Genres(ctx context.Context, movieID uuid.UUID) ([]*model.Genre, error) {
	return f.genres[movieID], nil
}

func (f *fakeMovieRepo) SetGenres(ctx context.Context, movieID uuid.UUID, genreIDs []uuid.UUID) error {
	if f.setGenresErr != nil {
		return f.setGenresErr
	}
	genres := make([]*model.Genre, 0, len(genreIDs))
	for _, id := range genreIDs {
		genres = append(genres, &model.Genre{ID: id})
	}
	f.genres[movieID] = genres
	return nil
}

func (f *fakeMovieRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.movies, id)
	return nil
}

func (f *fakeMovieRepo) all(keep func(*model.Movie) bool) []*model.Movie {
	var movies []*model.Movie
	for _, movie := range f.movies {
		if keep(movie) {
			found := *movie
			movies = append(movies, &found)
		}
	}
	return movies
}

type fakeReviewRepo struct {
	reviews map[uuid.UUID]*model.Review
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{reviews: make(map[uuid.UUID]*model.Review)}
}

func (f *fakeReviewRepo) Create(ctx context.Context, review *model.Review) error {
	_ = review.BeforeCreate(nil)
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}
	stored := *review
	f.reviews[review.ID] = &stored
	return nil
}

func (f *fakeReviewRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	review, ok := f.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *review
	return &found, nil
}

func (f *fakeReviewRepo) FindByMovie(ctx context.Context, movieID uuid.UUID) ([]*model.Review, error) {
	var reviews []*model.Review
	for _, review := range f.reviews {
		if review.MovieID == movieID {
			found := *review
			reviews = append(reviews, &found)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

func (f *fakeReviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.reviews, id)
	return nil
}

type favouriteKey struct {
	userID  uuid.UUID
	movieID uuid.UUID
}

type fakeFavouriteRepo struct {
	favourites map[favouriteKey]*model.Favourite
	movies     *fakeMovieRepo
	users      *fakeUserRepo
}

func newFakeFavouriteRepo(movies *fakeMovieRepo, users *fakeUserRepo) *fakeFavouriteRepo {
	return &fakeFavouriteRepo{
		favourites: make(map[favouriteKey]*model.Favourite),
		movies:     movies,
		users:      users,
	}
}

func (f *fakeFavouriteRepo) Create(ctx context.Context, favourite *model.Favourite) error {
	key := favouriteKey{favourite.UserID, favourite.MovieID}
	if _, exists := f.favourites[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	_ = favourite.BeforeCreate(nil)
	stored := *favourite
	f.favourites[key] = &stored
	return nil
}

func (f *fakeFavouriteRepo) Find(ctx context.Context, userID, movieID uuid.UUID) (*model.Favourite, error) {
	favourite, ok := f.favourites[favouriteKey{userID, movieID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *favourite
	return &found, nil
}

func (f *fakeFavouriteRepo) Delete(ctx context.Context, userID, movieID uuid.UUID) error {
	delete(f.favourites, favouriteKey{userID, movieID})
	return nil
}

func (f *fakeFavouriteRepo) FavouriteMovies(ctx context.Context, userID uuid.UUID) ([]*model.Movie, error) {
	var movies []*model.Movie
	for key := range f.favourites {
		if key.userID != userID {
			continue
		}
		if f.movies != nil {
			if movie, err := f.movies.FindByID(ctx, key.movieID); err == nil {
				movies = append(movies, movie)
			}
		}
	}
	return movies, nil
}

func (f *fakeFavouriteRepo) Fans(ctx context.Context, movieID uuid.UUID) ([]*model.User, error) {
	var users []*model.User
	for key := range f.favourites {
		if key.movieID != movieID {
			continue
		}
		if f.users != nil {
			if user, err := f.users.FindByID(ctx, key.userID); err == nil {
				users = append(users, user)
			}
		}
	}
	return users, nil
}

type fakeGenreRepo struct {
	genres map[uuid.UUID]*model.Genre
	movies map[uuid.UUID][]*model.Movie
}

func newFakeGenreRepo() *fakeGenreRepo {
	return &fakeGenreRepo{
		genres: make(map[uuid.UUID]*model.Genre),
		movies: make(map[uuid.UUID][]*model.Movie),
	}
}

func (f *fakeGenreRepo) Create(ctx context.Context, genre *model.Genre) error {
	_ = genre.BeforeCreate(nil)
	stored := *genre
	f.genres[genre.ID] = &stored
	return nil
}

func (f *fakeGenreRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	genre, ok := f.genres[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *genre
	return &found, nil
}

func (f *fakeGenreRepo) FindByName(ctx context.Context, name string) (*model.Genre, error) {
	for _, genre := range f.genres {
		if genre.Name == name {
			found := *genre
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeGenreRepo) FindAll(ctx context.Context) ([]*model.Genre, error) {
	genres := make([]*model.Genre, 0, len(f.genres))
	for _, genre := range f.genres {
		found := *genre
		genres = append(genres, &found)
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].Name < genres[j].Name })
	return genres, nil
}

func (f *fakeGenreRepo) Update(ctx context.Context, genre *model.Genre) error {
	stored := *genre
	f.genres[genre.ID] = &stored
	return nil
}

func (f *fakeGenreRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.genres, id)
	return nil
}

func (f *fakeGenreRepo) Movies(ctx context.Context, genreID uuid.UUID) ([]*model.Movie, error) {
	return f.movies[genreID], nil
}

type fakePosterStorage struct {
	uploads []string
	deletes []string
}

func (f *fakePosterStorage) UploadPoster(ctx context.Context, r io.Reader, fileName string) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	url := "https://posters.test/" + fileName
	f.uploads = append(f.uploads, url)
	return url, nil
}

func (f *fakePosterStorage) DeletePoster(ctx context.Context, fileURL string) error {
	f.deletes = append(f.deletes, fileURL)
	return nil
}

type fakeSearchService struct {
	indexed []uuid.UUID
	deleted []uuid.UUID
	results []uuid.UUID
}

func (f *fakeSearchService) IndexMovie(movie *model.Movie) error {
	f.indexed = append(f.indexed, movie.ID)
	return nil
}

func (f *fakeSearchService) DeleteMovie(id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSearchService) SearchMovies(query string) ([]uuid.UUID, error) {
	return f.results, nil
}
