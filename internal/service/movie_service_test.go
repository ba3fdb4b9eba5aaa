package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andydwyer/flix/internal/model"
	"github.com/andydwyer/flix/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMovieFixture() (*fakeMovieRepo, *fakePosterStorage, *fakeSearchService, MovieService) {
	repo := newFakeMovieRepo()
	posters := &fakePosterStorage{}
	search := &fakeSearchService{}
	return repo, posters, search, NewMovieService(repo, posters, search)
}

func validMovieInput() MovieInput {
	return MovieInput{
		Title:       "Iron Man",
		Description: "Tony Stark builds a suit of armor in a cave.",
		Director:    "Jon Favreau",
		Duration:    126,
		Rating:      "PG-13",
		TotalGross:  585366247,
		ReleasedOn:  time.Date(2008, 5, 2, 0, 0, 0, 0, time.UTC),
	}
}

func pngPoster(size int64) *PosterFile {
	content := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	return &PosterFile{Reader: bytes.NewReader(content), FileName: "poster.png", Size: size}
}

func TestCreateMovieReportsEveryViolationAtOnce(t *testing.T) {
	_, _, _, svc := newMovieFixture()

	_, err := svc.Create(context.Background(), MovieInput{Rating: "X"}, nil)

	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"can't be blank"}, ve.Fields["title"])
	assert.Equal(t, []string{"can't be blank"}, ve.Fields["description"])
	assert.Equal(t, []string{"can't be blank"}, ve.Fields["director"])
	assert.Equal(t, []string{"must be greater than 0"}, ve.Fields["duration"])
	assert.Equal(t, []string{"can't be blank"}, ve.Fields["released_on"])
	assert.Equal(t, []string{"is not included in the list"}, ve.Fields["rating"])
}

func TestCreateMovieShortDescription(t *testing.T) {
	_, _, _, svc := newMovieFixture()

	input := validMovieInput()
	input.Description = "Too short."

	_, err := svc.Create(context.Background(), input, nil)

	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"is too short (minimum is 25 characters)"}, ve.Fields["description"])
}

func TestCreateMovieNegativeGross(t *testing.T) {
	_, _, _, svc := newMovieFixture()

	input := validMovieInput()
	input.TotalGross = -1

	_, err := svc.Create(context.Background(), input, nil)

	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"must be greater than or equal to 0"}, ve.Fields["total_gross"])
}

func TestCreateMovieDerivesSlugAndIndexes(t *testing.T) {
	repo, _, search, svc := newMovieFixture()

	input := validMovieInput()
	input.Title = "Iron Man 2: The Sequel!"

	movie, err := svc.Create(context.Background(), input, nil)

	require.NoError(t, err)
	assert.Equal(t, "iron-man-2-the-sequel", movie.Slug)
	assert.Contains(t, repo.movies, movie.ID)
	assert.Equal(t, []uuid.UUID{movie.ID}, search.indexed)
}

func TestCreateMovieDuplicateTitle(t *testing.T) {
	_, _, _, svc := newMovieFixture()

	_, err := svc.Create(context.Background(), validMovieInput(), nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validMovieInput(), nil)

	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"has already been taken"}, ve.Fields["title"])
}

func TestCreateMovieTranslatesUniqueIndexRace(t *testing.T) {
	repo, _, _, svc := newMovieFixture()
	repo.createErr = gorm.ErrDuplicatedKey

	_, err := svc.Create(context.Background(), validMovieInput(), nil)

	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"has already been taken"}, ve.Fields["title"])
}

func TestCreateMovieWithPoster(t *testing.T) {
	repo, posters, _, svc := newMovieFixture()

	movie, err := svc.Create(context.Background(), validMovieInput(), pngPoster(72))

	require.NoError(t, err)
	require.NotNil(t, movie.MainImageURL)
	assert.Equal(t, []string{*movie.MainImageURL}, posters.uploads)
	require.NotNil(t, repo.movies[movie.ID].MainImageURL)
}

func TestCreateMovieRejectsOversizedPoster(t *testing.T) {
	_, posters, _, svc := newMovieFixture()

	_, err := svc.Create(context.Background(), validMovieInput(), pngPoster(MaxPosterBytes+1))

	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"must be 1 MB or smaller"}, ve.Fields["main_image"])
	assert.Empty(t, posters.uploads)
}

func TestCreateMovieRejectsNonImagePoster(t *testing.T) {
	_, posters, _, svc := newMovieFixture()

	poster := &PosterFile{
		Reader:   bytes.NewReader([]byte("<html>not an image</html>")),
		FileName: "poster.png",
		Size:     25,
	}

	_, err := svc.Create(context.Background(), validMovieInput(), poster)

	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"must be a JPG or PNG image"}, ve.Fields["main_image"])
	assert.Empty(t, posters.uploads)
}

func TestCreateMovieDeletesPosterWhenInsertFails(t *testing.T) {
	repo, posters, _, svc := newMovieFixture()
	repo.createErr = errors.New("connection reset")

	_, err := svc.Create(context.Background(), validMovieInput(), pngPoster(72))

	require.Error(t, err)
	require.Len(t, posters.uploads, 1)
	assert.Equal(t, posters.uploads, posters.deletes)
}

func TestCreateMovieUndoneWhenGenreWriteFails(t *testing.T) {
	repo, posters, search, svc := newMovieFixture()
	repo.setGenresErr = errors.New("connection reset")

	input := validMovieInput()
	input.GenreIDs = []uuid.UUID{uuid.New()}

	_, err := svc.Create(context.Background(), input, pngPoster(72))

	require.Error(t, err)
	assert.Empty(t, repo.movies)
	require.Len(t, posters.uploads, 1)
	assert.Equal(t, posters.uploads, posters.deletes)
	assert.Empty(t, search.indexed)
}

func TestCreateMoviePropagatesTitleLookupFailure(t *testing.T) {
	repo, _, _, svc := newMovieFixture()
	lookupErr := errors.New("connection reset")
	repo.lookupErr = lookupErr

	_, err := svc.Create(context.Background(), validMovieInput(), nil)

	assert.ErrorIs(t, err, lookupErr)
	var ve *apperror.ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestUpdateMovieReplacesPosterAndDeletesOld(t *testing.T) {
	_, posters, _, svc := newMovieFixture()

	movie, err := svc.Create(context.Background(), validMovieInput(), pngPoster(72))
	require.NoError(t, err)
	oldURL := *movie.MainImageURL

	input := validMovieInput()
	poster := pngPoster(72)
	poster.FileName = "replacement.png"

	updated, err := svc.Update(context.Background(), movie.Slug, input, poster)

	require.NoError(t, err)
	assert.NotEqual(t, oldURL, *updated.MainImageURL)
	assert.Equal(t, []string{oldURL}, posters.deletes)
}

func TestUpdateMovieKeepingOwnTitleIsNotATakenViolation(t *testing.T) {
	_, _, _, svc := newMovieFixture()

	movie, err := svc.Create(context.Background(), validMovieInput(), nil)
	require.NoError(t, err)

	input := validMovieInput()
	input.Duration = 140

	updated, err := svc.Update(context.Background(), movie.Slug, input, nil)

	require.NoError(t, err)
	assert.Equal(t, 140, updated.Duration)
}

func TestUpdateMovieRecomputesSlugOnRename(t *testing.T) {
	_, _, _, svc := newMovieFixture()

	movie, err := svc.Create(context.Background(), validMovieInput(), nil)
	require.NoError(t, err)

	input := validMovieInput()
	input.Title = "Iron Man: Director's Cut"

	updated, err := svc.Update(context.Background(), movie.Slug, input, nil)

	require.NoError(t, err)
	assert.Equal(t, "iron-man-director-s-cut", updated.Slug)
}

func TestListDispatchesFilters(t *testing.T) {
	tests := []struct {
		filter string
		call   string
	}{
		{"", "Released"},
		{"released", "Released"},
		{"upcoming", "Upcoming"},
		{"recent", "Recent"},
		{"hits", "Hits"},
		{"flops", "Flops"},
		{"recently_added", "RecentlyAdded"},
		{"grossed_less_than", "GrossedLessThan"},
		{"grossed_greater_than", "GrossedGreaterThan"},
	}

	for _, tt := range tests {
		t.Run("filter "+tt.filter, func(t *testing.T) {
			repo, _, _, svc := newMovieFixture()

			_, err := svc.List(context.Background(), tt.filter)

			require.NoError(t, err)
			assert.Equal(t, []string{tt.call}, repo.calls)
		})
	}
}

func TestListGrossedFiltersReturnOnlyReleasedMovies(t *testing.T) {
	repo, _, _, svc := newMovieFixture()

	seed := func(title string, gross float64, releasedOn time.Time) {
		input := validMovieInput()
		input.Title = title
		input.TotalGross = gross
		input.ReleasedOn = releasedOn
		_, err := svc.Create(context.Background(), input, nil)
		require.NoError(t, err)
	}

	past := time.Now().AddDate(-1, 0, 0)
	future := time.Now().AddDate(1, 0, 0)

	seed("Indie Darling", 250000, past)
	seed("Blockbuster", 400000000, past)
	seed("Unreleased Sleeper", 0, future)

	repo.calls = nil

	tests := []struct {
		filter string
		want   []string
	}{
		{"grossed_less_than", []string{"Indie Darling"}},
		{"grossed_greater_than", []string{"Blockbuster"}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			movies, err := svc.List(context.Background(), tt.filter)

			require.NoError(t, err)
			titles := make([]string, 0, len(movies))
			for _, movie := range movies {
				titles = append(titles, movie.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestListUnknownFilter(t *testing.T) {
	_, _, _, svc := newMovieFixture()

	_, err := svc.List(context.Background(), "blockbusters")

	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetBuildsDerivedAttributes(t *testing.T) {
	repo, _, _, svc := newMovieFixture()

	input := validMovieInput()
	input.TotalGross = 100000000

	movie, err := svc.Create(context.Background(), input, nil)
	require.NoError(t, err)

	repo.stats[movie.ID] = model.ReviewStats{Count: 12, AverageStars: 4.0}
	repo.fanCounts[movie.ID] = 7
	repo.genres[movie.ID] = []*model.Genre{{Name: "Action"}, {Name: "Sci-Fi"}}

	resp, err := svc.Get(context.Background(), movie.Slug)

	require.NoError(t, err)
	assert.Equal(t, int64(12), resp.ReviewCount)
	assert.InDelta(t, 80.0, resp.AverageStarsAsPercent, 0.001)
	assert.Equal(t, int64(7), resp.FanCount)
	assert.Equal(t, []string{"Action", "Sci-Fi"}, resp.Genres)
	assert.True(t, resp.Flop)
	assert.False(t, resp.Upcoming)
	assert.False(t, resp.CultClassic)
}

func TestGetUnknownSlug(t *testing.T) {
	_, _, _, svc := newMovieFixture()

	_, err := svc.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteRemovesPosterAndSearchDocument(t *testing.T) {
	repo, posters, search, svc := newMovieFixture()

	movie, err := svc.Create(context.Background(), validMovieInput(), pngPoster(72))
	require.NoError(t, err)
	posterURL := *movie.MainImageURL

	require.NoError(t, svc.Delete(context.Background(), movie.Slug))

	assert.NotContains(t, repo.movies, movie.ID)
	assert.Equal(t, []string{posterURL}, posters.deletes)
	assert.Equal(t, []uuid.UUID{movie.ID}, search.deleted)
}

func TestSearchSkipsStaleHits(t *testing.T) {
	_, _, search, svc := newMovieFixture()

	movie, err := svc.Create(context.Background(), validMovieInput(), nil)
	require.NoError(t, err)

	search.results = []uuid.UUID{uuid.New(), movie.ID}

	movies, err := svc.Search(context.Background(), "iron")

	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, movie.ID, movies[0].ID)
}
