package service

import (
	"encoding/json"
	"html"
	"log"
	"strings"

	"github.com/andydwyer/flix/internal/model"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const moviesIndex = "movies"

type SearchService interface {
	IndexMovie(movie *model.Movie) error
	DeleteMovie(id uuid.UUID) error
	SearchMovies(query string) ([]uuid.UUID, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) SearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndex()
	return s
}

func (s *meiliSearchService) initIndex() {
	searchableAttrs := []string{"title", "director", "description", "genres"}
	if _, err := s.client.Index(moviesIndex).UpdateSearchableAttributes(&searchableAttrs); err != nil {
		log.Printf("Failed to update movies searchable attributes: %v", err)
	}

	filterableAttrs := []string{"rating"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(moviesIndex).UpdateFilterableAttributes(&filterableInterface); err != nil {
		log.Printf("Failed to update movies filterable attributes: %v", err)
	}

	sortableAttrs := []string{"released_on", "total_gross"}
	if _, err := s.client.Index(moviesIndex).UpdateSortableAttributes(&sortableAttrs); err != nil {
		log.Printf("Failed to update movies sortable attributes: %v", err)
	}

	log.Println("Meilisearch movies index initialized")
}

type meiliMovieDoc struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Slug        string  `json:"slug"`
	Director    string  `json:"director"`
	Description string  `json:"description"`
	Rating      string  `json:"rating"`
	TotalGross  float64 `json:"total_gross"`
	ReleasedOn  int64   `json:"released_on"`
}

func (s *meiliSearchService) cleanDescriptionForIndex(description string) string {
	sanitized := s.sanitizer.Sanitize(description)
	cleanText := html.UnescapeString(sanitized)
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *meiliSearchService) IndexMovie(movie *model.Movie) error {
	doc := meiliMovieDoc{
		ID:          movie.ID.String(),
		Title:       movie.Title,
		Slug:        movie.Slug,
		Director:    movie.Director,
		Description: s.cleanDescriptionForIndex(movie.Description),
		Rating:      movie.Rating,
		TotalGross:  movie.TotalGross,
		ReleasedOn:  movie.ReleasedOn.Unix(),
	}

	task, err := s.client.Index(moviesIndex).AddDocuments([]meiliMovieDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed movie %s, task id: %d", movie.Slug, task.TaskUID)
	return nil
}

func (s *meiliSearchService) DeleteMovie(id uuid.UUID) error {
	_, err := s.client.Index(moviesIndex).DeleteDocument(id.String())
	return err
}

// SearchMovies returns the ids of matching movies, best match first.
func (s *meiliSearchService) SearchMovies(query string) ([]uuid.UUID, error) {
	resp, err := s.client.Index(moviesIndex).Search(query, &meilisearch.SearchRequest{
		Limit: 20,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		raw, ok := hit["id"]
		if !ok {
			continue
		}
		var idStr string
		if err := json.Unmarshal(raw, &idStr); err != nil {
			continue
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
