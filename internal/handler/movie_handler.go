package handler

import (
	"net/http"
	"strings"

	"github.com/andydwyer/flix/internal/service"
	"github.com/andydwyer/flix/pkg/response"
	"github.com/andydwyer/flix/pkg/validator"
	"github.com/gin-gonic/gin"
)

type MovieHandler struct {
	movieService service.MovieService
}

func NewMovieHandler(movieService service.MovieService) *MovieHandler {
	return &MovieHandler{movieService: movieService}
}

func (h *MovieHandler) ListMovies(c *gin.Context) {
	movies, err := h.movieService.List(c.Request.Context(), c.Param("filter"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"movies": movies})
}

func (h *MovieHandler) GetMovie(c *gin.Context) {
	movie, err := h.movieService.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, movie)
}

func (h *MovieHandler) CreateMovie(c *gin.Context) {
	input, poster, ok := h.bindMovie(c)
	if !ok {
		return
	}

	movie, err := h.movieService.Create(c.Request.Context(), input, poster)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, movie)
}

func (h *MovieHandler) UpdateMovie(c *gin.Context) {
	input, poster, ok := h.bindMovie(c)
	if !ok {
		return
	}

	movie, err := h.movieService.Update(c.Request.Context(), c.Param("slug"), input, poster)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, movie)
}

func (h *MovieHandler) DeleteMovie(c *gin.Context) {
	if err := h.movieService.Delete(c.Request.Context(), c.Param("slug")); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MovieHandler) SearchMovies(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	movies, err := h.movieService.Search(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"movies": movies})
}

// bindMovie reads the movie fields from JSON or multipart form and, for
// multipart requests, the optional poster under "main_image".
func (h *MovieHandler) bindMovie(c *gin.Context) (service.MovieInput, *service.PosterFile, bool) {
	var input service.MovieInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return input, nil, false
	}

	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return input, nil, true
	}

	fileHeader, err := c.FormFile("main_image")
	if err != nil {
		// No poster attached.
		return input, nil, true
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read main_image"})
		return input, nil, false
	}

	poster := &service.PosterFile{
		Reader:   file,
		FileName: fileHeader.Filename,
		Size:     fileHeader.Size,
	}

	return input, poster, true
}
