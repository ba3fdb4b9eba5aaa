package handler

import (
	"net/http"

	"github.com/andydwyer/flix/internal/middleware"
	"github.com/andydwyer/flix/internal/service"
	"github.com/andydwyer/flix/pkg/response"
	"github.com/gin-gonic/gin"
)

type FavouriteHandler struct {
	favouriteService service.FavouriteService
}

func NewFavouriteHandler(favouriteService service.FavouriteService) *FavouriteHandler {
	return &FavouriteHandler{favouriteService: favouriteService}
}

func (h *FavouriteHandler) Favourite(c *gin.Context) {
	if err := h.favouriteService.Favourite(c.Request.Context(), middleware.CurrentUser(c), c.Param("slug")); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

func (h *FavouriteHandler) Unfavourite(c *gin.Context) {
	if err := h.favouriteService.Unfavourite(c.Request.Context(), middleware.CurrentUser(c), c.Param("slug")); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *FavouriteHandler) ListFans(c *gin.Context) {
	fans, err := h.favouriteService.Fans(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fans": fans})
}
