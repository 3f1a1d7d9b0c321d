package handlers

import (
	"net/http"

	"cinesocial/internal/middleware"
	"cinesocial/internal/services"
	"cinesocial/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MovieHandler 服务端渲染的影片列表与讨论页
type MovieHandler struct {
	catalog    *services.CatalogService
	discussion *services.DiscussionService
}

func NewMovieHandler(catalog *services.CatalogService, discussion *services.DiscussionService) *MovieHandler {
	return &MovieHandler{catalog: catalog, discussion: discussion}
}

func (h *MovieHandler) Index(c *gin.Context) {
	movies, err := h.catalog.Movies(c.Request.Context())
	if err != nil {
		RenderError(c, err)
		return
	}
	Render(c, http.StatusOK, "movie/list.html", gin.H{
		"Title":  "Movies",
		"Movies": movies,
	})
}

// Discussion GET /movies/:movieId?page=&sort=
func (h *MovieHandler) Discussion(c *gin.Context) {
	movieID, err := uuid.Parse(c.Param("movieId"))
	if err != nil {
		RenderError(c, services.ErrMovieNotFound)
		return
	}
	movie, err := h.catalog.Movie(c.Request.Context(), movieID)
	if err != nil {
		RenderError(c, err)
		return
	}
	sortBy, err := services.ParseSortBy(c.Query("sort"))
	if err != nil {
		RenderError(c, err)
		return
	}
	page := utils.StringToIntDefault(c.Query("page"), 1)

	threads, err := h.discussion.ListThreads(c.Request.Context(), middleware.CurrentIdentity(c), services.MovieAttachment(movieID), page, defaultPageSize, sortBy)
	if err != nil {
		RenderError(c, err)
		return
	}

	Render(c, http.StatusOK, "movie/discussion.html", gin.H{
		"Title":   movie.Title,
		"Movie":   movie,
		"Threads": threads,
		"Sort":    sortBy.String(),
		"Sorts":   []services.SortBy{services.SortNewest, services.SortOldest, services.SortMostUpvoted, services.SortMostReplies},
	})
}
