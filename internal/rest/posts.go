package rest

import (
	"errors"
	"net/http"

	"github.com/dfryer1193/blogapi/api"
	"github.com/dfryer1193/blogapi/blog/domain"
	"github.com/dfryer1193/blogapi/internal/errs"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type PostsHandler struct {
	posts domain.PostResource
}

// writeGate is implemented by resources that can refuse writes before a request body is read.
type writeGate interface {
	WritesEnabled() bool
}

func (h *PostsHandler) ListPosts(c *gin.Context) {
	var query api.ListPostsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, errs.NewBadRequestError("page must be a non-negative integer"))
		return
	}

	var page domain.Page
	if query.Page != nil {
		page = domain.Page(*query.Page)
	}

	summaries, err := h.posts.ListPosts(c.Request.Context(), page)
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, api.NewPostSummaries(summaries))
}

func (h *PostsHandler) GetPost(c *gin.Context) {
	postID := c.Param("id")

	post, err := h.posts.GetPost(c.Request.Context(), postID)
	if err != nil {
		h.handleError(c, err, postID)
		return
	}

	c.JSON(http.StatusOK, api.NewPost(post))
}

func (h *PostsHandler) CreateOrUpdatePost(c *gin.Context) {
	postID := c.Param("id")

	// a closed gate answers 403 whatever the body holds
	if g, ok := h.posts.(writeGate); ok && !g.WritesEnabled() {
		respondError(c, errs.NewForbiddenError("post writes are disabled"))
		return
	}

	var update api.PostUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondError(c, errs.ValidationError(err))
		return
	}

	res, err := h.posts.CreateOrUpdatePost(c.Request.Context(), postID, update.ToDomain())
	if err != nil {
		h.handleError(c, err, postID)
		return
	}

	c.JSON(http.StatusOK, api.NewSuccessResponse(res))
}

func (h *PostsHandler) DeletePost(c *gin.Context) {
	postID := c.Param("id")

	res, err := h.posts.DeletePost(c.Request.Context(), postID)
	if err != nil {
		h.handleError(c, err, postID)
		return
	}

	c.JSON(http.StatusOK, api.NewSuccessResponse(res))
}

// handleError maps resource failures onto HTTP errors. Unknown errors are logged and hidden.
func (h *PostsHandler) handleError(c *gin.Context, err error, postID string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(c, errs.NewNotFoundError("post not found"))
	case errors.Is(err, domain.ErrForbidden):
		respondError(c, errs.NewForbiddenError("post writes are disabled"))
	default:
		log.Error().Err(err).Str("postID", postID).Str("method", c.Request.Method).Msg("Post request failed")
		_ = c.Error(err)
		respondError(c, errs.NewInternalServerError())
	}
}

func respondError(c *gin.Context, httpErr *errs.HTTPError) {
	c.AbortWithStatusJSON(httpErr.Status, httpErr)
}
