package rest

import (
	"net/http"

	"github.com/dfryer1193/blogapi/blog/domain"
	"github.com/dfryer1193/blogapi/internal/middleware"
	"github.com/gin-gonic/gin"
)

// NewEngine returns a gin engine with the API's middleware and routes.
func NewEngine(posts domain.PostResource) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(), gin.CustomRecovery(middleware.HandlePanics()))
	NewApi(router, posts)
	return router
}

func NewApi(router *gin.Engine, posts domain.PostResource) {
	h := &PostsHandler{posts: posts}

	postsGroup := router.Group("/posts")
	{
		postsGroup.GET("", h.ListPosts)
		postsGroup.GET("/:id", h.GetPost)
		postsGroup.PUT("/:id", h.CreateOrUpdatePost)
		postsGroup.POST("/:id", h.CreateOrUpdatePost)
		postsGroup.DELETE("/:id", h.DeletePost)
	}

	router.GET("/healthz", Healthz)
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
