package middleware

import (
	"github.com/dfryer1193/blogapi/internal/errs"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HandlePanics is used with gin.CustomRecovery. The panic value is logged, never returned.
func HandlePanics() gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		evt := log.Error().Str("method", c.Request.Method).Str("path", c.Request.URL.Path)
		if err, ok := recovered.(error); ok {
			evt = evt.Err(err)
		} else {
			evt = evt.Interface("panic", recovered)
		}
		evt.Msg("Recovered from panic")

		httpErr := errs.NewInternalServerError()
		c.AbortWithStatusJSON(httpErr.Status, httpErr)
	}
}
