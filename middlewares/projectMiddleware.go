package middlewares

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
	"github.com/gin-gonic/gin"
)

// ProjectMiddleware scopes the request to one production. Every data path
// filters by the project id, so a request without one is rejected before it
// reaches a handler.
func ProjectMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectId := c.Request.Header.Get("x-project-id")
		if projectId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "x-project-id header is required"})
			c.Abort()
			return
		}

		ctx := utils.SetProjectIdInContext(c.Request.Context(), projectId)
		if raw := c.Request.Header.Get("x-user-id"); raw != "" {
			if userId, err := strconv.Atoi(raw); err == nil {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}
		if userName := c.Request.Header.Get("x-user-name"); userName != "" {
			ctx = utils.SetUserNameInContext(ctx, userName)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
