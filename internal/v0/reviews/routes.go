package reviews

import (
	"mealreview/internal/auth"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the review endpoints on the versioned group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler, authMiddleware *auth.Middleware) {
	rg.GET("/stats", h.GetStats)

	reviews := rg.Group("/reviews")
	{
		reviews.GET("", h.GetReviews)

		protected := reviews.Group("")
		protected.Use(authMiddleware.RequireBearer())
		{
			protected.POST("", h.PostReview)
			protected.PUT("/:id", h.PutReview)
			protected.DELETE("/:id", h.DeleteReview)
		}
	}
}

// RegisterUserRoutes mounts the caller's own review listing under /user.
func RegisterUserRoutes(rg *gin.RouterGroup, h *Handler, authMiddleware *auth.Middleware) {
	user := rg.Group("/user")
	user.Use(authMiddleware.RequireBearer())
	{
		user.GET("/reviews", h.GetMyReviews)
	}
}
