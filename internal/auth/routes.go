package auth

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, handler *Handler, middleware *Middleware) {
	auth := router.Group("/auth")
	{
		// Public OAuth routes
		auth.GET("/login/:provider", handler.Login)
		auth.GET("/callback/:provider", handler.Callback)
		auth.POST("/refresh", handler.Refresh)

		// Bearer-protected routes
		protected := auth.Group("")
		protected.Use(middleware.RequireBearer())
		{
			protected.GET("/me", handler.Me)
			protected.GET("/logout", handler.Logout)
		}
	}

	user := router.Group("/user")
	user.Use(middleware.RequireBearer())
	{
		user.PUT("/school", handler.UpdateSchool)
	}
}
