package routes

import (
	"github.com/gin-gonic/gin"

	"hoppi/controllers"
)

// SetupFeedbackRoutes registers the feedback endpoints.
func SetupFeedbackRoutes(router *gin.Engine, fc *controllers.FeedbackController) {
	router.POST("/feedback", fc.Create)
	router.GET("/feedback-logs", fc.List)
	router.GET("/feedback-logs/:filename", fc.Get)
}
