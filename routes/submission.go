package routes

import (
	"github.com/gin-gonic/gin"

	"hoppi/controllers"
)

// SetupSubmissionRoutes registers the submission lifecycle endpoints.
func SetupSubmissionRoutes(router *gin.Engine, sc *controllers.SubmissionController) {
	router.POST("/submit", sc.Submit)
	router.GET("/progress/:session_id", sc.Progress)
	router.GET("/download/*filepath", sc.Download)
}
