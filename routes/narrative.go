package routes

import (
	"github.com/gin-gonic/gin"

	"hoppi/controllers"
)

// SetupNarrativeRoutes registers the micro-narrative endpoints.
func SetupNarrativeRoutes(router *gin.Engine, nc *controllers.NarrativeController) {
	router.GET("/surprise/:session_id", nc.Surprise)
	router.GET("/story-image/:filename", nc.StoryImage)
}
