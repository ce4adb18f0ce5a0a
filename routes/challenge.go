package routes

import (
	"github.com/gin-gonic/gin"

	"hoppi/controllers"
)

// SetupChallengeRoutes registers the task-generation endpoint.
func SetupChallengeRoutes(router *gin.Engine, cc *controllers.ChallengeController) {
	router.POST("/generate-task", cc.GenerateTask)
}
