package controllers

import (
	"github.com/gin-gonic/gin"

	"hoppi/models"
	"hoppi/services"
)

type GenerateTaskRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type GenerateTaskResponse struct {
	Task          string        `json:"task"`
	LocationType  string        `json:"location_type"`
	Coordinates   Coordinates   `json:"coordinates"`
	Source        string        `json:"source"`
	SelectedPlace *models.Place `json:"selected_place"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ChallengeController owns the generate-task flow: classify the
// environment, compose the prompt, call the model.
type ChallengeController struct {
	env       *services.EnvironmentService
	composer  *services.PromptComposer
	generator *services.ChallengeGenerator
}

func NewChallengeController(env *services.EnvironmentService, composer *services.PromptComposer, generator *services.ChallengeGenerator) *ChallengeController {
	return &ChallengeController{env: env, composer: composer, generator: generator}
}

// GenerateTask handles POST /generate-task.
func (cc *ChallengeController) GenerateTask(c *gin.Context) {
	var req GenerateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Location data required"})
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		c.JSON(400, gin.H{"error": "Location data required"})
		return
	}
	lat, lon := *req.Latitude, *req.Longitude

	snapshot := cc.env.Snapshot(lat, lon)
	prompt := cc.composer.ComposeChallengePrompt(lat, lon, snapshot)
	task, source := cc.generator.Generate(c.Request.Context(), prompt)

	c.JSON(200, GenerateTaskResponse{
		Task:          task,
		LocationType:  snapshot.LocationType,
		Coordinates:   Coordinates{Lat: lat, Lon: lon},
		Source:        source,
		SelectedPlace: snapshot.NearbyPlace,
	})
}
