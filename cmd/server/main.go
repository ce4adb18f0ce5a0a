package main

import (
	"log"
	"os"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"hoppi/config"
	"hoppi/controllers"
	"hoppi/routes"
	"hoppi/services"
	"hoppi/store"
)

// maxUploadBytes caps multipart memory at 64 MB.
const maxUploadBytes = 64 << 20

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.ResultsDir, cfg.Storage.FeedbackDir} {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			log.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	router := setupRouter(cfg)
	port := strconv.Itoa(cfg.Server.Port)
	log.Printf("Server starting on port %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// loadConfig prefers the YAML file when present and otherwise runs on
// defaults plus environment variables.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "./config/config.yml"
	}
	if _, err := os.Stat(path); err != nil {
		return config.Default()
	}
	return config.LoadConfig(path)
}

func setupRouter(cfg *config.Config) *gin.Engine {
	together := services.NewTogetherClient(cfg.Together.ApiKey, cfg.Together.BaseURL)
	env := services.NewEnvironmentService(
		cfg.Geo.SunriseURL, cfg.Geo.WeatherURL, cfg.Geo.NominatimURL, cfg.Geo.OverpassURL,
		nil, nil,
	)
	composer := services.NewPromptComposer(cfg.Storage.ResultsDir, nil, nil)
	generator := services.NewChallengeGenerator(together, cfg.Together.TaskModel)
	summarizer := services.NewMediaSummarizer(
		cfg.HuggingFace.CaptionURL, cfg.HuggingFace.ApiKey,
		cfg.Openai.TranscribeURL, cfg.Openai.ApiKey,
	)
	judge := services.NewJudge(together, summarizer, cfg.Together.JudgeModel, nil)
	narrative := services.NewNarrativeComposer(together, together, cfg.Together.TaskModel, cfg.Together.ImageModel, cfg.Storage.ResultsDir)

	submissions := store.NewSubmissionStore(cfg.Storage.UploadDir)
	feedback := store.NewFeedbackStore(cfg.Storage.FeedbackDir, cfg.Storage.FeedbackExportDir)

	router := gin.Default()
	router.MaxMultipartMemory = maxUploadBytes
	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	routes.SetupChallengeRoutes(router, controllers.NewChallengeController(env, composer, generator))
	routes.SetupSubmissionRoutes(router, controllers.NewSubmissionController(submissions, judge, env))
	routes.SetupFeedbackRoutes(router, controllers.NewFeedbackController(feedback))
	routes.SetupNarrativeRoutes(router, controllers.NewNarrativeController(submissions, narrative, cfg.Storage.ResultsDir))

	return router
}
