package controllers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"hoppi/models"
	"hoppi/services"
	"hoppi/store"
)

// NarrativeController exposes the surprise chapter once a session has
// accumulated enough submissions, and serves locally stored beat images.
type NarrativeController struct {
	store      *store.SubmissionStore
	composer   *services.NarrativeComposer
	resultsDir string
}

func NewNarrativeController(st *store.SubmissionStore, composer *services.NarrativeComposer, resultsDir string) *NarrativeController {
	return &NarrativeController{store: st, composer: composer, resultsDir: resultsDir}
}

// Surprise handles GET /surprise/:session_id.
func (nc *NarrativeController) Surprise(c *gin.Context) {
	sessionID := c.Param("session_id")
	subs, err := nc.store.ListSubmissions(sessionID)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if len(subs) < services.MinNarrativeSubmissions {
		c.JSON(409, gin.H{"error": fmt.Sprintf("need at least %d submissions, have %d", services.MinNarrativeSubmissions, len(subs))})
		return
	}

	inputs := make([]models.NarrativeInput, 0, len(subs))
	for _, sub := range subs {
		summary := strings.TrimSpace(sub.Text)
		if summary == "" && sub.File != "" {
			summary = fmt.Sprintf("A %s was submitted.", sub.MediaType)
		}
		inputs = append(inputs, models.NarrativeInput{
			Task:          sub.Task,
			Summary:       summary,
			JudgeFeedback: sub.JudgeFeedback,
		})
	}

	chapter, err := nc.composer.ComposeChapter(c.Request.Context(), inputs)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, chapter)
}

// StoryImage handles GET /story-image/:filename for inline-generated images.
func (nc *NarrativeController) StoryImage(c *gin.Context) {
	name := c.Param("filename")
	if name != filepath.Base(name) || strings.Contains(name, "..") {
		c.JSON(404, gin.H{"error": "File not found"})
		return
	}
	path := filepath.Join(nc.resultsDir, "story-images", name)
	if !fileExists(path) {
		c.JSON(404, gin.H{"error": "File not found"})
		return
	}
	c.File(path)
}
