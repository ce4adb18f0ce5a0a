package controllers

import (
	"path/filepath"

	"github.com/gin-gonic/gin"

	"hoppi/models"
	"hoppi/store"
)

type FeedbackRequest struct {
	Rating string `json:"rating"`
	Input  string `json:"input"`
	Output string `json:"output"`
	Reason string `json:"reason"`
}

// FeedbackController records thumbs-up/down entries, one file each.
type FeedbackController struct {
	store *store.FeedbackStore
}

func NewFeedbackController(st *store.FeedbackStore) *FeedbackController {
	return &FeedbackController{store: st}
}

// Create handles POST /feedback.
func (fc *FeedbackController) Create(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if req.Rating != "up" && req.Rating != "down" {
		c.JSON(400, gin.H{"error": "rating must be up or down"})
		return
	}
	if req.Input == "" || req.Output == "" {
		c.JSON(400, gin.H{"error": "input and output are required"})
		return
	}

	if _, err := fc.store.Save(models.FeedbackEntry{
		Rating: req.Rating,
		Input:  req.Input,
		Output: req.Output,
		Reason: req.Reason,
	}); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"ok": true})
}

// List handles GET /feedback-logs.
func (fc *FeedbackController) List(c *gin.Context) {
	names, err := fc.store.List()
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(200, gin.H{"files": names})
}

// Get handles GET /feedback-logs/:filename.
func (fc *FeedbackController) Get(c *gin.Context) {
	path, err := fc.store.Path(c.Param("filename"))
	if err != nil {
		c.JSON(404, gin.H{"error": "File not found"})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
