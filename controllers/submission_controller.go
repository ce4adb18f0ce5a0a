package controllers

import (
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hoppi/models"
	"hoppi/services"
	"hoppi/store"
	"hoppi/utils"
)

type SubmitResponse struct {
	OK            bool   `json:"ok"`
	SessionID     string `json:"session_id"`
	Count         int    `json:"count"`
	Remaining     int    `json:"remaining"`
	SurpriseReady bool   `json:"surprise_ready"`
	JudgeText     string `json:"judge_text"`
}

// SubmissionController persists uploads and runs the judge synchronously on
// each new submission.
type SubmissionController struct {
	store *store.SubmissionStore
	judge *services.Judge
	env   *services.EnvironmentService
}

func NewSubmissionController(st *store.SubmissionStore, judge *services.Judge, env *services.EnvironmentService) *SubmissionController {
	return &SubmissionController{store: st, judge: judge, env: env}
}

// Submit handles POST /submit (multipart form).
func (sc *SubmissionController) Submit(c *gin.Context) {
	sessionID := strings.TrimSpace(c.PostForm("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	task := strings.TrimSpace(c.PostForm("task"))
	mediaType := strings.TrimSpace(c.PostForm("media_type"))
	if task == "" || mediaType == "" {
		c.JSON(400, gin.H{"error": "Missing task or media_type"})
		return
	}
	text := c.PostForm("text")
	lat := parseOptionalFloat(c.PostForm("lat"))
	lon := parseOptionalFloat(c.PostForm("lon"))

	req := store.SaveRequest{
		SessionID: sessionID,
		Task:      task,
		MediaType: mediaType,
		Text:      strings.TrimSpace(text),
		Lat:       lat,
		Lon:       lon,
	}

	if header, err := c.FormFile("file"); err == nil && header.Filename != "" {
		name := utils.SecureFilename(header.Filename)
		if name == "" {
			name = utils.FallbackFilename(mediaType)
		}
		f, err := header.Open()
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		req.FileName = name
		req.FileData = data
	}

	sub, progress, err := sc.store.SaveSubmission(req)
	if err != nil {
		log.Printf("[ERROR] /submit failed: %v", err)
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	// The environment is recomputed fresh for the verdict's tone; skipped
	// when the client sent no coordinates.
	var snapshot *models.EnvironmentSnapshot
	if lat != nil && lon != nil {
		s := sc.env.Snapshot(*lat, *lon)
		snapshot = &s
	}

	verdict := sc.judge.Judge(c.Request.Context(), services.JudgeInput{
		Task:      task,
		MediaType: mediaType,
		Text:      req.Text,
		FilePath:  sub.File,
		Lat:       lat,
		Lon:       lon,
		Env:       snapshot,
	})
	if err := sc.store.AttachVerdict(sessionID, sub.Index, verdict.Text, verdict.FitScore); err != nil {
		log.Printf("[WARN] Could not attach verdict: %v", err)
	}

	c.JSON(200, SubmitResponse{
		OK:            true,
		SessionID:     sessionID,
		Count:         progress.Count,
		Remaining:     progress.Remaining,
		SurpriseReady: progress.SurpriseReady,
		JudgeText:     verdict.Text,
	})
}

// Progress handles GET /progress/:session_id.
func (sc *SubmissionController) Progress(c *gin.Context) {
	progress, err := sc.store.Progress(c.Param("session_id"))
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, progress)
}

// Download handles GET /download/*filepath, serving stored uploads as
// attachments. Paths that resolve outside the upload root are treated as
// not found.
func (sc *SubmissionController) Download(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("filepath"), "/")
	path := filepath.Join(sc.store.Root(), filepath.FromSlash(rel))

	root, err := filepath.Abs(sc.store.Root())
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil || !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		c.JSON(404, gin.H{"error": "File not found"})
		return
	}
	if !fileExists(abs) {
		c.JSON(404, gin.H{"error": "File not found"})
		return
	}
	c.FileAttachment(abs, filepath.Base(abs))
}

func parseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
