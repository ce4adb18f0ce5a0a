package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"hoppi/controllers"
	"hoppi/routes"
	"hoppi/services"
	"hoppi/store"
)

type stubCompleter struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type stubImageGen struct{}

func (stubImageGen) GenerateImage(_ context.Context, _, _ string) (services.ImageResult, error) {
	return services.ImageResult{URL: "https://img.example/beat.png"}, nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_, mediaType string) string {
	return "Image description: something " + mediaType
}

// geoStub serves deterministic responses for all four geodata endpoints.
func geoStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/sun", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":{"sunrise":"2025-06-01T07:00:00+00:00","sunset":"2025-06-01T20:00:00+00:00"}}`)
	})
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"current_weather":{"weathercode":2}}`)
	})
	mux.HandleFunc("/reverse", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"address":{"leisure":"park","name":"Central Park"}}`)
	})
	mux.HandleFunc("/overpass", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"elements":[{"lat":49.2801,"lon":-123.1207,"tags":{"name":"Riverside Park","leisure":"park"}}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testApp struct {
	router       *gin.Engine
	store        *store.SubmissionStore
	generator    *stubCompleter
	judge        *stubCompleter
	narrativeLLM *stubCompleter
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	geo := geoStub(t)
	now := func() time.Time {
		v, _ := time.Parse(time.RFC3339, "2025-06-01T09:30:00Z")
		return v
	}
	env := services.NewEnvironmentService(geo.URL+"/sun", geo.URL+"/weather", geo.URL+"/reverse", geo.URL+"/overpass", now, rand.New(rand.NewSource(1)))

	resultsDir := t.TempDir()
	composer := services.NewPromptComposer(resultsDir, now, rand.New(rand.NewSource(1)))

	genStub := &stubCompleter{response: "Touch something green nearby and snap a quick photo."}
	judgeStub := &stubCompleter{response: "Nice shot! Keep the momentum. Shall we try another quick challenge?"}

	generator := services.NewChallengeGenerator(genStub, "task-model")
	judge := services.NewJudge(judgeStub, stubSummarizer{}, "judge-model", rand.New(rand.NewSource(1)))
	narrativeLLM := &stubCompleter{response: `{"story_text":"A tiny odyssey.","beats":[{"title":"One","prompt":"a"},{"title":"Two","prompt":"b"},{"title":"Three","prompt":"c"}]}`}
	narrative := services.NewNarrativeComposer(narrativeLLM, stubImageGen{}, "task-model", "image-model", resultsDir)

	submissions := store.NewSubmissionStore(t.TempDir())
	feedback := store.NewFeedbackStore(t.TempDir(), "")

	router := gin.New()
	routes.SetupChallengeRoutes(router, controllers.NewChallengeController(env, composer, generator))
	routes.SetupSubmissionRoutes(router, controllers.NewSubmissionController(submissions, judge, env))
	routes.SetupFeedbackRoutes(router, controllers.NewFeedbackController(feedback))
	routes.SetupNarrativeRoutes(router, controllers.NewNarrativeController(submissions, narrative, resultsDir))

	return &testApp{router: router, store: submissions, generator: genStub, judge: judgeStub, narrativeLLM: narrativeLLM}
}

func (a *testApp) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Response not JSON: %v\n%s", err, w.Body.String())
	}
	return out
}

func postJSON(t *testing.T, path string, payload any) *http.Request {
	t.Helper()
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartSubmit(t *testing.T, fields map[string]string, fileName string, fileData []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write(fileData)
	}
	w.Close()
	req := httptest.NewRequest("POST", "/submit", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestGenerateTaskMissingCoordsReturns400(t *testing.T) {
	app := newTestApp(t)

	for _, payload := range []any{
		map[string]any{},
		map[string]any{"latitude": 49.28},
		map[string]any{"longitude": -123.12},
	} {
		w := app.do(t, postJSON(t, "/generate-task", payload))
		if w.Code != 400 {
			t.Errorf("Payload %v: expected 400, got %d", payload, w.Code)
		}
		if _, ok := jsonBody(t, w)["error"]; !ok {
			t.Errorf("Payload %v: response missing error key", payload)
		}
	}
}

func TestGenerateTaskHappyPath(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, postJSON(t, "/generate-task", map[string]any{"latitude": 49.2827, "longitude": -123.1207}))
	if w.Code != 200 {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := jsonBody(t, w)
	if body["location_type"] != "park" {
		t.Errorf("Expected park from stubbed geocoder, got %v", body["location_type"])
	}
	if task, _ := body["task"].(string); !strings.HasPrefix(task, "Touch something green") {
		t.Errorf("Expected stubbed task, got %v", body["task"])
	}
	if body["source"] != "LLM" {
		t.Errorf("Expected source LLM, got %v", body["source"])
	}
	place, _ := body["selected_place"].(map[string]any)
	if place == nil || place["name"] != "Riverside Park" {
		t.Errorf("Expected stubbed nearby place, got %v", body["selected_place"])
	}
}

func TestGenerateTaskFallbackOnLLMError(t *testing.T) {
	app := newTestApp(t)
	app.generator.err = errors.New("LLM is down")

	w := app.do(t, postJSON(t, "/generate-task", map[string]any{"latitude": 49.2827, "longitude": -123.1207}))
	if w.Code != 200 {
		t.Fatalf("Expected 200 despite LLM failure, got %d", w.Code)
	}
	body := jsonBody(t, w)
	if task, _ := body["task"].(string); !strings.HasPrefix(task, "Nice! That totally counts") {
		t.Errorf("Expected fallback task, got %v", body["task"])
	}
	if body["source"] != "fallback" {
		t.Errorf("Expected source fallback, got %v", body["source"])
	}
}

func TestSubmitRequiresTaskAndMediaType(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, multipartSubmit(t, map[string]string{"session_id": "s1", "media_type": "photo"}, "", nil))
	if w.Code != 400 {
		t.Errorf("Missing task: expected 400, got %d", w.Code)
	}
	w = app.do(t, multipartSubmit(t, map[string]string{"session_id": "s1", "task": "Any"}, "", nil))
	if w.Code != 400 {
		t.Errorf("Missing media_type: expected 400, got %d", w.Code)
	}
}

func TestSubmitStoresAndJudges(t *testing.T) {
	app := newTestApp(t)

	fields := map[string]string{
		"session_id": "llm1",
		"task":       "Take a photo of something green",
		"media_type": "photo",
		"lat":        "49.2827",
		"lon":        "-123.1207",
	}
	w := app.do(t, multipartSubmit(t, fields, "pic.jpg", []byte("img")))
	if w.Code != 200 {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := jsonBody(t, w)
	if body["ok"] != true {
		t.Errorf("Expected ok true, got %v", body["ok"])
	}
	if body["session_id"] != "llm1" {
		t.Errorf("Expected session llm1, got %v", body["session_id"])
	}
	if body["count"] != float64(1) || body["remaining"] != float64(4) {
		t.Errorf("Unexpected progress: count=%v remaining=%v", body["count"], body["remaining"])
	}
	if text, _ := body["judge_text"].(string); !strings.Contains(text, "Nice shot!") {
		t.Errorf("Expected stubbed verdict, got %v", body["judge_text"])
	}
}

func TestSubmitGeneratesSessionIDWhenAbsent(t *testing.T) {
	app := newTestApp(t)

	fields := map[string]string{"task": "Any", "media_type": "text", "text": "hello"}
	w := app.do(t, multipartSubmit(t, fields, "", nil))
	if w.Code != 200 {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if id, _ := jsonBody(t, w)["session_id"].(string); len(id) < 8 {
		t.Errorf("Expected generated session id, got %q", id)
	}
}

func TestSubmitJudgeFallbackOnLLMError(t *testing.T) {
	app := newTestApp(t)
	app.judge.err = errors.New("LLM unavailable")

	fields := map[string]string{"session_id": "llm2", "task": "Any", "media_type": "text", "text": "hello"}
	w := app.do(t, multipartSubmit(t, fields, "", nil))
	if w.Code != 200 {
		t.Fatalf("Expected 200 despite judge failure, got %d", w.Code)
	}
	if text, _ := jsonBody(t, w)["judge_text"].(string); text == "" {
		t.Errorf("Expected non-empty fallback verdict")
	}
}

func TestProgressCountsCycle(t *testing.T) {
	app := newTestApp(t)

	fields := map[string]string{"session_id": "cycle", "task": "t", "media_type": "text", "text": "x"}
	for i := 0; i < 5; i++ {
		if w := app.do(t, multipartSubmit(t, fields, "", nil)); w.Code != 200 {
			t.Fatalf("Submit %d failed: %d", i+1, w.Code)
		}
	}

	w := app.do(t, httptest.NewRequest("GET", "/progress/cycle", nil))
	if w.Code != 200 {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := jsonBody(t, w)
	if body["count"] != float64(5) || body["remaining"] != float64(0) || body["surprise_ready"] != true {
		t.Errorf("Unexpected progress after 5 submissions: %v", body)
	}
}

func TestDownloadRoundTrip(t *testing.T) {
	app := newTestApp(t)

	payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01, 0x02}
	fields := map[string]string{"session_id": "dl", "task": "t", "media_type": "photo"}
	if w := app.do(t, multipartSubmit(t, fields, "pic.png", payload)); w.Code != 200 {
		t.Fatalf("Submit failed: %d", w.Code)
	}

	w := app.do(t, httptest.NewRequest("GET", "/download/dl/001/pic.png", nil))
	if w.Code != 200 {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got, _ := io.ReadAll(w.Body)
	if !bytes.Equal(got, payload) {
		t.Errorf("Downloaded bytes differ from upload: %v vs %v", got, payload)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Expected attachment disposition, got %q", cd)
	}
}

func TestDownloadMissingFileReturns404(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, httptest.NewRequest("GET", "/download/nope/001/missing.png", nil))
	if w.Code != 404 {
		t.Errorf("Expected 404, got %d", w.Code)
	}
	if _, ok := jsonBody(t, w)["error"]; !ok {
		t.Errorf("404 body missing error key")
	}
}

func TestDownloadRejectsTraversal(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, httptest.NewRequest("GET", "/download/..%2F..%2Fetc%2Fpasswd", nil))
	if w.Code != 404 {
		t.Errorf("Expected 404 for traversal path, got %d", w.Code)
	}
}

func TestFeedbackValidation(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, postJSON(t, "/feedback", map[string]any{"rating": "sideways", "input": "a", "output": "b"}))
	if w.Code != 400 {
		t.Errorf("Invalid rating: expected 400, got %d", w.Code)
	}
	w = app.do(t, postJSON(t, "/feedback", map[string]any{"rating": "up"}))
	if w.Code != 400 {
		t.Errorf("Missing input/output: expected 400, got %d", w.Code)
	}
}

func TestFeedbackPersistAndList(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, postJSON(t, "/feedback", map[string]any{
		"rating": "up", "input": "task text", "output": "verdict text", "reason": "loved it",
	}))
	if w.Code != 200 {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if jsonBody(t, w)["ok"] != true {
		t.Errorf("Expected ok true")
	}

	w = app.do(t, httptest.NewRequest("GET", "/feedback-logs", nil))
	if w.Code != 200 {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	files, _ := jsonBody(t, w)["files"].([]any)
	if len(files) != 1 {
		t.Fatalf("Expected 1 feedback file, got %v", files)
	}

	name, _ := files[0].(string)
	w = app.do(t, httptest.NewRequest("GET", "/feedback-logs/"+name, nil))
	if w.Code != 200 {
		t.Fatalf("Expected 200 downloading %s, got %d", name, w.Code)
	}
	if !strings.Contains(w.Body.String(), "rating: up") {
		t.Errorf("Feedback file content missing rating line:\n%s", w.Body.String())
	}
}

func TestSurpriseRequiresThreeSubmissions(t *testing.T) {
	app := newTestApp(t)

	fields := map[string]string{"session_id": "story", "task": "t", "media_type": "text", "text": "the same park fountain"}
	app.do(t, multipartSubmit(t, fields, "", nil))
	app.do(t, multipartSubmit(t, fields, "", nil))

	w := app.do(t, httptest.NewRequest("GET", "/surprise/story", nil))
	if w.Code != 409 {
		t.Errorf("Expected 409 with 2 submissions, got %d", w.Code)
	}

	app.do(t, multipartSubmit(t, fields, "", nil))
	w = app.do(t, httptest.NewRequest("GET", "/surprise/story", nil))
	if w.Code != 200 {
		t.Fatalf("Expected 200 with 3 submissions, got %d: %s", w.Code, w.Body.String())
	}
	body := jsonBody(t, w)
	if body["story_text"] != "A tiny odyssey." {
		t.Errorf("Expected stubbed story, got %v", body["story_text"])
	}
	images, _ := body["images"].([]any)
	if len(images) != 3 {
		t.Errorf("Expected 3 beat images, got %d", len(images))
	}
}

func TestSurpriseThreadsJudgeFeedbackIntoStoryPrompt(t *testing.T) {
	app := newTestApp(t)

	fields := map[string]string{"session_id": "fb", "task": "t", "media_type": "text", "text": "the same park fountain"}
	for i := 0; i < 3; i++ {
		if w := app.do(t, multipartSubmit(t, fields, "", nil)); w.Code != 200 {
			t.Fatalf("Submit %d failed: %d", i+1, w.Code)
		}
	}

	if w := app.do(t, httptest.NewRequest("GET", "/surprise/fb", nil)); w.Code != 200 {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(app.narrativeLLM.lastPrompt, "Hoppi's feedback:") {
		t.Fatalf("Story prompt missing feedback line:\n%s", app.narrativeLLM.lastPrompt)
	}
	if !strings.Contains(app.narrativeLLM.lastPrompt, "Nice shot!") {
		t.Errorf("Story prompt missing persisted verdict text:\n%s", app.narrativeLLM.lastPrompt)
	}
}

func TestSurpriseUnknownSessionReturns409(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, httptest.NewRequest("GET", "/surprise/never-seen", nil))
	if w.Code != 409 {
		t.Errorf("Expected 409 for unknown session, got %d: %s", w.Code, w.Body.String())
	}
}
