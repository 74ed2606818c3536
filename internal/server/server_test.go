package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectbot/internal/config"
	"inspectbot/internal/handlers"
	"inspectbot/internal/models"
)

type echoEngine struct{}

func (echoEngine) Handle(_ context.Context, req models.Request) models.Reply {
	return models.Reply{Text: "echo: " + req.Utterance}
}

type emptyStore struct{}

func (emptyStore) LastCrawlTime(context.Context) (*time.Time, error) { return nil, nil }

func (emptyStore) LatestCrawlLog(context.Context) (*models.CrawlLog, error) { return nil, nil }

func (emptyStore) Counts(context.Context) (models.StoreCounts, error) {
	return models.StoreCounts{}, nil
}

func (emptyStore) Ping(context.Context) error { return nil }

type idleRunner struct{}

func (idleRunner) Run(context.Context) (*models.CrawlSummary, error) {
	return &models.CrawlSummary{}, nil
}

func (idleRunner) Running() bool { return false }

func newTestServer(t *testing.T, cfg *config.Config, deps Deps) *Server {
	t.Helper()
	if deps.Engine == nil {
		deps.Engine = echoEngine{}
	}
	if deps.Store == nil {
		deps.Store = emptyStore{}
	}
	s := New(cfg, nil)
	s.RegisterRoutes(context.Background(), deps)
	return s
}

func skillRequest(utterance string) *http.Request {
	return userSkillRequest("u", utterance)
}

func userSkillRequest(userID, utterance string) *http.Request {
	body := `{"userRequest":{"utterance":"` + utterance + `","user":{"id":"` + userID + `"}}}`
	req := httptest.NewRequest(http.MethodPost, "/chatbot", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRoutes_Chatbot(t *testing.T) {
	s := newTestServer(t, &config.Config{RateLimit: 10}, Deps{})

	resp, err := s.App.Test(skillRequest("검사항목"))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out models.SkillResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "echo: 검사항목", out.Template.Outputs[0].SimpleText.Text)
}

func TestRoutes_ChatbotRateLimitedPerUser(t *testing.T) {
	s := newTestServer(t, &config.Config{RateLimit: 2}, Deps{})

	for i := 0; i < 2; i++ {
		resp, err := s.App.Test(userSkillRequest("u-1", "a"))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	// The same platform address serves every user; other users are unaffected.
	for i := 0; i < 2; i++ {
		resp, err := s.App.Test(userSkillRequest("u-2", "b"))
		require.NoError(t, err)
		var out models.SkillResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "echo: b", out.Template.Outputs[0].SimpleText.Text)
	}

	resp, err := s.App.Test(userSkillRequest("u-1", "a"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out models.SkillResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "2.0", out.Version)
	assert.Equal(t, rateLimitedText, out.Template.Outputs[0].SimpleText.Text)
	require.Len(t, out.Template.QuickReplies, 1)
	assert.Equal(t, "처음으로", out.Template.QuickReplies[0].MessageText)

	// Liveness and readiness checks are not rate limited.
	resp, err = s.App.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t, &config.Config{}, Deps{})

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok","last_crawl":"never"}`, string(body))

	resp, err = s.App.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRoutes_StatusPage(t *testing.T) {
	s := newTestServer(t, &config.Config{SiteTitle: "검사 안내"}, Deps{Crawler: idleRunner{}})

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/status", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "never")
	assert.Contains(t, string(body), "검사 안내")
}

func TestRoutes_CrawlTrigger(t *testing.T) {
	t.Run("registered with a pipeline", func(t *testing.T) {
		s := newTestServer(t, &config.Config{TriggerSecret: "k"}, Deps{Crawler: idleRunner{}})

		req := httptest.NewRequest(http.MethodPost, "/admin/crawl", nil)
		req.Header.Set(handlers.SignatureHeader, handlers.Sign("k", nil))
		resp, err := s.App.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	})

	t.Run("absent without a pipeline", func(t *testing.T) {
		s := newTestServer(t, &config.Config{TriggerSecret: "k"}, Deps{})

		resp, err := s.App.Test(httptest.NewRequest(http.MethodPost, "/admin/crawl", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "error", out["status"])
	})
}

func TestRoutes_CORS(t *testing.T) {
	s := newTestServer(t, &config.Config{CORSOrigins: "https://chatbot.example.com"}, Deps{})

	req := httptest.NewRequest(http.MethodOptions, "/chatbot", nil)
	req.Header.Set("Origin", "https://chatbot.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := s.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "https://chatbot.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

type oneInfoStore struct{}

func (oneInfoStore) QueryInfo(_ context.Context, category string) ([]models.InfoRecord, error) {
	return []models.InfoRecord{{Category: category, Topic: "보관 방법", Details: "냉장 보관"}}, nil
}

func TestRoutes_Info(t *testing.T) {
	s := newTestServer(t, &config.Config{}, Deps{Info: oneInfoStore{}})

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/info/%EC%86%8C%EB%B9%84%EA%B8%B0%ED%95%9C", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"category":"소비기한"`)

	s = newTestServer(t, &config.Config{}, Deps{})
	resp, err = s.App.Test(httptest.NewRequest(http.MethodGet, "/info/소비기한", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
