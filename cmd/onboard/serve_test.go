package main

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/onboard/internal/config"
	"github.com/bitfantasy/onboard/internal/onboarding/handler"
	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"github.com/bitfantasy/onboard/internal/onboarding/service"
	"github.com/bitfantasy/onboard/internal/onboarding/sse"
	"github.com/bitfantasy/onboard/internal/onboarding/storage"
	"github.com/bitfantasy/onboard/internal/onboarding/testutil"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupServeTest(t *testing.T, cfg *config.Config) (*gin.Engine, *gorm.DB, *sse.Hub) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	evidence, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("Failed to create evidence store: %v", err)
	}
	repos := repository.NewRepositories(db)
	hub := sse.NewHub(logger)
	h := handler.NewHandlers(service.NewServices(repos, evidence, logger), hub, nil, logger, handler.Options{})

	r := testutil.SetupRouter()
	registerRoutes(r, h, repos, cfg, evidence, logger)
	return r, db, hub
}

func TestHealthAndVersion(t *testing.T) {
	r, _, _ := setupServeTest(t, &config.Config{})

	w := testutil.DoRequest(r, "GET", "/health/live", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected live 200, got %d", w.Code)
	}
	w = testutil.DoRequest(r, "GET", "/health/ready", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected ready 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(r, "GET", "/version", nil, "")
	resp := testutil.ParseResponse(w)
	if w.Code != http.StatusOK || resp["version"] != Version {
		t.Errorf("Expected version %q, got %d %v", Version, w.Code, resp)
	}
}

func TestReadinessHidesStoreDetail(t *testing.T) {
	r, db, _ := setupServeTest(t, &config.Config{})

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.Close()

	w := testutil.DoRequest(r, "GET", "/health/ready", nil, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["error"] != repository.ErrStoreUnavailable.Error() {
		t.Errorf("Expected generic store message, got %v", resp["error"])
	}
	if strings.Contains(w.Body.String(), "sql:") {
		t.Errorf("Expected driver detail to stay in logs, got %s", w.Body.String())
	}
}

func TestAPIRequiresConfiguredAuth(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{APIKey: "secret"}}
	r, _, _ := setupServeTest(t, cfg)

	w := testutil.DoRequest(r, "GET", "/api/v1/templates", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/v1/templates", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with key, got %d", rec.Code)
	}
}

func TestEventStreamOutlivesWriteTimeout(t *testing.T) {
	r, _, hub := setupServeTest(t, &config.Config{})

	srv := httptest.NewUnstartedServer(r)
	srv.Config.WriteTimeout = 200 * time.Millisecond
	srv.Start()
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(srv.URL + "/api/v1/events")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil || line != "event: connected\n" {
		t.Fatalf("Expected connected event, got %q %v", line, err)
	}

	time.Sleep(400 * time.Millisecond)
	hub.Broadcast(sse.CaseUpdate("case-1", "created"))

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("Expected stream to stay open past the write timeout: %v", err)
		}
		if line == "event: case_update\n" {
			return
		}
	}
}
