package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bitfantasy/onboard/internal/config"
	"github.com/bitfantasy/onboard/internal/database"
	"github.com/bitfantasy/onboard/internal/middleware"
	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	JWTSecret = "onboard-test-jwt-secret"
	APIKey    = "onboard-test-api-key"
)

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// SetupTestDB opens a migrated sqlite database in the test's temp dir. Each
// test gets its own file, removed when the test ends.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		DBName: filepath.Join(t.TempDir(), "onboard_test.db"),
	}
	db, err := database.Open(cfg, zap.NewNop(), logger.Silent)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthConfig is the auth setup used by AuthGroup.
func AuthConfig() middleware.AuthConfig {
	return middleware.AuthConfig{APIKey: APIKey, JWTSecret: JWTSecret}
}

// AuthGroup creates an API group behind the API key / JWT middleware
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.Authorize(AuthConfig()))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name, email string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"email": email,
		"roles": roles,
		"perms": []string{},
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a default admin test user
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Admin", "admin@test.com", []string{middleware.AdminRole})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedPublishedVersion creates a published template with the given tasks and
// returns its single version.
func SeedPublishedVersion(t *testing.T, db *gorm.DB, department string, tasks ...entity.TemplateTask) *entity.TemplateVersion {
	t.Helper()
	now := time.Now().UTC()
	template := &entity.Template{
		ID:                  uuid.New().String(),
		Name:                department + " onboarding",
		Department:          department,
		Status:              entity.TemplateStatusPublished,
		LatestVersionNumber: 1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	version := &entity.TemplateVersion{
		ID:            uuid.New().String(),
		TemplateID:    template.ID,
		VersionNumber: 1,
		Status:        entity.TemplateStatusPublished,
		PublishedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Omit("Versions").Create(template).Error; err != nil {
		t.Fatalf("Failed to seed template: %v", err)
	}
	if err := db.Omit("Tasks").Create(version).Error; err != nil {
		t.Fatalf("Failed to seed template version: %v", err)
	}
	for i := range tasks {
		tasks[i].ID = uuid.New().String()
		tasks[i].TemplateVersionID = version.ID
		if tasks[i].Department == "" {
			tasks[i].Department = department
		}
		if tasks[i].Priority == "" {
			tasks[i].Priority = entity.PriorityMed
		}
		tasks[i].CreatedAt = now
		tasks[i].UpdatedAt = now
		if err := db.Create(&tasks[i]).Error; err != nil {
			t.Fatalf("Failed to seed template task: %v", err)
		}
	}
	version.Tasks = tasks
	return version
}

// SeedTask creates a standalone task.
func SeedTask(t *testing.T, db *gorm.DB, title string, required bool) *entity.Task {
	t.Helper()
	now := time.Now().UTC()
	task := &entity.Task{
		ID:         uuid.New().String(),
		Title:      title,
		Department: "HR",
		Status:     entity.TaskStatusNotStarted,
		Priority:   entity.PriorityMed,
		IsRequired: required,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Omit("ChecklistItems").Create(task).Error; err != nil {
		t.Fatalf("Failed to seed task: %v", err)
	}
	return task
}
