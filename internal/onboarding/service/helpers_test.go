package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"github.com/bitfantasy/onboard/internal/onboarding/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type memoryEvidence struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func (m *memoryEvidence) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[key] = data
	return "mem://" + key, nil
}

func (m *memoryEvidence) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	return nil
}

type testEnv struct {
	db       *gorm.DB
	svc      *Services
	evidence *memoryEvidence
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	evidence := &memoryEvidence{}
	return &testEnv{
		db:       db,
		svc:      NewServices(repository.NewRepositories(db), evidence, zap.NewNop()),
		evidence: evidence,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func expectKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("Expected %s error, got %s: %v", kind, got, err)
	}
}

// publishedTemplate creates and publishes a template with the given tasks.
func (e *testEnv) publishedTemplate(t *testing.T, tasks ...TemplateTaskInput) (*entity.Template, *entity.TemplateVersion) {
	t.Helper()
	ctx := context.Background()
	tmpl, err := e.svc.Template.CreateTemplate(ctx, CreateTemplateInput{
		Name:       "Engineering onboarding",
		Department: "Engineering",
		Tasks:      tasks,
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	tmpl, err = e.svc.Template.PublishTemplate(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("publish template: %v", err)
	}
	version, err := e.svc.Template.GetTemplateVersion(ctx, tmpl.Versions[0].ID)
	if err != nil {
		t.Fatalf("get version: %v", err)
	}
	return tmpl, version
}

func (e *testEnv) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
