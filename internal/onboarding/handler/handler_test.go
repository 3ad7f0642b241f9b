package handler

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"github.com/bitfantasy/onboard/internal/onboarding/service"
	"github.com/bitfantasy/onboard/internal/onboarding/sse"
	"github.com/bitfantasy/onboard/internal/onboarding/storage"
	"github.com/bitfantasy/onboard/internal/onboarding/testutil"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type apiTest struct {
	router *gin.Engine
	events chan sse.Event
	token  string
}

func setupAPITest(t *testing.T) *apiTest {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	evidence, err := storage.NewLocalStore(t.TempDir(), "/files/")
	if err != nil {
		t.Fatalf("Failed to create evidence store: %v", err)
	}
	svc := service.NewServices(repository.NewRepositories(db), evidence, logger)

	hub := sse.NewHub(logger)
	events := make(chan sse.Event, 64)
	hub.Register(&sse.Client{ID: "test", Subject: "test", Events: events})

	h := NewHandlers(svc, hub, nil, logger, Options{MaxEvidenceBytes: 1024})
	r := testutil.SetupRouter()
	RegisterRoutes(testutil.AuthGroup(r, "/api/v1"), h)

	return &apiTest{router: r, events: events, token: testutil.DefaultTestToken()}
}

func (a *apiTest) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := testutil.DoRequest(a.router, method, "/api/v1"+path, body, a.token)
	return w, testutil.ParseResponse(w)
}

func (a *apiTest) expect(t *testing.T, method, path string, body interface{}, status int) map[string]interface{} {
	t.Helper()
	w, resp := a.do(t, method, path, body)
	if w.Code != status {
		t.Fatalf("%s %s: Expected status %d, got %d: %s", method, path, status, w.Code, w.Body.String())
	}
	return resp
}

func data(resp map[string]interface{}) map[string]interface{} {
	d, _ := resp["data"].(map[string]interface{})
	return d
}

func (a *apiTest) drainEvents() []sse.Event {
	var out []sse.Event
	for {
		select {
		case e := <-a.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestOnboardingFlow(t *testing.T) {
	api := setupAPITest(t)

	// template
	resp := api.expect(t, "POST", "/templates", map[string]interface{}{
		"name":       "Engineering onboarding",
		"department": "Engineering",
		"tasks": []map[string]interface{}{
			{"title": "Laptop", "ownerRole": "SYS_ADMIN", "dueOffsetDays": 0, "priority": "HIGH"},
			{"title": "Security training", "dueOffsetDays": 5},
		},
	}, http.StatusCreated)
	tmpl := data(resp)
	templateID := tmpl["id"].(string)
	if tmpl["status"] != "DRAFT" {
		t.Errorf("Expected DRAFT, got %v", tmpl["status"])
	}
	versionID := tmpl["versions"].([]interface{})[0].(map[string]interface{})["id"].(string)

	// case against an unpublished version
	caseBody := map[string]interface{}{
		"title":             "Ada Lovelace",
		"employeeEmail":     "ada@example.com",
		"department":        "Engineering",
		"startDate":         "2026-03-02",
		"templateVersionId": versionID,
	}
	resp = api.expect(t, "POST", "/cases", caseBody, http.StatusConflict)
	if resp["code"].(float64) != 40900 {
		t.Errorf("Expected code 40900, got %v", resp["code"])
	}

	resp = api.expect(t, "POST", "/templates/"+templateID+"/publish", nil, http.StatusOK)
	if data(resp)["status"] != "PUBLISHED" {
		t.Errorf("Expected PUBLISHED, got %v", data(resp)["status"])
	}

	resp = api.expect(t, "POST", "/cases", caseBody, http.StatusCreated)
	c := data(resp)
	caseID := c["id"].(string)
	tasks := c["tasks"].([]interface{})
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	var laptopID string
	for _, raw := range tasks {
		task := raw.(map[string]interface{})
		if task["title"] == "Laptop" {
			laptopID = task["id"].(string)
			if task["dueDate"] != "2026-03-02T00:00:00Z" {
				t.Errorf("Expected due date on start date, got %v", task["dueDate"])
			}
		}
	}

	// completion gate
	resp = api.expect(t, "PATCH", "/tasks/"+laptopID, `{"status":"DONE"}`, http.StatusBadRequest)
	if resp["message"] != "required tasks need evidence before completion" {
		t.Errorf("unexpected message %v", resp["message"])
	}
	resp = api.expect(t, "PATCH", "/tasks/"+laptopID, `{"status":"DONE","evidenceNote":"serial ABC123"}`, http.StatusOK)
	if data(resp)["status"] != "DONE" {
		t.Errorf("Expected DONE, got %v", data(resp)["status"])
	}

	// checklist
	resp = api.expect(t, "POST", "/tasks/"+laptopID+"/checklist", map[string]string{"label": "Enroll MDM"}, http.StatusCreated)
	itemID := data(resp)["id"].(string)
	resp = api.expect(t, "PATCH", "/tasks/"+laptopID+"/checklist/"+itemID, `{"completed":true}`, http.StatusOK)
	if data(resp)["completedAt"] == nil {
		t.Error("Expected completedAt to be set")
	}
	resp = api.expect(t, "GET", "/tasks/"+laptopID+"/checklist", nil, http.StatusOK)
	if data(resp)["total"].(float64) != 1 {
		t.Errorf("Expected 1 checklist item, got %v", data(resp)["total"])
	}

	// lists
	resp = api.expect(t, "GET", "/tasks?caseId="+caseID+"&status=DONE,BLOCKED", nil, http.StatusOK)
	if data(resp)["total"].(float64) != 1 {
		t.Errorf("Expected 1 done task, got %v", data(resp)["total"])
	}
	resp = api.expect(t, "GET", "/cases?department=Engineering", nil, http.StatusOK)
	if data(resp)["total"].(float64) != 1 {
		t.Errorf("Expected 1 case, got %v", data(resp)["total"])
	}
	resp = api.expect(t, "GET", "/tasks/"+laptopID+"/activity", nil, http.StatusOK)
	if data(resp)["total"].(float64) != 2 {
		t.Errorf("Expected status and evidence activity, got %v", data(resp)["total"])
	}

	resp = api.expect(t, "PATCH", "/cases/"+caseID, map[string]string{"status": "IN_PROGRESS"}, http.StatusOK)
	if data(resp)["status"] != "IN_PROGRESS" {
		t.Errorf("Expected IN_PROGRESS, got %v", data(resp)["status"])
	}

	seen := map[string]bool{}
	for _, e := range api.drainEvents() {
		seen[e.EventType] = true
	}
	for _, want := range []string{"template_update", "case_update", "task_update"} {
		if !seen[want] {
			t.Errorf("Expected %s event to be published", want)
		}
	}
}

func TestTemplateVersionRoutes(t *testing.T) {
	api := setupAPITest(t)

	resp := api.expect(t, "POST", "/templates", map[string]interface{}{
		"name": "HR", "department": "HR", "tasks": []map[string]string{{"title": "Contract"}},
	}, http.StatusCreated)
	templateID := data(resp)["id"].(string)

	api.expect(t, "POST", "/templates/"+templateID+"/versions", nil, http.StatusConflict)
	api.expect(t, "POST", "/templates/"+templateID+"/publish", nil, http.StatusOK)

	resp = api.expect(t, "POST", "/templates/"+templateID+"/versions", nil, http.StatusCreated)
	draft := data(resp)
	if draft["versionNumber"].(float64) != 2 {
		t.Errorf("Expected version 2, got %v", draft["versionNumber"])
	}
	draftID := draft["id"].(string)

	resp = api.expect(t, "PUT", "/templates/"+templateID+"/versions/"+draftID+"/tasks", map[string]interface{}{
		"tasks": []map[string]interface{}{{"title": "Contract v2"}, {"title": "Benefits"}},
	}, http.StatusOK)
	if n := len(data(resp)["tasks"].([]interface{})); n != 2 {
		t.Errorf("Expected 2 tasks, got %d", n)
	}

	resp = api.expect(t, "GET", "/template-versions/"+draftID, nil, http.StatusOK)
	if data(resp)["status"] != "DRAFT" {
		t.Errorf("Expected DRAFT, got %v", data(resp)["status"])
	}

	resp = api.expect(t, "GET", "/templates", nil, http.StatusOK)
	if data(resp)["total"].(float64) != 1 {
		t.Errorf("Expected 1 template, got %v", data(resp)["total"])
	}

	api.expect(t, "GET", "/templates/missing", nil, http.StatusNotFound)
	api.expect(t, "GET", "/template-versions/missing", nil, http.StatusNotFound)
}

func TestTemplateWritesRequireRole(t *testing.T) {
	api := setupAPITest(t)
	api.token = testutil.GenerateTestToken("u-2", "Dana", "dana@example.com", []string{"employee"})

	api.expect(t, "GET", "/templates", nil, http.StatusOK)
	resp := api.expect(t, "POST", "/templates", map[string]string{"name": "x", "department": "y"}, http.StatusForbidden)
	if resp["code"].(float64) != 40312 {
		t.Errorf("Expected 40312, got %v", resp["code"])
	}

	api.token = testutil.GenerateTestToken("u-3", "Hank", "hank@example.com", []string{TemplateAdminRole})
	api.expect(t, "POST", "/templates", map[string]string{"name": "x", "department": "y"}, http.StatusCreated)
}

func TestRequiresAuthentication(t *testing.T) {
	api := setupAPITest(t)
	api.token = ""
	resp := api.expect(t, "GET", "/cases", nil, http.StatusUnauthorized)
	if resp["code"].(float64) != 40100 {
		t.Errorf("Expected 40100, got %v", resp["code"])
	}

	req := httptest.NewRequest("GET", "/api/v1/cases", nil)
	req.Header.Set("X-API-Key", testutil.APIKey)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected API key to be accepted, got %d", w.Code)
	}
}

func TestValidationErrors(t *testing.T) {
	api := setupAPITest(t)

	tests := []struct {
		method, path string
		body         interface{}
		status       int
		message      string
	}{
		{"POST", "/templates", `{`, http.StatusBadRequest, "invalid request body"},
		{"POST", "/templates", map[string]string{"name": "x"}, http.StatusBadRequest, "name and department are required"},
		{"POST", "/cases", map[string]string{"title": "x"}, http.StatusBadRequest, "title, employeeEmail and department are required"},
		{"POST", "/cases", map[string]string{"title": "x", "employeeEmail": "x@example.com", "department": "HR", "startDate": "soon"}, http.StatusBadRequest, "invalid startDate"},
		{"POST", "/cases", map[string]string{"title": "x", "employeeEmail": "x@example.com", "department": "HR", "templateVersionId": "nope"}, http.StatusNotFound, "template version not found"},
		{"GET", "/cases/missing", nil, http.StatusNotFound, "case not found"},
		{"GET", "/tasks?priority=URGENT", nil, http.StatusBadRequest, "invalid priority"},
		{"PATCH", "/tasks/missing", `{"status":"DONE"}`, http.StatusNotFound, "task not found"},
		{"POST", "/tasks", map[string]string{"title": "x", "dueDate": "tomorrow"}, http.StatusBadRequest, "invalid dueDate"},
		{"POST", "/tasks/missing/checklist", map[string]string{"label": "x"}, http.StatusNotFound, "task not found"},
	}
	for _, tt := range tests {
		resp := api.expect(t, tt.method, tt.path, tt.body, tt.status)
		if resp["message"] != tt.message {
			t.Errorf("%s %s: Expected %q, got %v", tt.method, tt.path, tt.message, resp["message"])
		}
	}

	resp := api.expect(t, "POST", "/tasks", map[string]string{"title": "Parking"}, http.StatusCreated)
	taskID := data(resp)["id"].(string)
	for body, message := range map[string]string{
		`{}`:                    "no fields to update",
		`{"status":"FINISHED"}`: "invalid status",
		`{"priority":null}`:     "invalid priority",
	} {
		resp := api.expect(t, "PATCH", "/tasks/"+taskID, body, http.StatusBadRequest)
		if resp["message"] != message {
			t.Errorf("%s: Expected %q, got %v", body, message, resp["message"])
		}
	}
}

func uploadEvidence(t *testing.T, api *apiTest, taskID, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(content)
	}
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/tasks/%s/evidence", taskID), body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+api.token)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	return w
}

func TestUploadEvidence(t *testing.T) {
	api := setupAPITest(t)
	resp := api.expect(t, "POST", "/tasks", map[string]string{"title": "ID check"}, http.StatusCreated)
	taskID := data(resp)["id"].(string)

	w := uploadEvidence(t, api, taskID, "passport.pdf", []byte("%PDF-1.4"), map[string]string{"status": "DONE", "note": "checked"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	task := data(testutil.ParseResponse(w))
	if task["status"] != "DONE" || task["evidenceNote"] != "checked" {
		t.Errorf("unexpected task %v", task)
	}
	url, _ := task["evidenceUrl"].(string)
	if !strings.HasPrefix(url, "/files/tasks/"+taskID+"/") {
		t.Errorf("unexpected evidence url %q", url)
	}

	if w := uploadEvidence(t, api, taskID, "", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without file, got %d", w.Code)
	}
	if w := uploadEvidence(t, api, taskID, "big.bin", bytes.Repeat([]byte("x"), 2048), nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for oversized file, got %d", w.Code)
	}
}

func TestExportCase(t *testing.T) {
	api := setupAPITest(t)
	resp := api.expect(t, "POST", "/cases", map[string]string{
		"title": "x", "employeeEmail": "x@example.com", "department": "HR",
	}, http.StatusCreated)
	caseID := data(resp)["id"].(string)

	w, _ := api.do(t, "GET", "/cases/"+caseID+"/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "case_"+caseID[:8]) {
		t.Errorf("unexpected disposition %q", w.Header().Get("Content-Disposition"))
	}
	if w.Body.Len() == 0 {
		t.Error("Expected workbook body")
	}
}
