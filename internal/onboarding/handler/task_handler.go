package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/bitfantasy/onboard/internal/middleware"
	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"github.com/bitfantasy/onboard/internal/onboarding/service"
	"github.com/bitfantasy/onboard/internal/onboarding/sse"
	"github.com/gin-gonic/gin"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	svc              *service.TaskService
	events           sse.Publisher
	maxEvidenceBytes int64
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(svc *service.TaskService, events sse.Publisher, maxEvidenceBytes int64) *TaskHandler {
	return &TaskHandler{svc: svc, events: events, maxEvidenceBytes: maxEvidenceBytes}
}

// CreateTaskRequest 创建临时任务请求
type CreateTaskRequest struct {
	service.CreateTaskInput
	DueDate *string `json:"dueDate"`
}

func (h *TaskHandler) publish(c *gin.Context, task *entity.Task, action string) {
	caseID := ""
	if task.CaseID != nil {
		caseID = *task.CaseID
	}
	h.events.Publish(c.Request.Context(), sse.TaskUpdate(caseID, task.ID, action))
}

// List 获取任务列表
// GET /tasks?caseId=&department=&priority=&assignedToEmail=&status=A,B
func (h *TaskHandler) List(c *gin.Context) {
	filter := repository.TaskFilter{
		CaseID:          c.Query("caseId"),
		Department:      c.Query("department"),
		Priority:        entity.Priority(c.Query("priority")),
		AssignedToEmail: c.Query("assignedToEmail"),
	}
	for _, s := range splitList(c, "status") {
		filter.Statuses = append(filter.Statuses, entity.TaskStatus(s))
	}

	tasks, err := h.svc.ListTasks(c.Request.Context(), filter)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": tasks, "total": len(tasks)})
}

// Create 创建临时任务
// POST /tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}
	due, ok := optionalTime(req.DueDate)
	if !ok {
		BadRequest(c, "invalid dueDate")
		return
	}
	input := req.CreateTaskInput
	input.DueDate = due

	task, err := h.svc.CreateTask(c.Request.Context(), input, middleware.Subject(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.publish(c, task, "created")
	Created(c, task)
}

// Get 获取任务
// GET /tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.svc.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, task)
}

// Update 部分更新任务
// PATCH /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		BadRequest(c, "invalid request body")
		return
	}
	patch, err := service.DecodeTaskPatch(body)
	if err != nil {
		ServiceError(c, err)
		return
	}

	task, err := h.svc.UpdateTask(c.Request.Context(), c.Param("id"), patch, middleware.Subject(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.publish(c, task, "updated")
	Success(c, task)
}

// Activity 获取任务操作日志
// GET /tasks/:id/activity
func (h *TaskHandler) Activity(c *gin.Context) {
	items, err := h.svc.ListTaskActivity(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": items, "total": len(items)})
}

// UploadEvidence 上传证明材料（multipart: file, note?, status?）
// POST /tasks/:id/evidence
func (h *TaskHandler) UploadEvidence(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxEvidenceBytes+(1<<20))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > h.maxEvidenceBytes {
		BadRequest(c, "file too large")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "read uploaded file: "+err.Error())
		return
	}
	defer src.Close()

	upload := service.EvidenceUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        src,
	}
	if note := strings.TrimSpace(c.PostForm("note")); note != "" {
		upload.Note = &note
	}
	if status := strings.TrimSpace(c.PostForm("status")); status != "" {
		s := entity.TaskStatus(status)
		upload.Status = &s
	}

	task, err := h.svc.AttachEvidence(c.Request.Context(), c.Param("id"), upload, middleware.Subject(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.publish(c, task, "evidence")
	Success(c, task)
}
