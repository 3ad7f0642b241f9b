package handler

import (
	"strings"
	"time"

	"github.com/bitfantasy/onboard/internal/middleware"
	"github.com/bitfantasy/onboard/internal/onboarding/service"
	"github.com/bitfantasy/onboard/internal/onboarding/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 处理器集合
type Handlers struct {
	Template  *TemplateHandler
	Case      *CaseHandler
	Task      *TaskHandler
	Checklist *ChecklistHandler
	SSE       *SSEHandler
}

// Options 可选配置
type Options struct {
	// MaxEvidenceBytes limits evidence uploads; zero means 20 MiB.
	MaxEvidenceBytes int64
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub, events sse.Publisher, logger *zap.Logger, opts Options) *Handlers {
	if events == nil {
		events = hub
	}
	if opts.MaxEvidenceBytes <= 0 {
		opts.MaxEvidenceBytes = 20 << 20
	}
	return &Handlers{
		Template:  NewTemplateHandler(svc.Template, events),
		Case:      NewCaseHandler(svc.Case, events),
		Task:      NewTaskHandler(svc.Task, events, opts.MaxEvidenceBytes),
		Checklist: NewChecklistHandler(svc.Checklist, events),
		SSE:       NewSSEHandler(hub, logger),
	}
}

// RegisterRoutes mounts the onboarding API on an authenticated group.
func RegisterRoutes(api *gin.RouterGroup, h *Handlers) {
	templateAdmin := middleware.RequireRole(TemplateAdminRole)

	templates := api.Group("/templates")
	{
		templates.GET("", h.Template.List)
		templates.POST("", templateAdmin, h.Template.Create)
		templates.GET("/:id", h.Template.Get)
		templates.POST("/:id/publish", templateAdmin, h.Template.Publish)
		templates.POST("/:id/versions", templateAdmin, h.Template.CreateVersion)
		templates.PUT("/:id/versions/:versionId/tasks", templateAdmin, h.Template.ReplaceTasks)
	}
	api.GET("/template-versions/:id", h.Template.GetVersion)

	cases := api.Group("/cases")
	{
		cases.GET("", h.Case.List)
		cases.POST("", h.Case.Create)
		cases.GET("/:id", h.Case.Get)
		cases.PATCH("/:id", h.Case.UpdateStatus)
		cases.GET("/:id/export", h.Case.Export)
	}

	tasks := api.Group("/tasks")
	{
		tasks.GET("", h.Task.List)
		tasks.POST("", h.Task.Create)
		tasks.GET("/:id", h.Task.Get)
		tasks.PATCH("/:id", h.Task.Update)
		tasks.GET("/:id/activity", h.Task.Activity)
		tasks.POST("/:id/evidence", h.Task.UploadEvidence)

		tasks.GET("/:id/checklist", h.Checklist.List)
		tasks.POST("/:id/checklist", h.Checklist.Create)
		tasks.PATCH("/:id/checklist/:itemId", h.Checklist.Update)
	}

	api.GET("/events", h.SSE.Stream)
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 前置条件不满足
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ServiceError maps a service error kind onto the response code.
func ServiceError(c *gin.Context, err error) {
	switch service.KindOf(err) {
	case service.KindValidation:
		BadRequest(c, err.Error())
	case service.KindNotFound:
		NotFound(c, err.Error())
	case service.KindPrecondition:
		Conflict(c, err.Error())
	case service.KindStoreUnavailable:
		Error(c, 50300, err.Error())
	case service.KindStoreRejected:
		InternalError(c, err.Error())
	default:
		InternalError(c, "unexpected server error")
	}
}

// splitList reads a comma separated and/or repeated query parameter.
func splitList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// optionalTime parses an optional date string; ok is false for malformed input.
func optionalTime(s *string) (t *time.Time, ok bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, true
	}
	v, ok := service.ParseInstant(*s)
	if !ok {
		return nil, false
	}
	return &v, true
}
