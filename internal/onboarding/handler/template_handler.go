package handler

import (
	"github.com/bitfantasy/onboard/internal/onboarding/service"
	"github.com/bitfantasy/onboard/internal/onboarding/sse"
	"github.com/gin-gonic/gin"
)

// TemplateAdminRole may create, edit and publish templates.
const TemplateAdminRole = "hr_admin"

// TemplateHandler 模板处理器
type TemplateHandler struct {
	svc    *service.TemplateService
	events sse.Publisher
}

// NewTemplateHandler 创建模板处理器
func NewTemplateHandler(svc *service.TemplateService, events sse.Publisher) *TemplateHandler {
	return &TemplateHandler{svc: svc, events: events}
}

// List 获取模板列表
// GET /templates
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.svc.ListTemplates(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": templates, "total": len(templates)})
}

// Get 获取模板详情
// GET /templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	template, err := h.svc.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, template)
}

// Create 创建模板
// POST /templates
func (h *TemplateHandler) Create(c *gin.Context) {
	var req service.CreateTemplateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	template, err := h.svc.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.events.Publish(c.Request.Context(), sse.TemplateUpdate(template.ID, "created"))
	Created(c, template)
}

// Publish 发布最新版本
// POST /templates/:id/publish
func (h *TemplateHandler) Publish(c *gin.Context) {
	template, err := h.svc.PublishTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.events.Publish(c.Request.Context(), sse.TemplateUpdate(template.ID, "published"))
	Success(c, template)
}

// CreateVersion 创建新草稿版本
// POST /templates/:id/versions
func (h *TemplateHandler) CreateVersion(c *gin.Context) {
	version, err := h.svc.CreateDraftVersion(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.events.Publish(c.Request.Context(), sse.TemplateUpdate(version.TemplateID, "version_created"))
	Created(c, version)
}

// ReplaceTasks 替换草稿版本任务
// PUT /templates/:id/versions/:versionId/tasks
func (h *TemplateHandler) ReplaceTasks(c *gin.Context) {
	var req struct {
		Tasks []service.TemplateTaskInput `json:"tasks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	version, err := h.svc.ReplaceDraftTasks(c.Request.Context(), c.Param("id"), c.Param("versionId"), req.Tasks)
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.events.Publish(c.Request.Context(), sse.TemplateUpdate(version.TemplateID, "tasks_replaced"))
	Success(c, version)
}

// GetVersion 获取模板版本
// GET /template-versions/:id
func (h *TemplateHandler) GetVersion(c *gin.Context) {
	version, err := h.svc.GetTemplateVersion(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, version)
}
