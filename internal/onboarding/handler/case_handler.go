package handler

import (
	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"github.com/bitfantasy/onboard/internal/onboarding/service"
	"github.com/bitfantasy/onboard/internal/onboarding/sse"
	"github.com/gin-gonic/gin"
)

// CaseHandler 案例处理器
type CaseHandler struct {
	svc    *service.CaseService
	events sse.Publisher
}

// NewCaseHandler 创建案例处理器
func NewCaseHandler(svc *service.CaseService, events sse.Publisher) *CaseHandler {
	return &CaseHandler{svc: svc, events: events}
}

// CreateCaseRequest 创建案例请求
type CreateCaseRequest struct {
	Title             string  `json:"title"`
	EmployeeEmail     string  `json:"employeeEmail"`
	Department        string  `json:"department"`
	StartDate         *string `json:"startDate"`
	TemplateVersionID *string `json:"templateVersionId"`
}

// List 获取案例列表
// GET /cases?department=&status=OPEN,IN_PROGRESS
func (h *CaseHandler) List(c *gin.Context) {
	filter := repository.CaseFilter{Department: c.Query("department")}
	for _, s := range splitList(c, "status") {
		filter.Statuses = append(filter.Statuses, entity.CaseStatus(s))
	}

	cases, err := h.svc.ListCases(c.Request.Context(), filter)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": cases, "total": len(cases)})
}

// Create 创建案例并按模板版本生成任务
// POST /cases
func (h *CaseHandler) Create(c *gin.Context) {
	var req CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}
	startDate, ok := optionalTime(req.StartDate)
	if !ok {
		BadRequest(c, "invalid startDate")
		return
	}

	created, err := h.svc.CreateCase(c.Request.Context(), service.CreateCaseInput{
		Title:             req.Title,
		EmployeeEmail:     req.EmployeeEmail,
		Department:        req.Department,
		StartDate:         startDate,
		TemplateVersionID: req.TemplateVersionID,
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.events.Publish(c.Request.Context(), sse.CaseUpdate(created.ID, "created"))
	Created(c, created)
}

// Get 获取案例详情
// GET /cases/:id
func (h *CaseHandler) Get(c *gin.Context) {
	found, err := h.svc.GetCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, found)
}

// UpdateStatus 更新案例状态
// PATCH /cases/:id
func (h *CaseHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	updated, err := h.svc.UpdateCaseStatus(c.Request.Context(), c.Param("id"), entity.CaseStatus(req.Status))
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.events.Publish(c.Request.Context(), sse.CaseUpdate(updated.ID, "status_change"))
	Success(c, updated)
}

// Export 导出案例任务Excel
// GET /cases/:id/export
func (h *CaseHandler) Export(c *gin.Context) {
	f, filename, err := h.svc.ExportCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
