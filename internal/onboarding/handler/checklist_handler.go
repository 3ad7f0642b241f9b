package handler

import (
	"github.com/bitfantasy/onboard/internal/onboarding/service"
	"github.com/bitfantasy/onboard/internal/onboarding/sse"
	"github.com/gin-gonic/gin"
)

// ChecklistHandler 检查项处理器
type ChecklistHandler struct {
	svc    *service.ChecklistService
	events sse.Publisher
}

func NewChecklistHandler(svc *service.ChecklistService, events sse.Publisher) *ChecklistHandler {
	return &ChecklistHandler{svc: svc, events: events}
}

// List GET /tasks/:id/checklist
func (h *ChecklistHandler) List(c *gin.Context) {
	items, err := h.svc.ListChecklistItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": items, "total": len(items)})
}

// Create POST /tasks/:id/checklist
func (h *ChecklistHandler) Create(c *gin.Context) {
	var req struct {
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	item, err := h.svc.CreateChecklistItem(c.Request.Context(), c.Param("id"), req.Label)
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.events.Publish(c.Request.Context(), sse.TaskUpdate("", item.TaskID, "checklist"))
	Created(c, item)
}

// Update PATCH /tasks/:id/checklist/:itemId
func (h *ChecklistHandler) Update(c *gin.Context) {
	var patch service.ChecklistPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	item, err := h.svc.UpdateChecklistItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), patch)
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.events.Publish(c.Request.Context(), sse.TaskUpdate("", item.TaskID, "checklist"))
	Success(c, item)
}
