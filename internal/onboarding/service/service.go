package service

import (
	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Template  *TemplateService
	Case      *CaseService
	Task      *TaskService
	Checklist *ChecklistService
}

// NewServices 创建服务集合，evidence 为空时不支持上传证明材料
func NewServices(repos *repository.Repositories, evidence EvidenceStore, logger *zap.Logger) *Services {
	return &Services{
		Template:  NewTemplateService(repos, logger.Named("template")),
		Case:      NewCaseService(repos, logger.Named("case")),
		Task:      NewTaskService(repos, evidence, logger.Named("task")),
		Checklist: NewChecklistService(repos, logger.Named("checklist")),
	}
}
