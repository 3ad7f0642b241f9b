package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TemplateTaskInput 模板任务输入
type TemplateTaskInput struct {
	Title         string            `json:"title" yaml:"title"`
	Department    string            `json:"department" yaml:"department"`
	OwnerRole     *entity.OwnerRole `json:"ownerRole" yaml:"ownerRole"`
	DueOffsetDays *int              `json:"dueOffsetDays" yaml:"dueOffsetDays"`
	Priority      entity.Priority   `json:"priority" yaml:"priority"`
	IsRequired    *bool             `json:"isRequired" yaml:"isRequired"`
	Order         *int              `json:"order" yaml:"order"`
}

// CreateTemplateInput 创建模板输入
type CreateTemplateInput struct {
	Name        string              `json:"name" yaml:"name"`
	Department  string              `json:"department" yaml:"department"`
	Description *string             `json:"description" yaml:"description"`
	Tasks       []TemplateTaskInput `json:"tasks" yaml:"tasks"`
}

// TemplateService 模板服务
type TemplateService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewTemplateService 创建模板服务
func NewTemplateService(repos *repository.Repositories, logger *zap.Logger) *TemplateService {
	return &TemplateService{repos: repos, logger: logger}
}

// ListTemplates 获取模板列表
func (s *TemplateService) ListTemplates(ctx context.Context) ([]entity.Template, error) {
	templates, err := s.repos.Template.List(ctx)
	if err != nil {
		return nil, fail(s.logger, "list templates", err)
	}
	return templates, nil
}

// GetTemplate 获取模板详情（版本倒序，任务按顺序）
func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*entity.Template, error) {
	template, err := s.repos.Template.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("template not found")
	}
	if err != nil {
		return nil, fail(s.logger, "get template", err)
	}
	return template, nil
}

// GetTemplateVersion 获取模板版本
func (s *TemplateService) GetTemplateVersion(ctx context.Context, id string) (*entity.TemplateVersion, error) {
	version, err := s.repos.Template.FindVersion(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("template version not found")
	}
	if err != nil {
		return nil, fail(s.logger, "get template version", err)
	}
	return version, nil
}

// CreateTemplate creates a DRAFT template with version 1 and its tasks in a
// single transaction.
func (s *TemplateService) CreateTemplate(ctx context.Context, input CreateTemplateInput) (*entity.Template, error) {
	name := strings.TrimSpace(input.Name)
	department := strings.TrimSpace(input.Department)
	if name == "" || department == "" {
		return nil, validationf("name and department are required")
	}

	now := time.Now().UTC()
	template := &entity.Template{
		ID:                  uuid.New().String(),
		Name:                name,
		Department:          department,
		Description:         trimOptional(input.Description),
		Status:              entity.TemplateStatusDraft,
		LatestVersionNumber: 1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	version := &entity.TemplateVersion{
		ID:            uuid.New().String(),
		TemplateID:    template.ID,
		VersionNumber: 1,
		Status:        entity.TemplateStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tasks, err := buildTemplateTasks(version.ID, department, input.Tasks, now)
	if err != nil {
		return nil, err
	}

	var created *entity.Template
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Template.Create(ctx, template); err != nil {
			return err
		}
		if err := tx.Template.CreateVersion(ctx, version); err != nil {
			return err
		}
		if err := tx.Template.CreateTasks(ctx, tasks); err != nil {
			return err
		}
		created, err = tx.Template.FindByID(ctx, template.ID)
		return err
	})
	if err != nil {
		return nil, fail(s.logger, "create template", err)
	}

	s.logger.Info("template created",
		zap.String("template_id", template.ID),
		zap.String("department", department),
		zap.Int("tasks", len(tasks)))
	return created, nil
}

// PublishTemplate publishes the highest version of a template. Publishing an
// already published version is a no-op.
func (s *TemplateService) PublishTemplate(ctx context.Context, id string) (*entity.Template, error) {
	var (
		result    *entity.Template
		published *entity.TemplateVersion
	)
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		template, err := tx.Template.FindForPublish(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("template not found")
		}
		if err != nil {
			return err
		}
		if len(template.Versions) == 0 {
			return notFound("template has no versions")
		}

		latest := template.Versions[0]
		if !latest.IsPublished() {
			now := time.Now().UTC()
			ok, err := tx.Template.PublishVersion(ctx, latest.ID, now)
			if err != nil {
				return err
			}
			// zero rows: a concurrent publish already committed this version
			if ok {
				if err := tx.Template.MarkPublished(ctx, template.ID, latest.VersionNumber, now); err != nil {
					return err
				}
				published = &latest
			}
		}

		result, err = tx.Template.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fail(s.logger, "publish template", err)
	}

	if published != nil {
		s.logger.Info("template published",
			zap.String("template_id", id),
			zap.String("version_id", published.ID),
			zap.Int("version", published.VersionNumber))
	}
	return result, nil
}

// CreateDraftVersion 基于最新已发布版本创建新草稿版本
func (s *TemplateService) CreateDraftVersion(ctx context.Context, templateID string) (*entity.TemplateVersion, error) {
	var draft *entity.TemplateVersion
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		template, err := tx.Template.FindForPublish(ctx, templateID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("template not found")
		}
		if err != nil {
			return err
		}
		if len(template.Versions) == 0 {
			return notFound("template has no versions")
		}
		latest := template.Versions[0]
		if !latest.IsPublished() {
			return precondition("template already has a draft version")
		}

		source, err := tx.Template.FindVersion(ctx, latest.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		draft = &entity.TemplateVersion{
			ID:            uuid.New().String(),
			TemplateID:    template.ID,
			VersionNumber: latest.VersionNumber + 1,
			Status:        entity.TemplateStatusDraft,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Template.CreateVersion(ctx, draft); err != nil {
			return err
		}

		tasks := make([]entity.TemplateTask, len(source.Tasks))
		for i, t := range source.Tasks {
			t.ID = uuid.New().String()
			t.TemplateVersionID = draft.ID
			t.OwnerRole = copyPtr(t.OwnerRole)
			t.DueOffsetDays = copyPtr(t.DueOffsetDays)
			t.CreatedAt = now
			t.UpdatedAt = now
			tasks[i] = t
		}
		if err := tx.Template.CreateTasks(ctx, tasks); err != nil {
			return err
		}
		if err := tx.Template.Touch(ctx, template.ID, now); err != nil {
			return err
		}
		draft, err = tx.Template.FindVersion(ctx, draft.ID)
		return err
	})
	if err != nil {
		return nil, fail(s.logger, "create draft version", err)
	}

	s.logger.Info("template draft version created",
		zap.String("template_id", templateID),
		zap.Int("version", draft.VersionNumber))
	return draft, nil
}

// ReplaceDraftTasks 替换草稿版本的任务列表，已发布版本不可修改
func (s *TemplateService) ReplaceDraftTasks(ctx context.Context, templateID, versionID string, inputs []TemplateTaskInput) (*entity.TemplateVersion, error) {
	var version *entity.TemplateVersion
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		template, err := tx.Template.FindForPublish(ctx, templateID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("template not found")
		}
		if err != nil {
			return err
		}

		var target *entity.TemplateVersion
		for i := range template.Versions {
			if template.Versions[i].ID == versionID {
				target = &template.Versions[i]
				break
			}
		}
		if target == nil {
			return notFound("template version not found")
		}
		if target.IsPublished() {
			return precondition("template version is published")
		}

		now := time.Now().UTC()
		tasks, err := buildTemplateTasks(target.ID, template.Department, inputs, now)
		if err != nil {
			return err
		}
		if err := tx.Template.DeleteVersionTasks(ctx, target.ID); err != nil {
			return err
		}
		if err := tx.Template.CreateTasks(ctx, tasks); err != nil {
			return err
		}
		if err := tx.Template.Touch(ctx, template.ID, now); err != nil {
			return err
		}
		version, err = tx.Template.FindVersion(ctx, target.ID)
		return err
	})
	if err != nil {
		return nil, fail(s.logger, "replace draft tasks", err)
	}
	return version, nil
}

// buildTemplateTasks validates inputs and applies defaults: order falls back
// to the list index, department to the template's, priority to MED and
// isRequired to true.
func buildTemplateTasks(versionID, department string, inputs []TemplateTaskInput, now time.Time) ([]entity.TemplateTask, error) {
	tasks := make([]entity.TemplateTask, 0, len(inputs))
	for i, in := range inputs {
		title := strings.TrimSpace(in.Title)
		if title == "" {
			return nil, validationf("task %d: title is required", i+1)
		}

		priority := in.Priority
		if priority == "" {
			priority = entity.PriorityMed
		}
		if !priority.Valid() {
			return nil, validationf("task %d: invalid priority %q", i+1, priority)
		}

		var ownerRole *entity.OwnerRole
		if in.OwnerRole != nil && *in.OwnerRole != "" {
			if !in.OwnerRole.Valid() {
				return nil, validationf("task %d: invalid ownerRole %q", i+1, *in.OwnerRole)
			}
			ownerRole = copyPtr(in.OwnerRole)
		}

		taskDept := strings.TrimSpace(in.Department)
		if taskDept == "" {
			taskDept = department
		}
		order := i
		if in.Order != nil {
			order = *in.Order
		}
		required := true
		if in.IsRequired != nil {
			required = *in.IsRequired
		}

		tasks = append(tasks, entity.TemplateTask{
			ID:                uuid.New().String(),
			TemplateVersionID: versionID,
			Title:             title,
			Department:        taskDept,
			OwnerRole:         ownerRole,
			DueOffsetDays:     copyPtr(in.DueOffsetDays),
			Priority:          priority,
			IsRequired:        required,
			SortOrder:         order,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	return tasks, nil
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// trimOptional returns nil for absent or blank strings.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
