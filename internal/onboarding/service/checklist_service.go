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

// ChecklistService 任务检查项服务
type ChecklistService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewChecklistService(repos *repository.Repositories, logger *zap.Logger) *ChecklistService {
	return &ChecklistService{repos: repos, logger: logger}
}

func (s *ChecklistService) requireTask(ctx context.Context, taskID string) error {
	ok, err := s.repos.Task.Exists(ctx, taskID)
	if err != nil {
		return fail(s.logger, "find task", err)
	}
	if !ok {
		return notFound("task not found")
	}
	return nil
}

// ListChecklistItems 按创建时间正序
func (s *ChecklistService) ListChecklistItems(ctx context.Context, taskID string) ([]entity.ChecklistItem, error) {
	if err := s.requireTask(ctx, taskID); err != nil {
		return nil, err
	}
	items, err := s.repos.Checklist.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fail(s.logger, "list checklist", err)
	}
	return items, nil
}

// CreateChecklistItem 新增检查项
func (s *ChecklistService) CreateChecklistItem(ctx context.Context, taskID, label string) (*entity.ChecklistItem, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, validationf("label is required")
	}
	if err := s.requireTask(ctx, taskID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &entity.ChecklistItem{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Label:     label,
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repos.Checklist.Create(ctx, item); err != nil {
		return nil, fail(s.logger, "create checklist item", err)
	}
	return item, nil
}

// UpdateChecklistItem updates label and/or completion. completedAt is stamped
// when an item becomes completed and cleared when it is reopened.
func (s *ChecklistService) UpdateChecklistItem(ctx context.Context, taskID, itemID string, patch ChecklistPatch) (*entity.ChecklistItem, error) {
	if patch.IsEmpty() {
		return nil, validationf("no fields to update")
	}

	var label string
	if patch.Label.Set {
		label = strings.TrimSpace(patch.Label.Value)
		if patch.Label.Null || label == "" {
			return nil, validationf("label cannot be empty")
		}
	}

	var item *entity.ChecklistItem
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		item, err = tx.Checklist.FindForUpdate(ctx, itemID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && item.TaskID != taskID) {
			return notFound("checklist item not found")
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if patch.Label.Set {
			item.Label = label
		}
		if patch.Completed.Set {
			completed := !patch.Completed.Null && patch.Completed.Value
			switch {
			case completed && !item.Completed:
				item.CompletedAt = &now
			case !completed:
				item.CompletedAt = nil
			}
			item.Completed = completed
		}
		item.UpdatedAt = now
		return tx.Checklist.Update(ctx, item)
	})
	if err != nil {
		return nil, fail(s.logger, "update checklist item", err)
	}
	return item, nil
}

// ToggleChecklistItem 切换完成状态
func (s *ChecklistService) ToggleChecklistItem(ctx context.Context, taskID, itemID string, completed bool) (*entity.ChecklistItem, error) {
	return s.UpdateChecklistItem(ctx, taskID, itemID, ChecklistPatch{Completed: Value(completed)})
}
