package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 默认部门（临时任务）
const defaultTaskDepartment = "HR"

// EvidenceStore persists evidence files and returns a URL for them.
type EvidenceStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// EvidenceUpload 证明材料上传
type EvidenceUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Note        *string
	Status      *entity.TaskStatus
}

// CreateTaskInput 临时任务输入
type CreateTaskInput struct {
	Title           string            `json:"title"`
	Department      string            `json:"department"`
	CaseID          *string           `json:"caseId"`
	Priority        entity.Priority   `json:"priority"`
	IsRequired      *bool             `json:"isRequired"`
	OwnerRole       *entity.OwnerRole `json:"ownerRole"`
	AssignedToEmail *string           `json:"assignedToEmail"`
	DueDate         *time.Time        `json:"-"`
}

// TaskService 任务服务
type TaskService struct {
	repos    *repository.Repositories
	evidence EvidenceStore
	logger   *zap.Logger
}

// NewTaskService 创建任务服务，evidence 可为空
func NewTaskService(repos *repository.Repositories, evidence EvidenceStore, logger *zap.Logger) *TaskService {
	return &TaskService{repos: repos, evidence: evidence, logger: logger}
}

// GetTask 获取任务
func (s *TaskService) GetTask(ctx context.Context, id string) (*entity.Task, error) {
	task, err := s.repos.Task.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("task not found")
	}
	if err != nil {
		return nil, fail(s.logger, "get task", err)
	}
	return task, nil
}

// ListTasks 获取任务列表
func (s *TaskService) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]entity.Task, error) {
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, validationf("invalid priority")
	}
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, validationf("invalid status %q", st)
		}
	}
	tasks, err := s.repos.Task.List(ctx, filter)
	if err != nil {
		return nil, fail(s.logger, "list tasks", err)
	}
	return tasks, nil
}

// CreateTask creates an ad-hoc task, optionally attached to a case.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput, operatorID string) (*entity.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationf("title is required")
	}
	department := strings.TrimSpace(input.Department)
	if department == "" {
		department = defaultTaskDepartment
	}
	priority := input.Priority
	if priority == "" {
		priority = entity.PriorityMed
	}
	if !priority.Valid() {
		return nil, validationf("invalid priority")
	}
	var ownerRole *entity.OwnerRole
	if input.OwnerRole != nil && *input.OwnerRole != "" {
		if !input.OwnerRole.Valid() {
			return nil, validationf("invalid ownerRole")
		}
		ownerRole = copyPtr(input.OwnerRole)
	}
	required := true
	if input.IsRequired != nil {
		required = *input.IsRequired
	}

	now := time.Now().UTC()
	task := &entity.Task{
		ID:              uuid.New().String(),
		CaseID:          trimOptional(input.CaseID),
		Title:           title,
		Department:      department,
		Status:          entity.TaskStatusNotStarted,
		Priority:        priority,
		IsRequired:      required,
		OwnerRole:       ownerRole,
		AssignedToEmail: trimOptional(input.AssignedToEmail),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if input.DueDate != nil {
		due := input.DueDate.UTC()
		task.DueDate = &due
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if task.CaseID != nil {
			ok, err := tx.Case.Exists(ctx, *task.CaseID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("case not found")
			}
		}
		if err := tx.Task.Create(ctx, task); err != nil {
			return err
		}
		return tx.Activity.Create(ctx, &entity.TaskActivity{
			TaskID:     task.ID,
			CaseID:     task.CaseID,
			Action:     "create",
			ToStatus:   string(task.Status),
			Content:    title,
			OperatorID: operatorID,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, fail(s.logger, "create task", err)
	}
	return task, nil
}

// UpdateTask applies a sparse patch. A required task can only end up DONE
// when the post-patch values carry evidence.
func (s *TaskService) UpdateTask(ctx context.Context, id string, patch TaskPatch, operatorID string) (*entity.Task, error) {
	if patch.IsEmpty() {
		return nil, validationf("no fields to update")
	}

	var task *entity.Task
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		task, err = tx.Task.FindForUpdate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("task not found")
		}
		if err != nil {
			return err
		}

		from := task.Status
		patch.apply(task)
		if task.Status == entity.TaskStatusDone && task.IsRequired && !task.HasEvidence() {
			return validationf("required tasks need evidence before completion")
		}

		now := time.Now().UTC()
		task.UpdatedAt = now
		if err := tx.Task.Update(ctx, task); err != nil {
			return err
		}

		if from != task.Status {
			if err := tx.Activity.Create(ctx, &entity.TaskActivity{
				TaskID:     task.ID,
				CaseID:     task.CaseID,
				Action:     "status_change",
				FromStatus: string(from),
				ToStatus:   string(task.Status),
				OperatorID: operatorID,
				CreatedAt:  now,
			}); err != nil {
				return err
			}
		}
		if patch.EvidenceNote.Set || patch.EvidenceURL.Set {
			return tx.Activity.Create(ctx, &entity.TaskActivity{
				TaskID:     task.ID,
				CaseID:     task.CaseID,
				Action:     "evidence",
				Content:    evidenceSummary(task),
				OperatorID: operatorID,
				CreatedAt:  now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fail(s.logger, "update task", err)
	}
	return task, nil
}

// ListTaskActivity 获取任务操作日志
func (s *TaskService) ListTaskActivity(ctx context.Context, taskID string) ([]entity.TaskActivity, error) {
	ok, err := s.repos.Task.Exists(ctx, taskID)
	if err != nil {
		return nil, fail(s.logger, "list task activity", err)
	}
	if !ok {
		return nil, notFound("task not found")
	}
	items, err := s.repos.Activity.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fail(s.logger, "list task activity", err)
	}
	return items, nil
}

// AttachEvidence stores an evidence file and records its URL on the task,
// optionally moving it to a new status in the same update.
func (s *TaskService) AttachEvidence(ctx context.Context, taskID string, upload EvidenceUpload, operatorID string) (*entity.Task, error) {
	if s.evidence == nil {
		return nil, precondition("evidence storage not configured")
	}
	if upload.Body == nil || upload.Filename == "" {
		return nil, validationf("file is required")
	}
	if upload.Status != nil && !upload.Status.Valid() {
		return nil, validationf("invalid status")
	}
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tasks/%s/%s_%s", taskID, uuid.New().String()[:8], path.Base(upload.Filename))
	url, err := s.evidence.Save(ctx, key, upload.Body, upload.Size, upload.ContentType)
	if err != nil {
		s.logger.Error("evidence upload failed", zap.String("task_id", taskID), zap.String("key", key), zap.Error(err))
		return nil, &Error{Kind: KindStoreUnavailable, Message: "evidence storage not reachable", Err: err}
	}
	s.logger.Info("evidence stored", zap.String("task_id", taskID), zap.String("key", key), zap.Int64("size", upload.Size))

	patch := TaskPatch{EvidenceURL: Value(url)}
	if note := trimOptional(upload.Note); note != nil {
		patch.EvidenceNote = Value(*note)
	}
	if upload.Status != nil {
		patch.Status = Value(*upload.Status)
	}
	task, err := s.UpdateTask(ctx, taskID, patch, operatorID)
	if err != nil {
		if delErr := s.evidence.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Warn("orphaned evidence object", zap.String("task_id", taskID), zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	return task, nil
}

func evidenceSummary(task *entity.Task) string {
	var parts []string
	if task.EvidenceNote != nil {
		parts = append(parts, "note: "+*task.EvidenceNote)
	}
	if task.EvidenceURL != nil {
		parts = append(parts, "url: "+*task.EvidenceURL)
	}
	if len(parts) == 0 {
		return "cleared"
	}
	return strings.Join(parts, "; ")
}
