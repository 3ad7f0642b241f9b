package repository

import (
	"context"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"gorm.io/gorm"
)

// TaskFilter 任务筛选条件，Statuses 按 IN 匹配
type TaskFilter struct {
	CaseID          string
	Department      string
	Priority        entity.Priority
	AssignedToEmail string
	Statuses        []entity.TaskStatus
}

// TaskRepository 任务仓库
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓库
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// FindByID 根据ID查找任务
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*entity.Task, error) {
	var task entity.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, classify(err)
	}
	return &task, nil
}

// FindForUpdate 加行锁读取任务
func (r *TaskRepository) FindForUpdate(ctx context.Context, id string) (*entity.Task, error) {
	var task entity.Task
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, classify(err)
	}
	return &task, nil
}

// Exists 判断任务是否存在
func (r *TaskRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Task{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, classify(err)
	}
	return count > 0, nil
}

// Create 创建任务
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	return classify(r.db.WithContext(ctx).Omit("ChecklistItems").Create(task).Error)
}

// CreateBatch 批量创建任务
func (r *TaskRepository) CreateBatch(ctx context.Context, tasks []entity.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return classify(r.db.WithContext(ctx).Omit("ChecklistItems").Create(&tasks).Error)
}

// Update 更新任务
func (r *TaskRepository) Update(ctx context.Context, task *entity.Task) error {
	return classify(r.db.WithContext(ctx).Omit("ChecklistItems").Save(task).Error)
}

// List 获取任务列表
func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]entity.Task, error) {
	var tasks []entity.Task

	query := r.db.WithContext(ctx).Model(&entity.Task{})
	if filter.CaseID != "" {
		query = query.Where("case_id = ?", filter.CaseID)
	}
	if filter.Department != "" {
		query = query.Where("department = ?", filter.Department)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.AssignedToEmail != "" {
		query = query.Where("assigned_to_email = ?", filter.AssignedToEmail)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	err := query.Order("created_at DESC, sequence DESC").Find(&tasks).Error
	return tasks, classify(err)
}
