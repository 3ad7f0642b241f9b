package repository

import (
	"context"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityRepository 任务操作日志仓库
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create 创建操作日志
func (r *ActivityRepository) Create(ctx context.Context, log *entity.TaskActivity) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	return classify(r.db.WithContext(ctx).Create(log).Error)
}

// ListByTask 查询某任务的操作日志，最新在前
func (r *ActivityRepository) ListByTask(ctx context.Context, taskID string) ([]entity.TaskActivity, error) {
	var items []entity.TaskActivity
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&items).Error
	return items, classify(err)
}
