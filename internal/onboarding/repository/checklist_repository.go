package repository

import (
	"context"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"gorm.io/gorm"
)

// ChecklistRepository 检查项仓库
type ChecklistRepository struct {
	db *gorm.DB
}

func NewChecklistRepository(db *gorm.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

func (r *ChecklistRepository) Create(ctx context.Context, item *entity.ChecklistItem) error {
	return classify(r.db.WithContext(ctx).Create(item).Error)
}

// FindForUpdate 加行锁读取检查项
func (r *ChecklistRepository) FindForUpdate(ctx context.Context, id string) (*entity.ChecklistItem, error) {
	var item entity.ChecklistItem
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, classify(err)
	}
	return &item, nil
}

// ListByTask 按创建时间正序
func (r *ChecklistRepository) ListByTask(ctx context.Context, taskID string) ([]entity.ChecklistItem, error) {
	var items []entity.ChecklistItem
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, classify(err)
}

func (r *ChecklistRepository) Update(ctx context.Context, item *entity.ChecklistItem) error {
	return classify(r.db.WithContext(ctx).Save(item).Error)
}
