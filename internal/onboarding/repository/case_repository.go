package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"gorm.io/gorm"
)

// CaseFilter 案例筛选条件
type CaseFilter struct {
	Department string
	Statuses   []entity.CaseStatus
}

// CaseRepository 案例仓库
type CaseRepository struct {
	db *gorm.DB
}

// NewCaseRepository 创建案例仓库
func NewCaseRepository(db *gorm.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create 创建案例
func (r *CaseRepository) Create(ctx context.Context, c *entity.Case) error {
	return classify(r.db.WithContext(ctx).Omit("TemplateVersion", "Tasks").Create(c).Error)
}

// FindByID 根据ID查找案例（含模板版本与任务，任务按创建时间倒序）
func (r *CaseRepository) FindByID(ctx context.Context, id string) (*entity.Case, error) {
	var c entity.Case
	err := r.db.WithContext(ctx).
		Preload("TemplateVersion").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, sequence DESC")
		}).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, classify(err)
	}
	c.TaskCount = int64(len(c.Tasks))
	return &c, nil
}

// Exists 判断案例是否存在
func (r *CaseRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Case{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, classify(err)
	}
	return count > 0, nil
}

// List 获取案例列表（含任务数）
func (r *CaseRepository) List(ctx context.Context, filter CaseFilter) ([]entity.Case, error) {
	var cases []entity.Case

	query := r.db.WithContext(ctx).Model(&entity.Case{})
	if filter.Department != "" {
		query = query.Where("department = ?", filter.Department)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	err := query.
		Preload("TemplateVersion").
		Order("created_at DESC").
		Find(&cases).Error
	if err != nil {
		return nil, classify(err)
	}
	if len(cases) == 0 {
		return cases, nil
	}

	ids := make([]string, len(cases))
	for i := range cases {
		ids[i] = cases[i].ID
	}
	var counts []struct {
		CaseID string `gorm:"column:case_id"`
		Total  int64  `gorm:"column:total"`
	}
	err = r.db.WithContext(ctx).
		Model(&entity.Task{}).
		Select("case_id, COUNT(*) AS total").
		Where("case_id IN ?", ids).
		Group("case_id").
		Scan(&counts).Error
	if err != nil {
		return nil, classify(err)
	}
	countMap := make(map[string]int64, len(counts))
	for _, c := range counts {
		countMap[c.CaseID] = c.Total
	}
	for i := range cases {
		cases[i].TaskCount = countMap[cases[i].ID]
	}
	return cases, nil
}

// UpdateStatus 更新案例状态
func (r *CaseRepository) UpdateStatus(ctx context.Context, id string, status entity.CaseStatus, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Case{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": at,
		})
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
