package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"gorm.io/gorm"
)

// TemplateRepository 模板仓库
type TemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository 创建模板仓库
func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func preloadVersionsWithTasks(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Order("version_number DESC")
		}).
		Preload("Versions.Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		})
}

// Create 创建模板
func (r *TemplateRepository) Create(ctx context.Context, template *entity.Template) error {
	return classify(r.db.WithContext(ctx).Omit("Versions").Create(template).Error)
}

// FindByID 根据ID查找模板（含版本及任务）
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*entity.Template, error) {
	var template entity.Template
	err := preloadVersionsWithTasks(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&template).Error
	if err != nil {
		return nil, classify(err)
	}
	return &template, nil
}

// FindForPublish loads the template row locked for update together with its
// versions, highest version first. Tasks are not loaded.
func (r *TemplateRepository) FindForPublish(ctx context.Context, id string) (*entity.Template, error) {
	var template entity.Template
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&template).Error; err != nil {
		return nil, classify(err)
	}
	if err := r.db.WithContext(ctx).
		Where("template_id = ?", id).
		Order("version_number DESC").
		Find(&template.Versions).Error; err != nil {
		return nil, classify(err)
	}
	return &template, nil
}

// List 获取模板列表
func (r *TemplateRepository) List(ctx context.Context) ([]entity.Template, error) {
	var templates []entity.Template
	err := preloadVersionsWithTasks(r.db.WithContext(ctx)).
		Order("updated_at DESC").
		Find(&templates).Error
	return templates, classify(err)
}

// CreateVersion 创建模板版本
func (r *TemplateRepository) CreateVersion(ctx context.Context, version *entity.TemplateVersion) error {
	return classify(r.db.WithContext(ctx).Omit("Tasks").Create(version).Error)
}

// FindVersion 根据ID查找模板版本（含任务）
func (r *TemplateRepository) FindVersion(ctx context.Context, id string) (*entity.TemplateVersion, error) {
	var version entity.TemplateVersion
	err := r.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&version).Error
	if err != nil {
		return nil, classify(err)
	}
	return &version, nil
}

// CreateTasks 批量创建模板任务
func (r *TemplateRepository) CreateTasks(ctx context.Context, tasks []entity.TemplateTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return classify(r.db.WithContext(ctx).Create(&tasks).Error)
}

// DeleteVersionTasks 删除版本下全部任务
func (r *TemplateRepository) DeleteVersionTasks(ctx context.Context, versionID string) error {
	return classify(r.db.WithContext(ctx).
		Where("template_version_id = ?", versionID).
		Delete(&entity.TemplateTask{}).Error)
}

// PublishVersion flips a DRAFT version to PUBLISHED. It reports false when
// the version was no longer a draft, i.e. a concurrent publish committed first.
func (r *TemplateRepository) PublishVersion(ctx context.Context, versionID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.TemplateVersion{}).
		Where("id = ? AND status = ?", versionID, entity.TemplateStatusDraft).
		Updates(map[string]interface{}{
			"status":       entity.TemplateStatusPublished,
			"published_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return false, classify(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkPublished points the template at a published version number.
func (r *TemplateRepository) MarkPublished(ctx context.Context, templateID string, versionNumber int, at time.Time) error {
	return classify(r.db.WithContext(ctx).
		Model(&entity.Template{}).
		Where("id = ?", templateID).
		Updates(map[string]interface{}{
			"status":                entity.TemplateStatusPublished,
			"latest_version_number": versionNumber,
			"updated_at":            at,
		}).Error)
}

// Touch bumps updated_at.
func (r *TemplateRepository) Touch(ctx context.Context, templateID string, at time.Time) error {
	return classify(r.db.WithContext(ctx).
		Model(&entity.Template{}).
		Where("id = ?", templateID).
		Update("updated_at", at).Error)
}
