package entity

import "time"

// Template 入职任务模板
type Template struct {
	ID                  string         `json:"id" gorm:"primaryKey;size:36"`
	Name                string         `json:"name" gorm:"size:200;not null"`
	Department          string         `json:"department" gorm:"size:100;not null;index"`
	Description         *string        `json:"description" gorm:"type:text"`
	Status              TemplateStatus `json:"status" gorm:"size:20;not null"`
	LatestVersionNumber int            `json:"latestVersionNumber" gorm:"not null"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`

	Versions []TemplateVersion `json:"versions,omitempty" gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE"`
}

func (Template) TableName() string {
	return "templates"
}

// TemplateVersion 模板版本快照，发布后任务列表不可变
type TemplateVersion struct {
	ID            string         `json:"id" gorm:"primaryKey;size:36"`
	TemplateID    string         `json:"templateId" gorm:"size:36;not null;uniqueIndex:idx_template_version_number,priority:1"`
	VersionNumber int            `json:"versionNumber" gorm:"not null;uniqueIndex:idx_template_version_number,priority:2"`
	Status        TemplateStatus `json:"status" gorm:"size:20;not null"`
	PublishedAt   *time.Time     `json:"publishedAt"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	Tasks []TemplateTask `json:"tasks,omitempty" gorm:"foreignKey:TemplateVersionID;constraint:OnDelete:CASCADE"`
}

func (TemplateVersion) TableName() string {
	return "template_versions"
}

// IsPublished reports whether the version has been frozen.
func (v *TemplateVersion) IsPublished() bool {
	return v.Status == TemplateStatusPublished
}

// TemplateTask 模板任务，DueOffsetDays 相对案例开始日期
type TemplateTask struct {
	ID                string     `json:"id" gorm:"primaryKey;size:36"`
	TemplateVersionID string     `json:"templateVersionId" gorm:"size:36;not null;index"`
	Title             string     `json:"title" gorm:"size:200;not null"`
	Department        string     `json:"department" gorm:"size:100;not null"`
	OwnerRole         *OwnerRole `json:"ownerRole" gorm:"size:30"`
	DueOffsetDays     *int       `json:"dueOffsetDays"`
	Priority          Priority   `json:"priority" gorm:"size:10;not null"`
	IsRequired        bool       `json:"isRequired" gorm:"not null"`
	SortOrder         int        `json:"order" gorm:"not null"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (TemplateTask) TableName() string {
	return "template_tasks"
}
