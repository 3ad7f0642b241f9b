package entity

import "time"

// Case 员工入职案例
type Case struct {
	ID                string     `json:"id" gorm:"primaryKey;size:36"`
	Title             string     `json:"title" gorm:"size:200;not null"`
	EmployeeEmail     string     `json:"employeeEmail" gorm:"size:200;not null;index"`
	Department        string     `json:"department" gorm:"size:100;not null;index"`
	Status            CaseStatus `json:"status" gorm:"size:20;not null;index"`
	StartDate         *time.Time `json:"startDate"`
	TemplateVersionID *string    `json:"templateVersionId" gorm:"size:36;index"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`

	// 关联
	TemplateVersion *TemplateVersion `json:"templateVersion,omitempty" gorm:"foreignKey:TemplateVersionID"`
	Tasks           []Task           `json:"tasks,omitempty" gorm:"foreignKey:CaseID"`

	TaskCount int64 `json:"taskCount" gorm:"-"`
}

func (Case) TableName() string {
	return "cases"
}
