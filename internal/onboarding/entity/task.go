package entity

import "time"

// Task 入职任务
type Task struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	CaseID          *string    `json:"caseId" gorm:"size:36;index"`
	Title           string     `json:"title" gorm:"size:200;not null"`
	Department      string     `json:"department" gorm:"size:100;not null;index"`
	Status          TaskStatus `json:"status" gorm:"size:20;not null;index"`
	Priority        Priority   `json:"priority" gorm:"size:10;not null"`
	IsRequired      bool       `json:"isRequired" gorm:"not null"`
	OwnerRole       *OwnerRole `json:"ownerRole" gorm:"size:30"`
	AssignedToEmail *string    `json:"assignedToEmail" gorm:"size:200;index"`
	DueDate         *time.Time `json:"dueDate"`
	EvidenceNote    *string    `json:"evidenceNote" gorm:"type:text"`
	EvidenceURL     *string    `json:"evidenceUrl" gorm:"column:evidence_url;size:1024"`
	Sequence        int        `json:"sequence" gorm:"not null;default:0"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	ChecklistItems []ChecklistItem `json:"checklistItems,omitempty" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

func (Task) TableName() string {
	return "tasks"
}

// HasEvidence reports whether a note or URL is attached.
func (t *Task) HasEvidence() bool {
	return (t.EvidenceNote != nil && *t.EvidenceNote != "") ||
		(t.EvidenceURL != nil && *t.EvidenceURL != "")
}

// ChecklistItem 任务检查项
type ChecklistItem struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	TaskID      string     `json:"taskId" gorm:"size:36;not null;index"`
	Label       string     `json:"label" gorm:"size:500;not null"`
	Completed   bool       `json:"completed" gorm:"not null"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (ChecklistItem) TableName() string {
	return "checklist_items"
}

// TaskActivity 任务操作日志
type TaskActivity struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	TaskID     string    `json:"taskId" gorm:"size:36;not null;index"`
	CaseID     *string   `json:"caseId" gorm:"size:36;index"`
	Action     string    `json:"action" gorm:"size:50;not null"` // create/status_change/evidence/checklist
	FromStatus string    `json:"fromStatus" gorm:"size:20"`
	ToStatus   string    `json:"toStatus" gorm:"size:20"`
	Content    string    `json:"content" gorm:"type:text"`
	OperatorID string    `json:"operatorId" gorm:"size:100"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (TaskActivity) TableName() string {
	return "task_activities"
}
