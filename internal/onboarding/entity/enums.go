package entity

// TemplateStatus 模板/模板版本状态
type TemplateStatus string

const (
	TemplateStatusDraft     TemplateStatus = "DRAFT"
	TemplateStatusPublished TemplateStatus = "PUBLISHED"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "NOT_STARTED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusBlocked    TaskStatus = "BLOCKED"
	TaskStatusDone       TaskStatus = "DONE"
)

// TaskStatuses lists every task status in lifecycle order.
var TaskStatuses = []TaskStatus{TaskStatusNotStarted, TaskStatusInProgress, TaskStatusBlocked, TaskStatusDone}

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Priority 优先级
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMed      Priority = "MED"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

var Priorities = []Priority{PriorityLow, PriorityMed, PriorityHigh, PriorityCritical}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// OwnerRole 任务负责角色
type OwnerRole string

const (
	OwnerRoleHRAdmin       OwnerRole = "HR_ADMIN"
	OwnerRoleDeptOwner     OwnerRole = "DEPT_OWNER"
	OwnerRoleHiringManager OwnerRole = "HIRING_MANAGER"
	OwnerRoleEmployee      OwnerRole = "EMPLOYEE"
	OwnerRoleSysAdmin      OwnerRole = "SYS_ADMIN"
)

var OwnerRoles = []OwnerRole{OwnerRoleHRAdmin, OwnerRoleDeptOwner, OwnerRoleHiringManager, OwnerRoleEmployee, OwnerRoleSysAdmin}

func (r OwnerRole) Valid() bool {
	for _, v := range OwnerRoles {
		if r == v {
			return true
		}
	}
	return false
}

// CaseStatus 入职案例状态
type CaseStatus string

const (
	CaseStatusOpen       CaseStatus = "OPEN"
	CaseStatusInProgress CaseStatus = "IN_PROGRESS"
	CaseStatusCompleted  CaseStatus = "COMPLETED"
	CaseStatusCancelled  CaseStatus = "CANCELLED"
)

var CaseStatuses = []CaseStatus{CaseStatusOpen, CaseStatusInProgress, CaseStatusCompleted, CaseStatusCancelled}

func (s CaseStatus) Valid() bool {
	for _, v := range CaseStatuses {
		if s == v {
			return true
		}
	}
	return false
}
