package service

import (
	"sort"
	"time"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"github.com/google/uuid"
)

const day = 24 * time.Hour

// resolveDueDate returns start + offsetDays whole days, or nil when either
// side is missing.
func resolveDueDate(start *time.Time, offsetDays *int) *time.Time {
	if start == nil || offsetDays == nil {
		return nil
	}
	due := start.UTC().Add(time.Duration(*offsetDays) * day)
	return &due
}

// materializeTasks copies the tasks of a published version into concrete
// tasks of case c, in ascending template order.
func materializeTasks(c *entity.Case, version *entity.TemplateVersion, now time.Time) []entity.Task {
	if version == nil || len(version.Tasks) == 0 {
		return nil
	}

	source := make([]entity.TemplateTask, len(version.Tasks))
	copy(source, version.Tasks)
	sort.SliceStable(source, func(i, j int) bool {
		return source[i].SortOrder < source[j].SortOrder
	})

	caseID := c.ID
	tasks := make([]entity.Task, len(source))
	for i, tt := range source {
		tasks[i] = entity.Task{
			ID:         uuid.New().String(),
			CaseID:     &caseID,
			Title:      tt.Title,
			Department: tt.Department,
			Status:     entity.TaskStatusNotStarted,
			Priority:   tt.Priority,
			IsRequired: tt.IsRequired,
			OwnerRole:  copyPtr(tt.OwnerRole),
			DueDate:    resolveDueDate(c.StartDate, tt.DueOffsetDays),
			Sequence:   i,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return tasks
}
