package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// CreateCaseInput 创建案例输入
type CreateCaseInput struct {
	Title             string
	EmployeeEmail     string
	Department        string
	StartDate         *time.Time
	TemplateVersionID *string
}

// CaseService 案例服务
type CaseService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewCaseService 创建案例服务
func NewCaseService(repos *repository.Repositories, logger *zap.Logger) *CaseService {
	return &CaseService{repos: repos, logger: logger}
}

// CreateCase creates a case and, when a published template version is given,
// materializes its tasks. Everything happens in one transaction.
func (s *CaseService) CreateCase(ctx context.Context, input CreateCaseInput) (*entity.Case, error) {
	title := strings.TrimSpace(input.Title)
	email := strings.TrimSpace(input.EmployeeEmail)
	department := strings.TrimSpace(input.Department)
	if title == "" || email == "" || department == "" {
		return nil, validationf("title, employeeEmail and department are required")
	}

	now := time.Now().UTC()
	c := &entity.Case{
		ID:            uuid.New().String(),
		Title:         title,
		EmployeeEmail: email,
		Department:    department,
		Status:        entity.CaseStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if input.StartDate != nil {
		start := input.StartDate.UTC()
		c.StartDate = &start
	}
	versionID := ""
	if input.TemplateVersionID != nil {
		versionID = strings.TrimSpace(*input.TemplateVersionID)
	}

	var taskCount int
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var version *entity.TemplateVersion
		if versionID != "" {
			v, err := tx.Template.FindVersion(ctx, versionID)
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("template version not found")
			}
			if err != nil {
				return err
			}
			if !v.IsPublished() {
				return precondition("template version not published")
			}
			version = v
			c.TemplateVersionID = &v.ID
		}

		if err := tx.Case.Create(ctx, c); err != nil {
			return err
		}
		tasks := materializeTasks(c, version, now)
		taskCount = len(tasks)
		return tx.Task.CreateBatch(ctx, tasks)
	})
	if err != nil {
		return nil, fail(s.logger, "create case", err)
	}

	s.logger.Info("case created",
		zap.String("case_id", c.ID),
		zap.String("template_version_id", versionID),
		zap.Int("tasks", taskCount))
	return s.GetCase(ctx, c.ID)
}

// GetCase 获取案例详情（任务按创建时间倒序）
func (s *CaseService) GetCase(ctx context.Context, id string) (*entity.Case, error) {
	c, err := s.repos.Case.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("case not found")
	}
	if err != nil {
		return nil, fail(s.logger, "get case", err)
	}
	return c, nil
}

// ListCases 获取案例列表
func (s *CaseService) ListCases(ctx context.Context, filter repository.CaseFilter) ([]entity.Case, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, validationf("invalid status %q", st)
		}
	}
	cases, err := s.repos.Case.List(ctx, filter)
	if err != nil {
		return nil, fail(s.logger, "list cases", err)
	}
	return cases, nil
}

// UpdateCaseStatus 更新案例状态，模板版本关联不变
func (s *CaseService) UpdateCaseStatus(ctx context.Context, id string, status entity.CaseStatus) (*entity.Case, error) {
	if !status.Valid() {
		return nil, validationf("invalid status")
	}
	err := s.repos.Case.UpdateStatus(ctx, id, status, time.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("case not found")
	}
	if err != nil {
		return nil, fail(s.logger, "update case status", err)
	}
	s.logger.Info("case status updated", zap.String("case_id", id), zap.String("status", string(status)))
	return s.GetCase(ctx, id)
}

var caseExportHeaders = []string{
	"Title", "Department", "Status", "Priority", "Required", "Owner Role", "Assignee", "Due Date", "Evidence",
}

// ExportCase renders a case and its tasks as an xlsx workbook.
func (s *CaseService) ExportCase(ctx context.Context, id string) (*excelize.File, string, error) {
	c, err := s.GetCase(ctx, id)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "Tasks"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range caseExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	done := 0
	for rowIdx, task := range c.Tasks {
		row := rowIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), task.Title)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), task.Department)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), string(task.Status))
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), string(task.Priority))
		required := "No"
		if task.IsRequired {
			required = "Yes"
		}
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), required)
		if task.OwnerRole != nil {
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), string(*task.OwnerRole))
		}
		if task.AssignedToEmail != nil {
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), *task.AssignedToEmail)
		}
		if task.DueDate != nil {
			f.SetCellValue(sheet, fmt.Sprintf("H%d", row), task.DueDate.Format("2006-01-02"))
		}
		switch {
		case task.EvidenceURL != nil:
			f.SetCellValue(sheet, fmt.Sprintf("I%d", row), *task.EvidenceURL)
		case task.EvidenceNote != nil:
			f.SetCellValue(sheet, fmt.Sprintf("I%d", row), *task.EvidenceNote)
		}
		if task.Status == entity.TaskStatusDone {
			done++
		}
	}

	summaryRow := len(c.Tasks) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), c.EmployeeEmail)
	f.SetCellValue(sheet, fmt.Sprintf("C%d", summaryRow), fmt.Sprintf("%d/%d done", done, len(c.Tasks)))
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("I%d", summaryRow), summaryStyle)

	f.SetColWidth(sheet, "A", "A", 40)
	f.SetColWidth(sheet, "G", "I", 30)

	filename := fmt.Sprintf("case_%s_%s.xlsx", c.ID[:8], time.Now().Format("20060102"))
	return f, filename, nil
}
