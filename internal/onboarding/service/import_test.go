package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
)

const templateYAML = `
templates:
  - name: Engineering onboarding
    department: Engineering
    publish: true
    tasks:
      - title: Laptop setup
        ownerRole: SYS_ADMIN
        dueOffsetDays: -1
        priority: HIGH
      - title: Buddy lunch
        isRequired: false
  - name: Sales onboarding
    department: Sales
    description: CRM and territory handover
`

func TestImportTemplates(t *testing.T) {
	env := setup(t)

	imported, err := env.svc.Template.ImportTemplates(context.Background(), strings.NewReader(templateYAML))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(imported) != 2 {
		t.Fatalf("Expected 2 templates, got %d", len(imported))
	}

	eng := imported[0]
	if eng.Status != entity.TemplateStatusPublished {
		t.Errorf("Expected engineering template published, got %s", eng.Status)
	}
	tasks := eng.Versions[0].Tasks
	if len(tasks) != 2 || *tasks[0].OwnerRole != entity.OwnerRoleSysAdmin || *tasks[0].DueOffsetDays != -1 ||
		tasks[0].Priority != entity.PriorityHigh || tasks[1].IsRequired {
		t.Errorf("unexpected tasks %+v", tasks)
	}

	sales := imported[1]
	if sales.Status != entity.TemplateStatusDraft || sales.Description == nil || *sales.Description != "CRM and territory handover" {
		t.Errorf("unexpected sales template %+v", sales)
	}
}

func TestImportTemplatesErrors(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	for name, doc := range map[string]string{
		"empty":         "templates: []\n",
		"unknown field": "templates:\n  - name: x\n    department: y\n    color: red\n",
		"not yaml":      "templates: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.svc.Template.ImportTemplates(ctx, strings.NewReader(doc))
			expectKind(t, err, KindValidation)
		})
	}

	imported, err := env.svc.Template.ImportTemplates(ctx, strings.NewReader(
		"templates:\n  - name: ok\n    department: HR\n  - name: broken\n    department: \"\"\n"))
	expectKind(t, err, KindValidation)
	if len(imported) != 1 {
		t.Errorf("Expected the first template to be kept, got %d", len(imported))
	}
}
