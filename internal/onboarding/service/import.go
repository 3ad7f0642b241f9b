package service

import (
	"context"
	"fmt"
	"io"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// TemplateFile is the YAML document accepted by ImportTemplates.
//
//	templates:
//	  - name: Engineering onboarding
//	    department: Engineering
//	    publish: true
//	    tasks:
//	      - title: Laptop setup
//	        ownerRole: SYS_ADMIN
//	        dueOffsetDays: 0
type TemplateFile struct {
	Templates []TemplateDefinition `yaml:"templates"`
}

// TemplateDefinition 模板定义，Publish 为 true 时导入后立即发布
type TemplateDefinition struct {
	CreateTemplateInput `yaml:",inline"`
	Publish             bool `yaml:"publish"`
}

// ImportTemplates creates every template in a YAML document. Each template is
// created in its own transaction; the first failure stops the import and the
// templates created so far are returned.
func (s *TemplateService) ImportTemplates(ctx context.Context, r io.Reader) ([]*entity.Template, error) {
	var file TemplateFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, validationf("invalid template file: %v", err)
	}
	if len(file.Templates) == 0 {
		return nil, validationf("template file has no templates")
	}

	imported := make([]*entity.Template, 0, len(file.Templates))
	for i, def := range file.Templates {
		template, err := s.CreateTemplate(ctx, def.CreateTemplateInput)
		if err != nil {
			return imported, fmt.Errorf("template %d (%s): %w", i+1, def.Name, err)
		}
		if def.Publish {
			template, err = s.PublishTemplate(ctx, template.ID)
			if err != nil {
				return imported, fmt.Errorf("publish template %d (%s): %w", i+1, def.Name, err)
			}
		}
		imported = append(imported, template)
	}

	s.logger.Info("templates imported", zap.Int("count", len(imported)))
	return imported, nil
}
