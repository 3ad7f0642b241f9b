package entity

// Models returns every persisted entity in migration order.
func Models() []interface{} {
	return []interface{}{
		&Template{},
		&TemplateVersion{},
		&TemplateTask{},
		&Case{},
		&Task{},
		&ChecklistItem{},
		&TaskActivity{},
	}
}
