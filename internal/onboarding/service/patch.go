package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
)

// Field is a tri-state patch value: absent (Set=false), explicitly null
// (Set && Null) or a value.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Value returns a present, non-null field.
func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a present field that clears the target.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// Ptr returns nil for absent or null fields.
func (f Field[T]) Ptr() *T {
	if !f.Set || f.Null {
		return nil
	}
	v := f.Value
	return &v
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// TaskPatch is a validated sparse update of a task.
type TaskPatch struct {
	Status          Field[entity.TaskStatus]
	Priority        Field[entity.Priority]
	AssignedToEmail Field[string]
	OwnerRole       Field[entity.OwnerRole]
	EvidenceNote    Field[string]
	EvidenceURL     Field[string]
	DueDate         Field[time.Time]
}

// IsEmpty reports whether no field is present.
func (p TaskPatch) IsEmpty() bool {
	return !p.Status.Set && !p.Priority.Set && !p.AssignedToEmail.Set && !p.OwnerRole.Set &&
		!p.EvidenceNote.Set && !p.EvidenceURL.Set && !p.DueDate.Set
}

type rawTaskPatch struct {
	Status          Field[string]      `json:"status"`
	Priority        Field[string]      `json:"priority"`
	AssignedToEmail Field[string]      `json:"assignedToEmail"`
	OwnerRole       Field[string]      `json:"ownerRole"`
	EvidenceNote    Field[string]      `json:"evidenceNote"`
	EvidenceURL     Field[string]      `json:"evidenceUrl"`
	DueDate         Field[interface{}] `json:"dueDate"`
}

// DecodeTaskPatch parses a JSON patch body, validating enum members once so
// the lifecycle engine only sees typed values.
func DecodeTaskPatch(data []byte) (TaskPatch, error) {
	var raw rawTaskPatch
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return TaskPatch{}, validationf("invalid request body")
		}
	}

	var patch TaskPatch
	if raw.Status.Set {
		status := entity.TaskStatus(raw.Status.Value)
		if raw.Status.Null || !status.Valid() {
			return TaskPatch{}, validationf("invalid status")
		}
		patch.Status = Value(status)
	}
	if raw.Priority.Set {
		priority := entity.Priority(raw.Priority.Value)
		if raw.Priority.Null || !priority.Valid() {
			return TaskPatch{}, validationf("invalid priority")
		}
		patch.Priority = Value(priority)
	}
	if raw.OwnerRole.Set {
		if raw.OwnerRole.Null || raw.OwnerRole.Value == "" {
			patch.OwnerRole = Null[entity.OwnerRole]()
		} else {
			role := entity.OwnerRole(raw.OwnerRole.Value)
			if !role.Valid() {
				return TaskPatch{}, validationf("invalid ownerRole")
			}
			patch.OwnerRole = Value(role)
		}
	}
	patch.AssignedToEmail = clearEmpty(raw.AssignedToEmail)
	patch.EvidenceNote = clearEmpty(raw.EvidenceNote)
	patch.EvidenceURL = clearEmpty(raw.EvidenceURL)
	if raw.DueDate.Set {
		if due, ok := parseInstant(raw.DueDate.Value); ok && !raw.DueDate.Null {
			patch.DueDate = Value(due)
		} else {
			patch.DueDate = Null[time.Time]()
		}
	}
	return patch, nil
}

// clearEmpty turns "" into an explicit null.
func clearEmpty(f Field[string]) Field[string] {
	if f.Set && !f.Null && f.Value == "" {
		return Null[string]()
	}
	return f
}

// ParseInstant accepts RFC 3339 timestamps and plain calendar dates (UTC).
func ParseInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseInstant(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		return ParseInstant(val)
	case float64:
		return time.UnixMilli(int64(val)).UTC(), true
	default:
		return time.Time{}, false
	}
}

// apply writes present fields onto task.
func (p TaskPatch) apply(task *entity.Task) {
	if p.Status.Set {
		task.Status = p.Status.Value
	}
	if p.Priority.Set {
		task.Priority = p.Priority.Value
	}
	if p.AssignedToEmail.Set {
		task.AssignedToEmail = p.AssignedToEmail.Ptr()
	}
	if p.OwnerRole.Set {
		task.OwnerRole = p.OwnerRole.Ptr()
	}
	if p.EvidenceNote.Set {
		task.EvidenceNote = p.EvidenceNote.Ptr()
	}
	if p.EvidenceURL.Set {
		task.EvidenceURL = p.EvidenceURL.Ptr()
	}
	if p.DueDate.Set {
		task.DueDate = p.DueDate.Ptr()
	}
}

// ChecklistPatch is a sparse update of a checklist item.
type ChecklistPatch struct {
	Label     Field[string] `json:"label"`
	Completed Field[bool]   `json:"completed"`
}

func (p ChecklistPatch) IsEmpty() bool {
	return !p.Label.Set && !p.Completed.Set
}
