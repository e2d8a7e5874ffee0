// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"interview-prep-workers/internal/common/validation"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &reg, nil
}

// Save writes the registry back with LastUpdated stamped to now.
func (r *ActivityRegistry) Save(path string) error {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

func (r *ActivityRegistry) FindByID(id string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Add appends a new activity; ids and task types must be unique.
func (r *ActivityRegistry) Add(a Activity) error {
	if err := validateActivity(a); err != nil {
		return err
	}
	if _, ok := r.FindByID(a.ID); ok {
		return fmt.Errorf("activity %q already exists", a.ID)
	}
	if _, ok := r.Find(a.TaskType); ok {
		return fmt.Errorf("task type %q already registered", a.TaskType)
	}
	r.Activities = append(r.Activities, a)
	return nil
}

// Validate checks every activity and reports the first problem found.
func (r *ActivityRegistry) Validate() error {
	ids := map[string]bool{}
	types := map[string]bool{}
	for _, a := range r.Activities {
		if err := validateActivity(a); err != nil {
			return err
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity id %q", a.ID)
		}
		if types[a.TaskType] {
			return fmt.Errorf("duplicate task type %q", a.TaskType)
		}
		ids[a.ID] = true
		types[a.TaskType] = true
	}
	return nil
}

// CheckRunnable returns an error unless taskType is registered and implemented.
func (r *ActivityRegistry) CheckRunnable(taskType string) error {
	a, ok := r.Find(taskType)
	if !ok {
		return fmt.Errorf("task type %q is not registered", taskType)
	}
	if !a.Runnable() {
		return fmt.Errorf("task type %q is %s", taskType, a.ImplementationStatus)
	}
	return nil
}

func validateActivity(a Activity) error {
	if a.ID == "" {
		return fmt.Errorf("activity id is required")
	}
	if err := validation.ValidateTaskType(a.TaskType); err != nil {
		return fmt.Errorf("activity %q: %w", a.ID, err)
	}
	if !validStatuses[a.ImplementationStatus] {
		return fmt.Errorf("activity %q: unknown implementation status %q", a.ID, a.ImplementationStatus)
	}
	if a.Timeout != "" {
		if _, err := time.ParseDuration(a.Timeout); err != nil {
			return fmt.Errorf("activity %q: invalid timeout %q", a.ID, a.Timeout)
		}
	}
	return nil
}

// Update sets one named field of the activity with the given id.
func (r *ActivityRegistry) Update(id, field, value string) error {
	a, ok := r.FindByID(id)
	if !ok {
		return fmt.Errorf("activity %q not found", id)
	}

	updated := *a
	switch field {
	case "status":
		updated.ImplementationStatus = value
	case "version":
		updated.Version = value
	case "displayName":
		updated.DisplayName = value
	case "description":
		updated.Description = value
	case "category":
		updated.Category = value
	case "taskType":
		updated.TaskType = value
	case "timeout":
		updated.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		updated.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := validateActivity(updated); err != nil {
		return err
	}
	*a = updated
	return nil
}
