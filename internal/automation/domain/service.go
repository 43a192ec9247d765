package domain

import (
	"context"
	"errors"
)

type CreateRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	TriggerType string      `json:"trigger_type"`
	Conditions  []Condition `json:"conditions,omitempty"`
	Actions     []Action    `json:"actions"`
	Status      string      `json:"status,omitempty"`
	CreatedBy   string      `json:"created_by,omitempty"`
}

type UpdateRequest struct {
	Name        *string      `json:"name,omitempty"`
	Description *string      `json:"description,omitempty"`
	TriggerType *string      `json:"trigger_type,omitempty"`
	Conditions  *[]Condition `json:"conditions,omitempty"`
	Actions     *[]Action    `json:"actions,omitempty"`
	Status      *string      `json:"status,omitempty"`
}

type ListRequest struct {
	Status      string
	TriggerType string
}

// ActionOutcome is the per-action record inside a run log.
type ActionOutcome struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type ExecutionResult struct {
	AutomationID    string          `json:"automation_id"`
	Status          string          `json:"status"`
	Actions         []ActionOutcome `json:"actions"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	ExecutionTimeMS int64           `json:"execution_time_ms"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Automation, error)
	Get(ctx context.Context, id string) (Automation, error)
	List(ctx context.Context, req ListRequest) ([]Automation, error)
	Update(ctx context.Context, id string, req UpdateRequest) error
	Delete(ctx context.Context, id string) error
	Trigger(ctx context.Context, triggerType string, data map[string]any) ([]ExecutionResult, error)
	Logs(ctx context.Context, automationID string, limit int) ([]RunLog, error)
}

var (
	ErrInvalidAutomation  = errors.New("invalid_automation")
	ErrInvalidStatus      = errors.New("invalid_automation_status")
	ErrInvalidTrigger     = errors.New("invalid_trigger")
	ErrAutomationNotFound = errors.New("automation_not_found")
)
