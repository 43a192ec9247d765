// Package domain contains the automation rule model: a trigger type, a
// flat condition list (implicit AND), and an ordered action list.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDraft    Status = "draft"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDraft:
		return true
	}
	return false
}

// Condition compares a dot-path field of the trigger payload against a
// literal value. There is no OR or grouping support.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpGreater     = ">"
	OpGreaterEq   = ">="
	OpLess        = "<"
	OpLessEq      = "<="
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpStartsWith  = "starts_with"
	OpEndsWith    = "ends_with"
)

// Action is one step of an automation. Params are type-specific: webhook
// takes url/method/body/headers, email takes to/subject/body, the rest
// are passed to the registered handler as-is.
type Action struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

const (
	ActionWebhook   = "webhook"
	ActionEmail     = "email"
	ActionCRM       = "crm"
	ActionSMS       = "sms"
	ActionMarketing = "marketing"
)

type Automation struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:text;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	TriggerType string         `gorm:"type:text;not null;index" json:"trigger_type"`
	Conditions  datatypes.JSON `gorm:"type:jsonb" json:"conditions,omitempty"`
	Actions     datatypes.JSON `gorm:"type:jsonb" json:"actions"`
	Status      Status         `gorm:"type:text;not null;default:'draft';index" json:"status"`
	CreatedBy   snowflake.ID   `json:"created_by,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Automation) TableName() string { return "automations" }

// RunLog records one execution of an automation. Logs are removed together
// with their parent automation.
type RunLog struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	AutomationID    snowflake.ID      `gorm:"not null;index" json:"automation_id"`
	TriggerData     datatypes.JSONMap `gorm:"type:jsonb" json:"trigger_data"`
	ActionsExecuted datatypes.JSON    `gorm:"type:jsonb" json:"actions_executed"`
	Status          string            `gorm:"type:text;not null" json:"status"`
	ErrorMessage    string            `gorm:"type:text" json:"error_message,omitempty"`
	ExecutionTimeMS int64             `gorm:"not null" json:"execution_time_ms"`
	TriggeredAt     time.Time         `gorm:"not null;index" json:"triggered_at"`
}

// TableName sets the database table name.
func (RunLog) TableName() string { return "automation_run_logs" }

const (
	RunSuccess = "success"
	RunPartial = "partial"
	RunFailure = "failure"
)
