package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	automationdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/automation/domain"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/clock"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/observability/metrics"
	subscriptiondomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     automationdomain.Repository
	Executor *Executor
	Metrics  *metrics.Metrics `optional:"true"`
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     automationdomain.Repository
	executor *Executor
	metrics  *metrics.Metrics
}

func NewService(p ServiceParam) automationdomain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("automation.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		executor: p.Executor,
		metrics:  p.Metrics,
	}
}

func (s *service) Create(ctx context.Context, req automationdomain.CreateRequest) (automationdomain.Automation, error) {
	if req.Name == "" || req.TriggerType == "" {
		return automationdomain.Automation{}, automationdomain.ErrInvalidAutomation
	}

	status := automationdomain.Status(req.Status)
	if req.Status == "" {
		status = automationdomain.StatusDraft
	}
	if !status.Valid() {
		return automationdomain.Automation{}, automationdomain.ErrInvalidStatus
	}

	conditions, err := json.Marshal(req.Conditions)
	if err != nil {
		return automationdomain.Automation{}, err
	}
	actions, err := json.Marshal(req.Actions)
	if err != nil {
		return automationdomain.Automation{}, err
	}

	var createdBy snowflake.ID
	if req.CreatedBy != "" {
		createdBy, err = subscriptiondomain.ParseID(req.CreatedBy, automationdomain.ErrInvalidAutomation)
		if err != nil {
			return automationdomain.Automation{}, err
		}
	}

	now := s.clock.Now()
	automation := automationdomain.Automation{
		ID:          s.genID.Generate(),
		Name:        req.Name,
		Description: req.Description,
		TriggerType: req.TriggerType,
		Conditions:  datatypes.JSON(conditions),
		Actions:     datatypes.JSON(actions),
		Status:      status,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &automation); err != nil {
		return automationdomain.Automation{}, err
	}
	return automation, nil
}

func (s *service) Get(ctx context.Context, idStr string) (automationdomain.Automation, error) {
	id, err := subscriptiondomain.ParseID(idStr, automationdomain.ErrInvalidAutomation)
	if err != nil {
		return automationdomain.Automation{}, err
	}
	automation, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return automationdomain.Automation{}, err
	}
	if automation == nil {
		return automationdomain.Automation{}, automationdomain.ErrAutomationNotFound
	}
	return *automation, nil
}

func (s *service) List(ctx context.Context, req automationdomain.ListRequest) ([]automationdomain.Automation, error) {
	status := automationdomain.Status(req.Status)
	if req.Status != "" && !status.Valid() {
		return nil, automationdomain.ErrInvalidStatus
	}
	return s.repo.List(ctx, s.db, status, req.TriggerType)
}

func (s *service) Update(ctx context.Context, idStr string, req automationdomain.UpdateRequest) error {
	id, err := subscriptiondomain.ParseID(idStr, automationdomain.ErrInvalidAutomation)
	if err != nil {
		return err
	}
	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return automationdomain.ErrAutomationNotFound
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Name != nil {
		if *req.Name == "" {
			return automationdomain.ErrInvalidAutomation
		}
		fields["name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.TriggerType != nil {
		if *req.TriggerType == "" {
			return automationdomain.ErrInvalidAutomation
		}
		fields["trigger_type"] = *req.TriggerType
	}
	if req.Conditions != nil {
		encoded, err := json.Marshal(*req.Conditions)
		if err != nil {
			return err
		}
		fields["conditions"] = datatypes.JSON(encoded)
	}
	if req.Actions != nil {
		encoded, err := json.Marshal(*req.Actions)
		if err != nil {
			return err
		}
		fields["actions"] = datatypes.JSON(encoded)
	}
	if req.Status != nil {
		status := automationdomain.Status(*req.Status)
		if !status.Valid() {
			return automationdomain.ErrInvalidStatus
		}
		fields["status"] = status
	}
	return s.repo.UpdateFields(ctx, s.db, id, fields)
}

func (s *service) Delete(ctx context.Context, idStr string) error {
	id, err := subscriptiondomain.ParseID(idStr, automationdomain.ErrInvalidAutomation)
	if err != nil {
		return err
	}
	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return automationdomain.ErrAutomationNotFound
	}
	// Run logs go with their automation.
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteLogs(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, id)
	})
}

// Trigger evaluates every active automation of the given type against the
// payload and executes the matching ones. Action failures are recorded,
// never returned.
func (s *service) Trigger(ctx context.Context, triggerType string, data map[string]any) ([]automationdomain.ExecutionResult, error) {
	if triggerType == "" {
		return nil, automationdomain.ErrInvalidTrigger
	}

	automations, err := s.repo.List(ctx, s.db, automationdomain.StatusActive, triggerType)
	if err != nil {
		return nil, err
	}

	var results []automationdomain.ExecutionResult
	for _, automation := range automations {
		var conditions []automationdomain.Condition
		if len(automation.Conditions) > 0 {
			if err := json.Unmarshal(automation.Conditions, &conditions); err != nil {
				s.log.Error("malformed conditions",
					zap.String("automation_id", automation.ID.String()),
					zap.Error(err))
				continue
			}
		}
		if !evalConditions(conditions, data) {
			continue
		}

		result := s.run(ctx, automation, data)
		results = append(results, result)
	}
	return results, nil
}

func (s *service) run(ctx context.Context, automation automationdomain.Automation, data map[string]any) automationdomain.ExecutionResult {
	started := time.Now()

	var actions []automationdomain.Action
	result := automationdomain.ExecutionResult{AutomationID: automation.ID.String()}

	if err := json.Unmarshal(automation.Actions, &actions); err != nil {
		result.Status = automationdomain.RunFailure
		result.ErrorMessage = err.Error()
	} else {
		var errs []string
		for _, action := range actions {
			outcome := s.executor.Execute(ctx, action, data)
			result.Actions = append(result.Actions, outcome)
			if !outcome.Success {
				errs = append(errs, outcome.Error)
			}
		}
		switch {
		case len(errs) == 0:
			result.Status = automationdomain.RunSuccess
		case len(errs) == len(actions):
			result.Status = automationdomain.RunFailure
		default:
			result.Status = automationdomain.RunPartial
		}
		result.ErrorMessage = strings.Join(errs, "; ")
	}
	result.ExecutionTimeMS = time.Since(started).Milliseconds()
	s.metrics.RecordAutomationRun(ctx, result.Status)

	outcomes, err := json.Marshal(result.Actions)
	if err != nil {
		outcomes = []byte("[]")
	}
	runLog := automationdomain.RunLog{
		ID:              s.genID.Generate(),
		AutomationID:    automation.ID,
		TriggerData:     datatypes.JSONMap(data),
		ActionsExecuted: datatypes.JSON(outcomes),
		Status:          result.Status,
		ErrorMessage:    result.ErrorMessage,
		ExecutionTimeMS: result.ExecutionTimeMS,
		TriggeredAt:     s.clock.Now(),
	}
	if err := s.repo.InsertLog(ctx, s.db, &runLog); err != nil {
		s.log.Error("run log insert failed",
			zap.String("automation_id", automation.ID.String()),
			zap.Error(err))
	}

	s.log.Info("automation executed",
		zap.String("automation_id", automation.ID.String()),
		zap.String("name", automation.Name),
		zap.String("status", result.Status),
		zap.Int64("execution_time_ms", result.ExecutionTimeMS))
	return result
}

func (s *service) Logs(ctx context.Context, automationIDStr string, limit int) ([]automationdomain.RunLog, error) {
	id, err := subscriptiondomain.ParseID(automationIDStr, automationdomain.ErrInvalidAutomation)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.ListLogs(ctx, s.db, id, limit)
}
