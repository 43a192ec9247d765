package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	automationdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/automation/domain"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/providers/email"
	"go.uber.org/zap"
)

const webhookTimeout = 30 * time.Second

// Handler executes a channel action (crm, sms, marketing). Integrations
// register themselves at startup; without a registration the action fails
// with a "not configured" error.
type Handler func(ctx context.Context, params map[string]any, data map[string]any) error

// Executor dispatches automation actions to their side-effect
// implementations.
type Executor struct {
	log      *zap.Logger
	client   *http.Client
	email    email.Provider
	handlers map[string]Handler
}

func NewExecutor(log *zap.Logger, provider email.Provider) *Executor {
	return &Executor{
		log:      log.Named("automation.executor"),
		client:   &http.Client{Timeout: webhookTimeout},
		email:    provider,
		handlers: make(map[string]Handler),
	}
}

// RegisterHandler installs the integration behind a channel action type.
func (e *Executor) RegisterHandler(actionType string, handler Handler) {
	e.handlers[actionType] = handler
}

// Execute runs one action against the trigger payload. The returned
// outcome is recorded in the run log; errors never escape to the trigger
// caller.
func (e *Executor) Execute(ctx context.Context, action automationdomain.Action, data map[string]any) automationdomain.ActionOutcome {
	outcome := automationdomain.ActionOutcome{Type: action.Type}

	var err error
	switch action.Type {
	case automationdomain.ActionWebhook:
		err = e.executeWebhook(ctx, action.Params, data)
	case automationdomain.ActionEmail:
		err = e.executeEmail(ctx, action.Params, data)
	case automationdomain.ActionCRM, automationdomain.ActionSMS, automationdomain.ActionMarketing:
		handler, ok := e.handlers[action.Type]
		if !ok {
			err = fmt.Errorf("%s integration not configured", action.Type)
		} else {
			err = handler(ctx, action.Params, data)
		}
	default:
		err = fmt.Errorf("unknown action type %q", action.Type)
	}

	if err != nil {
		outcome.Error = err.Error()
		e.log.Warn("action failed",
			zap.String("action_type", action.Type),
			zap.Error(err))
		return outcome
	}
	outcome.Success = true
	return outcome
}

func (e *Executor) executeWebhook(ctx context.Context, params map[string]any, data map[string]any) error {
	rawURL, _ := params["url"].(string)
	if rawURL == "" {
		return fmt.Errorf("webhook url is required")
	}
	url := substitute(rawURL, data)

	method, _ := params["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	body, _ := params["body"].(string)
	if body == "" {
		// Default to the full trigger payload.
		encoded, err := json.Marshal(data)
		if err != nil {
			return err
		}
		body = string(encoded)
	} else {
		body = substitute(body, data)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if headers, ok := params["headers"].(map[string]any); ok {
		for key, value := range headers {
			req.Header.Set(key, substitute(asString(value), data))
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (e *Executor) executeEmail(ctx context.Context, params map[string]any, data map[string]any) error {
	to, _ := params["to"].(string)
	if to == "" {
		return fmt.Errorf("email recipient is required")
	}
	to = substitute(to, data)

	subject, _ := params["subject"].(string)
	body, _ := params["body"].(string)

	return e.email.Send(ctx, []string{to}, substitute(subject, data), substitute(body, data))
}
