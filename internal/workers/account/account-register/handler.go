// internal/workers/account/account-register/handler.go
package accountregister

import (
	"context"
	"fmt"
	"time"

	"interview-prep-workers/internal/common/camunda"
	"interview-prep-workers/internal/common/config"
	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/common/observability"
	"interview-prep-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "account.register"

type Handler struct {
	config        *Config
	logger        logger.Logger
	service       *Service
	errorHandler  *errors.ErrorHandler
	observability *observability.Observability
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Accounts      Accounts
	CRM           ContactSync
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for account-register: %w", err)
	}
	if opts.Accounts == nil {
		return nil, fmt.Errorf("account-register requires an account manager")
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:        workerConfig,
		logger:        loggerInstance,
		errorHandler:  errors.NewErrorHandler(loggerInstance),
		observability: opts.Observability,
		service: NewService(ServiceDependencies{
			Accounts: opts.Accounts,
			CRM:      opts.CRM,
			Logger:   loggerInstance,
		}, workerConfig),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx, run := camunda.BeginJob(ctx, h.observability, TaskType, job)

	h.logger.Info("Processing account registration", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	if !h.config.Enabled {
		err := camunda.CompleteJob(ctx, client, job, map[string]interface{}{"registered": false})
		run.End(ctx, err)
		return
	}

	output, err := h.process(ctx, job)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		run.End(ctx, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output.ToVariables()); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
	}
	run.End(ctx, nil)
}

func (h *Handler) process(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := h.parseInput(job)
	if err != nil {
		return nil, err
	}
	return h.service.Execute(ctx, input)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := camunda.ParseVariables(job)
	if err != nil {
		return nil, err
	}

	result := validation.ValidateInput(variables, GetInputSchema(h.config.MinPasswordLength))
	if !result.Valid {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()))
	}

	input := &Input{
		Email:    variables["email"].(string),
		Password: variables["password"].(string),
		Role:     variables["role"].(string),
	}
	return input, nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}

	if workerCfg, exists := appConfig.Workers["account-register"]; exists {
		cfg.Enabled = workerCfg.Enabled
		if workerCfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = workerCfg.MaxJobsActive
		}
		if workerCfg.Timeout > 0 {
			cfg.Timeout = time.Duration(workerCfg.Timeout) * time.Millisecond
		}
	}
	cfg.SyncCRM = appConfig.Integrations.Zoho.Enabled
	return cfg
}
