// cmd/tools/worker-generator/templates.go
package main

const configTemplate = `package {{ .PackageName }}

import (
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

type Config struct {
	Enabled       bool          ` + "`mapstructure:\"enabled\" json:\"enabled\"`" + `
	MaxJobsActive int           ` + "`mapstructure:\"max_jobs_active\" json:\"max_jobs_active\"`" + `
	Timeout       time.Duration ` + "`mapstructure:\"timeout\" json:\"timeout\"`" + `
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       {{ printf "%d" .Timeout.Milliseconds }} * time.Millisecond,
	}
}

func (c *Config) Validate() error {
	return ozzo.ValidateStruct(c,
		ozzo.Field(&c.MaxJobsActive, ozzo.Required.Error("must be positive"), ozzo.Min(1).Error("must be positive")),
		ozzo.Field(&c.Timeout, ozzo.Required.Error("must be positive"), ozzo.Min(time.Millisecond).Error("must be positive")),
	)
}
`

const modelsTemplate = `package {{ .PackageName }}

import "interview-prep-workers/internal/common/logger"

type Input struct {
{{- range .Input }}
	{{ .GoName }} {{ .GoType }} ` + "`json:\"{{ .JSONName }}\"`" + `{{ if .Description }} // {{ .Description }}{{ end }}
{{- end }}
}

type Output struct {
{{- range .Output }}
	{{ .GoName }} {{ .GoType }}
{{- end }}
}

func (o *Output) ToVariables() map[string]interface{} {
	return map[string]interface{}{
{{- range .Output }}
		{{ quote .JSONName }}: o.{{ .GoName }},
{{- end }}
	}
}

type ServiceDependencies struct {
	Logger logger.Logger
}
`

const validationTemplate = `package {{ .PackageName }}

import "interview-prep-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{ {{- range $i, $r := .Required }}{{ if $i }}, {{ end }}{{ quote $r }}{{ end -}} },
		Properties: map[string]validation.Property{
{{- range .Input }}
			{{ quote .JSONName }}: { {{- if .SchemaType }}Type: {{ quote .SchemaType }}{{ end -}} },
{{- end }}
		},
	}
}
`

const serviceTemplate = `package {{ .PackageName }}

import (
	"context"

	"interview-prep-workers/internal/common/logger"
)

type Service struct {
	config *Config
	logger logger.Logger
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{config: config, logger: deps.Logger}
}

// Execute implements {{ .TaskType }}: {{ .Description }}
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	return &Output{}, nil
}
`

const handlerTemplate = `package {{ .PackageName }}

import (
	"context"
	"encoding/json"
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

const TaskType = {{ quote .TaskType }}

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
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for {{ .WorkerName }}: %w", err)
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
		service:       NewService(ServiceDependencies{Logger: loggerInstance}, workerConfig),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx, run := camunda.BeginJob(ctx, h.observability, TaskType, job)

	if !h.config.Enabled {
		err := camunda.CompleteJob(ctx, client, job, map[string]interface{}{})
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

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()))
	}

	raw, err := json.Marshal(variables)
	if err != nil {
		return nil, errors.NewValidationFailedError(err.Error())
	}
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewValidationFailedError(err.Error())
	}
	return &input, nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}
	if workerCfg, exists := appConfig.Workers[{{ quote .WorkerName }}]; exists {
		cfg.Enabled = workerCfg.Enabled
		if workerCfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = workerCfg.MaxJobsActive
		}
		if workerCfg.Timeout > 0 {
			cfg.Timeout = time.Duration(workerCfg.Timeout) * time.Millisecond
		}
	}
	return cfg
}
`
