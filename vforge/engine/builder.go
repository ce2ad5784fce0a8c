package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/voiceforge/voiceforge/vforge/agentdef"
	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

// NativeTool is an in-process capability registered by the host, as opposed
// to a webhook tool declared in configuration.
type NativeTool struct {
	Name        string
	Description string
	Args        []agentdef.ArgumentSpec
	Run         RunFunc
}

// Builder turns tool definitions into registered, invocable tools. One
// builder serves one agent instance.
type Builder struct {
	exec    *Executor
	runner  *TaskRunner
	natives map[string]NativeTool
	agentID string
	logger  zerolog.Logger
}

// NewBuilder wires a builder. natives maps tool names to host-registered
// implementations for definitions of kind native.
func NewBuilder(agentID string, exec *Executor, runner *TaskRunner, natives map[string]NativeTool, logger zerolog.Logger) *Builder {
	if natives == nil {
		natives = map[string]NativeTool{}
	}
	return &Builder{
		exec:    exec,
		runner:  runner,
		natives: natives,
		agentID: agentID,
		logger:  logger,
	}
}

// Build validates the definition end to end and returns the invocable tool.
// All failures are ConfigurationErrors; nothing invalid ever reaches the
// registry.
func (b *Builder) Build(def agentdef.ToolDefinition) (engineports.Tool, error) {
	if err := def.Validate(); err != nil {
		return nil, configErrf("%v", err)
	}
	switch def.Kind {
	case agentdef.KindNative:
		return b.buildNative(def)
	case agentdef.KindWebhook:
		return b.buildWebhook(def)
	default:
		return nil, configErrf("tool %s: unknown kind %q", def.Name, def.Kind)
	}
}

func (b *Builder) buildNative(def agentdef.ToolDefinition) (engineports.Tool, error) {
	native, ok := b.natives[def.Name]
	if !ok {
		return nil, configErrf("tool %s: no native implementation registered", def.Name)
	}
	description := def.Description
	if description == "" {
		description = native.Description
	}
	argNames := make([]string, len(native.Args))
	for i := range native.Args {
		argNames[i] = native.Args[i].Name
	}
	if err := ValidateArgumentNames(argNames, def.Constants); err != nil {
		return nil, configErrf("tool %s: %v", def.Name, err)
	}
	schemaJSON, err := GenerateSchema(native.Args)
	if err != nil {
		return nil, err
	}
	validator, err := NewArgumentValidator(schemaJSON)
	if err != nil {
		return nil, err
	}
	opts := HolderOptions{
		Spec: engineports.ToolSpec{
			Name:        def.Name,
			Description: description,
			JSONSchema:  schemaJSON,
		},
		Validator: validator,
		Run:       native.Run,
		Wait:      def.WaitsForResult(),
		Ack:       def.AckMessage,
		Runner:    b.runner,
		AgentID:   b.agentID,
		Logger:    b.logger,
	}
	if def.Mode == agentdef.ModeBackground {
		return NewBackgroundHolder(opts), nil
	}
	return NewHolder(opts), nil
}

func (b *Builder) buildWebhook(def agentdef.ToolDefinition) (engineports.Tool, error) {
	api := def.API

	argNames := make([]string, len(api.Args))
	for i := range api.Args {
		argNames[i] = api.Args[i].Name
	}
	if err := ValidateArgumentNames(argNames, def.Constants); err != nil {
		return nil, configErrf("tool %s: %v", def.Name, err)
	}

	if err := ValidateTemplate(api.URL); err != nil {
		return nil, configErrf("tool %s url: %v", def.Name, err)
	}
	for k, v := range api.Headers {
		if err := ValidateTemplate(v); err != nil {
			return nil, configErrf("tool %s header %s: %v", def.Name, k, err)
		}
	}
	for k, v := range api.Query {
		if err := ValidateTemplate(v); err != nil {
			return nil, configErrf("tool %s query %s: %v", def.Name, k, err)
		}
	}
	if err := ValidateTemplateValue(api.Body); err != nil {
		return nil, configErrf("tool %s body: %v", def.Name, err)
	}

	schemaJSON, err := GenerateSchema(api.Args)
	if err != nil {
		return nil, err
	}
	validator, err := NewArgumentValidator(schemaJSON)
	if err != nil {
		return nil, err
	}

	policy := CallPolicy{
		Timeout:         api.Timeout(),
		RetryCount:      api.RetryCount,
		RetryDelay:      api.RetryDelay(),
		CacheTTLSeconds: api.CacheTTLSeconds,
	}
	run := b.webhookRun(def, policy)

	opts := HolderOptions{
		Spec: engineports.ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			JSONSchema:  schemaJSON,
		},
		Validator: validator,
		Run:       run,
		Wait:      def.WaitsForResult(),
		Ack:       def.AckMessage,
		Runner:    b.runner,
		AgentID:   b.agentID,
		Logger:    b.logger,
	}
	if def.Mode == agentdef.ModeBackground {
		return NewBackgroundHolder(opts), nil
	}
	return NewHolder(opts), nil
}

// webhookRun closes over the definition and expands every template against a
// fresh namespace at call time.
func (b *Builder) webhookRun(def agentdef.ToolDefinition, policy CallPolicy) RunFunc {
	api := def.API
	return func(ctx context.Context, inv *engineports.Invocation) (any, error) {
		ns := NewNamespace(def.Constants, inv.Context, inv.Args)

		url, err := ExpandString(api.URL, ns)
		if err != nil {
			return nil, err
		}
		headers, err := ExpandStringMap(api.Headers, ns)
		if err != nil {
			return nil, err
		}
		query, err := ExpandStringMap(api.Query, ns)
		if err != nil {
			return nil, err
		}
		var body any
		if api.Body != nil {
			body, err = ExpandValue(api.Body, ns)
			if err != nil {
				return nil, err
			}
		}

		req := CallRequest{
			URL:     url,
			Method:  api.Method,
			Headers: headers,
			Query:   query,
			Body:    body,
		}
		return b.exec.Do(ctx, def.Name, req, policy)
	}
}
