package agentdef

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTool() ToolDefinition {
	return ToolDefinition{
		ID:   "t-1",
		Name: "get_weather",
		Kind: KindWebhook,
		API: &APICallSpec{
			URL:    "https://api.example.com/weather",
			Method: "GET",
			Args: []ArgumentSpec{
				{Name: "city", Type: "string", Required: true},
			},
		},
	}
}

func TestToolDefinitionValidation(t *testing.T) {
	def := validTool()
	assert.NoError(t, def.Validate())

	def = validTool()
	def.Name = ""
	assert.Error(t, def.Validate())

	def = validTool()
	def.Kind = "grpc"
	assert.Error(t, def.Validate())

	def = validTool()
	def.API = nil
	assert.Error(t, def.Validate())

	def = validTool()
	def.Mode = "async"
	assert.Error(t, def.Validate())
}

func TestAPICallSpecRanges(t *testing.T) {
	spec := validTool().API

	spec.TimeoutSeconds = 301
	assert.Error(t, spec.Validate())
	spec.TimeoutSeconds = 300
	assert.NoError(t, spec.Validate())

	spec.RetryCount = 11
	assert.Error(t, spec.Validate())
	spec.RetryCount = 10
	assert.NoError(t, spec.Validate())

	spec.RetryDelaySeconds = -1
	assert.Error(t, spec.Validate())
}

func TestAPICallSpecMethodAndURL(t *testing.T) {
	spec := validTool().API

	spec.Method = "TRACE"
	assert.Error(t, spec.Validate())

	spec.Method = "DELETE"
	assert.NoError(t, spec.Validate())

	spec.URL = "ftp://example.com"
	assert.Error(t, spec.Validate())
}

func TestAPICallSpecDefaults(t *testing.T) {
	spec := &APICallSpec{}
	assert.Equal(t, 30*time.Second, spec.Timeout())
	assert.Equal(t, time.Second, spec.RetryDelay())

	spec.TimeoutSeconds = 5
	spec.RetryDelaySeconds = 0.5
	assert.Equal(t, 5*time.Second, spec.Timeout())
	assert.Equal(t, 500*time.Millisecond, spec.RetryDelay())
}

func TestArgumentSpecValidation(t *testing.T) {
	a := ArgumentSpec{Name: "x", Type: "string"}
	assert.NoError(t, a.Validate())

	a.Type = "float"
	assert.Error(t, a.Validate())

	a = ArgumentSpec{Name: "x", Type: "string", Pattern: "([unclosed"}
	assert.Error(t, a.Validate())

	min, max := 5, 2
	a = ArgumentSpec{Name: "x", Type: "string", MinLength: &min, MaxLength: &max}
	assert.Error(t, a.Validate())

	lo, hi := 10.0, 1.0
	a = ArgumentSpec{Name: "x", Type: "number", Minimum: &lo, Maximum: &hi}
	assert.Error(t, a.Validate())
}

func TestAgentDefinitionDuplicateTools(t *testing.T) {
	def := AgentDefinition{
		AgentID: "a-1",
		Name:    "Agent",
		Tools:   []ToolDefinition{validTool(), validTool()},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestAgentDefinitionReservedNames(t *testing.T) {
	clash := validTool()
	clash.Name = CompletionWebhookTool
	def := AgentDefinition{
		AgentID:           "a-1",
		Name:              "Agent",
		Tools:             []ToolDefinition{clash},
		CompletionWebhook: &LifecycleWebhook{URL: "https://example.com/done"},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

func TestAllToolsIncludesLifecycleWebhooks(t *testing.T) {
	off := false
	def := AgentDefinition{
		AgentID:           "a-1",
		Name:              "Agent",
		Tools:             []ToolDefinition{validTool()},
		CompletionWebhook: &LifecycleWebhook{URL: "https://example.com/done"},
		MetricsWebhook:    &LifecycleWebhook{URL: "https://example.com/metrics", Enabled: &off},
	}
	require.NoError(t, def.Validate())

	tools := def.AllTools()
	names := make([]string, len(tools))
	for i, td := range tools {
		names[i] = td.Name
	}
	assert.Contains(t, names, "get_weather")
	assert.Contains(t, names, CompletionWebhookTool)
	assert.NotContains(t, names, MetricsWebhookTool)

	// lifecycle webhooks run detached
	for _, td := range tools {
		if td.Name == CompletionWebhookTool {
			assert.Equal(t, ModeBackground, td.Mode)
			assert.Equal(t, "POST", td.API.Method)
		}
	}
}

func TestEnabledDefaults(t *testing.T) {
	def := validTool()
	assert.True(t, def.IsEnabled())
	assert.True(t, def.WaitsForResult())

	off := false
	def.Enabled = &off
	def.WaitForResult = &off
	assert.False(t, def.IsEnabled())
	assert.False(t, def.WaitsForResult())
}
