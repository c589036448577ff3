package conformance_test

import (
	"encoding/json"
	"testing"

	"github.com/harunnryd/mcprelay/internal/model/contract"
	anthropicProvider "github.com/harunnryd/mcprelay/internal/model/providers/anthropic"
	geminiProvider "github.com/harunnryd/mcprelay/internal/model/providers/gemini"
	openaiProvider "github.com/harunnryd/mcprelay/internal/model/providers/openai"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var weatherTool = contract.ToolDef{
	Name:        "query_weather",
	Description: "Look up the current weather for a city",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"city": map[string]interface{}{"type": "string"},
		},
		"required": []interface{}{"city"},
	},
}

func firstRequest() contract.CompletionRequest {
	return contract.CompletionRequest{
		Model:      "m",
		Messages:   []contract.Message{{Role: contract.RoleUser, Content: "Weather in Paris?"}},
		Tools:      []contract.ToolDef{weatherTool},
		ToolChoice: contract.ToolChoiceAuto,
	}
}

func followupRequest() contract.CompletionRequest {
	call := &contract.ToolCall{ID: "call_1", Name: "query_weather", Input: `{"city":"Paris"}`}
	return contract.CompletionRequest{
		Model: "m",
		Messages: []contract.Message{
			{Role: contract.RoleUser, Content: "Weather in Paris?"},
			{Role: contract.RoleAssistant, ToolCalls: []*contract.ToolCall{call}},
			{Role: contract.RoleTool, ToolCallID: "call_1", ToolName: "query_weather", Content: `{"city":"Paris","temperature":18.5}`},
		},
		Tools:      []contract.ToolDef{weatherTool},
		ToolChoice: contract.ToolChoiceNone,
	}
}

func TestOpenAI_ToolChoiceOnlyWithTools(t *testing.T) {
	first := openaiProvider.BuildRequest(firstRequest())
	assert.Equal(t, "auto", first.ToolChoice)
	require.Len(t, first.Tools, 1)
	assert.Equal(t, "query_weather", first.Tools[0].Function.Name)

	followup := openaiProvider.BuildRequest(followupRequest())
	assert.Equal(t, "none", followup.ToolChoice)
	assert.Len(t, followup.Tools, 1)

	bare := openaiProvider.BuildRequest(contract.CompletionRequest{
		Model:      "m",
		Messages:   []contract.Message{{Role: contract.RoleUser, Content: "hi"}},
		ToolChoice: contract.ToolChoiceAuto,
	})
	assert.Nil(t, bare.ToolChoice)
	assert.Empty(t, bare.Tools)
}

func TestOpenAI_ToolResultFollowsToolCall(t *testing.T) {
	req := openaiProvider.BuildRequest(followupRequest())
	require.Len(t, req.Messages, 3)

	assistant := req.Messages[1]
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.Equal(t, `{"city":"Paris"}`, assistant.ToolCalls[0].Function.Arguments)

	tool := req.Messages[2]
	assert.Equal(t, openai.ChatMessageRoleTool, tool.Role)
	assert.Equal(t, "call_1", tool.ToolCallID)
}

func TestOpenAI_ParseMessageAssignsMissingIDs(t *testing.T) {
	resp := openaiProvider.ParseMessage(openai.ChatCompletionMessage{
		ToolCalls: []openai.ToolCall{
			{Function: openai.FunctionCall{Name: "query_weather", Arguments: `{"city":"Oslo"}`}},
			{ID: "abc", Function: openai.FunctionCall{Name: "query_weather", Arguments: `{"city":"Rome"}`}},
		},
	})

	require.True(t, resp.HasToolCalls())
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "abc", resp.ToolCalls[1].ID)
}

func TestAnthropic_AssistantToolCallsBecomeToolUseBlocks(t *testing.T) {
	params := anthropicProvider.BuildParams(followupRequest())
	require.Len(t, params.Messages, 3)

	raw, err := json.Marshal(params.Messages[1])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tool_use"`)
	assert.Contains(t, string(raw), `"call_1"`)

	raw, err = json.Marshal(params.Messages[2])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tool_result"`)
	assert.Contains(t, string(raw), `"call_1"`)
}

func TestAnthropic_FollowupDeclaresToolsWithoutCalling(t *testing.T) {
	params := anthropicProvider.BuildParams(followupRequest())
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "query_weather", params.Tools[0].OfTool.Name)
	assert.NotNil(t, params.ToolChoice.OfNone)
	assert.Nil(t, params.ToolChoice.OfAuto)
}

func TestAnthropic_ToolSchemaKeepsRequired(t *testing.T) {
	params := anthropicProvider.BuildParams(firstRequest())
	require.Len(t, params.Tools, 1)
	assert.Equal(t, []string{"city"}, params.Tools[0].OfTool.InputSchema.Required)
	assert.NotNil(t, params.ToolChoice.OfAuto)
}

func TestGemini_FunctionResponseIsNamed(t *testing.T) {
	contents, cfg := geminiProvider.BuildContents(followupRequest())
	require.Len(t, contents, 3)
	require.Len(t, cfg.Tools, 1)
	require.NotNil(t, cfg.ToolConfig)
	assert.Equal(t, genai.FunctionCallingConfigModeNone, cfg.ToolConfig.FunctionCallingConfig.Mode)

	call := contents[1].Parts[0].FunctionCall
	require.NotNil(t, call)
	assert.Equal(t, "Paris", call.Args["city"])

	response := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, response)
	assert.Equal(t, "query_weather", response.Name)
	assert.Equal(t, "Paris", response.Response["city"])
}

func TestGemini_ToolConfigWhenToolsOffered(t *testing.T) {
	_, cfg := geminiProvider.BuildContents(firstRequest())
	require.Len(t, cfg.Tools, 1)
	require.NotNil(t, cfg.ToolConfig)
	assert.Len(t, cfg.Tools[0].FunctionDeclarations, 1)
}

func TestGemini_RepeatedCallsGetDistinctIDs(t *testing.T) {
	resp := geminiProvider.ParseResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: []*genai.Part{
			{Text: "checking"},
			{FunctionCall: &genai.FunctionCall{Name: "query_weather", Args: map[string]any{"city": "Paris"}}},
			{FunctionCall: &genai.FunctionCall{Name: "query_weather", Args: map[string]any{"city": "London"}}},
			{FunctionCall: &genai.FunctionCall{ID: "fc-9", Name: "query_weather", Args: map[string]any{"city": "Rome"}}},
		}}}},
	})

	assert.Equal(t, "checking", resp.Content)
	require.Len(t, resp.ToolCalls, 3)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "call_2", resp.ToolCalls[1].ID)
	assert.Equal(t, "fc-9", resp.ToolCalls[2].ID)
	assert.JSONEq(t, `{"city":"London"}`, resp.ToolCalls[1].Input)
	for _, tc := range resp.ToolCalls {
		assert.Equal(t, "query_weather", tc.Name)
	}

	assert.Empty(t, geminiProvider.ParseResponse(nil).ToolCalls)
}

func TestRequiredToolChoice(t *testing.T) {
	req := firstRequest()
	req.ToolChoice = contract.ToolChoiceRequired

	assert.Equal(t, "required", openaiProvider.BuildRequest(req).ToolChoice)
	assert.NotNil(t, anthropicProvider.BuildParams(req).ToolChoice.OfAny)

	_, cfg := geminiProvider.BuildContents(req)
	require.NotNil(t, cfg.ToolConfig)
	assert.Equal(t, genai.FunctionCallingConfigModeAny, cfg.ToolConfig.FunctionCallingConfig.Mode)
}
