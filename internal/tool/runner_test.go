package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	relayErrors "github.com/harunnryd/mcprelay/internal/errors"
	"github.com/harunnryd/mcprelay/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWeatherRunner(t *testing.T, handler Handler) *Runner {
	t.Helper()
	entry := weatherEntry()
	entry.Handler = handler
	registry := NewRegistry()
	require.NoError(t, registry.Register(entry))
	return NewRunner(registry.Snapshot())
}

func TestRunnerInvoke_Success(t *testing.T) {
	runner := newWeatherRunner(t, HandlerFunc(func(ctx context.Context, args json.RawMessage) (any, error) {
		var in struct {
			City string `json:"city"`
		}
		require.NoError(t, json.Unmarshal(args, &in))
		return map[string]any{"city": in.City, "temperature": 18.5}, nil
	}))

	result, err := runner.InvokeCall(context.Background(), &contract.ToolCall{ID: "c1", Name: "query_weather", Input: `{"city":"Paris"}`})
	require.NoError(t, err)
	assert.Equal(t, "c1", result.CallID)
	assert.Equal(t, "query_weather", result.Name)
	assert.JSONEq(t, `{"city":"Paris","temperature":18.5}`, result.Text())
}

func TestRunnerInvoke_UnknownTool(t *testing.T) {
	runner := NewRunner(nil)

	_, err := runner.Invoke(context.Background(), "nope", `{}`)
	var unknown *UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Name)
	assert.ErrorIs(t, err, relayErrors.ErrUnknownTool)
}

func TestRunnerInvoke_ArgumentDecodeFailures(t *testing.T) {
	called := false
	runner := newWeatherRunner(t, HandlerFunc(func(ctx context.Context, args json.RawMessage) (any, error) {
		called = true
		return nil, nil
	}))

	for _, input := range []string{`not json`, `{"city":42}`, `{}`} {
		_, err := runner.Invoke(context.Background(), "query_weather", input)
		var decodeErr *ArgumentDecodeError
		require.ErrorAs(t, err, &decodeErr, input)
		assert.ErrorIs(t, err, relayErrors.ErrArgumentDecode)
	}
	assert.False(t, called)
}

func TestRunnerInvoke_ExecutionFailureWrapsCause(t *testing.T) {
	cause := errors.New("upstream returned 500")
	runner := newWeatherRunner(t, HandlerFunc(func(ctx context.Context, args json.RawMessage) (any, error) {
		return nil, cause
	}))

	_, err := runner.Invoke(context.Background(), "query_weather", `{"city":"Paris"}`)
	var execErr *ToolExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, relayErrors.ErrToolExecution)
}

func TestRunnerInvoke_EmptyArgumentsAreEmptyObject(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(Entry{
		Descriptor: ToolDescriptor{Name: "ping"},
		Handler: HandlerFunc(func(ctx context.Context, args json.RawMessage) (any, error) {
			return string(args), nil
		}),
	}))

	result, err := NewRunner(registry.Snapshot()).Invoke(context.Background(), "ping", "")
	require.NoError(t, err)
	assert.Equal(t, "{}", result.Text())
}

func TestToolResultText(t *testing.T) {
	assert.Equal(t, "sunny", ToolResult{Content: "sunny"}.Text())
	assert.Equal(t, `[1,2]`, ToolResult{Content: []int{1, 2}}.Text())
	assert.Equal(t, "", ToolResult{}.Text())
}
