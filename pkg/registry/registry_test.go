package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zapmcp/zap-mcp/pkg/session"
	"github.com/zapmcp/zap-mcp/pkg/tools"
	"github.com/zapmcp/zap-mcp/pkg/types"
)

type fakeTool struct {
	name      string
	desc      string
	schema    types.Schema
	streaming bool
	calls     int
	execute   func(ctx context.Context, params types.Params, ec *tools.ExecContext) (*types.Result, error)
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return f.desc }
func (f *fakeTool) Schema() types.Schema {
	return f.schema
}
func (f *fakeTool) Streaming() bool { return f.streaming }
func (f *fakeTool) Execute(ctx context.Context, params types.Params, ec *tools.ExecContext) (*types.Result, error) {
	f.calls++
	if f.execute != nil {
		return f.execute(ctx, params, ec)
	}
	return types.TextResult(f.name, "ok"), nil
}

func echoTool() *fakeTool {
	return &fakeTool{
		name:   "echo",
		desc:   "Echo a message back.",
		schema: types.Schema{"msg": {Type: "string", Required: true}},
		execute: func(_ context.Context, params types.Params, _ *tools.ExecContext) (*types.Result, error) {
			return types.TextResult("echo", fmt.Sprint(params["msg"])), nil
		},
	}
}

func newRegistry() *Registry {
	return New(zerolog.Nop(), nil)
}

func TestRegister_Duplicate(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(echoTool()))
	err := r.Register(echoTool())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTool)
}

func TestRegister_Invalid(t *testing.T) {
	r := newRegistry()
	assert.ErrorIs(t, r.Register(nil), ErrInvalidTool)
	assert.ErrorIs(t, r.Register(&fakeTool{name: "", desc: "x"}), ErrInvalidTool)
	assert.ErrorIs(t, r.Register(&fakeTool{name: "x", desc: ""}), ErrInvalidTool)
}

func TestRegister_Notification(t *testing.T) {
	r := newRegistry()
	var seen []string
	r.OnRegister(func(meta types.ToolMetadata) {
		seen = append(seen, meta.Name)
	})
	require.NoError(t, r.Register(echoTool()))
	assert.Equal(t, []string{"echo"}, seen)
}

func TestDispatch_ToolNotFound(t *testing.T) {
	r := newRegistry()
	_, err := r.Dispatch(context.Background(), "nope", types.Params{}, nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestDispatch_MissingRequiredParam(t *testing.T) {
	r := newRegistry()
	tool := echoTool()
	require.NoError(t, r.Register(tool))

	for _, params := range []types.Params{{}, {"msg": ""}, {"msg": nil}} {
		_, err := r.Dispatch(context.Background(), "echo", params, nil)
		require.Error(t, err)
		var ipe *InvalidParamsError
		require.True(t, errors.As(err, &ipe))
		assert.Equal(t, []string{"msg"}, ipe.Missing)
	}
	assert.Zero(t, tool.calls, "tool body must not run on validation failure")
}

func TestDispatch_Echo(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(echoTool()))

	result, err := r.Dispatch(context.Background(), "echo", types.Params{"msg": "hi"}, nil)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "echo", result.ToolName)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "hi", result.Content[0].Text)
	assert.False(t, result.Timestamp.IsZero())
}

func TestDispatch_ExecutionErrorBecomesEnvelope(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(&fakeTool{
		name: "boom",
		desc: "always fails",
		execute: func(context.Context, types.Params, *tools.ExecContext) (*types.Result, error) {
			return nil, errors.New("scanner unreachable")
		},
	}))

	result, err := r.Dispatch(context.Background(), "boom", types.Params{}, nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text(), "scanner unreachable")
}

func TestDispatch_ChainDeterminism(t *testing.T) {
	r := newRegistry()
	var order []string
	mk := func(name string) *fakeTool {
		return &fakeTool{
			name: name,
			desc: name + " tool",
			execute: func(_ context.Context, params types.Params, _ *tools.ExecContext) (*types.Result, error) {
				order = append(order, name)
				return types.TextResult(name, fmt.Sprint(params["msg"])), nil
			},
		}
	}
	require.NoError(t, r.Register(mk("a")))
	require.NoError(t, r.Register(mk("b")))
	require.NoError(t, r.Register(mk("c")))
	require.NoError(t, r.Chain("a", "b", nil))
	require.NoError(t, r.Chain("b", "c", nil))

	result, err := r.Dispatch(context.Background(), "a", types.Params{"msg": "same"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, order)
	require.Len(t, result.ChainedResults, 1)
	bRes := result.ChainedResults[0]
	assert.Equal(t, "b", bRes.ToolName)
	// Chain targets receive the original parameters, not the predecessor's result.
	assert.Equal(t, "same", bRes.Content[0].Text)
	require.Len(t, bRes.ChainedResults, 1)
	assert.Equal(t, "c", bRes.ChainedResults[0].ToolName)
}

func TestDispatch_ChainGuard(t *testing.T) {
	r := newRegistry()
	target := &fakeTool{name: "target", desc: "target tool"}
	require.NoError(t, r.Register(echoTool()))
	require.NoError(t, r.Register(target))
	require.NoError(t, r.Chain("echo", "target", func(*types.Result) bool { return false }))

	result, err := r.Dispatch(context.Background(), "echo", types.Params{"msg": "x"}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.ChainedResults)
	assert.Zero(t, target.calls)
}

func TestDispatch_ChainedFailureIsolated(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(echoTool()))
	require.NoError(t, r.Register(&fakeTool{
		name: "failing",
		desc: "always fails",
		execute: func(context.Context, types.Params, *tools.ExecContext) (*types.Result, error) {
			return nil, errors.New("nope")
		},
	}))
	sibling := &fakeTool{name: "sibling", desc: "sibling tool"}
	require.NoError(t, r.Register(sibling))
	require.NoError(t, r.Chain("echo", "failing", nil))
	require.NoError(t, r.Chain("echo", "sibling", nil))

	result, err := r.Dispatch(context.Background(), "echo", types.Params{"msg": "x"}, nil)
	require.NoError(t, err)
	assert.False(t, result.IsError, "parent success survives a chained failure")
	require.Len(t, result.ChainedResults, 2)
	assert.True(t, result.ChainedResults[0].IsError)
	assert.False(t, result.ChainedResults[1].IsError)
	assert.Equal(t, 1, sibling.calls)
}

func TestDispatch_ChainValidationFailureIsolated(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "first", desc: "first tool"}))
	require.NoError(t, r.Register(&fakeTool{
		name:   "strict",
		desc:   "strict tool",
		schema: types.Schema{"token": {Type: "string", Required: true}},
	}))
	require.NoError(t, r.Chain("first", "strict", nil))

	result, err := r.Dispatch(context.Background(), "first", types.Params{}, nil)
	require.NoError(t, err)
	require.Len(t, result.ChainedResults, 1)
	assert.True(t, result.ChainedResults[0].IsError)
	assert.Contains(t, result.ChainedResults[0].Text(), "token")
}

func TestDispatch_RecordsToSession(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(echoTool()))
	st := session.NewStore(zerolog.Nop(), session.Config{})
	sess := st.Create()

	_, err := r.Dispatch(context.Background(), "echo", types.Params{"msg": "hi"}, &tools.ExecContext{Session: sess})
	require.NoError(t, err)

	records := sess.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "echo", records[0].ToolName)
	assert.Equal(t, "hi", records[0].Result.Content[0].Text)
}

func TestListMetadata_Snapshot(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(echoTool()))
	require.NoError(t, r.Register(&fakeTool{name: "streamy", desc: "streams", streaming: true}))
	require.NoError(t, r.Chain("echo", "streamy", nil))

	listing := r.ListMetadata()
	require.Len(t, listing, 2)
	assert.Equal(t, "echo", listing[0].Name)
	assert.Equal(t, []string{"streamy"}, listing[0].ChainTargets)
	assert.True(t, listing[1].Streaming)

	// A later registration only appears when discovery is re-invoked.
	require.NoError(t, r.Register(&fakeTool{name: "late", desc: "late tool"}))
	assert.Len(t, listing, 2)
	assert.Len(t, r.ListMetadata(), 3)
}

func TestCount(t *testing.T) {
	r := newRegistry()
	assert.Zero(t, r.Count())
	require.NoError(t, r.Register(echoTool()))
	assert.Equal(t, 1, r.Count())
}
