package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/tools"
)

type fakeTool struct {
	name  string
	text  string
	err   error
	panic bool
	delay time.Duration
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Call(ctx context.Context, queries []string, rc rbac.Context) (*tools.Result, error) {
	if f.panic {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &tools.Result{Tool: f.name, Text: f.text}, nil
}

func TestDispatchRunsAllTools(t *testing.T) {
	d := New(time.Second,
		&fakeTool{name: "document-search", text: "docs"},
		&fakeTool{name: "weather", text: "sunny"},
	)
	out := d.Dispatch(context.Background(), []string{"document-search", "weather"}, []string{"q"}, rbac.NewContext("Employee", ""))
	require.Len(t, out, 2)
	assert.Equal(t, "docs", out[0].Result.Text)
	assert.Equal(t, "sunny", out[1].Result.Text)
}

func TestDispatchIsolatesFailures(t *testing.T) {
	d := New(time.Second,
		&fakeTool{name: "document-search", text: "docs"},
		&fakeTool{name: "web-search", err: errors.New("upstream down")},
		&fakeTool{name: "weather", panic: true},
	)
	out := d.Dispatch(context.Background(), []string{"document-search", "web-search", "weather"}, []string{"q"}, rbac.NewContext("Employee", ""))
	require.Len(t, out, 3)

	require.NotNil(t, out[0].Result)
	assert.Equal(t, "docs", out[0].Result.Text)

	require.Error(t, out[1].Err)
	assert.Nil(t, out[1].Result)

	require.Error(t, out[2].Err)
	assert.Contains(t, out[2].Err.Error(), "panicked")
	assert.Nil(t, out[2].Result)
}

func TestDispatchTimesOutSlowTool(t *testing.T) {
	d := New(20*time.Millisecond,
		&fakeTool{name: "web-search", delay: 500 * time.Millisecond},
		&fakeTool{name: "weather", text: "sunny"},
	)
	out := d.Dispatch(context.Background(), []string{"web-search", "weather"}, []string{"q"}, rbac.NewContext("Employee", ""))
	require.Len(t, out, 2)
	assert.ErrorIs(t, out[0].Err, context.DeadlineExceeded)
	require.NotNil(t, out[1].Result)
	assert.Equal(t, "sunny", out[1].Result.Text)
}

func TestDispatchUnknownTool(t *testing.T) {
	d := New(time.Second, &fakeTool{name: "weather", text: "sunny"})
	out := d.Dispatch(context.Background(), []string{"nonexistent", "weather"}, []string{"q"}, rbac.NewContext("Employee", ""))
	require.Len(t, out, 2)
	require.Error(t, out[0].Err)
	assert.True(t, d.Registered("weather"))
	assert.False(t, d.Registered("nonexistent"))
}
