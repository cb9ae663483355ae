package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/metrics"
	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/tools"
)

// Outcome is the per-tool slot of one dispatch round. Exactly one of
// Result and Err is set.
type Outcome struct {
	Tool   string
	Result *tools.Result
	Err    error
}

// Dispatcher fans a turn's tool calls out concurrently. A failing or
// panicking tool never takes its siblings down with it.
type Dispatcher struct {
	byName  map[string]tools.Tool
	timeout time.Duration
}

func New(timeout time.Duration, registered ...tools.Tool) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	d := &Dispatcher{byName: make(map[string]tools.Tool, len(registered)), timeout: timeout}
	for _, t := range registered {
		d.byName[t.Name()] = t
	}
	return d
}

// Registered reports whether a tool name is available for dispatch.
func (d *Dispatcher) Registered(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// Dispatch runs every named tool against the sub-queries concurrently,
// each under its own deadline. The returned slice is ordered like names;
// unknown names produce an error slot rather than dropping silently.
func (d *Dispatcher) Dispatch(ctx context.Context, names []string, queries []string, rc rbac.Context) []Outcome {
	outcomes := make([]Outcome, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		tool, ok := d.byName[name]
		if !ok {
			outcomes[i] = Outcome{Tool: name, Err: fmt.Errorf("unknown tool %q", name)}
			continue
		}
		wg.Add(1)
		go func(i int, name string, tool tools.Tool) {
			defer wg.Done()
			outcomes[i] = d.run(ctx, name, tool, queries, rc)
		}(i, name, tool)
	}
	wg.Wait()
	return outcomes
}

func (d *Dispatcher) run(ctx context.Context, name string, tool tools.Tool, queries []string, rc rbac.Context) (out Outcome) {
	out.Tool = name
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("dispatch: tool %s panicked: %v", name, r)
			out.Result = nil
			out.Err = fmt.Errorf("tool %s panicked: %v", name, r)
			metrics.ObserveTool(name, "panic", start)
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := tool.Call(cctx, queries, rc)
	if err != nil {
		logger.Warnf("dispatch: tool %s failed: %v", name, err)
		out.Err = err
		metrics.ObserveTool(name, "error", start)
		return out
	}
	out.Result = res
	metrics.ObserveTool(name, "ok", start)
	return out
}
