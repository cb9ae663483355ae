package metrics

import (
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    retrieverLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
        Name:    "assistant_retriever_latency_ms",
        Help:    "Latency of retriever calls in milliseconds",
        Buckets: []float64{10, 25, 50, 75, 100, 150, 200, 300, 500, 800, 1200},
    }, []string{"type"})

    retrieverResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
        Name:    "assistant_retriever_results",
        Help:    "Number of results returned by a retriever",
        Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
    }, []string{"type"})

    stageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
        Name:    "assistant_pipeline_stage_latency_ms",
        Help:    "Latency of retrieval pipeline stages in milliseconds",
        Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 500, 1000, 2000},
    }, []string{"stage"})

    toolLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
        Name:    "assistant_tool_latency_ms",
        Help:    "Latency of dispatched tool calls in milliseconds",
        Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
    }, []string{"tool", "outcome"})

    intentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
        Name: "assistant_intent_total",
        Help: "Classified intents per turn",
    }, []string{"intent"})

    iterations = prometheus.NewHistogram(prometheus.HistogramOpts{
        Name:    "assistant_agent_iterations",
        Help:    "Orchestration loop iterations per turn",
        Buckets: []float64{1, 2, 3, 4, 5},
    })

    rerankFallback = prometheus.NewCounter(prometheus.CounterOpts{
        Name: "assistant_rerank_fallback_total",
        Help: "Turns where reranking fell back to the fused order",
    })

    accessDrops = prometheus.NewCounterVec(prometheus.CounterOpts{
        Name: "assistant_access_filter_drops_total",
        Help: "Candidates dropped by department access filtering, by stage",
    }, []string{"stage"})
)

func ensureRegistered() {
    once.Do(func() {
        prometheus.MustRegister(retrieverLatency, retrieverResults, stageLatency, toolLatency, intentTotal, iterations, rerankFallback, accessDrops)
    })
}

// ObserveRetriever records latency and result size for a retriever type.
func ObserveRetriever(typ string, start time.Time, results int) {
    ensureRegistered()
    dur := time.Since(start).Milliseconds()
    retrieverLatency.WithLabelValues(typ).Observe(float64(dur))
    retrieverResults.WithLabelValues(typ).Observe(float64(results))
}

// ObserveStage records latency of a retrieval pipeline stage.
func ObserveStage(stage string, start time.Time) {
    ensureRegistered()
    stageLatency.WithLabelValues(stage).Observe(float64(time.Since(start).Milliseconds()))
}

// ObserveTool records latency and outcome ("ok" or "error") of a tool call.
func ObserveTool(tool, outcome string, start time.Time) {
    ensureRegistered()
    toolLatency.WithLabelValues(tool, outcome).Observe(float64(time.Since(start).Milliseconds()))
}

// IncIntent counts a classified intent.
func IncIntent(intent string) {
    ensureRegistered()
    intentTotal.WithLabelValues(intent).Inc()
}

// ObserveIterations records how many loop iterations a turn took.
func ObserveIterations(n int) {
    ensureRegistered()
    iterations.Observe(float64(n))
}

// IncRerankFallback counts a rerank fallback to fused order.
func IncRerankFallback() {
    ensureRegistered()
    rerankFallback.Inc()
}

// IncAccessDrop counts candidates removed by access filtering at a stage.
// A nonzero "final" stage count indicates an upstream filtering bug.
func IncAccessDrop(stage string, n int) {
    ensureRegistered()
    if n > 0 {
        accessDrops.WithLabelValues(stage).Add(float64(n))
    }
}

// Collectors exposes the registered collectors for custom registries.
func Collectors() []prometheus.Collector {
    ensureRegistered()
    return []prometheus.Collector{retrieverLatency, retrieverResults, stageLatency, toolLatency, intentTotal, iterations, rerankFallback, accessDrops}
}
