package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(llmCallsTotal, llmFallbacksTotal) }

var llmCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "llm_calls_total",
		Help: "LLM generation attempts, labeled by model and outcome.",
	},
	[]string{"model", "outcome"}, // outcome: 'ok', 'quota', 'error'
)

var llmFallbacksTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "llm_fallbacks_total",
		Help: "Times the invoker fell through to the next model in the priority list.",
	},
)

func IncLLMCall(model, outcome string) {
	llmCallsTotal.WithLabelValues(model, outcome).Inc()
}

func IncLLMFallback() {
	llmFallbacksTotal.Inc()
}
