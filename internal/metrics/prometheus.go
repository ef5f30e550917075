package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_velocity_analysis_duration_seconds",
			Help:    "Fact-pack build plus insight generation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"source"},
	)

	AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_velocity_analysis_total",
			Help: "Total analysis requests processed",
		},
		[]string{"status"},
	)

	FactPacksBuilt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_velocity_factpacks_built_total",
			Help: "Fact packs built, by aggregate data quality",
		},
		[]string{"data_quality"},
	)

	InsightsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_velocity_insights_generated_total",
			Help: "Insights returned to callers, by generation source",
		},
		[]string{"source"},
	)

	CitationViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_velocity_citation_violations_total",
			Help: "Generated insights carrying at least one unresolved citation",
		},
	)

	ProviderErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_velocity_provider_errors_total",
			Help: "Generation provider failures (transport, timeout, malformed response)",
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_velocity_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_velocity_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_velocity_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(AnalysisTotal)
	prometheus.MustRegister(FactPacksBuilt)
	prometheus.MustRegister(InsightsGenerated)
	prometheus.MustRegister(CitationViolations)
	prometheus.MustRegister(ProviderErrors)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
