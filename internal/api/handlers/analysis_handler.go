package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pipeline-velocity/backend/internal/cache/redis"
	"github.com/pipeline-velocity/backend/internal/evaluation"
	"github.com/pipeline-velocity/backend/internal/factpack"
	"github.com/pipeline-velocity/backend/internal/insight"
	"github.com/pipeline-velocity/backend/internal/metrics"
	"github.com/pipeline-velocity/backend/internal/pipeline"
	"github.com/pipeline-velocity/backend/internal/storage/models"
	"github.com/pipeline-velocity/backend/internal/storage/sqlite"
	"github.com/pipeline-velocity/backend/pkg/config"
	"github.com/pipeline-velocity/backend/pkg/logger"
	"github.com/pipeline-velocity/backend/pkg/utils"
)

type AnalysisHandler struct {
	builder      *factpack.Builder
	orchestrator *insight.Orchestrator
	db           *sqlite.Client
	cache        *redis.Client
	cfg          config.AnalysisConfig
}

func NewAnalysisHandler(builder *factpack.Builder, orchestrator *insight.Orchestrator, db *sqlite.Client, cache *redis.Client, cfg config.AnalysisConfig) *AnalysisHandler {
	return &AnalysisHandler{
		builder:      builder,
		orchestrator: orchestrator,
		db:           db,
		cache:        cache,
		cfg:          cfg,
	}
}

type analysisRequest struct {
	pipeline.Dataset
	Source string `json:"source"`
}

type analysisResponse struct {
	RunID     string                      `json:"run_id"`
	FactPack  *factpack.FactPack          `json:"fact_pack"`
	Grounding *evaluation.GroundingReport `json:"grounding"`
	insight.Result
}

// HandleGenerateInsights builds a fresh fact pack from the supplied
// records and produces insights from it. Source "llm" forces the
// provider, "deterministic" skips it, and "auto" (the default) tries the
// provider and falls back when it fails.
func (h *AnalysisHandler) HandleGenerateInsights(c *fiber.Ctx) error {
	start := time.Now()

	var req analysisRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Range.Start.IsZero() || req.Range.End.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "date_range with start and end is required",
		})
	}

	requestHash := utils.ShortHash(string(c.Body()))
	if h.cacheEnabled() {
		var cached analysisResponse
		hit, err := h.cache.GetAnalysis(c.Context(), requestHash, &cached)
		if err != nil {
			logger.Warn("Cache lookup failed", zap.Error(err))
		}
		if hit {
			metrics.CacheHits.WithLabelValues("analysis").Inc()
			return c.JSON(cached)
		}
		metrics.CacheMisses.WithLabelValues("analysis").Inc()
	}

	pack, err := h.builder.Build(req.Dataset)
	if err != nil {
		logger.Error("Failed to build fact pack", zap.Error(err))
		metrics.AnalysisTotal.WithLabelValues("error").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build fact pack",
		})
	}
	metrics.FactPacksBuilt.WithLabelValues(pack.Metadata.DataQuality).Inc()

	result := h.generate(c, pack, req.Source)
	report := evaluation.EvaluateGrounding(result, pack)

	metrics.AnalysisDuration.WithLabelValues(result.Source).Observe(time.Since(start).Seconds())
	metrics.AnalysisTotal.WithLabelValues("ok").Inc()
	metrics.InsightsGenerated.WithLabelValues(result.Source).Add(float64(len(result.Insights)))
	if report.InvalidCitations > 0 {
		metrics.CitationViolations.Add(float64(report.InvalidCitations))
	}
	if result.Usage.TotalTokens > 0 {
		metrics.LLMTokensUsed.WithLabelValues("prompt").Add(float64(result.Usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues("completion").Add(float64(result.Usage.CompletionTokens))
	}

	resp := analysisResponse{
		RunID:     uuid.New().String(),
		FactPack:  pack,
		Grounding: report,
		Result:    result,
	}

	h.recordRun(c, &resp, pack, time.Since(start))

	if h.cacheEnabled() {
		ttl := time.Duration(h.cfg.CacheTTLSec) * time.Second
		if err := h.cache.SetAnalysis(c.Context(), requestHash, resp, ttl); err != nil {
			logger.Warn("Cache store failed", zap.Error(err))
		}
	}

	return c.JSON(resp)
}

func (h *AnalysisHandler) generate(c *fiber.Ctx, pack *factpack.FactPack, source string) insight.Result {
	switch source {
	case insight.SourceDeterministic:
		return insight.Deterministic(pack)
	case insight.SourceLLM:
		result := h.orchestrator.Generate(c.Context(), pack)
		if result.Error != "" {
			metrics.ProviderErrors.Inc()
		}
		return result
	default:
		result := h.orchestrator.Generate(c.Context(), pack)
		if result.Error == "" {
			return result
		}
		metrics.ProviderErrors.Inc()
		if !h.cfg.FallbackOnError {
			return result
		}

		logger.Info("Falling back to deterministic insights", zap.String("reason", result.Error))
		fallback := insight.Deterministic(pack)
		fallback.Warnings = append(fallback.Warnings, "generation provider unavailable: "+result.Error)
		return fallback
	}
}

func (h *AnalysisHandler) recordRun(c *fiber.Ctx, resp *analysisResponse, pack *factpack.FactPack, elapsed time.Duration) {
	if h.db == nil {
		return
	}

	run := &models.AnalysisRun{
		ID:            resp.RunID,
		RangeStart:    pack.Metadata.RangeStart,
		RangeEnd:      pack.Metadata.RangeEnd,
		DataQuality:   pack.Metadata.DataQuality,
		Requisitions:  pack.SampleSizes.Requisitions,
		Candidates:    pack.SampleSizes.Candidates,
		Offers:        pack.SampleSizes.Offers,
		Hires:         pack.SampleSizes.Hires,
		Source:        resp.Source,
		InsightCount:  len(resp.Insights),
		WarningCount:  len(resp.Warnings),
		ProviderError: resp.Error,
		TotalTokens:   resp.Usage.TotalTokens,
		LatencyMS:     int(elapsed.Milliseconds()),
		CreatedAt:     time.Now().UTC(),
	}

	if err := h.db.InsertAnalysisRun(c.Context(), run); err != nil {
		logger.Warn("Failed to record analysis run", zap.Error(err))
	}
}

func (h *AnalysisHandler) cacheEnabled() bool {
	return h.cache != nil && h.cfg.CacheEnabled
}

// HandleBuildFactPack builds and returns the redacted fact pack without
// generating insights.
func (h *AnalysisHandler) HandleBuildFactPack(c *fiber.Ctx) error {
	var req analysisRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Range.Start.IsZero() || req.Range.End.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "date_range with start and end is required",
		})
	}

	pack, err := h.builder.Build(req.Dataset)
	if err != nil {
		logger.Error("Failed to build fact pack", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build fact pack",
		})
	}
	metrics.FactPacksBuilt.WithLabelValues(pack.Metadata.DataQuality).Inc()

	return c.JSON(pack)
}
