package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/pipeline-velocity/backend/internal/storage/sqlite"
	"github.com/pipeline-velocity/backend/pkg/logger"
)

type RunsHandler struct {
	db *sqlite.Client
}

func NewRunsHandler(db *sqlite.Client) *RunsHandler {
	return &RunsHandler{db: db}
}

// HandleListRuns returns recent analysis-run metadata, newest first.
func (h *RunsHandler) HandleListRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	runs, err := h.db.ListRecentRuns(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to list analysis runs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list analysis runs",
		})
	}

	return c.JSON(fiber.Map{
		"runs": runs,
	})
}
