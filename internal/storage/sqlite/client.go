package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pipeline-velocity/backend/internal/storage/models"
	"github.com/pipeline-velocity/backend/pkg/logger"
	"github.com/pipeline-velocity/backend/pkg/retry"
)

type Client struct {
	db          *sql.DB
	retryConfig retry.Config
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = logger.GetLogger()

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db, retryConfig: retryConfig}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		range_start INTEGER NOT NULL,
		range_end INTEGER NOT NULL,
		data_quality TEXT NOT NULL,
		requisitions INTEGER NOT NULL,
		candidates INTEGER NOT NULL,
		offers INTEGER NOT NULL,
		hires INTEGER NOT NULL,
		source TEXT NOT NULL,
		insight_count INTEGER NOT NULL,
		warning_count INTEGER NOT NULL,
		provider_error TEXT,
		total_tokens INTEGER,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON analysis_runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_quality ON analysis_runs(data_quality);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// InsertAnalysisRun records run metadata. Writes are retried because WAL
// writers can still hit SQLITE_BUSY under contention.
func (c *Client) InsertAnalysisRun(ctx context.Context, run *models.AnalysisRun) error {
	query := `
	INSERT INTO analysis_runs (
		id, range_start, range_end, data_quality,
		requisitions, candidates, offers, hires,
		source, insight_count, warning_count, provider_error,
		total_tokens, latency_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err := retry.Do(ctx, c.retryConfig, func() error {
		_, err := c.db.ExecContext(ctx, query,
			run.ID,
			run.RangeStart.Unix(),
			run.RangeEnd.Unix(),
			run.DataQuality,
			run.Requisitions,
			run.Candidates,
			run.Offers,
			run.Hires,
			run.Source,
			run.InsightCount,
			run.WarningCount,
			run.ProviderError,
			run.TotalTokens,
			run.LatencyMS,
			run.CreatedAt.Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}
	return nil
}

func (c *Client) ListRecentRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
	SELECT id, range_start, range_end, data_quality,
		requisitions, candidates, offers, hires,
		source, insight_count, warning_count, provider_error,
		total_tokens, latency_ms, created_at
	FROM analysis_runs
	ORDER BY created_at DESC
	LIMIT ?`

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []models.AnalysisRun
	for rows.Next() {
		var run models.AnalysisRun
		var rangeStart, rangeEnd, createdAt int64
		var providerError sql.NullString

		err := rows.Scan(
			&run.ID, &rangeStart, &rangeEnd, &run.DataQuality,
			&run.Requisitions, &run.Candidates, &run.Offers, &run.Hires,
			&run.Source, &run.InsightCount, &run.WarningCount, &providerError,
			&run.TotalTokens, &run.LatencyMS, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}

		run.RangeStart = time.Unix(rangeStart, 0).UTC()
		run.RangeEnd = time.Unix(rangeEnd, 0).UTC()
		run.CreatedAt = time.Unix(createdAt, 0).UTC()
		run.ProviderError = providerError.String
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
