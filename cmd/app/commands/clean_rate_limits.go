package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	rateLimitUsecase "github.com/allisson/gatekeeper/internal/ratelimit/usecase"
)

// RunCleanRateLimits deletes rate limit counters whose window expired more
// than the specified number of days ago. Expired counters are harmless but
// accumulate one row per user and endpoint.
//
// Requirements: Database must be migrated and accessible.
func RunCleanRateLimits(
	ctx context.Context,
	useCase rateLimitUsecase.RateLimitUseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	logger.Info("cleaning expired rate limit counters", slog.Int("days", days))

	count, err := useCase.CleanupExpired(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to clean rate limit counters: %w", err)
	}

	if format == "json" {
		writeJSON(map[string]any{
			"count": count,
			"days":  days,
		}, writer)
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d rate limit counter(s) expired for more than %d day(s)\n", count, days)
	}

	logger.Info("cleanup completed", slog.Int64("count", count), slog.Int("days", days))

	return nil
}
