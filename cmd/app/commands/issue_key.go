package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	authUsecase "github.com/allisson/gatekeeper/internal/auth/usecase"
	userUsecase "github.com/allisson/gatekeeper/internal/user/usecase"
)

// RunIssueKey issues a new API key for the user with the given email.
// Issuance rotates the user's freshness timestamp, so every previously issued
// key stops working.
//
// Requirements: Database must be migrated and accessible.
func RunIssueKey(
	ctx context.Context,
	userUseCase userUsecase.UseCase,
	authUseCase authUsecase.AuthUseCase,
	logger *slog.Logger,
	writer io.Writer,
	email string,
	format string,
) error {
	logger.Info("issuing api key", slog.String("email", email))

	user, err := userUseCase.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}

	output, err := authUseCase.IssueToken(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to issue key: %w", err)
	}

	if format == "json" {
		writeJSON(map[string]string{
			"key":          output.Token,
			"generated_at": output.GeneratedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		}, writer)
	} else {
		_, _ = fmt.Fprintln(writer, "API key issued successfully!")
		_, _ = fmt.Fprintf(writer, "Key: %s\n", output.Token)
		_, _ = fmt.Fprintln(writer, "\nNote: any previously issued key for this user is now invalid.")
	}

	logger.Info("api key issued",
		slog.String("user_id", user.ID.String()),
		slog.Time("generated_at", output.GeneratedAt),
	)

	return nil
}
