package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
	userUsecase "github.com/allisson/gatekeeper/internal/user/usecase"
)

// RunCreateUser registers a new user by email. Outputs the user ID in either
// text or JSON format.
//
// Requirements: Database must be migrated and accessible.
func RunCreateUser(
	ctx context.Context,
	useCase userUsecase.UseCase,
	logger *slog.Logger,
	writer io.Writer,
	email string,
	format string,
) error {
	logger.Info("creating new user", slog.String("email", email))

	user, err := useCase.Create(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if format == "json" {
		writeJSON(map[string]string{
			"id":    user.ID.String(),
			"email": user.Email,
		}, writer)
	} else {
		outputUserText(user, writer)
	}

	logger.Info("user created successfully",
		slog.String("user_id", user.ID.String()),
		slog.String("email", user.Email),
	)

	return nil
}

// outputUserText outputs the result in human-readable text format.
func outputUserText(user *userDomain.User, writer io.Writer) {
	_, _ = fmt.Fprintln(writer, "User created successfully!")
	_, _ = fmt.Fprintf(writer, "ID: %s\n", user.ID.String())
	_, _ = fmt.Fprintf(writer, "Email: %s\n", user.Email)
}
