package auth

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/storytime/pkg/logger"
)

// bestEffort is the single place where failures are logged and dropped.
// It covers provider sign-out and local storage cleanup during logout,
// which must never block the user from leaving their account.
func bestEffort(ctx context.Context, log *slog.Logger, op string, err error) {
	if err == nil {
		return
	}
	log.WarnContext(ctx, "best-effort operation failed",
		logger.Action(op),
		logger.Error(err),
	)
}
