// Package logger builds the *slog.Logger used across storytime and provides
// attribute constructors so every component logs auth events with the same
// keys.
//
// New assembles a text or JSON handler from functional options and wraps it
// with a decorator that pulls attributes out of context.Context on every
// record (for example the id of the user currently signed in):
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.AppEnv, "storytime"),
//	    logger.WithContextValue("user_id", ctxKeyUserID),
//	)
//	log.InfoContext(ctx, "session initialized",
//	    logger.Component("reconciler"),
//	    logger.UserID(user.ID),
//	)
//
// Helpers such as Error and UserID return an empty slog.Attr for nil input,
// which slog drops, so call sites never need their own nil checks.
//
// Components that accept an optional logger default to Discard.
package logger
