package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group bundles attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups non-nil errors by their position.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// Email is logged as-is; callers must not pass it at levels shipped to
// third-party aggregators.
func Email(email string) slog.Attr {
	if email == "" {
		return slog.Attr{}
	}
	return slog.String("email", email)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event is the auth provider event kind being handled.
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Action is the session store action kind being dispatched.
func Action(name string) slog.Attr {
	return slog.String("action", name)
}

// Generation is the session generation an initialization started in.
func Generation(gen uint64) slog.Attr {
	return slog.Uint64("generation", gen)
}

func Status(code int) slog.Attr {
	if code == 0 {
		return slog.Attr{}
	}
	return slog.Int("status", code)
}

func Route(path string) slog.Attr {
	return slog.String("route", path)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
