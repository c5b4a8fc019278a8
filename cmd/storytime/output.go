package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/storytime/pkg/logger"
	"github.com/dmitrymomot/storytime/pkg/notifications"
	"github.com/dmitrymomot/storytime/svc/session"
)

const reportNotificationLimit = 20

// report is what a command prints after an action has settled.
type report struct {
	Action        string                       `yaml:"action"`
	State         session.State                `yaml:"state"`
	Navigation    []string                     `yaml:"navigation,omitempty"`
	Notifications []notifications.Notification `yaml:"notifications,omitempty"`
	Error         string                       `yaml:"error,omitempty"`
}

// collect builds a report and resets the per-action navigation and
// notification history.
func (a *app) collect(ctx context.Context, action string, actionErr error) report {
	r := report{
		Action:     action,
		State:      a.store.State(),
		Navigation: a.navigator.drain(),
	}
	if actionErr != nil {
		r.Error = actionErr.Error()
	}

	list, err := a.notices.List(ctx, notifications.Anonymous, reportNotificationLimit)
	if err != nil {
		a.log.WarnContext(ctx, "failed to list notifications", logger.Error(err))
	}
	r.Notifications = list
	if err := a.notices.Clear(ctx, notifications.Anonymous); err != nil {
		a.log.WarnContext(ctx, "failed to clear notifications", logger.Error(err))
	}
	return r
}

func writeReport(w io.Writer, r report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// stateHandler serves the current session state on the ops router.
func (a *app) stateHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(a.store.State()); err != nil {
			a.log.WarnContext(r.Context(), "failed to write state", logger.Error(err))
		}
	})
}
