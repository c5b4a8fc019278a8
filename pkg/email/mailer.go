package email

import (
	"context"
	"errors"

	"github.com/dmitrymomot/storytime/pkg/validator"
)

// Sender delivers a rendered message.
type Sender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"`
}

func (p SendEmailParams) Validate() error {
	if err := validator.Apply(
		validator.RequiredString("send_to", p.SendTo),
		validator.ValidEmail("send_to", p.SendTo),
		validator.RequiredString("subject", p.Subject),
		validator.RequiredString("body_html", p.BodyHTML),
	); err != nil {
		return errors.Join(ErrInvalidParams, err)
	}
	return nil
}

// New returns the sender cfg selects.
func New(cfg Config) (Sender, error) {
	switch {
	case cfg.PostmarkServerToken != "":
		return NewPostmarkClient(cfg)
	case cfg.OutboxDir != "":
		return NewOutbox(cfg.OutboxDir), nil
	}
	return nil, ErrDisabled
}
