// Package email sends transactional mail such as password recovery links.
//
// Postmark is used when POSTMARK_SERVER_TOKEN is set. Otherwise, with
// EMAIL_OUTBOX_DIR set, messages are written to that directory as HTML plus
// JSON metadata so they can be opened locally:
//
//	var cfg email.Config
//	config.MustLoad(&cfg)
//	sender, err := email.New(cfg)
//	if errors.Is(err, email.ErrDisabled) {
//	    // log instead
//	}
//
//	html, err := templates.Render(ctx, templates.PasswordRecovery(link, cfg.SupportEmail))
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   "user@example.com",
//	    Subject:  templates.RecoverySubject,
//	    BodyHTML: html,
//	    Tag:      "password-recovery",
//	})
//
// All failures wrap one of the package's sentinel errors.
package email
