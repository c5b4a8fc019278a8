package email

// Config selects how outbound mail leaves the process. A Postmark server
// token wins over OutboxDir; with neither set sending is disabled.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@storytime.app"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@storytime.app"`

	// OutboxDir receives rendered messages as files during development.
	OutboxDir string `env:"EMAIL_OUTBOX_DIR"`
}

// Enabled reports whether any transport is configured.
func (c Config) Enabled() bool {
	return c.PostmarkServerToken != "" || c.OutboxDir != ""
}
