package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// RecoverySubject is the subject line of PasswordRecovery.
const RecoverySubject = "Reset your Storytime password"

// PasswordRecovery is the body of the password reset email.
func PasswordRecovery(link, supportEmail string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, layout(
			`<p>Someone asked to reset the password of your Storytime account.</p>`+
				`<p><a href="`+templ.EscapeString(link)+`" style="`+buttonStyle+`">Choose a new password</a></p>`+
				`<p>If it was not you, ignore this email or write to `+
				`<a href="mailto:`+templ.EscapeString(supportEmail)+`">`+templ.EscapeString(supportEmail)+`</a>.</p>`,
		))
		return err
	})
}

const buttonStyle = "display:inline-block;padding:12px 20px;background:#6d28d9;color:#ffffff;border-radius:6px;text-decoration:none"

func layout(body string) string {
	return `<!DOCTYPE html><html><body style="font-family:sans-serif;line-height:1.5;color:#1f2937">` +
		body +
		`</body></html>`
}
