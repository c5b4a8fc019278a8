package notifications

import "time"

// Variant selects how a notification is rendered.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSuccess     Variant = "success"
	VariantDestructive Variant = "destructive"
)

// Anonymous is the recipient of notifications raised without a signed-in user.
const Anonymous = ""

// Notification is a single user-facing notice.
type Notification struct {
	ID          string    `json:"id" yaml:"id"`
	UserID      string    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Variant     Variant   `json:"variant" yaml:"variant"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Info builds a default-variant notification.
func Info(title, description string) Notification {
	return Notification{Variant: VariantDefault, Title: title, Description: description}
}

func Success(title, description string) Notification {
	return Notification{Variant: VariantSuccess, Title: title, Description: description}
}

func Destructive(title, description string) Notification {
	return Notification{Variant: VariantDestructive, Title: title, Description: description}
}

// For returns a copy addressed to userID.
func (n Notification) For(userID string) Notification {
	n.UserID = userID
	return n
}

// IsError reports whether the notification describes a failure.
func (n Notification) IsError() bool {
	return n.Variant == VariantDestructive
}
