package profile

import (
	"strings"
	"time"
)

// Tier is a subscription tier.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierFamily  Tier = "family"
)

// DefaultTier is assigned to lazily created profiles.
const DefaultTier = TierFree

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPremium, TierFamily:
		return true
	default:
		return false
	}
}

// Profile is the application-level user record.
type Profile struct {
	ID               string    `json:"id" yaml:"id"`
	Name             string    `json:"name" yaml:"name"`
	Email            string    `json:"email" yaml:"email"`
	AvatarURL        string    `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	SubscriptionTier Tier      `json:"subscription_tier" yaml:"subscription_tier"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" yaml:"updated_at"`
}

// Identity is the subset of the auth provider's user record needed to
// create a profile.
type Identity struct {
	ID        string
	Email     string
	AvatarURL string
	Metadata  map[string]any
}

// DisplayName picks the metadata name, then full_name, then the email's
// local part, then "User".
func (i Identity) DisplayName() string {
	for _, key := range []string{"name", "full_name"} {
		if name := i.metadataString(key); name != "" {
			return name
		}
	}
	if local, _, ok := strings.Cut(i.Email, "@"); ok && strings.TrimSpace(local) != "" {
		return strings.TrimSpace(local)
	}
	return "User"
}

// Avatar prefers metadata avatar_url over the identity's own field.
func (i Identity) Avatar() string {
	if url := i.metadataString("avatar_url"); url != "" {
		return url
	}
	return i.AvatarURL
}

// NewProfile builds the record created on first sign-in.
func (i Identity) NewProfile() Profile {
	return Profile{
		ID:               i.ID,
		Name:             i.DisplayName(),
		Email:            i.Email,
		AvatarURL:        i.Avatar(),
		SubscriptionTier: DefaultTier,
	}
}

func (i Identity) metadataString(key string) string {
	v, ok := i.Metadata[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
