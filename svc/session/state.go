package session

import (
	"maps"

	"github.com/dmitrymomot/storytime/svc/profile"
)

// User is the identity record issued by the auth provider.
type User struct {
	ID        string         `json:"id" yaml:"id"`
	Email     string         `json:"email" yaml:"email"`
	AvatarURL string         `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Identity converts the user into the input profile resolution needs.
func (u User) Identity() profile.Identity {
	return profile.Identity{
		ID:        u.ID,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Metadata:  maps.Clone(u.Metadata),
	}
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Metadata = maps.Clone(u.Metadata)
	return &c
}

// State is the single source of truth for the signed-in user.
type State struct {
	User            *User            `json:"user" yaml:"user"`
	Profile         *profile.Profile `json:"profile" yaml:"profile"`
	IsAuthenticated bool             `json:"is_authenticated" yaml:"is_authenticated"`
	IsLoading       bool             `json:"is_loading" yaml:"is_loading"`
	IsInitialized   bool             `json:"is_initialized" yaml:"is_initialized"`
	IsInitializing  bool             `json:"is_initializing" yaml:"is_initializing"`
	Error           string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Initial returns the state at application start.
func Initial() State {
	return State{IsLoading: true}
}

// UserID returns the signed-in user's id, or "".
func (s State) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// clone deep-copies the pointer fields so no two states share memory.
func (s State) clone() State {
	s.User = s.User.clone()
	if s.Profile != nil {
		p := *s.Profile
		s.Profile = &p
	}
	return s
}
