package session

import "github.com/dmitrymomot/storytime/svc/profile"

// Kind names a session transition.
type Kind string

const (
	KindInitialize      Kind = "INITIALIZE"
	KindLoginSuccess    Kind = "LOGIN_SUCCESS"
	KindProfileLoaded   Kind = "PROFILE_LOADED"
	KindLogout          Kind = "LOGOUT"
	KindSetLoading      Kind = "SET_LOADING"
	KindSetError        Kind = "SET_ERROR"
	KindUpdateUser      Kind = "UPDATE_USER"
	KindSetInitializing Kind = "SET_INITIALIZING"
)

// Action is a dispatched transition. Only the fields relevant to Kind are
// read by Reduce.
type Action struct {
	Kind    Kind
	User    *User
	Profile *profile.Profile
	Flag    bool
	Error   string
}

// Initialize completes startup with the restored user, or nil for none.
func Initialize(u *User, p *profile.Profile) Action {
	return Action{Kind: KindInitialize, User: u, Profile: p}
}

// LoginSuccess records a signed-in user and their profile.
func LoginSuccess(u *User, p *profile.Profile) Action {
	return Action{Kind: KindLoginSuccess, User: u, Profile: p}
}

// ProfileLoaded attaches a profile resolved after sign-in.
func ProfileLoaded(p *profile.Profile) Action {
	return Action{Kind: KindProfileLoaded, Profile: p}
}

// Logout clears the user and profile.
func Logout() Action {
	return Action{Kind: KindLogout}
}

// SetLoading toggles the busy flag shown while an action runs.
func SetLoading(loading bool) Action {
	return Action{Kind: KindSetLoading, Flag: loading}
}

// SetError records a user-facing message; an empty message clears it.
func SetError(msg string) Action {
	return Action{Kind: KindSetError, Error: msg}
}

// UpdateUser replaces the user record, keeping the profile.
func UpdateUser(u *User) Action {
	return Action{Kind: KindUpdateUser, User: u}
}

// SetInitializing marks the startup probe as running.
func SetInitializing(initializing bool) Action {
	return Action{Kind: KindSetInitializing, Flag: initializing}
}
