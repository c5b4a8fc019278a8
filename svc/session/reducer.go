package session

import "github.com/dmitrymomot/storytime/svc/profile"

// Reduce computes the next state. It is pure and total: unknown kinds
// return the state unchanged, and neither argument is mutated or aliased
// by the result.
func Reduce(state State, action Action) State {
	next := state.clone()

	switch action.Kind {
	case KindInitialize:
		next.User = action.User.clone()
		next.Profile = matchingProfile(action)
		next.IsAuthenticated = next.User != nil
		next.IsLoading = false
		next.IsInitialized = true
		next.IsInitializing = false

	case KindLoginSuccess:
		next.User = action.User.clone()
		next.Profile = matchingProfile(action)
		next.IsAuthenticated = next.User != nil
		next.IsLoading = false
		next.Error = ""

	case KindProfileLoaded:
		if next.User == nil || action.Profile == nil || action.Profile.ID == next.User.ID {
			next.Profile = copyProfile(action)
		}

	case KindLogout:
		next = State{IsInitialized: true}

	case KindSetLoading:
		next.IsLoading = action.Flag

	case KindSetError:
		next.Error = action.Error
		next.IsLoading = false

	case KindUpdateUser:
		next.User = action.User.clone()
		next.IsAuthenticated = next.User != nil
		if next.User == nil || (next.Profile != nil && next.Profile.ID != next.User.ID) {
			next.Profile = nil
		}

	case KindSetInitializing:
		next.IsInitializing = action.Flag
	}

	return next
}

// matchingProfile keeps the profile/user id invariant: a profile that does
// not belong to the action's user is dropped.
func matchingProfile(a Action) *profile.Profile {
	if a.User == nil || a.Profile == nil || a.Profile.ID != a.User.ID {
		return nil
	}
	return copyProfile(a)
}

func copyProfile(a Action) *profile.Profile {
	if a.Profile == nil {
		return nil
	}
	p := *a.Profile
	return &p
}
