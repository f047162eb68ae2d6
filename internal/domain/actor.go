package domain

// Actor is the identity a request acts as. The zero value is the anonymous
// visitor. Actors are passed explicitly to every service call instead of
// being read from ambient request state.
type Actor struct {
	UserID    string
	Username  string
	SessionID string
}

// Anonymous returns the identity of a visitor without a session.
func Anonymous() Actor { return Actor{} }

// Authenticated reports whether the actor is bound to a user.
func (a Actor) Authenticated() bool { return a.UserID != "" }

// Is reports whether the actor is the user identified by userID. Anonymous
// actors are never anyone.
func (a Actor) Is(userID string) bool {
	return a.Authenticated() && a.UserID == userID
}
