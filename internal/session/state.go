// Package session tracks who is logged in. A session is an opaque random
// token stored in Redis; requests carry it in a signed cookie and handlers
// see the resolved State through the request context.
package session

import "fmt"

type kind uint8

const (
	kindAnonymous kind = iota
	kindAuthenticated
)

// State is either Anonymous or Authenticated with a user id. The zero value
// is Anonymous.
type State struct {
	kind   kind
	userID uint
}

// Anonymous is the state of a request with no valid session.
func Anonymous() State {
	return State{}
}

// Authenticated is the state of a request acting as userID.
func Authenticated(userID uint) State {
	if userID == 0 {
		return Anonymous()
	}
	return State{kind: kindAuthenticated, userID: userID}
}

// UserID returns the acting user and whether there is one.
func (s State) UserID() (uint, bool) {
	return s.userID, s.kind == kindAuthenticated
}

// IsAuthenticated reports whether the state carries a user.
func (s State) IsAuthenticated() bool {
	return s.kind == kindAuthenticated
}

func (s State) String() string {
	if s.kind == kindAuthenticated {
		return fmt.Sprintf("Authenticated(%d)", s.userID)
	}
	return "Anonymous"
}
