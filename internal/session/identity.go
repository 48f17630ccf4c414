package session

import (
	"net/http"

	"github.com/example/vicere/internal/wp"
)

// PointsProfile holds the loyalty balances of a user.
type PointsProfile struct {
	Balance     float64 `json:"balance"`
	Vicoins     float64 `json:"vicoins"`
	TotalEarned float64 `json:"total_earned"`
	TotalSpent  float64 `json:"total_spent"`
}

// User is the profile snapshot persisted under KeyProfile.
type User struct {
	ID        int64         `json:"id"`
	Email     string        `json:"email"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Points    PointsProfile `json:"points_profile"`
}

// Identity is either Anonymous or Authenticated.
type Identity interface {
	isIdentity()
}

// Anonymous is the logged-out identity. Its points profile is always zero.
type Anonymous struct {
	Points PointsProfile
}

type Authenticated struct {
	User  User
	Token string
}

func (Anonymous) isIdentity()     {}
func (Authenticated) isIdentity() {}

func IsAuthenticated(id Identity) bool {
	_, ok := id.(Authenticated)
	return ok
}

// Headers are attached by callers to every authenticated backend call.
type Headers struct {
	Authorization string
	Session       string
}

// HTTP returns h as an http.Header.
func (h Headers) HTTP() http.Header {
	hdr := http.Header{}
	if h.Authorization != "" {
		hdr.Set("Authorization", h.Authorization)
	}
	if h.Session != "" {
		hdr.Set(wp.HeaderSession, h.Session)
	}
	return hdr
}

// State is the lifecycle state of a Manager.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}
