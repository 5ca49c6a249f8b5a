package auth

import (
	"strings"

	"github.com/angelmondragon/cartsync/pkg/enums"
)

// Actor is the authenticated identity driving a cart.
type Actor struct {
	ID   string
	Role enums.ActorRole
}

// SessionContext is resolved once per request and handed to every cart
// operation; nothing downstream reads identity from ambient state.
type SessionContext struct {
	Token string
	Actor *Actor
}

// NewSessionContext builds a session for the given bearer token and actor.
func NewSessionContext(token string, actor *Actor) SessionContext {
	return SessionContext{Token: strings.TrimSpace(token), Actor: actor}
}

// Authenticated reports whether the session carries both a token and an actor.
func (s SessionContext) Authenticated() bool {
	return s.Token != "" && s.Actor != nil && strings.TrimSpace(s.Actor.ID) != ""
}

// ActorID returns the actor identifier or an empty string.
func (s SessionContext) ActorID() string {
	if s.Actor == nil {
		return ""
	}
	return s.Actor.ID
}

// Role returns the actor role or an empty role.
func (s SessionContext) Role() enums.ActorRole {
	if s.Actor == nil {
		return ""
	}
	return s.Actor.Role
}

// SessionFromClaims converts verified claims into a SessionContext.
func SessionFromClaims(token string, claims *AccessTokenClaims) SessionContext {
	if claims == nil {
		return SessionContext{Token: strings.TrimSpace(token)}
	}
	return NewSessionContext(token, &Actor{ID: claims.UserID, Role: claims.Role})
}
