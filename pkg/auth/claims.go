package auth

import (
	"github.com/angelmondragon/cartsync/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID string
	Role   enums.ActorRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT presented by portal clients.
type AccessTokenClaims struct {
	UserID string          `json:"user_id"`
	Role   enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
