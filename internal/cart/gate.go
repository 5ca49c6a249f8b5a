package cart

import (
	"github.com/angelmondragon/cartsync/pkg/auth"
	"github.com/angelmondragon/cartsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
)

const (
	MessageAdminForbidden  = "administrators cannot use the cart"
	MessageVendorForbidden = "vendors cannot use the cart"
	MessageRoleForbidden   = "this account cannot use the cart"
)

// Policy decides which roles may hold a cart at all.
type Policy struct {
	AllowVendor bool
}

// CanUseCart is a pure predicate over the actor's role.
func (p Policy) CanUseCart(actor *auth.Actor) bool {
	if actor == nil {
		return false
	}
	switch {
	case actor.Role.Matches(enums.ActorRoleAdmin):
		return false
	case actor.Role.Matches(enums.ActorRoleVendor):
		return p.AllowVendor
	case actor.Role.Matches(enums.ActorRoleCustomer):
		return true
	}
	return false
}

func (p Policy) check(actor *auth.Actor) error {
	if p.CanUseCart(actor) {
		return nil
	}
	switch {
	case actor == nil:
		return pkgerrors.New(pkgerrors.CodeUnauthenticated, "authentication required")
	case actor.Role.Matches(enums.ActorRoleAdmin):
		return pkgerrors.New(pkgerrors.CodeForbidden, MessageAdminForbidden)
	case actor.Role.Matches(enums.ActorRoleVendor):
		return pkgerrors.New(pkgerrors.CodeForbidden, MessageVendorForbidden)
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, MessageRoleForbidden)
}
