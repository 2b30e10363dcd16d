// Package policy contains the authorization decision rules.
//
// Every mutating or access-restricted operation asks Decide whether the
// principal may perform an action against a resource snapshot. The rules
// are pure functions — no I/O, no clock, no storage — which keeps every
// role/ownership check in one auditable place instead of scattered through
// the services.
//
// Precedence, evaluated top to bottom:
//
//  1. admin: allowed everything
//  2. resource ownership: the principal owns the resource, for the
//     own-scoped actions (reads, updates, pending-order cancellation)
//  3. librarian: book creation, mutation of own books, order handling
//     for own books
//  4. deny
package policy

import "github.com/sakif/booknest/internal/model"

// Action names an operation subject to authorization.
type Action string

const (
	BookCreate    Action = "book.create"
	BookUpdate    Action = "book.update"
	BookDelete    Action = "book.delete"
	BookSetStatus Action = "book.set_status"

	OrderRead             Action = "order.read"
	OrderListForUser      Action = "order.list_for_user"
	OrderListForLibrarian Action = "order.list_for_librarian"
	OrderTransition       Action = "order.transition"
	OrderCancel           Action = "order.cancel"

	ReviewUpdate Action = "review.update"
	ReviewDelete Action = "review.delete"

	WishlistView   Action = "wishlist.view"
	WishlistRemove Action = "wishlist.remove"

	AccountRead    Action = "account.read"
	AccountUpdate  Action = "account.update"
	AccountList    Action = "account.list"
	AccountSetRole Action = "account.set_role"

	PaymentRead Action = "payment.read"
)

// Reason codes carried by every deny.
type Reason string

const (
	ReasonNotOwner         Reason = "NotOwner"
	ReasonInsufficientRole Reason = "InsufficientRole"
	ReasonInvalidState     Reason = "InvalidState"
)

// Principal is the authenticated actor making a request.
type Principal struct {
	ID   string
	Role model.Role
}

// Resource is the snapshot of the target resource that the decision rules
// need. Zero fields mean "not applicable" for the action at hand.
type Resource struct {
	// OwnerID is the account recorded as creator/placer of the resource.
	OwnerID string
	// BookOwnerID is, for order actions, the librarian owning the ordered
	// book.
	BookOwnerID string
	// State is the resource's current lifecycle state (order status).
	State string
}

// Decision is the tagged allow/deny result.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason Reason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

// Decide evaluates whether p may perform action against res.
func Decide(p Principal, action Action, res Resource) Decision {
	// Rule 1: admins may do everything. State-machine legality is still
	// enforced by the order service, so an admin cannot, say, cancel a
	// delivered order — that fails as an invalid transition, not here.
	if p.Role == model.RoleAdmin {
		return allow()
	}

	switch action {
	// Rule 2: own-scoped actions.
	case AccountRead, AccountUpdate:
		if p.ID == res.OwnerID {
			return allow()
		}
		return deny(ReasonNotOwner, "you may only access your own account")

	case OrderListForUser:
		if p.ID == res.OwnerID {
			return allow()
		}
		return deny(ReasonNotOwner, "you may only list your own orders")

	case OrderRead:
		if p.ID == res.OwnerID {
			return allow()
		}
		if p.Role == model.RoleLibrarian && p.ID == res.BookOwnerID {
			return allow()
		}
		return deny(ReasonNotOwner, "you may only view your own orders")

	case OrderCancel:
		if p.ID == res.OwnerID {
			if res.State != string(model.OrderPending) {
				return deny(ReasonInvalidState, "only pending orders can be cancelled")
			}
			return allow()
		}
		if p.Role == model.RoleLibrarian && p.ID == res.BookOwnerID {
			if res.State != string(model.OrderPending) && res.State != string(model.OrderConfirmed) {
				return deny(ReasonInvalidState, "order can no longer be cancelled")
			}
			return allow()
		}
		return deny(ReasonNotOwner, "you may only cancel your own orders")

	case ReviewUpdate:
		if p.ID == res.OwnerID {
			return allow()
		}
		return deny(ReasonNotOwner, "you may only edit your own reviews")

	case ReviewDelete:
		if p.ID == res.OwnerID {
			return allow()
		}
		return deny(ReasonNotOwner, "you may only delete your own reviews")

	case WishlistView, WishlistRemove:
		if p.ID == res.OwnerID {
			return allow()
		}
		return deny(ReasonNotOwner, "you may only access your own wishlist")

	case PaymentRead:
		if p.ID == res.OwnerID {
			return allow()
		}
		return deny(ReasonNotOwner, "you may only access your own payments")

	// Rule 3: librarian actions.
	case BookCreate:
		if p.Role == model.RoleLibrarian {
			return allow()
		}
		return deny(ReasonInsufficientRole, "librarian role required")

	case BookUpdate:
		if p.Role != model.RoleLibrarian {
			return deny(ReasonInsufficientRole, "librarian role required")
		}
		if p.ID != res.OwnerID {
			return deny(ReasonNotOwner, "you can only update your own books")
		}
		return allow()

	case OrderTransition:
		if p.Role != model.RoleLibrarian {
			return deny(ReasonInsufficientRole, "librarian role required")
		}
		if p.ID != res.BookOwnerID {
			return deny(ReasonNotOwner, "you can only handle orders for your own books")
		}
		return allow()

	case OrderListForLibrarian:
		if p.Role != model.RoleLibrarian {
			return deny(ReasonInsufficientRole, "librarian role required")
		}
		if p.ID != res.OwnerID {
			return deny(ReasonNotOwner, "you can only list orders for your own books")
		}
		return allow()

	// Admin-only actions (rule 1 already returned for admins).
	case BookDelete, BookSetStatus, AccountList, AccountSetRole:
		return deny(ReasonInsufficientRole, "admin role required")
	}

	// Rule 4: default deny.
	return deny(ReasonInsufficientRole, "action not permitted")
}
