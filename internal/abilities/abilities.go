// Package abilities resolves what a viewer may do with debt records. The
// resolver is a pure function over the viewer's role; it holds no state and is
// evaluated per request.
package abilities

import (
	"github.com/dluzirna/dluzirna/internal/models"
)

// Viewer identifies the acting party. A nil user is the anonymous viewer.
type Viewer struct {
	User *models.User
}

// Anonymous is the viewer for unauthenticated requests.
var Anonymous = Viewer{}

// ForUser wraps an authenticated user as a viewer.
func ForUser(u *models.User) Viewer {
	return Viewer{User: u}
}

// Ability is the capability set resolved for one viewer. Zero value denies
// everything.
type Ability struct {
	// ManageDebts covers create, update, delete and notification resend for
	// every debt record.
	ManageDebts bool
	// ListOwnDebts covers the customer index over debts linked to the viewer.
	ListOwnDebts bool
	// Register covers the public self-registration page.
	Register bool
	// ViewDashboard covers the admin dashboard.
	ViewDashboard bool
	// ManageUsers covers deleting user accounts.
	ManageUsers bool

	viewer Viewer
}

// Resolve returns the capability set for the viewer.
func Resolve(v Viewer) Ability {
	switch {
	case v.User.IsAdmin():
		return Ability{
			ManageDebts:   true,
			ViewDashboard: true,
			ManageUsers:   true,
			viewer:        v,
		}
	case v.User.IsCustomer():
		return Ability{
			ListOwnDebts: true,
			viewer:       v,
		}
	default:
		// Anonymous: homepage, registration and the token view only.
		return Ability{
			Register: true,
			viewer:   v,
		}
	}
}

// CanViewDebt reports whether the viewer may read the debt through the
// authenticated identifier path. Anonymous viewers can never read a debt by
// identifier; they only hold the token path, which is resolved elsewhere.
//
// Scoped lookups remain the primary enforcement: callers must still filter by
// customer_user_id so unauthorized records surface as not-found. This check
// exists for defence in depth on already-loaded records.
func (a Ability) CanViewDebt(debt *models.Debt) bool {
	if debt == nil {
		return false
	}
	if a.ManageDebts {
		return true
	}
	u := a.viewer.User
	if u.IsCustomer() && debt.CustomerUserID != nil && *debt.CustomerUserID == u.ID {
		return true
	}
	return false
}

// CanManageUser reports whether the viewer may delete the given account.
// Admins manage all accounts except their own while they still own debts;
// that last rule is enforced at the service layer where the count is known.
func (a Ability) CanManageUser(target *models.User) bool {
	return a.ManageUsers && target != nil
}
